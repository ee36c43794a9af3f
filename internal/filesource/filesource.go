// Package filesource implements the EXPANSION file-based data source: a bootstrap/offline
// convenience that loads flag and segment definitions from local YAML or JSON files instead
// of a streaming or polling connection, optionally live-reloading them on change.
package filesource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"gopkg.in/ghodss/yaml.v1"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// DataSource loads flag/segment data from one or more files on disk and delivers it to a
// DataSourceUpdateSink. It never watches for changes itself; see Watched for that.
type DataSource struct {
	updates   subsystems.DataSourceUpdateSink
	paths     []string
	loggers   fflog.Loggers
	readyOnce sync.Once
	readyCh   chan<- struct{}

	mu            sync.Mutex
	isInitialized bool
}

// New creates a DataSource that will read paths when Start is called.
func New(updates subsystems.DataSourceUpdateSink, loggers fflog.Loggers, paths ...string) *DataSource {
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if a, err := filepath.Abs(p); err == nil {
			abs = append(abs, a)
		} else {
			abs = append(abs, p)
		}
	}
	return &DataSource{updates: updates, paths: abs, loggers: loggers}
}

func (fs *DataSource) IsInitialized() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.isInitialized
}

func (fs *DataSource) Start(closeWhenReady chan<- struct{}) {
	fs.readyCh = closeWhenReady
	fs.Reload()
	fs.signalStartComplete()
}

// Reload rereads every configured file and replaces the store's contents. If any file fails
// to load or parse, the store is left untouched and the error is reported via UpdateStatus.
func (fs *DataSource) Reload() {
	var parsed []fileContents
	for _, path := range fs.paths {
		data, err := readFile(path)
		if err != nil {
			fs.loggers.Errorf("unable to load flag data from %s: %s", path, err)
			fs.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
				Kind: interfaces.DataSourceErrorKindInvalidData, Message: err.Error(), Time: time.Now(),
			})
			return
		}
		parsed = append(parsed, data)
	}

	collections, err := mergeFileContents(parsed...)
	if err != nil {
		fs.loggers.Errorf("error merging flag data files: %s", err)
		fs.updates.UpdateStatus(interfaces.DataSourceStateInterrupted, interfaces.DataSourceErrorInfo{
			Kind: interfaces.DataSourceErrorKindInvalidData, Message: err.Error(), Time: time.Now(),
		})
		return
	}

	if fs.updates.Init(collections) {
		fs.mu.Lock()
		fs.isInitialized = true
		fs.mu.Unlock()
		fs.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{})
		fs.signalStartComplete()
	}
}

func (fs *DataSource) signalStartComplete() {
	fs.readyOnce.Do(func() {
		if fs.readyCh != nil {
			close(fs.readyCh)
		}
	})
}

func (fs *DataSource) Close() error { return nil }

// fileContents is the shape of one source file: a map of flag/segment keys to their full
// definitions. Every field is optional so a file can contain just flags, just segments, or both.
type fileContents struct {
	Flags    map[string]ldmodel.Flag    `json:"flags,omitempty"`
	Segments map[string]ldmodel.Segment `json:"segments,omitempty"`
}

func readFile(path string) (fileContents, error) {
	var contents fileContents
	raw, err := os.ReadFile(path)
	if err != nil {
		return contents, fmt.Errorf("unable to read file: %w", err)
	}
	if looksLikeJSON(raw) {
		err = json.Unmarshal(raw, &contents)
	} else {
		err = yaml.Unmarshal(raw, &contents)
	}
	if err != nil {
		return contents, fmt.Errorf("error parsing file: %w", err)
	}
	return contents, nil
}

func looksLikeJSON(raw []byte) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(string(raw), unicode.IsSpace), "{")
}

func mergeFileContents(files ...fileContents) ([]st.Collection, error) {
	flags := map[string]st.ItemDescriptor{}
	segments := map[string]st.ItemDescriptor{}

	for _, f := range files {
		for key, flag := range f.Flags {
			if _, exists := flags[key]; exists {
				return nil, fmt.Errorf("flag %q is defined in more than one file", key)
			}
			flagCopy := flag
			flagCopy.Key = key
			flagCopy.Preprocess()
			flags[key] = st.ItemDescriptor{Version: flagCopy.Version, Item: &flagCopy}
		}
		for key, seg := range f.Segments {
			if _, exists := segments[key]; exists {
				return nil, fmt.Errorf("segment %q is defined in more than one file", key)
			}
			segCopy := seg
			segCopy.Key = key
			for i := range segCopy.Rules {
				for j := range segCopy.Rules[i].Clauses {
					segCopy.Rules[i].Clauses[j].Preprocess()
				}
			}
			segments[key] = st.ItemDescriptor{Version: segCopy.Version, Item: &segCopy}
		}
	}

	return []st.Collection{
		{Kind: ldmodel.Segments, Items: toKeyed(segments)},
		{Kind: ldmodel.Features, Items: toKeyed(flags)},
	}, nil
}

func toKeyed(m map[string]st.ItemDescriptor) []st.KeyedItemDescriptor {
	items := make([]st.KeyedItemDescriptor, 0, len(m))
	for k, v := range m {
		items = append(items, st.KeyedItemDescriptor{Key: k, Item: v})
	}
	return items
}
