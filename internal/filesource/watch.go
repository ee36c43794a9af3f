package filesource

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/subsystems"
)

// Watched wraps a DataSource with an fsnotify watcher so changes to any configured file
// trigger a Reload. Directories, not just the files, are watched -- this is what lets it
// notice an editor's atomic save-via-rename, which replaces the watched inode entirely.
type Watched struct {
	inner   *DataSource
	watcher *fsnotify.Watcher
	loggers fflog.Loggers

	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewWatched creates a Watched data source over the same files as New, reloading whenever
// fsnotify reports a change to one of their containing directories.
func NewWatched(updates subsystems.DataSourceUpdateSink, loggers fflog.Loggers, paths ...string) (*Watched, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	inner := New(updates, loggers, paths...)
	for _, p := range inner.paths {
		_ = watcher.Add(filepath.Dir(p))
	}
	return &Watched{
		inner:   inner,
		watcher: watcher,
		loggers: loggers,
		closeCh: make(chan struct{}),
	}, nil
}

func (w *Watched) IsInitialized() bool { return w.inner.IsInitialized() }

func (w *Watched) Start(closeWhenReady chan<- struct{}) {
	w.inner.readyCh = closeWhenReady
	w.inner.Reload()
	w.inner.signalStartComplete()
	go w.watch()
}

func (w *Watched) watch() {
	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if isRelevant(w.inner.paths, event.Name) {
				w.drainEvents()
				w.inner.Reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.loggers.Errorf("file watcher error: %s", err)
		}
	}
}

func (w *Watched) drainEvents() {
	for {
		select {
		case <-w.watcher.Events:
		default:
			return
		}
	}
}

func isRelevant(watchedPaths []string, eventPath string) bool {
	for _, p := range watchedPaths {
		if filepath.Clean(p) == filepath.Clean(eventPath) {
			return true
		}
	}
	return false
}

func (w *Watched) Close() error {
	w.closeOnce.Do(func() { close(w.closeCh) })
	return w.watcher.Close()
}
