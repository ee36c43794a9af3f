package filesource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/datastore"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

type recordingSink struct {
	store  subsystems.DataStore
	statCh chan interfaces.DataSourceStatus
}

func newRecordingSink(store subsystems.DataStore) *recordingSink {
	return &recordingSink{store: store, statCh: make(chan interfaces.DataSourceStatus, 10)}
}

func (r *recordingSink) Init(allData []st.Collection) bool {
	return r.store.Init(allData) == nil
}

func (r *recordingSink) Upsert(kind st.DataKind, key string, item st.ItemDescriptor) bool {
	_, err := r.store.Upsert(kind, key, item)
	return err == nil
}

func (r *recordingSink) UpdateStatus(state interfaces.DataSourceState, errInfo interfaces.DataSourceErrorInfo) {
	r.statCh <- interfaces.DataSourceStatus{State: state, LastError: errInfo}
}

func (r *recordingSink) GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider { return nil }

func writeTempFile(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestFileDataSourceLoadsJSON(t *testing.T) {
	path := writeTempFile(t, "flags.json", `{
		"flags": {"flag1": {"key": "flag1", "version": 1, "on": true}},
		"segments": {"seg1": {"key": "seg1", "version": 1}}
	}`)

	store := datastore.NewInMemory(fflog.NewDefaultLoggers())
	sink := newRecordingSink(store)
	fs := New(sink, fflog.NewDefaultLoggers(), path)

	ready := make(chan struct{})
	fs.Start(ready)
	<-ready
	assert.True(t, fs.IsInitialized())

	item, err := store.Get(ldmodel.Features, "flag1")
	require.NoError(t, err)
	flag, ok := item.Item.(*ldmodel.Flag)
	require.True(t, ok)
	assert.True(t, flag.On)
}

func TestFileDataSourceLoadsYAML(t *testing.T) {
	path := writeTempFile(t, "flags.yaml", "flags:\n  flag1:\n    key: flag1\n    version: 1\n    on: true\n")

	store := datastore.NewInMemory(fflog.NewDefaultLoggers())
	sink := newRecordingSink(store)
	fs := New(sink, fflog.NewDefaultLoggers(), path)

	ready := make(chan struct{})
	fs.Start(ready)
	<-ready
	assert.True(t, fs.IsInitialized())
}

func TestFileDataSourceMissingFileReportsInterrupted(t *testing.T) {
	store := datastore.NewInMemory(fflog.NewDefaultLoggers())
	sink := newRecordingSink(store)
	fs := New(sink, fflog.NewDefaultLoggers(), filepath.Join(t.TempDir(), "nope.json"))

	ready := make(chan struct{})
	fs.Start(ready)
	<-ready
	assert.False(t, fs.IsInitialized())

	select {
	case status := <-sink.statCh:
		assert.Equal(t, interfaces.DataSourceStateInterrupted, status.State)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status")
	}
}

func TestFileDataSourceDuplicateKeyAcrossFilesIsAnError(t *testing.T) {
	path1 := writeTempFile(t, "a.json", `{"flags": {"flag1": {"key": "flag1", "version": 1}}}`)
	path2 := writeTempFile(t, "b.json", `{"flags": {"flag1": {"key": "flag1", "version": 2}}}`)

	store := datastore.NewInMemory(fflog.NewDefaultLoggers())
	sink := newRecordingSink(store)
	fs := New(sink, fflog.NewDefaultLoggers(), path1, path2)

	ready := make(chan struct{})
	fs.Start(ready)
	<-ready
	assert.False(t, fs.IsInitialized())
}

func TestWatchedFileDataSourceStartsUp(t *testing.T) {
	path := writeTempFile(t, "flags.json", `{"flags": {"flag1": {"key": "flag1", "version": 1}}}`)

	store := datastore.NewInMemory(fflog.NewDefaultLoggers())
	sink := newRecordingSink(store)
	w, err := NewWatched(sink, fflog.NewDefaultLoggers(), path)
	require.NoError(t, err)
	defer w.Close()

	ready := make(chan struct{})
	w.Start(ready)
	<-ready
	assert.True(t, w.IsInitialized())
}

func TestWatchedFileDataSourceReloadsOnChange(t *testing.T) {
	path := writeTempFile(t, "flags.json", `{"flags": {"flag1": {"key": "flag1", "version": 1, "on": false}}}`)

	store := datastore.NewInMemory(fflog.NewDefaultLoggers())
	sink := newRecordingSink(store)
	w, err := NewWatched(sink, fflog.NewDefaultLoggers(), path)
	require.NoError(t, err)
	defer w.Close()

	ready := make(chan struct{})
	w.Start(ready)
	<-ready
	require.True(t, w.IsInitialized())

	require.NoError(t, os.WriteFile(path, []byte(`{"flags": {"flag1": {"key": "flag1", "version": 2, "on": true}}}`), 0o600))

	require.Eventually(t, func() bool {
		item, err := store.Get(ldmodel.Features, "flag1")
		if err != nil {
			return false
		}
		flag, ok := item.Item.(*ldmodel.Flag)
		return ok && flag.Version == 2
	}, 5*time.Second, 50*time.Millisecond)
}
