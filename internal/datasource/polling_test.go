package datasource

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

type fakeUpdates struct {
	initCh  chan []st.Collection
	statCh  chan interfaces.DataSourceStatus
	storeSP interfaces.DataStoreStatusProvider
}

func newFakeUpdates() *fakeUpdates {
	return &fakeUpdates{
		initCh: make(chan []st.Collection, 10),
		statCh: make(chan interfaces.DataSourceStatus, 10),
	}
}

func (f *fakeUpdates) Init(allData []st.Collection) bool {
	f.initCh <- allData
	return true
}

func (f *fakeUpdates) Upsert(st.DataKind, string, st.ItemDescriptor) bool { return true }

func (f *fakeUpdates) UpdateStatus(state interfaces.DataSourceState, errInfo interfaces.DataSourceErrorInfo) {
	f.statCh <- interfaces.DataSourceStatus{State: state, LastError: errInfo}
}

func (f *fakeUpdates) GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider {
	return f.storeSP
}

func testClientContext(loggers fflog.Loggers) subsystems.ClientContext {
	return subsystems.BasicClientContext{Logging: subsystems.LoggingConfiguration{Loggers: loggers}}
}

func TestPollingDataSourceSuccessfulPoll(t *testing.T) {
	body := `{"flags": {"flag1": {"key": "flag1", "version": 1}}, "segments": {}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	updates := newFakeUpdates()
	pp := NewPollingDataSource(testClientContext(fflog.NewDefaultLoggers()), updates, PollConfig{
		BaseURI:      server.URL,
		PollInterval: MinimumPollInterval,
	})
	ready := make(chan struct{})
	pp.Start(ready)
	defer pp.Close()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for first poll")
	}
	assert.True(t, pp.IsInitialized())

	select {
	case data := <-updates.initCh:
		require.Len(t, data, 1)
		assert.Equal(t, "flag1", data[0].Items[0].Key)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Init")
	}
}

func TestPollingDataSourceBelowMinimumIntervalIsRaised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	updates := newFakeUpdates()
	pp := NewPollingDataSource(testClientContext(fflog.NewDefaultLoggers()), updates, PollConfig{
		BaseURI:      server.URL,
		PollInterval: time.Second,
	})
	assert.Equal(t, MinimumPollInterval, pp.pollInterval)
}

func TestPollingDataSourceUnrecoverableErrorLatchesOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	updates := newFakeUpdates()
	pp := NewPollingDataSource(testClientContext(fflog.NewDefaultLoggers()), updates, PollConfig{
		BaseURI:      server.URL,
		PollInterval: MinimumPollInterval,
	})
	ready := make(chan struct{})
	pp.Start(ready)
	defer pp.Close()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for poll to give up")
	}
	assert.False(t, pp.IsInitialized())

	select {
	case status := <-updates.statCh:
		assert.Equal(t, interfaces.DataSourceStateOff, status.State)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status")
	}
}

func TestNullDataSourceReportsValidAndInitialized(t *testing.T) {
	updates := newFakeUpdates()
	n := NewNullDataSource(updates)
	assert.True(t, n.IsInitialized())

	ready := make(chan struct{})
	n.Start(ready)
	<-ready

	select {
	case status := <-updates.statCh:
		assert.Equal(t, interfaces.DataSourceStateValid, status.State)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status")
	}
	assert.NoError(t, n.Close())
}
