package bigsegments

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/subsystems"
)

type fakeMembership map[string]bool

func (m fakeMembership) CheckMembership(segmentRef string) *bool {
	if v, ok := m[segmentRef]; ok {
		return &v
	}
	return nil
}

type fakeStore struct {
	mu         sync.Mutex
	lastUpdate time.Time
	membership map[string]subsystems.BigSegmentMembership
	metaErr    error
	memberErr  error
	closed     bool
}

func (f *fakeStore) GetMetadata() (subsystems.BigSegmentStoreMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return subsystems.BigSegmentStoreMetadata{}, f.metaErr
	}
	return subsystems.BigSegmentStoreMetadata{LastUpToDate: f.lastUpdate}, nil
}

func (f *fakeStore) GetMembership(contextHash string) (subsystems.BigSegmentMembership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberErr != nil {
		return nil, f.memberErr
	}
	return f.membership[contextHash], nil
}

func (f *fakeStore) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) setMembership(hash string, m subsystems.BigSegmentMembership) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.membership == nil {
		f.membership = map[string]subsystems.BigSegmentMembership{}
	}
	f.membership[hash] = m
}

func newTestManager(store *fakeStore, staleAfter time.Duration) *Manager {
	return NewManager(subsystems.BigSegmentsConfiguration{
		Store:              store,
		ContextCacheSize:   100,
		ContextCacheTime:   time.Minute,
		StatusPollInterval: time.Hour, // tests drive polling explicitly via GetStatus
		StaleAfter:         staleAfter,
	}, fflog.NewDefaultLoggers())
}

func TestGetContextMembershipNotFound(t *testing.T) {
	store := &fakeStore{lastUpdate: time.Now()}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	membership, ok := m.GetContextMembership("user1")
	assert.True(t, ok)
	assert.Nil(t, membership)
}

func TestGetContextMembershipFound(t *testing.T) {
	store := &fakeStore{lastUpdate: time.Now()}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	expected := fakeMembership{"seg1": true}
	store.setMembership(HashForContextKey("user1"), expected)

	membership, ok := m.GetContextMembership("user1")
	require.True(t, ok)
	require.NotNil(t, membership)
	assert.Equal(t, true, *membership.CheckMembership("seg1"))
}

func TestGetContextMembershipCachesResult(t *testing.T) {
	store := &fakeStore{lastUpdate: time.Now()}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	expected := fakeMembership{"seg1": true}
	store.setMembership(HashForContextKey("user1"), expected)

	_, ok := m.GetContextMembership("user1")
	require.True(t, ok)

	store.setMembership(HashForContextKey("user1"), fakeMembership{"seg1": false})
	membership, ok := m.GetContextMembership("user1")
	require.True(t, ok)
	assert.Equal(t, true, *membership.CheckMembership("seg1"))
}

func TestGetContextMembershipStoreError(t *testing.T) {
	store := &fakeStore{memberErr: errors.New("boom")}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	membership, ok := m.GetContextMembership("user1")
	assert.False(t, ok)
	assert.Nil(t, membership)
}

func TestGetStatusAvailableAndFresh(t *testing.T) {
	store := &fakeStore{lastUpdate: time.Now()}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	status := m.GetStatus()
	assert.True(t, status.Available)
	assert.False(t, status.Stale)
}

func TestGetStatusStaleWhenTooOld(t *testing.T) {
	store := &fakeStore{lastUpdate: time.Now().Add(-time.Hour)}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	status := m.GetStatus()
	assert.True(t, status.Available)
	assert.True(t, status.Stale)
}

func TestGetStatusUnavailableOnMetadataError(t *testing.T) {
	store := &fakeStore{metaErr: errors.New("down")}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	status := m.GetStatus()
	assert.False(t, status.Available)
}

func TestStatusListenerReceivesChange(t *testing.T) {
	store := &fakeStore{metaErr: errors.New("down")}
	m := newTestManager(store, time.Minute)
	defer m.Close()

	ch := m.AddStatusListener()
	defer m.RemoveStatusListener(ch)

	m.GetStatus() // first query: broadcasts Available=false (haveStatus transition)
	select {
	case status := <-ch:
		assert.False(t, status.Available)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for status broadcast")
	}

	store.mu.Lock()
	store.metaErr = nil
	store.lastUpdate = time.Now()
	store.mu.Unlock()

	status := m.pollAndUpdateStatus()
	assert.True(t, status.Available)
	select {
	case status := <-ch:
		assert.True(t, status.Available)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for recovery broadcast")
	}
}

func TestCloseClosesStore(t *testing.T) {
	store := &fakeStore{lastUpdate: time.Now()}
	m := newTestManager(store, time.Minute)
	require.NoError(t, m.Close())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.True(t, store.closed)
}
