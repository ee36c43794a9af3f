// Package datasource implements the three live DataSource variants (streaming, polling,
// null) that feed a DataStore, plus the update sink and status provider the client hands to
// whichever one it builds.
package datasource

import (
	"sync"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/broadcast"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// UpdateSink is the DataSourceUpdateSink the client builds once and passes to its
// DataSource; it forwards writes to the DataStore and broadcasts status changes.
type UpdateSink struct {
	store       subsystems.DataStore
	storeStatus interfaces.DataStoreStatusProvider
	mu          sync.Mutex
	lastStatus  interfaces.DataSourceStatus
	broadcaster *broadcast.Broadcaster[interfaces.DataSourceStatus]
}

// NewUpdateSink creates an UpdateSink writing into store, starting in state INITIALIZING.
func NewUpdateSink(store subsystems.DataStore, storeStatus interfaces.DataStoreStatusProvider) *UpdateSink {
	return &UpdateSink{
		store:       store,
		storeStatus: storeStatus,
		lastStatus: interfaces.DataSourceStatus{
			State: interfaces.DataSourceStateInitializing,
		},
		broadcaster: broadcast.New[interfaces.DataSourceStatus](),
	}
}

func (u *UpdateSink) Init(allData []st.Collection) bool {
	if err := u.store.Init(allData); err != nil {
		return false
	}
	return true
}

func (u *UpdateSink) Upsert(kind st.DataKind, key string, item st.ItemDescriptor) bool {
	_, err := u.store.Upsert(kind, key, item)
	return err == nil
}

func (u *UpdateSink) UpdateStatus(newState interfaces.DataSourceState, newError interfaces.DataSourceErrorInfo) {
	u.mu.Lock()
	changed := newState != u.lastStatus.State
	if changed {
		u.lastStatus.State = newState
		u.lastStatus.StateSince = newError.Time
	}
	if newError.Kind != "" {
		u.lastStatus.LastError = newError
	}
	status := u.lastStatus
	u.mu.Unlock()
	if changed {
		u.broadcaster.Broadcast(status)
	}
}

func (u *UpdateSink) GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider {
	return u.storeStatus
}

func (u *UpdateSink) GetStatus() interfaces.DataSourceStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastStatus
}

func (u *UpdateSink) AddStatusListener() <-chan interfaces.DataSourceStatus {
	return u.broadcaster.AddListener()
}

func (u *UpdateSink) RemoveStatusListener(ch <-chan interfaces.DataSourceStatus) {
	u.broadcaster.RemoveListener(ch)
}

func (u *UpdateSink) Close() {
	u.broadcaster.Close()
}
