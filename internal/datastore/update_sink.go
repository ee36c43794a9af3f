package datastore

import (
	"sync"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/broadcast"
)

// UpdateSink is the DataStoreUpdateSink implementation the client hands to whichever
// DataStore it builds. It deduplicates repeated identical statuses before broadcasting, and
// doubles as the DataStoreStatusProvider exposed to applications.
type UpdateSink struct {
	mu               sync.Mutex
	lastStatus       interfaces.DataStoreStatus
	broadcaster      *broadcast.Broadcaster[interfaces.DataStoreStatus]
	statusMonitoring bool
}

// NewUpdateSink creates an UpdateSink that starts out reporting Available.
// statusMonitoringEnabled should reflect whether the underlying store can actually detect
// and report outages (only true for a persistent-store wrapper).
func NewUpdateSink(statusMonitoringEnabled bool) *UpdateSink {
	return &UpdateSink{
		lastStatus:       interfaces.DataStoreStatus{Available: true},
		broadcaster:      broadcast.New[interfaces.DataStoreStatus](),
		statusMonitoring: statusMonitoringEnabled,
	}
}

// UpdateStatus is called by the data store to report a status change.
func (u *UpdateSink) UpdateStatus(newStatus interfaces.DataStoreStatus) {
	u.mu.Lock()
	changed := newStatus != u.lastStatus
	if changed {
		u.lastStatus = newStatus
	}
	u.mu.Unlock()
	if changed {
		u.broadcaster.Broadcast(newStatus)
	}
}

func (u *UpdateSink) GetStatus() interfaces.DataStoreStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastStatus
}

func (u *UpdateSink) IsStatusMonitoringEnabled() bool { return u.statusMonitoring }

// SetStatusMonitoringEnabled is called once, immediately after the DataStore configurer's
// Build returns, to reconcile this flag with what the constructed store actually reports --
// the sink has to exist before the store is built (the store's Build needs somewhere to
// report status to), so its initial guess may need correcting.
func (u *UpdateSink) SetStatusMonitoringEnabled(enabled bool) {
	u.mu.Lock()
	u.statusMonitoring = enabled
	u.mu.Unlock()
}

func (u *UpdateSink) AddStatusListener() <-chan interfaces.DataStoreStatus {
	return u.broadcaster.AddListener()
}

func (u *UpdateSink) RemoveStatusListener(ch <-chan interfaces.DataStoreStatus) {
	u.broadcaster.RemoveListener(ch)
}

func (u *UpdateSink) Close() {
	u.broadcaster.Close()
}
