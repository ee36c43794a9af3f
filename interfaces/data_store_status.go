package interfaces

// DataStoreStatus reports whether the data store most recently served a read/write
// successfully, and whether a previously-unavailable store just came back and had its
// contents refreshed from the data source's last-known-good data.
type DataStoreStatus struct {
	Available bool

	// RefreshNeeded is true when Available just became true again after an outage and the
	// in-memory cache's contents may be stale relative to the underlying persistent store;
	// the client should re-apply its last-received full data set.
	RefreshNeeded bool
}

// DataStoreStatusProvider exposes the current status and lets callers subscribe to changes.
type DataStoreStatusProvider interface {
	GetStatus() DataStoreStatus
	IsStatusMonitoringEnabled() bool
	AddStatusListener() <-chan DataStoreStatus
	RemoveStatusListener(<-chan DataStoreStatus)
}
