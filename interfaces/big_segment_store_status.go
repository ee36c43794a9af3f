package interfaces

// BigSegmentStoreStatus reports whether the big-segment store is reachable and, if so,
// whether its last update is recent enough to trust.
type BigSegmentStoreStatus struct {
	Available bool
	Stale     bool
}

// BigSegmentStoreStatusProvider exposes the current status and lets callers subscribe to
// changes, mirroring DataSourceStatusProvider/DataStoreStatusProvider.
type BigSegmentStoreStatusProvider interface {
	GetStatus() BigSegmentStoreStatus
	AddStatusListener() <-chan BigSegmentStoreStatus
	RemoveStatusListener(<-chan BigSegmentStoreStatus)
}
