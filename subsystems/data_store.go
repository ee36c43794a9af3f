package subsystems

import (
	"io"

	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// DataStore holds the flags and segments most recently received from a data source, and
// answers the evaluator's read queries. The SDK ships an in-memory implementation and a
// wrapper that delegates to a PersistentDataStore; both satisfy this interface.
type DataStore interface {
	io.Closer

	// Init atomically replaces the store's entire contents.
	Init(allData []st.Collection) error

	// Get returns the item for kind/key. A not-found item has Version 0 and a nil Item.
	Get(kind st.DataKind, key string) (st.ItemDescriptor, error)

	// GetAll returns every item of the given kind, including deletion placeholders.
	GetAll(kind st.DataKind) ([]st.KeyedItemDescriptor, error)

	// Upsert stores item under key if item.Version is newer than what's already there.
	// It reports whether the store's contents actually changed.
	Upsert(kind st.DataKind, key string, item st.ItemDescriptor) (bool, error)

	// IsInitialized reports whether Init has ever been called, including by another
	// process sharing the same persistent store.
	IsInitialized() bool

	// IsStatusMonitoringEnabled reports whether this store can detect and report outages
	// via DataStoreUpdateSink.UpdateStatus.
	IsStatusMonitoringEnabled() bool
}

// PersistentDataStore is the contract a durable backend (Redis, DynamoDB, a SQL table, or
// the in-process memstorebackend) implements. It operates on serialized item payloads so
// the backend never needs to know the flag/segment data model.
type PersistentDataStore interface {
	io.Closer

	InitInternal(allData []st.SerializedCollection) error
	GetInternal(kind st.DataKind, key string) (st.SerializedItemDescriptor, error)
	GetAllInternal(kind st.DataKind) ([]st.KeyedSerializedItemDescriptor, error)
	UpsertInternal(kind st.DataKind, key string, item st.SerializedItemDescriptor) (bool, error)
	IsInitialized() bool

	// IsStoreAvailable is a cheap reachability probe the status poller calls repeatedly
	// during an outage; it should not do the work IsInitialized does (a full read), just
	// confirm the backend can currently be reached.
	IsStoreAvailable() bool
}
