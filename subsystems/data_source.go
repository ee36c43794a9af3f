package subsystems

import (
	"io"

	"github.com/flagforge/flagforge-go/interfaces"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// DataSource receives flag/segment data from some origin (streaming, polling, file, or
// none at all) and delivers it to a DataSourceUpdateSink.
type DataSource interface {
	io.Closer

	// IsInitialized reports whether the data source has successfully initialized at least
	// once. It stays true afterward even if the connection later drops.
	IsInitialized() bool

	// Start begins the data source's work. closeWhenReady is closed once initialization
	// has either succeeded for the first time or been determined impossible.
	Start(closeWhenReady chan<- struct{})
}

// DataSourceUpdateSink is how a DataSource delivers data and status changes to the client.
type DataSourceUpdateSink interface {
	// Init replaces the store's entire contents with a fresh full data set.
	Init(allData []st.Collection) bool

	// Upsert applies a single add-or-update to one item.
	Upsert(kind st.DataKind, key string, item st.ItemDescriptor) bool

	// UpdateStatus reports a change in the data source's connection state.
	UpdateStatus(newState interfaces.DataSourceState, newError interfaces.DataSourceErrorInfo)

	// GetDataStoreStatusProvider lets a DataSource subscribe to store outage/recovery
	// events, so it knows when to restart a connection to force a full refresh.
	GetDataStoreStatusProvider() interfaces.DataStoreStatusProvider
}
