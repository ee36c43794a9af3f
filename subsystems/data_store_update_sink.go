package subsystems

import "github.com/flagforge/flagforge-go/interfaces"

// DataStoreUpdateSink is how a DataStore implementation reports operational status changes
// back to the client, so DataStoreStatusProvider can broadcast them to listeners.
type DataStoreUpdateSink interface {
	UpdateStatus(newStatus interfaces.DataStoreStatus)
}
