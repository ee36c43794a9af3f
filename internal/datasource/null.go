package datasource

import (
	"time"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/subsystems"
)

// NullDataSource is used when the application supplies data itself (ExternalUpdatesOnly) or
// the client is offline: it reports VALID and initialized immediately, and otherwise does
// nothing. It never touches the store -- whatever was already there (or nothing) stands.
type NullDataSource struct {
	updates subsystems.DataSourceUpdateSink
}

// NewNullDataSource creates a NullDataSource reporting status through updates.
func NewNullDataSource(updates subsystems.DataSourceUpdateSink) *NullDataSource {
	return &NullDataSource{updates: updates}
}

func (n *NullDataSource) IsInitialized() bool { return true }

func (n *NullDataSource) Start(closeWhenReady chan<- struct{}) {
	n.updates.UpdateStatus(interfaces.DataSourceStateValid, interfaces.DataSourceErrorInfo{Time: time.Now()})
	close(closeWhenReady)
}

func (n *NullDataSource) Close() error { return nil }
