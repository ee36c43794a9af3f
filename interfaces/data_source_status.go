package interfaces

import "time"

// DataSourceState is the data source's connection state, per the state machine in the
// data-source pipeline design: INITIALIZING -> VALID on first applied update, VALID <->
// INTERRUPTED on transient errors, and a latching transition to OFF on an unrecoverable
// HTTP status or on Close.
type DataSourceState string

const (
	DataSourceStateInitializing DataSourceState = "INITIALIZING"
	DataSourceStateValid        DataSourceState = "VALID"
	DataSourceStateInterrupted  DataSourceState = "INTERRUPTED"
	DataSourceStateOff          DataSourceState = "OFF"
)

// DataSourceErrorKind classifies why a data source transitioned out of VALID.
type DataSourceErrorKind string

const (
	DataSourceErrorKindNetworkError DataSourceErrorKind = "NETWORK_ERROR"
	DataSourceErrorKindErrorResponse DataSourceErrorKind = "ERROR_RESPONSE"
	DataSourceErrorKindInvalidData  DataSourceErrorKind = "INVALID_DATA"
	DataSourceErrorKindStoreError   DataSourceErrorKind = "STORE_ERROR"
	DataSourceErrorKindUnknown     DataSourceErrorKind = "UNKNOWN"
)

// DataSourceErrorInfo describes the most recent error, if any.
type DataSourceErrorInfo struct {
	Kind       DataSourceErrorKind
	StatusCode int
	Message    string
	Time       time.Time
}

// DataSourceStatus is a snapshot of the data source's current state plus the most recent
// error encountered (which may predate State if the source has since recovered).
type DataSourceStatus struct {
	State      DataSourceState
	StateSince time.Time
	LastError  DataSourceErrorInfo
}

// DataSourceStatusProvider exposes the current status and lets callers subscribe to changes.
type DataSourceStatusProvider interface {
	GetStatus() DataSourceStatus
	AddStatusListener() <-chan DataSourceStatus
	RemoveStatusListener(<-chan DataSourceStatus)
}
