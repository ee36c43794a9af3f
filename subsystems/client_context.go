package subsystems

import (
	"net/http"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/fflog"
)

// HTTPConfiguration encapsulates the HTTP behavior shared by every component that makes
// requests to the flag-data or event-ingestion services.
type HTTPConfiguration struct {
	// DefaultHeaders are cloned onto every outgoing request (SDK key, wrapper headers, etc).
	DefaultHeaders http.Header

	// CreateHTTPClient returns a fresh *http.Client per component; components never share
	// a client instance so that one's transport settings can't leak into another's.
	CreateHTTPClient func() *http.Client
}

// LoggingConfiguration bundles the resolved logger set plus the two evaluation-error
// logging toggles that the evaluator and client consult on error paths.
type LoggingConfiguration struct {
	Loggers               fflog.Loggers
	LogEvaluationErrors   bool
	LogContextKeyInErrors bool
}

// ClientContext is passed to every ComponentConfigurer.Build call. It exposes the parts of
// the top-level configuration a component needs, plus the update sinks it uses to report
// data and status changes back to the client.
type ClientContext interface {
	GetSDKKey() string
	GetHTTP() HTTPConfiguration
	GetLogging() LoggingConfiguration
	GetOffline() bool
	GetServiceEndpoints() interfaces.ServiceEndpoints
	GetApplicationInfo() interfaces.ApplicationInfo

	// GetDataSourceUpdateSink is non-nil only while the SDK is building a DataSource.
	GetDataSourceUpdateSink() DataSourceUpdateSink
	// GetDataStoreUpdateSink is non-nil only while the SDK is building a DataStore.
	GetDataStoreUpdateSink() DataStoreUpdateSink
}

// BasicClientContext is a plain-struct ClientContext, used by the top-level Client and by
// tests that need to build a component in isolation.
type BasicClientContext struct {
	SDKKey               string
	HTTP                 HTTPConfiguration
	Logging              LoggingConfiguration
	Offline              bool
	ServiceEndpoints     interfaces.ServiceEndpoints
	ApplicationInfo      interfaces.ApplicationInfo
	DataSourceUpdateSink DataSourceUpdateSink
	DataStoreUpdateSink  DataStoreUpdateSink
}

func (b BasicClientContext) GetSDKKey() string { return b.SDKKey }

func (b BasicClientContext) GetHTTP() HTTPConfiguration {
	ret := b.HTTP
	if ret.CreateHTTPClient == nil {
		ret.CreateHTTPClient = func() *http.Client {
			client := *http.DefaultClient
			return &client
		}
	}
	return ret
}

func (b BasicClientContext) GetLogging() LoggingConfiguration { return b.Logging }

func (b BasicClientContext) GetOffline() bool { return b.Offline }

func (b BasicClientContext) GetServiceEndpoints() interfaces.ServiceEndpoints {
	return b.ServiceEndpoints
}

func (b BasicClientContext) GetApplicationInfo() interfaces.ApplicationInfo {
	return b.ApplicationInfo
}

func (b BasicClientContext) GetDataSourceUpdateSink() DataSourceUpdateSink {
	return b.DataSourceUpdateSink
}

func (b BasicClientContext) GetDataStoreUpdateSink() DataStoreUpdateSink {
	return b.DataStoreUpdateSink
}
