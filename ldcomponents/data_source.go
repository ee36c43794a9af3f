package ldcomponents

import (
	"time"

	"github.com/flagforge/flagforge-go/internal/datasource"
	"github.com/flagforge/flagforge-go/internal/endpoints"
	"github.com/flagforge/flagforge-go/internal/filesource"
	"github.com/flagforge/flagforge-go/subsystems"
)

// DefaultInitialReconnectDelay is the starting backoff delay before the first stream retry.
const DefaultInitialReconnectDelay = 1 * time.Second

// DefaultPollInterval is the poll interval used when a PollingDataSourceBuilder doesn't
// override it.
const DefaultPollInterval = 30 * time.Second

// StreamingDataSourceBuilder configures the default streaming (server-sent events) data
// source.
type StreamingDataSourceBuilder struct {
	initialReconnectDelay time.Duration
}

// StreamingDataSource builds the default streaming DataSource configurer.
func StreamingDataSource() *StreamingDataSourceBuilder {
	return &StreamingDataSourceBuilder{initialReconnectDelay: DefaultInitialReconnectDelay}
}

// InitialReconnectDelay sets the starting delay before the first reconnect attempt after a
// dropped connection; later attempts back off from there.
func (b *StreamingDataSourceBuilder) InitialReconnectDelay(d time.Duration) *StreamingDataSourceBuilder {
	b.initialReconnectDelay = d
	return b
}

func (b *StreamingDataSourceBuilder) Build(context subsystems.ClientContext) (subsystems.DataSource, error) {
	uri := endpoints.SelectBaseURI(context.GetServiceEndpoints(), endpoints.StreamingService, "", context.GetLogging().Loggers)
	cfg := datasource.StreamConfig{URI: uri, InitialReconnectDelay: b.initialReconnectDelay}
	return datasource.NewStreamingDataSource(context, context.GetDataSourceUpdateSink(), cfg), nil
}

// PollingDataSourceBuilder configures the fallback HTTP-polling data source.
type PollingDataSourceBuilder struct {
	pollInterval time.Duration
}

// PollingDataSource builds the polling DataSource configurer.
func PollingDataSource() *PollingDataSourceBuilder {
	return &PollingDataSourceBuilder{pollInterval: DefaultPollInterval}
}

// PollInterval sets how often to poll; it's clamped up to datasource.MinimumPollInterval.
func (b *PollingDataSourceBuilder) PollInterval(d time.Duration) *PollingDataSourceBuilder {
	b.pollInterval = d
	return b
}

func (b *PollingDataSourceBuilder) Build(context subsystems.ClientContext) (subsystems.DataSource, error) {
	uri := endpoints.SelectBaseURI(context.GetServiceEndpoints(), endpoints.PollingService, "", context.GetLogging().Loggers)
	cfg := datasource.PollConfig{BaseURI: uri, PollInterval: b.pollInterval}
	return datasource.NewPollingDataSource(context, context.GetDataSourceUpdateSink(), cfg), nil
}

type externalUpdatesOnlyConfigurer struct{}

func (externalUpdatesOnlyConfigurer) Build(context subsystems.ClientContext) (subsystems.DataSource, error) {
	return datasource.NewNullDataSource(context.GetDataSourceUpdateSink()), nil
}

// ExternalUpdatesOnly builds a DataSource that never connects anywhere: the application is
// expected to populate the data store itself (e.g. via a Relay Proxy writing directly to a
// shared persistent store).
func ExternalUpdatesOnly() subsystems.ComponentConfigurer[subsystems.DataSource] {
	return externalUpdatesOnlyConfigurer{}
}

// FileDataSourceBuilder configures the file-based data source.
type FileDataSourceBuilder struct {
	paths   []string
	watched bool
}

// FileDataSource builds a DataSource that loads flags/segments from local YAML/JSON files
// instead of a network connection -- useful for local development and tests.
func FileDataSource(paths ...string) *FileDataSourceBuilder {
	return &FileDataSourceBuilder{paths: paths}
}

// AutoReload enables reloading the files whenever they change on disk.
func (b *FileDataSourceBuilder) AutoReload(watch bool) *FileDataSourceBuilder {
	b.watched = watch
	return b
}

func (b *FileDataSourceBuilder) Build(context subsystems.ClientContext) (subsystems.DataSource, error) {
	loggers := context.GetLogging().Loggers
	if b.watched {
		return filesource.NewWatched(context.GetDataSourceUpdateSink(), loggers, b.paths...)
	}
	return filesource.New(context.GetDataSourceUpdateSink(), loggers, b.paths...), nil
}
