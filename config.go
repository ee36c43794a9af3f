package flagforge

import (
	"net/http"
	"time"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/bigsegments"
	"github.com/flagforge/flagforge-go/internal/events"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/ldcomponents"
	"github.com/flagforge/flagforge-go/subsystems"
)

// Config holds every pluggable piece of a Client's configuration. The zero value is valid:
// a nil configurer field resolves to the same default the corresponding ldcomponents function
// would build (streaming data source, in-memory data store, events on, big segments off).
type Config struct {
	// DataSource selects how the client receives flag/segment data. Defaults to
	// ldcomponents.StreamingDataSource(). Ignored when Offline is true.
	DataSource subsystems.ComponentConfigurer[subsystems.DataSource]

	// DataStore selects where received data is held. Defaults to ldcomponents.InMemoryDataStore().
	DataStore subsystems.ComponentConfigurer[subsystems.DataStore]

	// Events configures the analytics pipeline. Defaults to ldcomponents.SendEvents().
	Events subsystems.ComponentConfigurer[events.EventProcessor]

	// BigSegments optionally configures the big-segments manager. Nil disables the feature.
	BigSegments subsystems.ComponentConfigurer[*bigsegments.Manager]

	// ServiceEndpoints overrides the default streaming/polling/events base URIs.
	ServiceEndpoints interfaces.ServiceEndpoints

	// ApplicationInfo identifies the embedding application in outgoing request headers.
	ApplicationInfo interfaces.ApplicationInfo

	// Offline, when true, makes the client serve only default values and send no requests
	// of any kind -- no data source, no events.
	Offline bool

	// Loggers is the logger bundle every component uses. The zero value logs Info-and-above
	// to stderr.
	Loggers fflog.Loggers

	// LogEvaluationErrors causes evaluation errors to be logged at Warn level.
	LogEvaluationErrors bool

	// LogContextKeyInErrors includes the offending context key in evaluation error logs.
	LogContextKeyInErrors bool

	// HTTPClientFactory overrides how each component's HTTP client is constructed.
	HTTPClientFactory func() *http.Client

	// HTTPTimeout bounds every request made by a component-created HTTP client, when
	// HTTPClientFactory is nil.
	HTTPTimeout time.Duration

	// DiagnosticOptOut suppresses the periodic diagnostic events the event processor would
	// otherwise send alongside analytics events.
	DiagnosticOptOut bool
}

func (c Config) dataSourceConfigurer() subsystems.ComponentConfigurer[subsystems.DataSource] {
	if c.DataSource != nil {
		return c.DataSource
	}
	return ldcomponents.StreamingDataSource()
}

func (c Config) dataStoreConfigurer() subsystems.ComponentConfigurer[subsystems.DataStore] {
	if c.DataStore != nil {
		return c.DataStore
	}
	return ldcomponents.InMemoryDataStore()
}

func (c Config) eventsConfigurer() subsystems.ComponentConfigurer[events.EventProcessor] {
	if c.Events == nil {
		return ldcomponents.SendEvents().DiagnosticOptOut(c.DiagnosticOptOut)
	}
	if b, ok := c.Events.(*ldcomponents.EventProcessorBuilder); ok && c.DiagnosticOptOut {
		optedOut := *b
		return optedOut.DiagnosticOptOut(true)
	}
	return c.Events
}

func (c Config) createHTTPClient() func() *http.Client {
	if c.HTTPClientFactory != nil {
		return c.HTTPClientFactory
	}
	timeout := c.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return func() *http.Client {
		return &http.Client{Timeout: timeout}
	}
}
