package ldcomponents

import (
	"time"

	"github.com/flagforge/flagforge-go/internal/endpoints"
	"github.com/flagforge/flagforge-go/internal/events"
	"github.com/flagforge/flagforge-go/ldvalue"
	"github.com/flagforge/flagforge-go/subsystems"
)

// Defaults for EventProcessorBuilder, mirroring internal/events.Config's own defaults.
const (
	DefaultEventsCapacity           = 10000
	DefaultContextKeysCapacity      = 1000
	DefaultEventsFlushInterval      = events.DefaultFlushInterval
	DefaultContextKeysFlushInterval = events.DefaultContextKeysFlushInterval
)

// EventProcessorBuilder configures the analytics event pipeline.
type EventProcessorBuilder struct {
	capacity                    int
	flushInterval               time.Duration
	contextKeysCapacity         int
	contextKeysFlushInterval    time.Duration
	allAttributesPrivate        bool
	privateAttributes           []string
	inlineContextsInEvents      bool
	diagnosticRecordingInterval time.Duration
	diagnosticOptOut            bool
}

// SendEvents builds the default event-processing pipeline.
func SendEvents() *EventProcessorBuilder {
	return &EventProcessorBuilder{
		capacity:                    DefaultEventsCapacity,
		flushInterval:               DefaultEventsFlushInterval,
		contextKeysCapacity:         DefaultContextKeysCapacity,
		contextKeysFlushInterval:    DefaultContextKeysFlushInterval,
		diagnosticRecordingInterval: events.DefaultDiagnosticRecordingInterval,
	}
}

// Capacity sets the maximum number of events buffered between flushes; events beyond this
// are dropped and counted, with one warning logged per overflow window.
func (b *EventProcessorBuilder) Capacity(capacity int) *EventProcessorBuilder {
	b.capacity = capacity
	return b
}

// FlushInterval sets how often buffered events are sent automatically.
func (b *EventProcessorBuilder) FlushInterval(d time.Duration) *EventProcessorBuilder {
	b.flushInterval = d
	return b
}

// ContextKeysCapacity sets the size of the LRU cache used to deduplicate index events.
func (b *EventProcessorBuilder) ContextKeysCapacity(capacity int) *EventProcessorBuilder {
	b.contextKeysCapacity = capacity
	return b
}

// ContextKeysFlushInterval sets how often the context-key dedup cache is cleared.
func (b *EventProcessorBuilder) ContextKeysFlushInterval(d time.Duration) *EventProcessorBuilder {
	b.contextKeysFlushInterval = d
	return b
}

// AllAttributesPrivate redacts every context attribute from outgoing events.
func (b *EventProcessorBuilder) AllAttributesPrivate(all bool) *EventProcessorBuilder {
	b.allAttributesPrivate = all
	return b
}

// PrivateAttributeNames redacts the named top-level context attributes from outgoing events.
func (b *EventProcessorBuilder) PrivateAttributeNames(names ...string) *EventProcessorBuilder {
	b.privateAttributes = names
	return b
}

// InlineContextsInEvents embeds full context detail directly in feature/custom events
// instead of relying on a separate index event.
func (b *EventProcessorBuilder) InlineContextsInEvents(inline bool) *EventProcessorBuilder {
	b.inlineContextsInEvents = inline
	return b
}

// DiagnosticRecordingInterval sets how often periodic diagnostic events are sent.
func (b *EventProcessorBuilder) DiagnosticRecordingInterval(d time.Duration) *EventProcessorBuilder {
	b.diagnosticRecordingInterval = d
	return b
}

// DiagnosticOptOut disables the periodic diagnostic events sent alongside analytics events.
func (b *EventProcessorBuilder) DiagnosticOptOut(optOut bool) *EventProcessorBuilder {
	b.diagnosticOptOut = optOut
	return b
}

func (b *EventProcessorBuilder) Build(context subsystems.ClientContext) (events.EventProcessor, error) {
	http := context.GetHTTP()
	loggers := context.GetLogging().Loggers
	uri := endpoints.SelectBaseURI(context.GetServiceEndpoints(), endpoints.EventsService, "", loggers)

	var diagnostics *events.DiagnosticsManager
	if !b.diagnosticOptOut {
		configData := ldvalue.ObjectBuild(map[string]ldvalue.Value{
			"eventsCapacity":              ldvalue.Int(b.capacity),
			"eventsFlushIntervalMillis":   ldvalue.Int(int(b.flushInterval / time.Millisecond)),
			"allAttributesPrivate":        ldvalue.Bool(b.allAttributesPrivate),
			"inlineUsersInEvents":         ldvalue.Bool(b.inlineContextsInEvents),
			"diagnosticRecordingInterval": ldvalue.Int(int(b.diagnosticRecordingInterval / time.Millisecond)),
		})
		diagnostics = events.NewDiagnosticsManager(context.GetSDKKey(), configData, nowMillis())
	}

	cfg := events.Config{
		Capacity:                    b.capacity,
		FlushInterval:               b.flushInterval,
		ContextKeysCapacity:         b.contextKeysCapacity,
		ContextKeysFlushInterval:    b.contextKeysFlushInterval,
		AllAttributesPrivate:        b.allAttributesPrivate,
		PrivateAttributes:           b.privateAttributes,
		InlineContextsInEvents:      b.inlineContextsInEvents,
		EventsURI:                   endpoints.JoinPath(uri, endpoints.EventsBulkRequestPath),
		DiagnosticURI:               endpoints.JoinPath(uri, endpoints.EventsDiagnosticRequestPath),
		Headers:                     http.DefaultHeaders,
		HTTPClient:                  http.CreateHTTPClient(),
		DiagnosticRecordingInterval: b.diagnosticRecordingInterval,
		Diagnostics:                 diagnostics,
		Loggers:                     loggers,
	}
	return events.NewProcessor(cfg), nil
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixNano() / int64(time.Millisecond))
}

type noEventsConfigurer struct{}

func (noEventsConfigurer) Build(context subsystems.ClientContext) (events.EventProcessor, error) {
	return events.NewNullProcessor(), nil
}

// NoEvents builds an EventProcessor that discards everything -- analytics are disabled.
func NoEvents() subsystems.ComponentConfigurer[events.EventProcessor] {
	return noEventsConfigurer{}
}
