package events

import (
	"net/http"
	"time"

	"github.com/flagforge/flagforge-go/internal/fflog"
)

// Defaults for Config fields left at zero.
const (
	DefaultFlushInterval               = 5 * time.Second
	DefaultContextKeysFlushInterval    = 5 * time.Minute
	DefaultDiagnosticRecordingInterval = 15 * time.Minute

	maxFlushWorkers = 5

	eventSchemaHeader  = "X-FlagForge-Event-Schema"
	payloadIDHeader    = "X-FlagForge-Payload-Id"
	currentEventSchema = "1"
)

// Config holds everything the event pipeline needs that isn't per-event: capacity limits,
// timing, the destination URIs, and the HTTP client/headers used to reach them.
type Config struct {
	Capacity                 int
	FlushInterval            time.Duration
	ContextKeysCapacity      int
	ContextKeysFlushInterval time.Duration
	AllAttributesPrivate     bool
	PrivateAttributes        []string
	InlineContextsInEvents   bool

	EventsURI     string
	DiagnosticURI string
	Headers       http.Header
	HTTPClient    *http.Client

	DiagnosticRecordingInterval time.Duration
	Diagnostics                 *DiagnosticsManager

	Loggers fflog.Loggers
}
