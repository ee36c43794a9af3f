package events

import (
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/flagforge/flagforge-go/ldvalue"
)

type diagnosticID struct {
	DiagnosticID string `json:"diagnosticId"`
	SDKKeySuffix string `json:"sdkKeySuffix,omitempty"`
}

func newDiagnosticID(sdkKey string) diagnosticID {
	id, _ := uuid.NewRandom()
	suffix := sdkKey
	if len(sdkKey) > 6 {
		suffix = sdkKey[len(sdkKey)-6:]
	}
	return diagnosticID{DiagnosticID: id.String(), SDKKeySuffix: suffix}
}

type diagnosticPlatformData struct {
	Name      string `json:"name"`
	GoVersion string `json:"goVersion"`
	OSArch    string `json:"osArch"`
	OSName    string `json:"osName"`
}

type diagnosticBaseEvent struct {
	Kind         string       `json:"kind"`
	ID           diagnosticID `json:"id"`
	CreationDate uint64       `json:"creationDate"`
}

type diagnosticInitEvent struct {
	diagnosticBaseEvent
	Configuration ldvalue.Value          `json:"configuration"`
	Platform      diagnosticPlatformData `json:"platform"`
}

type diagnosticPeriodicEvent struct {
	diagnosticBaseEvent
	DataSinceDate     uint64 `json:"dataSinceDate"`
	DroppedEvents     int    `json:"droppedEvents"`
	DeduplicatedUsers int    `json:"deduplicatedContexts"`
	EventsInLastBatch int    `json:"eventsInLastBatch"`
}

// DiagnosticsManager builds the periodic diagnostic events the dispatcher posts to the
// diagnostics sub-path, describing the SDK's own configuration and recent activity. nil
// disables diagnostics entirely.
type DiagnosticsManager struct {
	id            diagnosticID
	configData    ldvalue.Value
	startTime     uint64
	dataSinceTime uint64
	lock          sync.Mutex
}

// NewDiagnosticsManager builds a manager whose init event reports configData (an arbitrary
// JSON description of the effective configuration) as of startTime.
func NewDiagnosticsManager(sdkKey string, configData ldvalue.Value, startTime uint64) *DiagnosticsManager {
	return &DiagnosticsManager{
		id:            newDiagnosticID(sdkKey),
		configData:    configData,
		startTime:     startTime,
		dataSinceTime: startTime,
	}
}

// CreateInitEvent builds the one-time event sent when the pipeline starts.
func (m *DiagnosticsManager) CreateInitEvent() diagnosticInitEvent {
	return diagnosticInitEvent{
		diagnosticBaseEvent: diagnosticBaseEvent{Kind: "diagnostic-init", ID: m.id, CreationDate: m.startTime},
		Configuration:       m.configData,
		Platform: diagnosticPlatformData{
			Name:      "Go",
			GoVersion: runtime.Version(),
			OSName:    runtime.GOOS,
			OSArch:    runtime.GOARCH,
		},
	}
}

// CreateStatsEventAndReset builds a periodic event covering the interval since the last call
// (or since startup), then resets the "data since" timestamp for the next interval. now is the
// current time in Unix milliseconds, supplied by the caller.
func (m *DiagnosticsManager) CreateStatsEventAndReset(now uint64, droppedEvents, deduplicatedContexts, eventsInLastBatch int) diagnosticPeriodicEvent {
	m.lock.Lock()
	defer m.lock.Unlock()
	event := diagnosticPeriodicEvent{
		diagnosticBaseEvent: diagnosticBaseEvent{Kind: "diagnostic", ID: m.id, CreationDate: now},
		DataSinceDate:       m.dataSinceTime,
		DroppedEvents:       droppedEvents,
		DeduplicatedUsers:   deduplicatedContexts,
		EventsInLastBatch:   eventsInLastBatch,
	}
	m.dataSinceTime = now
	return event
}
