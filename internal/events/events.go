// Package events implements the analytics event pipeline: a bounded-inbox, single-dispatcher
// pipeline that summarizes feature evaluations, deduplicates contexts, and ships batches to
// the events service through a fixed pool of sender workers. It mirrors the teacher SDK's
// ldevents package, adapted to this module's Context/Result types.
package events

import (
	"github.com/flagforge/flagforge-go/ldcontext"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/ldvalue"
)

// Event is the sum type accepted by Processor.SendEvent.
type Event interface {
	isEvent()
	// GetBase returns the fields common to every event kind -- creation time and context --
	// so the dispatcher can handle context deduplication generically across event kinds.
	GetBase() BaseEvent
}

// BaseEvent carries the fields common to every event kind.
type BaseEvent struct {
	CreationDate uint64
	Context      ldcontext.Context
}

func (b BaseEvent) GetBase() BaseEvent { return b }

// FeatureRequestEvent records a single flag evaluation. Debug is set on the copy of an event
// that should be delivered with full context detail even when the caller isn't tracking it,
// per the flag's debugEventsUntilDate window.
type FeatureRequestEvent struct {
	BaseEvent
	Key                  string
	Version              ldvalue.OptionalInt
	Variation            ldvalue.OptionalInt
	Value                ldvalue.Value
	Default              ldvalue.Value
	Reason               ldmodel.Reason
	TrackEvents          bool
	DebugEventsUntilDate *uint64
	Debug                bool
}

func (FeatureRequestEvent) isEvent() {}

// IdentifyEvent records that a context was seen, without an associated flag evaluation.
type IdentifyEvent struct {
	BaseEvent
}

func (IdentifyEvent) isEvent() {}

// IndexEvent records the full attributes of a context the first time it's referenced by some
// other event, so the events service can resolve later events' context by key alone.
type IndexEvent struct {
	BaseEvent
}

func (IndexEvent) isEvent() {}

// CustomEvent records an application-defined event, optionally carrying a numeric metric
// value (TrackMetric) or arbitrary JSON data.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
}

func (CustomEvent) isEvent() {}
