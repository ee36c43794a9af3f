package events

import (
	"github.com/flagforge/flagforge-go/ldvalue"
)

// counterKey identifies one bucket within a flag's summary: a distinct (variation, version)
// pair. A flag evaluated with no variation index (e.g. an unknown flag falling back to the
// caller's default) gets its own bucket via the zero-value OptionalInt.
type counterKey struct {
	variation ldvalue.OptionalInt
	version   ldvalue.OptionalInt
}

type counterValue struct {
	count int
	value ldvalue.Value
}

// flagSummary accumulates every counter bucket seen for one flag key during a summary
// interval, plus the set of context kinds that evaluated it (for the summary event's
// contextKinds field) and the default value reported when no flag was found.
type flagSummary struct {
	defaultValue ldvalue.Value
	contextKinds map[string]struct{}
	counters     map[counterKey]*counterValue
}

// eventSummaryData is an immutable snapshot of a summarizer's accumulated state, ready to be
// wrapped into an outgoing summary event.
type eventSummaryData struct {
	startDate uint64
	endDate   uint64
	flags     map[string]flagSummary
}

func (d eventSummaryData) empty() bool { return len(d.flags) == 0 }

// eventSummarizer accumulates per-flag evaluation counters between flushes. It is owned
// entirely by the dispatcher goroutine and holds no locks.
type eventSummarizer struct {
	startDate uint64
	endDate   uint64
	flags     map[string]flagSummary
}

func newEventSummarizer() eventSummarizer {
	return eventSummarizer{flags: make(map[string]flagSummary)}
}

// summarizeEvent folds one feature-request event into the running counters.
func (s *eventSummarizer) summarizeEvent(evt FeatureRequestEvent) {
	if s.startDate == 0 || evt.CreationDate < s.startDate {
		s.startDate = evt.CreationDate
	}
	if evt.CreationDate > s.endDate {
		s.endDate = evt.CreationDate
	}

	fs, ok := s.flags[evt.Key]
	if !ok {
		fs = flagSummary{
			defaultValue: evt.Default,
			contextKinds: make(map[string]struct{}),
			counters:     make(map[counterKey]*counterValue),
		}
	}

	for _, k := range evt.Context.Kinds() {
		fs.contextKinds[k.Kind] = struct{}{}
	}

	key := counterKey{variation: evt.Variation, version: evt.Version}
	if c, ok := fs.counters[key]; ok {
		c.count++
	} else {
		fs.counters[key] = &counterValue{count: 1, value: evt.Value}
	}

	s.flags[evt.Key] = fs
}

// snapshot returns the current accumulated state without resetting it.
func (s *eventSummarizer) snapshot() eventSummaryData {
	return eventSummaryData{startDate: s.startDate, endDate: s.endDate, flags: s.flags}
}

// reset clears the summarizer back to empty, ready to accumulate the next interval.
func (s *eventSummarizer) reset() {
	s.startDate = 0
	s.endDate = 0
	s.flags = make(map[string]flagSummary)
}
