package events

import "github.com/flagforge/flagforge-go/internal/fflog"

// eventsOutbox buffers events awaiting the next flush, alongside the running summarizer.
// Both are owned by the dispatcher goroutine only.
type eventsOutbox struct {
	capacity      int
	events        []Event
	summarizer    eventSummarizer
	droppedEvents int
	loggers       fflog.Loggers
	warnedFull    bool
}

func newEventsOutbox(capacity int, loggers fflog.Loggers) *eventsOutbox {
	return &eventsOutbox{
		capacity:   capacity,
		summarizer: newEventSummarizer(),
		loggers:    loggers,
	}
}

// addEvent appends evt to the buffered events, dropping it (and counting the drop) if the
// buffer is already at capacity. The first drop in a run logs a warning; subsequent drops
// are silent until the next successful flush so a saturated pipeline doesn't spam logs.
func (o *eventsOutbox) addEvent(evt Event) {
	if o.capacity > 0 && len(o.events) >= o.capacity {
		o.droppedEvents++
		if !o.warnedFull {
			o.loggers.Warn("exceeded event queue capacity; dropping events until next flush")
			o.warnedFull = true
		}
		return
	}
	o.events = append(o.events, evt)
}

func (o *eventsOutbox) addToSummary(evt FeatureRequestEvent) {
	o.summarizer.summarizeEvent(evt)
}

// flushPayload is a snapshot of the outbox ready to hand to a sender worker.
type flushPayload struct {
	diagnosticEvent interface{}
	events          []Event
	summary         eventSummaryData
}

// getPayload snapshots the current events and summary without clearing them -- the caller
// clears only after confirming a sender slot was available.
func (o *eventsOutbox) getPayload() flushPayload {
	return flushPayload{events: o.events, summary: o.summarizer.snapshot()}
}

// clear resets the outbox to empty, ready to accumulate the next interval, and re-arms the
// capacity warning. It does not reset droppedEvents -- that is drained by the diagnostics ticker.
func (o *eventsOutbox) clear() {
	o.events = nil
	o.summarizer.reset()
	o.warnedFull = false
}
