package events

import (
	"net/http"
	"sync"
	"time"
)

func defaultHTTPClient() *http.Client {
	client := *http.DefaultClient
	return &client
}

// dispatcher owns all mutable state touched while draining the inbox -- it never needs a
// lock for that state, since only runMainLoop's goroutine ever reads or writes it. The
// lastKnownPastTime/disabled fields are the exception: sender workers update them from their
// own goroutines via handleResponse, so those two are guarded by stateLock.
type dispatcher struct {
	config Config

	stateLock         sync.Mutex
	lastKnownPastTime uint64
	disabled          bool

	deduplicatedContexts int
	eventsInLastBatch    int
}

func startDispatcher(config Config, inboxCh <-chan dispatcherMessage) {
	d := &dispatcher{config: config}

	flushCh := make(chan *flushPayload, 1)
	var workers sync.WaitGroup
	for i := 0; i < maxFlushWorkers; i++ {
		startSenderTask(config, flushCh, &workers, d.handleResponse)
	}
	if config.Diagnostics != nil {
		d.sendDiagnosticsEvent(config.Diagnostics.CreateInitEvent(), flushCh, &workers)
	}
	go d.runMainLoop(inboxCh, flushCh, &workers)
}

func (d *dispatcher) runMainLoop(
	inboxCh <-chan dispatcherMessage,
	flushCh chan<- *flushPayload,
	workers *sync.WaitGroup,
) {
	defer func() {
		if err := recover(); err != nil {
			d.config.Loggers.Errorf("event dispatcher stopped unexpectedly: %+v", err)
			d.drainRemaining(inboxCh)
		}
	}()

	outbox := newEventsOutbox(d.config.Capacity, d.config.Loggers)
	contextKeys := newLruCache(d.config.ContextKeysCapacity)

	flushInterval := d.config.FlushInterval
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	contextKeysFlushInterval := d.config.ContextKeysFlushInterval
	if contextKeysFlushInterval <= 0 {
		contextKeysFlushInterval = DefaultContextKeysFlushInterval
	}
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()
	contextResetTicker := time.NewTicker(contextKeysFlushInterval)
	defer contextResetTicker.Stop()

	var diagnosticsTickerCh <-chan time.Time
	if d.config.Diagnostics != nil {
		interval := d.config.DiagnosticRecordingInterval
		if interval <= 0 {
			interval = DefaultDiagnosticRecordingInterval
		}
		diagnosticsTicker := time.NewTicker(interval)
		defer diagnosticsTicker.Stop()
		diagnosticsTickerCh = diagnosticsTicker.C
	}

	for {
		select {
		case message := <-inboxCh:
			switch m := message.(type) {
			case sendEventMessage:
				d.processEvent(m.event, outbox, &contextKeys)
			case flushEventsMessage:
				d.triggerFlush(outbox, flushCh, workers)
			case flushContextsMessage:
				contextKeys.clear()
			case syncEventsMessage:
				workers.Wait()
				m.replyCh <- struct{}{}
			case shutdownEventsMessage:
				workers.Wait()
				close(flushCh)
				m.replyCh <- struct{}{}
				return
			}
		case <-flushTicker.C:
			d.triggerFlush(outbox, flushCh, workers)
		case <-contextResetTicker.C:
			contextKeys.clear()
		case <-diagnosticsTickerCh:
			event := d.config.Diagnostics.CreateStatsEventAndReset(
				nowMillis(), outbox.droppedEvents, d.deduplicatedContexts, d.eventsInLastBatch)
			outbox.droppedEvents = 0
			d.deduplicatedContexts = 0
			d.eventsInLastBatch = 0
			d.sendDiagnosticsEvent(event, flushCh, workers)
		}
	}
}

// drainRemaining unblocks anyone waiting on a sync/shutdown reply after a panic, so a fatal
// error in the dispatcher can't leave a caller of Close/sync hanging forever.
func (d *dispatcher) drainRemaining(inboxCh <-chan dispatcherMessage) {
	for message := range inboxCh {
		switch m := message.(type) {
		case syncEventsMessage:
			m.replyCh <- struct{}{}
		case shutdownEventsMessage:
			m.replyCh <- struct{}{}
			return
		}
	}
}

func (d *dispatcher) processEvent(evt Event, outbox *eventsOutbox, contextKeys *lruCache) {
	fre, isFeatureEvent := evt.(FeatureRequestEvent)
	if isFeatureEvent {
		outbox.addToSummary(fre)
	}

	willAddFullEvent := true
	var debugEvent Event
	if isFeatureEvent {
		// TrackEvents here is the caller's pre-combined decision (flag.trackEvents OR the
		// matched rule/fallthrough's trackEvents OR experiment participation) -- the
		// dispatcher doesn't re-derive it from the evaluation Reason.
		willAddFullEvent = fre.TrackEvents
		if d.shouldDebugEvent(&fre) {
			de := fre
			de.Debug = true
			debugEvent = de
		}
	}

	base := evt.GetBase()
	key := base.Context.FullyQualifiedKey()

	if _, isIdentify := evt.(IdentifyEvent); isIdentify {
		noticeContext(contextKeys, key)
	} else if noticeContext(contextKeys, key) {
		d.deduplicatedContexts++
	} else {
		outbox.addEvent(IndexEvent{BaseEvent: BaseEvent{CreationDate: base.CreationDate, Context: base.Context}})
	}

	if willAddFullEvent {
		outbox.addEvent(evt)
	}
	if debugEvent != nil {
		outbox.addEvent(debugEvent)
	}
}

// noticeContext marks key as seen and reports whether it was already known. An empty key
// (no context) is always reported as already-seen, so no spurious index event is emitted.
func noticeContext(contextKeys *lruCache, key string) bool {
	if key == "" {
		return true
	}
	return contextKeys.add(key)
}

func (d *dispatcher) shouldDebugEvent(evt *FeatureRequestEvent) bool {
	if evt.DebugEventsUntilDate == nil {
		return false
	}
	d.stateLock.Lock()
	defer d.stateLock.Unlock()
	cutoff := *evt.DebugEventsUntilDate
	return cutoff > d.lastKnownPastTime && cutoff > nowMillis()
}

func (d *dispatcher) triggerFlush(outbox *eventsOutbox, flushCh chan<- *flushPayload, workers *sync.WaitGroup) {
	if d.isDisabled() {
		outbox.clear()
		return
	}
	payload := outbox.getPayload()
	total := len(payload.events)
	if !payload.summary.empty() {
		total++
	}
	if total == 0 {
		d.eventsInLastBatch = 0
		return
	}
	workers.Add(1)
	select {
	case flushCh <- &payload:
		d.eventsInLastBatch = total
		outbox.clear()
	default:
		d.config.Loggers.Warn("all event sender workers are busy; will retry at next flush")
		workers.Done()
	}
}

func (d *dispatcher) isDisabled() bool {
	d.stateLock.Lock()
	defer d.stateLock.Unlock()
	return d.disabled
}

func (d *dispatcher) handleResponse(resp *http.Response) {
	if err := checkForHTTPError(resp.StatusCode, resp.Request.URL.String()); err != nil {
		d.config.Loggers.Error(httpErrorMessage(resp.StatusCode, "posting events", "some events were dropped"))
		if !isHTTPErrorRecoverable(resp.StatusCode) {
			d.stateLock.Lock()
			d.disabled = true
			d.stateLock.Unlock()
		}
		return
	}
	if dt, err := http.ParseTime(resp.Header.Get("Date")); err == nil {
		d.stateLock.Lock()
		d.lastKnownPastTime = uint64(dt.UnixMilli())
		d.stateLock.Unlock()
	}
}

func (d *dispatcher) sendDiagnosticsEvent(event interface{}, flushCh chan<- *flushPayload, workers *sync.WaitGroup) {
	payload := &flushPayload{diagnosticEvent: event}
	workers.Add(1)
	select {
	case flushCh <- payload:
	default:
		workers.Done()
	}
}

// nowMillis is the dispatcher's only source of wall-clock time, isolated here so the rest of
// the package stays deterministic under test.
func nowMillis() uint64 { return uint64(time.Now().UnixMilli()) }
