package events

import (
	"sync"

	"github.com/flagforge/flagforge-go/internal/fflog"
)

// Processor is the public handle an application or client holds: a thin, non-blocking front
// end over the dispatcher goroutine's inbox.
type Processor struct {
	inboxCh       chan dispatcherMessage
	inboxFullOnce sync.Once
	closeOnce     sync.Once
	loggers       fflog.Loggers
}

// dispatcherMessage is the sum type of everything that can be posted to the inbox.
type dispatcherMessage interface{ isDispatcherMessage() }

type sendEventMessage struct{ event Event }

func (sendEventMessage) isDispatcherMessage() {}

type flushEventsMessage struct{}

func (flushEventsMessage) isDispatcherMessage() {}

type flushContextsMessage struct{}

func (flushContextsMessage) isDispatcherMessage() {}

type syncEventsMessage struct{ replyCh chan struct{} }

func (syncEventsMessage) isDispatcherMessage() {}

type shutdownEventsMessage struct{ replyCh chan struct{} }

func (shutdownEventsMessage) isDispatcherMessage() {}

// NewProcessor builds a Processor and starts its dispatcher goroutine, the fixed pool of
// sender workers, and (if cfg.Diagnostics is set) the periodic diagnostics ticker.
func NewProcessor(cfg Config) *Processor {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaultHTTPClient()
	}
	inboxCh := make(chan dispatcherMessage, cfg.Capacity)
	startDispatcher(cfg, inboxCh)
	return &Processor{inboxCh: inboxCh, loggers: cfg.Loggers}
}

// SendEvent records an event asynchronously; it never blocks the caller.
func (p *Processor) SendEvent(e Event) {
	p.postNonBlocking(sendEventMessage{event: e})
}

// Flush requests an out-of-cycle flush; it never blocks the caller.
func (p *Processor) Flush() {
	p.postNonBlocking(flushEventsMessage{})
}

func (p *Processor) postNonBlocking(m dispatcherMessage) {
	select {
	case p.inboxCh <- m:
	default:
		p.inboxFullOnce.Do(func() {
			p.loggers.Warn("event processing is backed up; some events will be dropped")
		})
	}
}

// sync blocks until every message posted before it has been processed and any in-flight
// flush has completed. It is intended for tests.
func (p *Processor) sync() {
	replyCh := make(chan struct{})
	p.inboxCh <- syncEventsMessage{replyCh: replyCh}
	<-replyCh
}

// Close flushes any buffered events and shuts down the dispatcher and sender pool, blocking
// until the shutdown sequence completes. Subsequent SendEvent/Flush calls are silently
// dropped (the inbox is never read again). Close is idempotent.
func (p *Processor) Close() error {
	p.closeOnce.Do(func() {
		p.inboxCh <- flushEventsMessage{}
		replyCh := make(chan struct{})
		p.inboxCh <- shutdownEventsMessage{replyCh: replyCh}
		<-replyCh
	})
	return nil
}
