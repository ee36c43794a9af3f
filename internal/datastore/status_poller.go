package datastore

import (
	"sync"
	"time"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/fflog"
)

// outagePollInterval is how often the poller re-probes a backend it believes is unavailable.
const outagePollInterval = 500 * time.Millisecond

// statusPoller tracks the wrapper's availability and, while unavailable, runs a background
// goroutine that calls pollFn until it reports recovery. recoveryNeedsRefresh controls
// whether a recovery is announced as "refresh needed" (finite/no cache: the data source
// should restart to force a fresh full put) or not (infinite cache: pollFn itself already
// wrote the cached dataset back to the backend).
type statusPoller struct {
	mu                    sync.Mutex
	available             bool
	polling               bool
	closed                bool
	pollFn                func() bool
	updateStatus          func(interfaces.DataStoreStatus)
	recoveryNeedsRefresh  bool
	loggers               fflog.Loggers
	stopCh                chan struct{}
}

func newStatusPoller(
	initiallyAvailable bool,
	pollFn func() bool,
	updateStatus func(interfaces.DataStoreStatus),
	recoveryNeedsRefresh bool,
	loggers fflog.Loggers,
) *statusPoller {
	return &statusPoller{
		available:            initiallyAvailable,
		pollFn:               pollFn,
		updateStatus:         updateStatus,
		recoveryNeedsRefresh: recoveryNeedsRefresh,
		loggers:              loggers,
	}
}

// UpdateAvailability is called whenever an operation against the backend succeeds or fails.
// A transition to unavailable starts the background poller; a transition to available
// (whether detected here or by the poller itself) broadcasts the new status once.
func (p *statusPoller) UpdateAvailability(available bool) {
	p.mu.Lock()
	if p.available == available {
		p.mu.Unlock()
		return
	}
	p.available = available
	startPoll := !available && !p.polling && !p.closed
	if startPoll {
		p.polling = true
		p.stopCh = make(chan struct{})
	}
	stopCh := p.stopCh
	p.mu.Unlock()

	if !available {
		p.loggers.Warn("persistent store is unavailable; will retry")
		p.updateStatus(interfaces.DataStoreStatus{Available: false})
		if startPoll {
			go p.runPoll(stopCh)
		}
		return
	}
	p.loggers.Warn("persistent store has recovered")
	p.updateStatus(interfaces.DataStoreStatus{Available: true, RefreshNeeded: p.recoveryNeedsRefresh})
}

func (p *statusPoller) runPoll(stopCh chan struct{}) {
	ticker := time.NewTicker(outagePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if p.pollFn() {
				p.mu.Lock()
				p.polling = false
				p.mu.Unlock()
				p.UpdateAvailability(true)
				return
			}
		}
	}
}

func (p *statusPoller) Close() {
	p.mu.Lock()
	p.closed = true
	stopCh := p.stopCh
	p.polling = false
	p.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
	}
}
