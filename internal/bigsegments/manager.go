// Package bigsegments owns the optional big-segment store: a read-only, externally
// synchronized database of context membership that the evaluator consults when a segment
// rule requires it. The manager here polls the store's freshness, caches per-context
// membership lookups, and publishes availability/staleness status.
package bigsegments

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"
	"time"

	"github.com/launchdarkly/ccache"
	"golang.org/x/sync/singleflight"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/broadcast"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/subsystems"
)

// HashForContextKey computes the hash under which a context's membership is stored, so the
// raw context key is never sent to or held by the big segment store.
func HashForContextKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Manager owns a BigSegmentStore: it polls the store's metadata for availability/staleness,
// caches per-context membership lookups with a singleflight-guarded cache-miss path, and
// broadcasts status changes. The store's lifecycle belongs to the manager once created --
// closing the manager closes the store.
type Manager struct {
	store       subsystems.BigSegmentStore
	broadcaster *broadcast.Broadcaster[interfaces.BigSegmentStoreStatus]
	staleAfter  time.Duration
	loggers     fflog.Loggers

	lock       sync.RWMutex
	cache      *ccache.Cache
	cacheTTL   time.Duration
	haveStatus bool
	lastStatus interfaces.BigSegmentStoreStatus

	requests   singleflight.Group
	pollCloser chan struct{}
}

// NewManager creates a Manager for cfg.Store, which must be non-nil, and starts its status
// poller immediately.
func NewManager(cfg subsystems.BigSegmentsConfiguration, loggers fflog.Loggers) *Manager {
	pollCloser := make(chan struct{})
	m := &Manager{
		store:       cfg.Store,
		broadcaster: broadcast.New[interfaces.BigSegmentStoreStatus](),
		staleAfter:  cfg.StaleAfter,
		loggers:     loggers,
		cache:       ccache.New(ccache.Configure().MaxSize(int64(cfg.ContextCacheSize))),
		cacheTTL:    cfg.ContextCacheTime,
		pollCloser:  pollCloser,
	}
	go m.runPoll(cfg.StatusPollInterval, pollCloser)
	return m
}

// Close shuts down the poller, the membership cache, the status broadcaster, and the store.
func (m *Manager) Close() error {
	m.lock.Lock()
	if m.pollCloser != nil {
		close(m.pollCloser)
		m.pollCloser = nil
	}
	if m.cache != nil {
		m.cache.Stop()
		m.cache = nil
	}
	m.lock.Unlock()

	m.broadcaster.Close()
	return m.store.Close()
}

// GetStatus returns the current status, querying the store synchronously if the poller
// hasn't completed its first pass yet.
func (m *Manager) GetStatus() interfaces.BigSegmentStoreStatus {
	m.lock.RLock()
	status, have := m.lastStatus, m.haveStatus
	m.lock.RUnlock()
	if have {
		return status
	}
	return m.pollAndUpdateStatus()
}

func (m *Manager) AddStatusListener() <-chan interfaces.BigSegmentStoreStatus {
	return m.broadcaster.AddListener()
}

func (m *Manager) RemoveStatusListener(ch <-chan interfaces.BigSegmentStoreStatus) {
	m.broadcaster.RemoveListener(ch)
}

// GetContextMembership returns the cached or freshly-queried BigSegmentMembership for
// contextKey. The second return value is false only on a store/internal error -- a context
// with no recorded membership still returns (nil-ish membership, true).
func (m *Manager) GetContextMembership(contextKey string) (subsystems.BigSegmentMembership, bool) {
	entry := m.safeCacheGet(contextKey)
	if entry == nil || entry.Expired() {
		value, err, _ := m.requests.Do(contextKey, func() (interface{}, error) {
			hash := HashForContextKey(contextKey)
			m.loggers.Debugf("querying big segment membership for context hash %q", hash)
			return m.store.GetMembership(hash)
		})
		if err != nil {
			m.loggers.Errorf("big segment store returned error: %s", err)
			return nil, false
		}
		if value == nil {
			m.safeCacheSet(contextKey, nil, m.cacheTTL)
			return nil, true
		}
		membership, ok := value.(subsystems.BigSegmentMembership)
		if !ok {
			m.loggers.Error("big segment manager got the wrong value type from the store query")
			return nil, false
		}
		m.safeCacheSet(contextKey, membership, m.cacheTTL)
		return membership, true
	}
	if entry.Value() == nil {
		return nil, true
	}
	membership, ok := entry.Value().(subsystems.BigSegmentMembership)
	if !ok {
		m.loggers.Error("big segment manager got the wrong value type from the cache")
		return nil, false
	}
	return membership, true
}

func (m *Manager) pollAndUpdateStatus() interfaces.BigSegmentStoreStatus {
	m.loggers.Debug("querying big segment store metadata")
	metadata, err := m.store.GetMetadata()

	var newStatus interfaces.BigSegmentStoreStatus
	if err == nil {
		newStatus.Available = true
		newStatus.Stale = m.isStale(metadata.LastUpToDate)
	} else {
		m.loggers.Errorf("big segment store status query returned error: %s", err)
		newStatus.Available = false
	}

	m.lock.Lock()
	oldStatus, hadStatus := m.lastStatus, m.haveStatus
	m.lastStatus, m.haveStatus = newStatus, true
	m.lock.Unlock()

	if !hadStatus || newStatus != oldStatus {
		m.broadcaster.Broadcast(newStatus)
	}
	return newStatus
}

func (m *Manager) isStale(lastUpToDate time.Time) bool {
	if lastUpToDate.IsZero() {
		return true
	}
	return time.Since(lastUpToDate) >= m.staleAfter
}

func (m *Manager) runPoll(pollInterval time.Duration, pollCloser <-chan struct{}) {
	if pollInterval > m.staleAfter {
		pollInterval = m.staleAfter
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-pollCloser:
			return
		case <-ticker.C:
			m.pollAndUpdateStatus()
		}
	}
}

func (m *Manager) safeCacheGet(key string) *ccache.Item {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.cache == nil {
		return nil
	}
	return m.cache.Get(key)
}

func (m *Manager) safeCacheSet(key string, value interface{}, ttl time.Duration) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if m.cache != nil {
		m.cache.Set(key, value, ttl)
	}
}
