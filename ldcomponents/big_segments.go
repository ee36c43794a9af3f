package ldcomponents

import (
	"time"

	"github.com/flagforge/flagforge-go/internal/bigsegments"
	"github.com/flagforge/flagforge-go/subsystems"
)

// Defaults for BigSegmentsBuilder, matching the manager's documented caching/polling
// behavior.
const (
	DefaultBigSegmentsContextCacheSize   = 1000
	DefaultBigSegmentsContextCacheTime   = 5 * time.Second
	DefaultBigSegmentsStatusPollInterval = 5 * time.Second
	DefaultBigSegmentsStaleAfter         = 2 * time.Minute
)

// BigSegmentsBuilder configures the optional big-segments manager in front of a
// subsystems.BigSegmentStore.
type BigSegmentsBuilder struct {
	store              subsystems.BigSegmentStore
	contextCacheSize   int
	contextCacheTime   time.Duration
	statusPollInterval time.Duration
	staleAfter         time.Duration
}

// BigSegments builds a configurer for store, a caller-supplied BigSegmentStore backend
// (e.g. Redis/DynamoDB, populated by an external synchronization job).
func BigSegments(store subsystems.BigSegmentStore) *BigSegmentsBuilder {
	return &BigSegmentsBuilder{
		store:              store,
		contextCacheSize:   DefaultBigSegmentsContextCacheSize,
		contextCacheTime:   DefaultBigSegmentsContextCacheTime,
		statusPollInterval: DefaultBigSegmentsStatusPollInterval,
		staleAfter:         DefaultBigSegmentsStaleAfter,
	}
}

// ContextCacheSize sets the maximum number of contexts whose membership is cached.
func (b *BigSegmentsBuilder) ContextCacheSize(size int) *BigSegmentsBuilder {
	b.contextCacheSize = size
	return b
}

// ContextCacheTime sets how long a cached membership answer is trusted before re-querying.
func (b *BigSegmentsBuilder) ContextCacheTime(d time.Duration) *BigSegmentsBuilder {
	b.contextCacheTime = d
	return b
}

// StatusPollInterval sets how often the manager checks the store's metadata for freshness.
func (b *BigSegmentsBuilder) StatusPollInterval(d time.Duration) *BigSegmentsBuilder {
	b.statusPollInterval = d
	return b
}

// StaleAfter sets how long since the store's last update before its status is reported stale.
func (b *BigSegmentsBuilder) StaleAfter(d time.Duration) *BigSegmentsBuilder {
	b.staleAfter = d
	return b
}

func (b *BigSegmentsBuilder) Build(context subsystems.ClientContext) (*bigsegments.Manager, error) {
	cfg := subsystems.BigSegmentsConfiguration{
		Store:              b.store,
		ContextCacheSize:   b.contextCacheSize,
		ContextCacheTime:   b.contextCacheTime,
		StatusPollInterval: b.statusPollInterval,
		StaleAfter:         b.staleAfter,
	}
	return bigsegments.NewManager(cfg, context.GetLogging().Loggers), nil
}
