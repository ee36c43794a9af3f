// Package ldcomponents holds the builder functions applications use to select and configure
// pluggable SDK components -- data sources, data stores, big segments, and the event
// pipeline -- mirroring the teacher SDK's ldcomponents package. Each builder returns a
// subsystems.ComponentConfigurer, deferring construction until the client has a
// subsystems.ClientContext to hand it.
package ldcomponents

import (
	"time"

	"github.com/flagforge/flagforge-go/internal/datastore"
	"github.com/flagforge/flagforge-go/internal/memstorebackend"
	"github.com/flagforge/flagforge-go/subsystems"
)

// DefaultPersistentCacheTTL is the cache duration PersistentDataStore uses when none is set.
const DefaultPersistentCacheTTL = 15 * time.Second

type inMemoryDataStoreConfigurer struct{}

func (inMemoryDataStoreConfigurer) Build(context subsystems.ClientContext) (subsystems.DataStore, error) {
	return datastore.NewInMemory(context.GetLogging().Loggers), nil
}

// InMemoryDataStore builds the default, non-durable DataStore.
func InMemoryDataStore() subsystems.ComponentConfigurer[subsystems.DataStore] {
	return inMemoryDataStoreConfigurer{}
}

// PersistentDataStoreBuilder configures a DataStore backed by a subsystems.PersistentDataStore,
// adding the caching/outage-recovery behavior every durable backend needs.
type PersistentDataStoreBuilder struct {
	factory  func(context subsystems.ClientContext) (subsystems.PersistentDataStore, error)
	cacheTTL time.Duration
}

// PersistentDataStore wraps factory (e.g. a Redis/DynamoDB/SQL backend constructor) with the
// standard caching wrapper. The in-process memstorebackend is itself just another
// PersistentDataStore, useful for tests or a single-process durable cache.
func PersistentDataStore(
	factory func(context subsystems.ClientContext) (subsystems.PersistentDataStore, error),
) *PersistentDataStoreBuilder {
	return &PersistentDataStoreBuilder{factory: factory, cacheTTL: DefaultPersistentCacheTTL}
}

// CacheTime sets how long reads are cached in front of the backend. Zero disables caching;
// a negative value caches forever (the cache becomes the source of truth during an outage).
func (b *PersistentDataStoreBuilder) CacheTime(ttl time.Duration) *PersistentDataStoreBuilder {
	b.cacheTTL = ttl
	return b
}

func (b *PersistentDataStoreBuilder) Build(context subsystems.ClientContext) (subsystems.DataStore, error) {
	core, err := b.factory(context)
	if err != nil {
		return nil, err
	}
	// The client always hands a *datastore.UpdateSink to a DataStore configurer -- the
	// interface type only promises UpdateStatus, but the wrapper also needs Close.
	sink, _ := context.GetDataStoreUpdateSink().(*datastore.UpdateSink)
	return datastore.NewPersistentWrapper(core, sink, b.cacheTTL, context.GetLogging().Loggers), nil
}

// InMemoryPersistentStore returns a PersistentDataStore factory backed by memstorebackend --
// an in-process stand-in for a real durable backend, useful for tests and single-process
// deployments that still want the persistent-store caching/recovery behavior.
func InMemoryPersistentStore() func(context subsystems.ClientContext) (subsystems.PersistentDataStore, error) {
	return func(context subsystems.ClientContext) (subsystems.PersistentDataStore, error) {
		return memstorebackend.New(), nil
	}
}
