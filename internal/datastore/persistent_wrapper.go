package datastore

import (
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/singleflight"

	"github.com/flagforge/flagforge-go/interfaces"
	"github.com/flagforge/flagforge-go/internal/fflog"
	"github.com/flagforge/flagforge-go/ldmodel"
	"github.com/flagforge/flagforge-go/subsystems"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

const initCheckedKey = "$initChecked"

// persistentWrapper adapts a subsystems.PersistentDataStore backend into a full DataStore:
// it serializes/deserializes items at the boundary and layers per-item, per-kind, and
// init-state caches in front of the backend, with singleflight-guarded cache-miss reads and
// outage/recovery polling.
type persistentWrapper struct {
	core     subsystems.PersistentDataStore
	updates  *UpdateSink
	poller   *statusPoller
	cache    *gocache.Cache
	cacheTTL time.Duration
	requests singleflight.Group
	loggers  fflog.Loggers

	initLock sync.RWMutex
	inited   bool
}

// NewPersistentWrapper wraps core with the caching/recovery behavior described for the
// persistent-store wrapper. cacheTTL == 0 disables caching entirely; cacheTTL < 0 is
// "infinite" (the cache never expires and is treated as a source of truth during outages).
func NewPersistentWrapper(
	core subsystems.PersistentDataStore,
	updates *UpdateSink,
	cacheTTL time.Duration,
	loggers fflog.Loggers,
) subsystems.DataStore {
	var c *gocache.Cache
	if cacheTTL != 0 {
		c = gocache.New(cacheTTL, 5*time.Minute)
	}

	w := &persistentWrapper{
		core:     core,
		updates:  updates,
		cache:    c,
		cacheTTL: cacheTTL,
		loggers:  loggers,
	}
	w.poller = newStatusPoller(
		true,
		w.pollAvailabilityAfterOutage,
		updates.UpdateStatus,
		c == nil || cacheTTL > 0,
		loggers,
	)
	return w
}

func (w *persistentWrapper) hasInfiniteCache() bool {
	return w.cache != nil && w.cacheTTL < 0
}

func itemCacheKey(kind st.DataKind, key string) string { return kind.GetName() + ":" + key }
func allItemsCacheKey(kind st.DataKind) string         { return "all:" + kind.GetName() }

func (w *persistentWrapper) Init(allData []st.Collection) error {
	allData = OrderForInit(allData)
	err := w.initCore(allData)
	if w.cache != nil {
		w.cache.Flush()
	}
	if err != nil && !w.hasInfiniteCache() {
		return err
	}
	if w.cache != nil {
		for _, coll := range allData {
			w.cacheCollection(coll.Kind, coll.Items)
		}
	}
	w.initLock.Lock()
	w.inited = true
	w.initLock.Unlock()
	return err
}

func (w *persistentWrapper) initCore(allData []st.Collection) error {
	serialized := make([]st.SerializedCollection, 0, len(allData))
	for _, coll := range allData {
		serialized = append(serialized, st.SerializedCollection{
			Kind:  coll.Kind,
			Items: w.serializeAll(coll.Kind, coll.Items),
		})
	}
	err := w.core.InitInternal(serialized)
	w.noteError(err)
	return err
}

func (w *persistentWrapper) Get(kind st.DataKind, key string) (st.ItemDescriptor, error) {
	if w.cache == nil {
		item, err := w.readAndDeserialize(kind, key)
		w.noteError(err)
		return item, err
	}
	cacheKey := itemCacheKey(kind, key)
	if cached, ok := w.cache.Get(cacheKey); ok {
		if item, ok := cached.(st.ItemDescriptor); ok {
			return item, nil
		}
	}
	reqKey := fmt.Sprintf("get:%s:%s", kind.GetName(), key)
	v, err, _ := w.requests.Do(reqKey, func() (interface{}, error) {
		item, err := w.readAndDeserialize(kind, key)
		w.noteError(err)
		if err != nil {
			return nil, err
		}
		w.cache.Set(cacheKey, item, gocache.DefaultExpiration)
		return item, nil
	})
	if err != nil || v == nil {
		return st.ItemDescriptor{}.NotFound(), err
	}
	return v.(st.ItemDescriptor), nil
}

func (w *persistentWrapper) GetAll(kind st.DataKind) ([]st.KeyedItemDescriptor, error) {
	if w.cache == nil {
		items, err := w.readAllAndDeserialize(kind)
		w.noteError(err)
		return items, err
	}
	cacheKey := allItemsCacheKey(kind)
	if cached, ok := w.cache.Get(cacheKey); ok {
		if items, ok := cached.([]st.KeyedItemDescriptor); ok {
			return items, nil
		}
	}
	reqKey := "all:" + kind.GetName()
	v, err, _ := w.requests.Do(reqKey, func() (interface{}, error) {
		items, err := w.readAllAndDeserialize(kind)
		w.noteError(err)
		if err != nil {
			return nil, err
		}
		w.cache.Set(cacheKey, items, gocache.DefaultExpiration)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	if items, ok := v.([]st.KeyedItemDescriptor); ok {
		return items, nil
	}
	return nil, nil
}

func (w *persistentWrapper) Upsert(kind st.DataKind, key string, newItem st.ItemDescriptor) (bool, error) {
	updated, err := w.core.UpsertInternal(kind, key, w.serialize(kind, newItem))
	w.noteError(err)

	if err != nil && !w.hasInfiniteCache() {
		return updated, err
	}
	if w.cache == nil {
		return updated, err
	}

	cacheKey := itemCacheKey(kind, key)
	allCacheKey := allItemsCacheKey(kind)

	if err == nil {
		if updated {
			w.cache.Set(cacheKey, newItem, gocache.DefaultExpiration)
			if w.hasInfiniteCache() {
				if cached, ok := w.cache.Get(allCacheKey); ok {
					if items, ok := cached.([]st.KeyedItemDescriptor); ok {
						w.cache.Set(allCacheKey, replaceItem(items, key, newItem), gocache.DefaultExpiration)
					}
				}
			} else {
				w.cache.Delete(allCacheKey)
			}
		} else {
			// a concurrent writer beat us to it -- reread to pick up the winning version
			w.cache.Delete(cacheKey)
			w.cache.Delete(allCacheKey)
			_, _ = w.Get(kind, key)
		}
	} else if w.hasInfiniteCache() {
		w.cache.Set(cacheKey, newItem, gocache.DefaultExpiration)
		var items []st.KeyedItemDescriptor
		if cached, ok := w.cache.Get(allCacheKey); ok {
			if cachedItems, ok := cached.([]st.KeyedItemDescriptor); ok {
				items = cachedItems
			}
		}
		w.cache.Set(allCacheKey, replaceItem(items, key, newItem), gocache.DefaultExpiration)
	}
	return updated, err
}

func (w *persistentWrapper) IsInitialized() bool {
	w.initLock.RLock()
	already := w.inited
	w.initLock.RUnlock()
	if already {
		return true
	}
	if w.cache != nil {
		if _, found := w.cache.Get(initCheckedKey); found {
			return false
		}
	}
	fresh := w.core.IsInitialized()
	if fresh {
		w.initLock.Lock()
		w.inited = true
		w.initLock.Unlock()
		if w.cache != nil {
			w.cache.Delete(initCheckedKey)
		}
	} else if w.cache != nil {
		w.cache.Set(initCheckedKey, "", gocache.DefaultExpiration)
	}
	return fresh
}

func (w *persistentWrapper) IsStatusMonitoringEnabled() bool { return true }

func (w *persistentWrapper) Close() error {
	w.poller.Close()
	w.updates.Close()
	return w.core.Close()
}

// pollAvailabilityAfterOutage is called repeatedly by the status poller while the backend
// is believed unavailable. Once the backend answers, and we're in infinite-cache mode, the
// full cached dataset is written back in one Init call so the backend doesn't come back
// empty; otherwise recovery just means "available, but ask for a fresh put."
func (w *persistentWrapper) pollAvailabilityAfterOutage() bool {
	if !w.core.IsStoreAvailable() {
		return false
	}
	if w.hasInfiniteCache() {
		kinds := ldmodel.AllDataKinds()
		allData := make([]st.Collection, 0, len(kinds))
		for _, kind := range kinds {
			if cached, ok := w.cache.Get(allItemsCacheKey(kind)); ok {
				if items, ok := cached.([]st.KeyedItemDescriptor); ok {
					allData = append(allData, st.Collection{Kind: kind, Items: items})
				}
			}
		}
		if err := w.initCore(allData); err != nil {
			w.loggers.Errorf("failed to write cached data back to persistent store after outage: %s", err)
			return false
		}
		w.loggers.Warn("persistent store updated from cached data after outage")
	}
	return true
}

func (w *persistentWrapper) cacheCollection(kind st.DataKind, items []st.KeyedItemDescriptor) {
	if w.cache == nil {
		return
	}
	w.cache.Set(allItemsCacheKey(kind), slices.Clone(items), gocache.DefaultExpiration)
	for _, item := range items {
		w.cache.Set(itemCacheKey(kind, item.Key), item.Item, gocache.DefaultExpiration)
	}
}

func (w *persistentWrapper) serialize(kind st.DataKind, item st.ItemDescriptor) st.SerializedItemDescriptor {
	return st.SerializedItemDescriptor{
		Version:        item.Version,
		Deleted:        item.Item == nil,
		SerializedItem: kind.Serialize(item),
	}
}

func (w *persistentWrapper) serializeAll(
	kind st.DataKind,
	items []st.KeyedItemDescriptor,
) []st.KeyedSerializedItemDescriptor {
	out := make([]st.KeyedSerializedItemDescriptor, 0, len(items))
	for _, item := range items {
		out = append(out, st.KeyedSerializedItemDescriptor{Key: item.Key, Item: w.serialize(kind, item.Item)})
	}
	return out
}

func (w *persistentWrapper) deserialize(kind st.DataKind, s st.SerializedItemDescriptor) (st.ItemDescriptor, error) {
	if s.Deleted || s.SerializedItem == nil {
		return st.ItemDescriptor{Version: s.Version}, nil
	}
	item, err := kind.Deserialize(s.SerializedItem)
	if err != nil {
		return st.ItemDescriptor{}.NotFound(), err
	}
	if s.Version == 0 || s.Version == item.Version {
		return item, nil
	}
	return st.ItemDescriptor{Version: s.Version, Item: item.Item}, nil
}

func (w *persistentWrapper) readAndDeserialize(kind st.DataKind, key string) (st.ItemDescriptor, error) {
	s, err := w.core.GetInternal(kind, key)
	if err != nil {
		return st.ItemDescriptor{}.NotFound(), err
	}
	return w.deserialize(kind, s)
}

func (w *persistentWrapper) readAllAndDeserialize(kind st.DataKind) ([]st.KeyedItemDescriptor, error) {
	serializedItems, err := w.core.GetAllInternal(kind)
	if err != nil {
		return nil, err
	}
	out := make([]st.KeyedItemDescriptor, 0, len(serializedItems))
	for _, s := range serializedItems {
		item, err := w.deserialize(kind, s.Item)
		if err != nil {
			return nil, err
		}
		out = append(out, st.KeyedItemDescriptor{Key: s.Key, Item: item})
	}
	return out, nil
}

func replaceItem(items []st.KeyedItemDescriptor, key string, newItem st.ItemDescriptor) []st.KeyedItemDescriptor {
	out := make([]st.KeyedItemDescriptor, 0, len(items)+1)
	found := false
	for _, item := range items {
		if item.Key == key {
			out = append(out, st.KeyedItemDescriptor{Key: key, Item: newItem})
			found = true
		} else {
			out = append(out, item)
		}
	}
	if !found {
		out = append(out, st.KeyedItemDescriptor{Key: key, Item: newItem})
	}
	return out
}

func (w *persistentWrapper) noteError(err error) {
	if err == nil {
		return
	}
	w.loggers.Errorf("persistent store returned error: %s", err.Error())
	w.poller.UpdateAvailability(false)
}
