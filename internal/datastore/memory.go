// Package datastore implements the SDK's DataStore: the default in-memory implementation,
// and a wrapper that adds caching, TTL, and outage/recovery coordination around a durable
// subsystems.PersistentDataStore backend.
package datastore

import (
	"sync"

	"github.com/flagforge/flagforge-go/internal/fflog"
	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

// memoryStore is a map-of-maps guarded by a single RWMutex. Get/GetAll/IsInitialized are read-locked so
// they stay cheap on the hot evaluation path; methods return a single path (no defer) to
// keep the lock window as short as possible.
type memoryStore struct {
	mu            sync.RWMutex
	allData       map[st.DataKind]map[string]st.ItemDescriptor
	isInitialized bool
	loggers       fflog.Loggers
}

// NewInMemory creates the default, non-durable DataStore.
func NewInMemory(loggers fflog.Loggers) *memoryStore {
	return &memoryStore{
		allData: make(map[st.DataKind]map[string]st.ItemDescriptor),
		loggers: loggers,
	}
}

func (s *memoryStore) Init(allData []st.Collection) error {
	allData = OrderForInit(allData)
	s.mu.Lock()
	fresh := make(map[st.DataKind]map[string]st.ItemDescriptor, len(allData))
	for _, coll := range allData {
		items := make(map[string]st.ItemDescriptor, len(coll.Items))
		for _, item := range coll.Items {
			items[item.Key] = item.Item
		}
		fresh[coll.Kind] = items
	}
	s.allData = fresh
	s.isInitialized = true
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Get(kind st.DataKind, key string) (st.ItemDescriptor, error) {
	s.mu.RLock()
	item, ok := st.ItemDescriptor{}, false
	if coll, found := s.allData[kind]; found {
		item, ok = coll[key]
	}
	s.mu.RUnlock()

	if ok {
		return item, nil
	}
	if s.loggers.IsDebugEnabled() {
		s.loggers.Debugf("key %s not found in %q", key, kind.GetName())
	}
	return st.ItemDescriptor{}.NotFound(), nil
}

func (s *memoryStore) GetAll(kind st.DataKind) ([]st.KeyedItemDescriptor, error) {
	s.mu.RLock()
	var out []st.KeyedItemDescriptor
	if coll, ok := s.allData[kind]; ok && len(coll) > 0 {
		out = make([]st.KeyedItemDescriptor, 0, len(coll))
		for key, item := range coll {
			out = append(out, st.KeyedItemDescriptor{Key: key, Item: item})
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *memoryStore) Upsert(kind st.DataKind, key string, newItem st.ItemDescriptor) (bool, error) {
	s.mu.Lock()
	coll, ok := s.allData[kind]
	if !ok {
		s.allData[kind] = map[string]st.ItemDescriptor{key: newItem}
		s.mu.Unlock()
		return true, nil
	}
	updated := true
	if existing, found := coll[key]; found && existing.Version >= newItem.Version {
		updated = false
	}
	if updated {
		coll[key] = newItem
	}
	s.mu.Unlock()
	return updated, nil
}

func (s *memoryStore) IsInitialized() bool {
	s.mu.RLock()
	ret := s.isInitialized
	s.mu.RUnlock()
	return ret
}

func (s *memoryStore) IsStatusMonitoringEnabled() bool { return false }

func (s *memoryStore) Close() error { return nil }
