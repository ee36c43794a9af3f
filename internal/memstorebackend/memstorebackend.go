// Package memstorebackend implements an in-process subsystems.PersistentDataStore backend,
// standing in for a real database so the persistent-store wrapper's caching, TTL, and
// outage-recovery behavior can be exercised and tested without any external dependency.
package memstorebackend

import (
	"errors"
	"sync"

	st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"
)

var errUnavailable = errors.New("memstorebackend: backend is unavailable")

// Backend is a map-of-maps PersistentDataStore. SetAvailable lets tests force it into an
// unavailable state to exercise the wrapper's outage/recovery path.
type Backend struct {
	mu            sync.RWMutex
	data          map[string]map[string]st.SerializedItemDescriptor
	isInitialized bool
	available     bool
}

// New creates an empty, initially-available backend.
func New() *Backend {
	return &Backend{
		data:      make(map[string]map[string]st.SerializedItemDescriptor),
		available: true,
	}
}

// SetAvailable forces the backend's reachability, for outage-simulation tests.
func (b *Backend) SetAvailable(available bool) {
	b.mu.Lock()
	b.available = available
	b.mu.Unlock()
}

func (b *Backend) IsStoreAvailable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.available
}

func (b *Backend) InitInternal(allData []st.SerializedCollection) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return errUnavailable
	}
	fresh := make(map[string]map[string]st.SerializedItemDescriptor, len(allData))
	for _, coll := range allData {
		items := make(map[string]st.SerializedItemDescriptor, len(coll.Items))
		for _, item := range coll.Items {
			items[item.Key] = item.Item
		}
		fresh[coll.Kind.GetName()] = items
	}
	b.data = fresh
	b.isInitialized = true
	return nil
}

func (b *Backend) GetInternal(kind st.DataKind, key string) (st.SerializedItemDescriptor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.available {
		return st.SerializedItemDescriptor{}, errUnavailable
	}
	if coll, ok := b.data[kind.GetName()]; ok {
		if item, ok := coll[key]; ok {
			return item, nil
		}
	}
	return st.SerializedItemDescriptor{Version: 0, Deleted: true}, nil
}

func (b *Backend) GetAllInternal(kind st.DataKind) ([]st.KeyedSerializedItemDescriptor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.available {
		return nil, errUnavailable
	}
	coll, ok := b.data[kind.GetName()]
	if !ok {
		return nil, nil
	}
	out := make([]st.KeyedSerializedItemDescriptor, 0, len(coll))
	for key, item := range coll {
		out = append(out, st.KeyedSerializedItemDescriptor{Key: key, Item: item})
	}
	return out, nil
}

func (b *Backend) UpsertInternal(kind st.DataKind, key string, item st.SerializedItemDescriptor) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return false, errUnavailable
	}
	coll, ok := b.data[kind.GetName()]
	if !ok {
		coll = make(map[string]st.SerializedItemDescriptor)
		b.data[kind.GetName()] = coll
	}
	if existing, found := coll[key]; found && existing.Version >= item.Version {
		return false, nil
	}
	coll[key] = item
	return true, nil
}

func (b *Backend) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.isInitialized
}

func (b *Backend) Close() error { return nil }
