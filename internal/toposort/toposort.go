// Package toposort topologically sorts data-store items by dependency references, so a
// persistent-store backend's Init always writes prerequisites before the items that
// depend on them -- a reader observing a partial write never sees a dangling reference.
package toposort

import st "github.com/flagforge/flagforge-go/subsystems/ldstoretypes"

// DependencyKeys extracts the keys an item depends on.
type DependencyKeys func(item st.ItemDescriptor) []string

// Sort returns items in dependency order: an item always appears after every item it
// depends on (cycles and missing dependencies are tolerated -- the item is just emitted at
// its first encounter).
func Sort(items []st.KeyedItemDescriptor, deps DependencyKeys) []st.KeyedItemDescriptor {
	byKey := make(map[string]st.KeyedItemDescriptor, len(items))
	for _, it := range items {
		byKey[it.Key] = it
	}

	visited := make(map[string]bool, len(items))
	visiting := make(map[string]bool, len(items))
	ordered := make([]st.KeyedItemDescriptor, 0, len(items))

	var visit func(key string)
	visit = func(key string) {
		if visited[key] || visiting[key] {
			return // already emitted, or a cycle -- either way, stop recursing
		}
		item, ok := byKey[key]
		if !ok {
			return
		}
		visiting[key] = true
		for _, dep := range deps(item.Item) {
			visit(dep)
		}
		visiting[key] = false
		visited[key] = true
		ordered = append(ordered, item)
	}

	for _, it := range items {
		visit(it.Key)
	}
	return ordered
}
