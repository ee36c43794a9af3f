package events

import "container/list"

// lruCache is a fixed-capacity set used by the dispatcher to remember which context keys it
// has already emitted an index event for. add reports whether the value was already present,
// and -- whether or not it was -- refreshes its recency so it survives eviction longer. A
// zero-capacity cache never remembers anything: every add reports "not seen."
type lruCache struct {
	capacity int
	list     *list.List
	elements map[string]*list.Element
}

func newLruCache(capacity int) lruCache {
	return lruCache{
		capacity: capacity,
		list:     list.New(),
		elements: make(map[string]*list.Element),
	}
}

// add records value as seen and reports whether it was already known.
func (c *lruCache) add(value string) bool {
	if c.capacity <= 0 {
		return false
	}
	if el, ok := c.elements[value]; ok {
		c.list.MoveToFront(el)
		return true
	}
	if c.list.Len() >= c.capacity {
		oldest := c.list.Back()
		if oldest != nil {
			c.list.Remove(oldest)
			delete(c.elements, oldest.Value.(string))
		}
	}
	c.elements[value] = c.list.PushFront(value)
	return false
}

// clear removes every remembered value.
func (c *lruCache) clear() {
	c.list.Init()
	c.elements = make(map[string]*list.Element)
}
