// Package boundedcache provides a fixed-capacity map that evicts the entry
// least recently inserted or updated. Reads never change eviction order.
package boundedcache

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

type Cache[K comparable, V any] struct {
	lru      *simplelru.LRU[K, V]
	capacity int
}

// New returns a cache holding at most capacity entries. Capacities below one
// are treated as one.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	lru, err := simplelru.NewLRU[K, V](capacity, nil)
	if err != nil {
		// only returned for non-positive sizes, which are clamped above
		panic(err)
	}
	return &Cache[K, V]{lru: lru, capacity: capacity}
}

func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Set stores value under key as the most recent entry, evicting the oldest
// entry when the cache is over capacity. It reports whether an eviction
// happened.
func (c *Cache[K, V]) Set(key K, value V) bool {
	return c.lru.Add(key, value)
}

// Get returns the value for key without touching its position.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Peek(key)
}

func (c *Cache[K, V]) GetOr(key K, def V) V {
	if v, ok := c.lru.Peek(key); ok {
		return v
	}
	return def
}

func (c *Cache[K, V]) Contains(key K) bool {
	return c.lru.Contains(key)
}

func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Keys returns keys from oldest to most recent.
func (c *Cache[K, V]) Keys() []K {
	return c.lru.Keys()
}

// Values returns values from oldest to most recent.
func (c *Cache[K, V]) Values() []V {
	return c.lru.Values()
}

// Each calls fn for every pair from oldest to most recent until fn returns
// false.
func (c *Cache[K, V]) Each(fn func(K, V) bool) {
	for _, key := range c.lru.Keys() {
		v, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if !fn(key, v) {
			return
		}
	}
}

func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}
