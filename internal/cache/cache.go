package cache

import (
	"cmp"
	"slices"
	"sync"
)

// Cache maps keys to host objects with a soft entry limit. Passing the
// limit evicts the least recently used quarter of the entries.
//
// Cache is safe for concurrent use and must not be copied.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
	limit   int
	tick    int64
	onEvict func(K, V)
	stats   Stats
}

type entry[V any] struct {
	value V
	used  int64
}

// NewWithEvict creates a cache holding up to limit entries, unlimited when
// limit is 0. onEvict receives every entry dropped by the limit or Clear.
// It runs with the cache lock held and must not call back into the cache.
func NewWithEvict[K comparable, V any](limit int, onEvict func(K, V)) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*entry[V]),
		limit:   limit,
		onEvict: onEvict,
	}
}

// GetOrCreate returns the value of key, calling create on a miss. create
// runs under the cache lock, so a key is never created twice. A failed
// create caches nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[key]; ok {
		c.stats.Hits++
		e.used = c.tick
		return e.value, nil
	}
	c.stats.Misses++

	v, err := create()
	if err != nil {
		return v, err
	}
	c.entries[key] = &entry[V]{value: v, used: c.tick}
	if c.limit > 0 && len(c.entries) > c.limit {
		c.evictLocked(len(c.entries) - max(c.limit*3/4, 1))
	}
	return v, nil
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onEvict != nil {
		for k, e := range c.entries {
			c.onEvict(k, e.value)
		}
	}
	clear(c.entries)
	c.tick = 0
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the counters and the current size.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	return s
}

// evictLocked drops the n least recently used entries.
func (c *Cache[K, V]) evictLocked(n int) {
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		return cmp.Compare(c.entries[a].used, c.entries[b].used)
	})
	for _, k := range keys[:min(n, len(keys))] {
		if c.onEvict != nil {
			c.onEvict(k, c.entries[k].value)
		}
		delete(c.entries, k)
		c.stats.Evictions++
	}
}

// Stats counts cache lookups.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}
