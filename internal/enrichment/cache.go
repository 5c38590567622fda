// Package enrichment serves the peripheral market feeds as independent
// read-through caches. Nothing in this package sits on the signal
// path; a slow or failing feed only ever degrades its own lookup.
package enrichment

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
	ttl      time.Duration
}

// Cache is a TTL keyed store. Expired entries are retained so callers
// can fall back to the last known value when a refresh fails.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value when it is still within its TTL.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > entry.ttl {
		return nil, false
	}
	return entry.value, true
}

// GetStale returns the cached value regardless of freshness.
func (c *Cache) GetStale(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.value, true
}

// Put stores a value under the given TTL.
func (c *Cache) Put(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, storedAt: c.now(), ttl: ttl}
}
