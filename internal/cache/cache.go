// ABOUTME: In-memory query cache with TTL-based expiration
// ABOUTME: Thread-safe, invalidated explicitly on mutating API calls

package cache

import (
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	data      interface{}
	expiresAt time.Time
}

// Cache holds recently fetched query results. The session repository
// follows an invalidate-on-mutation rule: reads populate, writes evict.
type Cache struct {
	store sync.Map
	ttl   time.Duration
}

// New creates a cache whose entries expire after the given TTL.
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (interface{}, bool) {
	val, ok := c.store.Load(key)
	if !ok {
		return nil, false
	}

	e := val.(entry)
	if time.Now().After(e.expiresAt) {
		c.store.Delete(key)
		slog.Debug("cache expired", "key", key)
		return nil, false
	}

	return e.data, true
}

// Set stores a value under key with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.store.Store(key, entry{
		data:      value,
		expiresAt: time.Now().Add(c.ttl),
	})
	slog.Debug("cache set", "key", key)
}

// Invalidate evicts a single key.
func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
	slog.Debug("cache invalidated", "key", key)
}

// Has reports whether key is cached and unexpired without touching it.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}
