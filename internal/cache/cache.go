// file: internal/cache/cache.go
// version: 2.0.0
// guid: 2d6f1a9b-84c3-4e7d-9b52-a0c8e3f71d56

package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// Cache is a generic TTL cache safe for concurrent use. Expired entries are
// dropped lazily on read and on Purge.
type Cache[T any] struct {
	mu         sync.RWMutex
	items      map[string]entry[T]
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates a cache with the given default TTL.
func New[T any](defaultTTL time.Duration) *Cache[T] {
	return &Cache[T]{
		items:      make(map[string]entry[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source, mostly for tests.
func (c *Cache[T]) WithClock(now func() time.Time) *Cache[T] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get retrieves a value if it exists and hasn't expired.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	now := c.now()
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	if !now.Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.items[key]; still && !now.Before(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *Cache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.defaultTTL)
}

// SetWithTTL stores a value with a specific TTL. A non-positive TTL removes
// the key instead.
func (c *Cache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ttl <= 0 {
		delete(c.items, key)
		return
	}
	c.items[key] = entry[T]{value: value, expiresAt: c.now().Add(ttl)}
}

// Lookup is Get gated by a cache policy.
func (c *Cache[T]) Lookup(policy Policy, key string) (T, bool) {
	if c == nil || !policy.CanRead() {
		var zero T
		return zero, false
	}
	return c.Get(key)
}

// Store is Set gated by a cache policy. It reports whether the value was
// written.
func (c *Cache[T]) Store(policy Policy, key string, value T) bool {
	if c == nil || !policy.CanWrite() {
		return false
	}
	c.Set(key, value)
	return true
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge removes every expired entry and returns how many were dropped.
func (c *Cache[T]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			dropped++
		}
	}
	return dropped
}

// Invalidate removes a single key.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// InvalidateAll removes all entries.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	c.items = make(map[string]entry[T])
	c.mu.Unlock()
}
