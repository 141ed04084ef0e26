// Package cache provides a process-local TTL cache safe for concurrent use.
//
// The cache is an optimization only: it carries no durability guarantee and
// callers must treat a miss as "ask the authoritative source". Entries expire
// lazily on access; when a maximum size is configured, inserts evict the
// entry closest to expiry.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// TTL is an in-memory cache mapping string keys to values of type V, each
// entry expiring after the cache's fixed time-to-live.
type TTL[V any] struct {
	mu         sync.Mutex
	items      map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// Option configures a TTL cache.
type Option[V any] func(*TTL[V])

// WithMaxEntries bounds the cache size. Zero or negative means unbounded.
func WithMaxEntries[V any](n int) Option[V] {
	return func(c *TTL[V]) {
		c.maxEntries = n
	}
}

// WithClock overrides the time source, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTL[V]) {
		c.now = now
	}
}

// NewTTL creates a cache whose entries expire after ttl.
func NewTTL[V any](ttl time.Duration, opts ...Option[V]) *TTL[V] {
	c := &TTL[V]{
		items: make(map[string]entry[V]),
		ttl:   ttl,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the cached value for key. The second return value reports
// whether a live entry was found; expired entries are removed on access.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}

	if e.expired(c.now()) {
		delete(c.items, key)
		var zero V
		return zero, false
	}

	return e.value, true
}

// Set stores value under key, resetting its time-to-live. When the cache is
// full, the entry closest to expiry is evicted first.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if _, ok := c.items[key]; !ok && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictOldest(now)
	}

	c.items[key] = entry[V]{
		value:     value,
		expiresAt: now.Add(c.ttl),
	}
}

// Delete removes the entry for key, if present.
func (c *TTL[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// DeleteFunc removes every entry whose key matches the predicate.
func (c *TTL[V]) DeleteFunc(match func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.items {
		if match(k) {
			delete(c.items, k)
		}
	}
}

// Clear removes all entries.
func (c *TTL[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]entry[V])
}

// Len returns the number of entries, including ones not yet lazily expired.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// evictOldest removes expired entries, or failing that the single entry
// closest to expiry. Callers must hold the lock.
func (c *TTL[V]) evictOldest(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)

	for k, e := range c.items {
		if e.expired(now) {
			delete(c.items, k)
			return
		}

		if !found || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, e.expiresAt, true
		}
	}

	if found {
		delete(c.items, oldestKey)
	}
}
