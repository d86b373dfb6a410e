package cache

import (
	"sync"
	"time"
)

// DefaultTTL is how long an entry stays visible after the write that
// created it. Reads never extend the deadline.
const DefaultTTL = 60 * time.Second

type entry[V any] struct {
	value     V
	lastWrite time.Time
}

// Cache is an unbounded in-memory store with fixed-window expiry: an entry
// is visible while now-lastWrite < ttl, counted from the last Set. Expired
// entries are removed lazily by Get and in bulk by Sweep. All methods are
// safe for concurrent use; the mutex is only ever held for map operations.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]entry[V]
	ttl     time.Duration

	now func() time.Time // overridden in tests
}

func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache[K, V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.lastWrite) >= c.ttl
}

// Get returns the live value for key. An expired entry is deleted on the
// spot and reported as a miss. A hit does not refresh the entry deadline.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e, c.now()) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, overwriting any previous entry and starting
// a fresh TTL window.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, lastWrite: c.now()}
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len reports the current entry count, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
