package external

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ResponseCache is a small TTL cache owned by whoever constructs it. Keys
// and TTLs are chosen by the caller. Expired entries are dropped lazily on
// read and by Sweep.
type ResponseCache[V any] struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]cacheEntry[V]
}

type cacheEntry[V any] struct {
	value   V
	expires time.Time
}

// NewResponseCache creates an empty cache. A nil clock uses the real clock.
func NewResponseCache[V any](clock clockwork.Clock) *ResponseCache[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ResponseCache[V]{
		clock:   clock,
		entries: make(map[string]cacheEntry[V]),
	}
}

// Get returns the value for key if present and not expired.
func (c *ResponseCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl is a no-op.
func (c *ResponseCache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: value, expires: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete removes key.
func (c *ResponseCache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were dropped.
func (c *ResponseCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *ResponseCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
