// Package cache provides the in-process TTL cache backing the ACL
// engine's effective-group cache and the per-object read caches. Backed
// by hashicorp/golang-lru/v2, which has no native TTL, so entries are
// wrapped with an expiry checked on Get.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/graphvault/core/internal/idgen"
)

type entry[V any] struct {
	value     V
	expiresAt int64
}

// TTLCache is a fixed-capacity LRU cache whose entries expire after a
// configured duration.
type TTLCache[K comparable, V any] struct {
	mu    sync.Mutex
	inner *lru.Cache[K, entry[V]]
	ttl   time.Duration
	clock idgen.Clock
}

// New creates a TTLCache holding up to size entries, each valid for ttl.
func New[K comparable, V any](size int, ttl time.Duration, clock idgen.Clock) *TTLCache[K, V] {
	inner, err := lru.New[K, entry[V]](size)
	if err != nil {
		// size <= 0; fall back to a minimal usable cache rather than panic.
		inner, _ = lru.New[K, entry[V]](1)
	}
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	return &TTLCache[K, V]{inner: inner, ttl: ttl, clock: clock}
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero V
	e, ok := c.inner.Get(key)
	if !ok {
		return zero, false
	}
	if c.clock.Now() > e.expiresAt {
		c.inner.Remove(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key with the cache's configured TTL.
func (c *TTLCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Add(key, entry[V]{value: value, expiresAt: c.clock.Now() + int64(c.ttl/time.Second)})
}

// Delete removes key, if present.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
}

// Purge empties the cache entirely.
func (c *TTLCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Purge()
}
