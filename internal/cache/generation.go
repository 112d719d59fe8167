package cache

import "sync/atomic"

// Generation is the global group_members generation counter: bumped on
// every membership change, included in the
// effective-group cache key so a single atomic increment invalidates
// every cached user's membership set without walking per-user keys.
type Generation struct {
	n atomic.Int64
}

// Value returns the current generation.
func (g *Generation) Value() int64 { return g.n.Load() }

// Bump advances the generation and returns the new value. Call on every
// group_members insert/delete.
func (g *Generation) Bump() int64 { return g.n.Add(1) }

// GroupCacheKey identifies one user's effective-group-set cache entry at
// a point in time; a key that embeds a stale generation simply misses.
type GroupCacheKey struct {
	UserID     string
	Generation int64
}
