package versionstore

import "github.com/graphvault/core/internal/types"

// cachePut and cacheInvalidate wrap the Store's object cache, keyed by
// version id. Both old and new ids of a mutated chain are evicted/seeded
// so a GetVersion(oldID) right after a mutation still serves the
// immutable old row, while GetLatest sees the new one.
func (s *Store) cachePut(row *types.Row) {
	if row == nil || s.objectCache == nil {
		return
	}
	s.objectCache.Put(row.ID, row)
}

func (s *Store) cacheInvalidate(id string) {
	if id == "" || s.objectCache == nil {
		return
	}
	s.objectCache.Delete(id)
}
