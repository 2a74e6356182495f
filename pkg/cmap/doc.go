// Package cmap provides a sharded concurrent map.
//
// Keys hash to one of a power-of-two number of shards, each guarded by its
// own RWMutex. Single-key operations are atomic; Range and DeleteFunc visit
// shards one at a time and so see no global snapshot.
//
// Usage:
//
//	m := cmap.New[string, *domain.TokenMetadata]()
//	if !m.SetIfAbsent(key, meta) {
//		// key already present
//	}
//	m.Compute(key, func(old *domain.TokenMetadata, ok bool) (*domain.TokenMetadata, bool) {
//		return old, ok
//	})
package cmap
