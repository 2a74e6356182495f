package cmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShardCount is the shard count used by New.
const DefaultShardCount = 16

// Map is a concurrent map split across independently locked shards.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	mask   uint64
	seed   maphash.Seed
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a map with DefaultShardCount shards.
func New[K comparable, V any]() *Map[K, V] {
	return NewWithShards[K, V](DefaultShardCount)
}

// NewWithShards creates a map with shardCount shards. Counts that are not a
// positive power of two fall back to DefaultShardCount.
func NewWithShards[K comparable, V any](shardCount int) *Map[K, V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}
	m := &Map[K, V]{
		shards: make([]*shard[K, V], shardCount),
		mask:   uint64(shardCount - 1),
		seed:   maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[maphash.Comparable(m.seed, key)&m.mask]
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// SetIfAbsent stores value only when key is absent and reports whether it did.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; ok {
		return false
	}
	s.items[key] = value
	return true
}

// Compute atomically replaces the entry for key with the result of fn.
// fn receives the current value and whether it exists; returning keep=false
// deletes the entry. Compute returns the stored value and whether one remains.
//
// fn runs under the shard lock and must not call back into m.
func (m *Map[K, V]) Compute(key K, fn func(old V, exists bool) (value V, keep bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, exists := s.items[key]
	v, keep := fn(old, exists)
	if !keep {
		delete(s.items, key)
		var zero V
		return zero, false
	}
	s.items[key] = v
	return v, true
}

// Delete removes key and returns the value it held.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	v, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	return v, ok
}

// DeleteFunc removes every entry for which fn returns true and returns the
// number removed. fn runs under the shard lock.
func (m *Map[K, V]) DeleteFunc(fn func(key K, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Range calls fn for each entry until fn returns false.
// Shards are read-locked one at a time.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Count returns the number of entries.
func (m *Map[K, V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
