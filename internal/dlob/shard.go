package dlob

import "sync"

// numShards determines the lock granularity for the metadata and
// markets maps. A single DLOB process
// typically only writes from its one event-loop goroutine, so sharding
// mainly reduces reader/reader and reader/writer contention rather than
// writer/writer contention.
const numShards = 32

// shardedMap is a fixed-shard-count concurrent map over sync.RWMutex
// shards: a hash picks the shard, the shard's lock guards its map.
type shardedMap[K comparable, V any] struct {
	shards [numShards]shard[K, V]
	hash   func(K) uint64
}

type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func newShardedMap[K comparable, V any](hash func(K) uint64) *shardedMap[K, V] {
	sm := &shardedMap[K, V]{hash: hash}
	for i := range sm.shards {
		sm.shards[i].m = make(map[K]V)
	}
	return sm
}

func (sm *shardedMap[K, V]) shardFor(key K) *shard[K, V] {
	return &sm.shards[sm.hash(key)%numShards]
}

func (sm *shardedMap[K, V]) Get(key K) (V, bool) {
	s := sm.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (sm *shardedMap[K, V]) Set(key K, value V) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

// Remove deletes key and returns the removed value (ok=false if absent).
func (sm *shardedMap[K, V]) Remove(key K) (V, bool) {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if ok {
		delete(s.m, key)
	}
	return v, ok
}

// GetOrCreate returns the existing value for key, or stores and returns
// newValue() if none exists yet. Used for the markets map's "bootstrap
// on first touch" behaviour.
func (sm *shardedMap[K, V]) GetOrCreate(key K, newValue func() V) V {
	s := sm.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	v := newValue()
	s.m[key] = v
	return v
}

// Len returns the total number of entries across all shards.
func (sm *shardedMap[K, V]) Len() int {
	total := 0
	for i := range sm.shards {
		sm.shards[i].mu.RLock()
		total += len(sm.shards[i].m)
		sm.shards[i].mu.RUnlock()
	}
	return total
}
