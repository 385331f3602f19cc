// Package tilecache provides a sharded, append-only cache for loaded tile
// images, keyed by (zoom level, tile number).
//
// Unlike a general-purpose LRU cache there is no eviction: a tile loaded
// during a viewing session stays loaded until the viewer is destroyed or
// resized. This keeps fallback lookups deterministic (a coarser tile that
// was loaded once can always stand in for a finer one) and makes concurrent
// reasoning trivial, at the cost of memory growth bounded by the grid's
// configured maximum tile count.
package tilecache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// ShardCount is the number of shards for reduced lock contention.
// Must be a power of 2 for fast modulo via bitwise AND.
const ShardCount = 16

// shardMask is used for fast shard selection (ShardCount - 1).
const shardMask = ShardCount - 1

// Key identifies one tile of one zoom level.
type Key struct {
	Level int
	Tile  int
}

// hash computes an FNV-1a hash of the packed key for shard selection.
func (k Key) hash() uint64 {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(k.Level >> (8 * i))
		buf[8+i] = byte(k.Tile >> (8 * i))
	}
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

// Cache is a thread-safe, sharded tile store.
// Entries are immutable once set and never evicted; see the package doc.
type Cache[V any] struct {
	shards [ShardCount]*shard[V]

	// Statistics (atomic for zero-allocation reads).
	hits   atomic.Uint64
	misses atomic.Uint64
}

// shard is a single shard of the cache with its own lock.
type shard[V any] struct {
	mu      sync.RWMutex
	entries map[Key]V
}

// New creates an empty tile cache.
func New[V any]() *Cache[V] {
	c := &Cache[V]{}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[Key]V)}
	}
	return c
}

// getShard returns the shard for a given key.
func (c *Cache[V]) getShard(k Key) *shard[V] {
	return c.shards[k.hash()&shardMask]
}

// Get retrieves a cached tile. Returns (value, true) if loaded.
func (c *Cache[V]) Get(k Key) (V, bool) {
	s := c.getShard(k)
	s.mu.RLock()
	v, ok := s.entries[k]
	s.mu.RUnlock()
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Has reports whether a tile is loaded without touching the statistics.
func (c *Cache[V]) Has(k Key) bool {
	s := c.getShard(k)
	s.mu.RLock()
	_, ok := s.entries[k]
	s.mu.RUnlock()
	return ok
}

// Set stores a tile. The value is stored as-is (not copied); callers must
// not modify it after caching. Setting an existing key overwrites it, which
// only happens when a canceled fetch races a re-request of the same tile.
func (c *Cache[V]) Set(k Key, v V) {
	s := c.getShard(k)
	s.mu.Lock()
	s.entries[k] = v
	s.mu.Unlock()
}

// Len returns the total number of loaded tiles.
func (c *Cache[V]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes all entries. Statistics are cumulative and survive a
// clear.
func (c *Cache[V]) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		s.entries = make(map[Key]V)
		s.mu.Unlock()
	}
}

// Stats returns the cumulative hit and miss counts.
func (c *Cache[V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
