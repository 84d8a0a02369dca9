package cirrus

import (
	"context"

	"github.com/jcarreira/cirrus/internal/cache"
)

// EvictionPolicy chooses which ids to evict from a Cache to make room for
// an insert; see FIFOEviction for the only policy this module ships.
type EvictionPolicy = cache.EvictionPolicy

// PrefetchPolicy decides which ids to speculatively fetch after a Cache
// access; see OrderedPrefetch and NoPrefetch.
type PrefetchPolicy = cache.PrefetchPolicy

// NewFIFOEviction returns an eviction policy that evicts the oldest
// still-cached insertion first.
func NewFIFOEviction() *cache.FIFOEviction { return cache.NewFIFOEviction() }

// OrderedPrefetch schedules the next ReadAhead ids after an access within
// a fixed [First, Last] range, wrapping modulo the range's width.
type OrderedPrefetch = cache.OrderedPrefetch

// NoPrefetch never schedules a prefetch.
type NoPrefetch = cache.NoPrefetch

// Cache is the bounded client-side cache manager from spec.md §4.6,
// sitting in front of an ObjectStore[T].
type Cache[T any] struct {
	m *cache.Manager[T]
}

// objectStoreSource adapts an *ObjectStore[T] to cache.Source[T].
type objectStoreSource[T any] struct{ store *ObjectStore[T] }

func (s objectStoreSource[T]) Get(ctx context.Context, id uint64) (T, error) {
	return s.store.Get(ctx, id)
}

func (s objectStoreSource[T]) GetAsync(id uint64) cache.Awaiter[T] {
	return s.store.GetAsync(id)
}

func (s objectStoreSource[T]) Put(ctx context.Context, id uint64, value T) error {
	return s.store.Put(ctx, id, value)
}

func (s objectStoreSource[T]) Remove(ctx context.Context, id uint64) (bool, error) {
	return s.store.Remove(ctx, id)
}

// NewCache builds a Cache of capacity entries in front of store. eviction
// defaults to FIFO and prefetch defaults to none when nil.
func NewCache[T any](store *ObjectStore[T], capacity int, eviction EvictionPolicy, prefetch PrefetchPolicy) (*Cache[T], error) {
	m, err := cache.NewManager[T](objectStoreSource[T]{store}, capacity, eviction, prefetch)
	if err != nil {
		return nil, err
	}
	return &Cache[T]{m: m}, nil
}

// Get returns id's value, from cache if present, otherwise fetching
// through the underlying ObjectStore and scheduling any configured
// prefetch.
func (c *Cache[T]) Get(ctx context.Context, id uint64) (T, error) { return c.m.Get(ctx, id) }

// Put write-through-inserts id.
func (c *Cache[T]) Put(ctx context.Context, id uint64, value T) error { return c.m.Put(ctx, id, value) }

// Remove drops id locally and issues a remove through the ObjectStore.
func (c *Cache[T]) Remove(ctx context.Context, id uint64) (bool, error) { return c.m.Remove(ctx, id) }

// Prefetch inserts a pending entry for id if absent.
func (c *Cache[T]) Prefetch(id uint64) { c.m.Prefetch(id) }

// Len reports the number of entries currently cached.
func (c *Cache[T]) Len() int { return c.m.Len() }

// Capacity reports the maximum number of entries this cache will hold.
func (c *Cache[T]) Capacity() int { return c.m.Capacity() }
