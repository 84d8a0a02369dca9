package cache

import (
	"context"
	"sync"

	"github.com/jcarreira/cirrus/internal/errs"
	"github.com/jcarreira/cirrus/internal/metrics"
)

// Awaiter is the narrow future contract the cache manager needs from an
// in-flight asynchronous fetch: something it can block on later to
// materialize a prefetched entry. *engine.Future[T] satisfies this.
type Awaiter[T any] interface {
	Get(ctx context.Context) (T, error)
}

// Source is the collaborator the cache manager fetches through on a miss
// or a scheduled prefetch. The root object-store façade implements this
// over the async client engine plus a user serializer/deserializer pair.
type Source[T any] interface {
	Get(ctx context.Context, id uint64) (T, error)
	GetAsync(id uint64) Awaiter[T]
	Put(ctx context.Context, id uint64, value T) error
	Remove(ctx context.Context, id uint64) (bool, error)
}

// entry holds either a materialized value or a pending prefetch future,
// never both (spec.md §3's CacheEntry invariant).
type entry[T any] struct {
	value    T
	pending  Awaiter[T]
	hasValue bool
}

// Manager is the bounded client-side cache from spec.md §4.6: a map from
// ObjectId to CacheEntry[T] that never grows past capacity, backed by a
// Source for misses and scheduled prefetches.
//
// Thread Safety:
// All exported methods are safe for concurrent use. A single mutex
// serializes map access; Source calls (which may block on network I/O)
// happen outside the lock except for the brief window where a pending
// future is installed or resolved in place.
//
// Performance:
// Get and Put are O(1) amortized plus whatever the configured
// EvictionPolicy's Evict costs (O(1) for FIFOEviction). Prefetch never
// blocks the caller; it installs a pending entry and returns immediately,
// deferring the Source.GetAsync wait to whichever Get eventually observes
// it.
type Manager[T any] struct {
	src      Source[T]
	eviction EvictionPolicy
	prefetch PrefetchPolicy
	capacity int

	mu      sync.Mutex
	entries map[uint64]*entry[T]
}

// NewManager constructs a cache bounded to capacity entries. capacity must
// be at least 1, per spec.md §7 (KindCacheCapacity).
func NewManager[T any](src Source[T], capacity int, eviction EvictionPolicy, prefetch PrefetchPolicy) (*Manager[T], error) {
	if capacity < 1 {
		return nil, &errs.Error{Kind: errs.KindCacheCapacity, Op: "cache.NewManager"}
	}
	if eviction == nil {
		eviction = NewFIFOEviction()
	}
	if prefetch == nil {
		prefetch = NoPrefetch{}
	}
	return &Manager[T]{
		src:      src,
		eviction: eviction,
		prefetch: prefetch,
		capacity: capacity,
		entries:  make(map[uint64]*entry[T]),
	}, nil
}

// Put writes value through to the source and inserts it into the cache,
// evicting if the manager is at capacity.
//
// Parameters:
//   - id: the object id to write; any existing cache entry for id is
//     replaced.
//   - value: the value written through to the source before the local
//     cache is updated.
//
// Returns:
//   - nil on success, with id now materialized in the cache.
//   - whatever error the underlying Source.Put returns; the cache is left
//     unmodified in that case.
func (m *Manager[T]) Put(ctx context.Context, id uint64, value T) error {
	if err := m.src.Put(ctx, id, value); err != nil {
		return err
	}
	m.mu.Lock()
	m.makeRoomLocked(id)
	m.entries[id] = &entry[T]{value: value, hasValue: true}
	m.eviction.Inserted(id)
	m.mu.Unlock()
	return nil
}

// Get returns id's value, from cache if present (materializing a pending
// prefetch if necessary), otherwise fetching synchronously through the
// source and inserting the result.
//
// Behavior:
//   - Materialized hit: returns the cached value immediately.
//   - Prefetched hit: blocks on the pending future, materializes the
//     result in place, then returns it.
//   - Miss: fetches through the Source synchronously, evicting via the
//     configured EvictionPolicy if necessary, then inserts.
//
// Every successful return — materialized hit, resolved-pending hit, or
// miss-fill alike — consults the configured PrefetchPolicy and schedules
// any ids it names (spec.md §4.6: the prefetch policy runs "after any
// successful get", not only on a miss).
//
// Thread-safety: safe for concurrent calls, including concurrent Get
// calls racing to resolve the same pending future.
func (m *Manager[T]) Get(ctx context.Context, id uint64) (T, error) {
	m.mu.Lock()
	e, hit := m.entries[id]
	m.mu.Unlock()

	if hit {
		metrics.CacheHitsTotal.Inc()
		if e.hasValue {
			m.schedulePrefetch(id)
			return e.value, nil
		}
		value, err := e.pending.Get(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		m.mu.Lock()
		if cur, ok := m.entries[id]; ok && cur == e {
			cur.value, cur.hasValue, cur.pending = value, true, nil
		}
		m.mu.Unlock()
		m.schedulePrefetch(id)
		return value, nil
	}

	metrics.CacheMissesTotal.Inc()
	value, err := m.src.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}

	m.mu.Lock()
	m.makeRoomLocked(id)
	m.entries[id] = &entry[T]{value: value, hasValue: true}
	m.eviction.Inserted(id)
	m.mu.Unlock()

	m.schedulePrefetch(id)
	return value, nil
}

// Capacity reports the maximum number of entries this manager will hold.
func (m *Manager[T]) Capacity() int { return m.capacity }

// Prefetch inserts a pending entry for id if no entry already exists.
func (m *Manager[T]) Prefetch(id uint64) {
	m.mu.Lock()
	if _, exists := m.entries[id]; exists {
		m.mu.Unlock()
		return
	}
	m.makeRoomLocked(id)
	m.entries[id] = &entry[T]{pending: m.src.GetAsync(id)}
	m.eviction.Inserted(id)
	m.mu.Unlock()
}

// Remove drops id from the cache (cancelling any pending prefetch future's
// relevance to this manager, though the underlying fetch still runs to
// completion) and issues a remove through the source.
func (m *Manager[T]) Remove(ctx context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	delete(m.entries, id)
	m.eviction.Removed(id)
	m.mu.Unlock()
	return m.src.Remove(ctx, id)
}

// Len reports the number of entries currently cached (materialized or pending).
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager[T]) makeRoomLocked(inserting uint64) {
	if _, exists := m.entries[inserting]; exists {
		return
	}
	for _, victim := range m.eviction.Evict(len(m.entries), m.capacity) {
		if victim == inserting {
			continue
		}
		delete(m.entries, victim)
		m.eviction.Removed(victim)
		metrics.CacheEvictionsTotal.Inc()
	}
}

func (m *Manager[T]) schedulePrefetch(accessed uint64) {
	ids, err := m.prefetch.NextIDs(accessed)
	if err != nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		m.Prefetch(id)
	}
}
