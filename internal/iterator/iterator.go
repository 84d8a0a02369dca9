// Package iterator implements the forward cursor over a contiguous id
// range from spec.md §4.7, dereferencing through a cache.Manager so each
// step benefits from the manager's prefetch policy.
package iterator

import (
	"context"

	"github.com/jcarreira/cirrus/internal/errs"
)

// cacheGetter is the narrow slice of *cache.Manager[T] an Iterator needs.
// Declared locally (rather than importing internal/cache) to keep this
// package dependency-free of the cache policy types; the root package
// wires a real *cache.Manager[T] in, which satisfies this structurally.
type cacheGetter[T any] interface {
	Get(ctx context.Context, id uint64) (T, error)
	Prefetch(id uint64)
}

// Iterator is a forward cursor over [First, Last]. Next advances Current
// by one, wrapping to an end sentinel at Last+1; Value dereferences
// Current through the cache manager.
type Iterator[T any] struct {
	cache     cacheGetter[T]
	first     uint64
	last      uint64
	readAhead int
	current   uint64
}

// New constructs an iterator over [first, last] with the given read-ahead
// depth, per spec.md §4.7's construction invariants: first <= last and
// readAhead <= last-first. spec.md §4.7 also requires readAhead to be less
// than the cache's capacity; this package has no Capacity() to check
// against cacheGetter, so the root package enforces that invariant before
// calling New.
func New[T any](cache cacheGetter[T], first, last uint64, readAhead int) (*Iterator[T], error) {
	if first > last {
		return nil, &errs.Error{Kind: errs.KindBounds, Op: "iterator.New"}
	}
	if uint64(readAhead) > last-first {
		return nil, &errs.Error{Kind: errs.KindBounds, Op: "iterator.New"}
	}
	return &Iterator[T]{cache: cache, first: first, last: last, readAhead: readAhead, current: first}, nil
}

// Done reports whether the cursor has advanced past Last.
func (it *Iterator[T]) Done() bool { return it.current > it.last }

// Current returns the id the cursor currently points at. It is only
// meaningful when Done is false.
func (it *Iterator[T]) Current() uint64 { return it.current }

// Value prefetches the next ReadAhead ids (wrapping modulo the range's
// width, anchored at First) and then dereferences the id at Current
// through the cache manager.
func (it *Iterator[T]) Value(ctx context.Context) (T, error) {
	var zero T
	if it.Done() {
		return zero, &errs.Error{Kind: errs.KindBounds, Op: "iterator.Value", ID: it.current}
	}
	it.prefetchAhead()
	return it.cache.Get(ctx, it.current)
}

func (it *Iterator[T]) prefetchAhead() {
	width := it.last - it.first + 1
	for i := 1; i <= it.readAhead; i++ {
		offset := (it.current - it.first + uint64(i)) % width
		it.cache.Prefetch(it.first + offset)
	}
}

// Next advances the cursor by one, setting Current to Last+1 (the end
// sentinel) once Last has been passed.
func (it *Iterator[T]) Next() {
	if it.Done() {
		return
	}
	it.current++
}
