package cirrus

import (
	"context"

	"github.com/jcarreira/cirrus/internal/iterator"
)

// Iterator is a forward cursor over a contiguous id range, dereferencing
// through a Cache so each step benefits from its prefetch policy (spec.md
// §4.7).
type Iterator[T any] struct {
	it *iterator.Iterator[T]
}

// NewIterator constructs an iterator over [first, last] with the given
// read-ahead depth. readAhead must be <= last-first and strictly less
// than cache's capacity (spec.md §4.7's construction invariants).
func NewIterator[T any](cache *Cache[T], first, last uint64, readAhead int) (*Iterator[T], error) {
	if readAhead >= cache.Capacity() {
		return nil, &Error{Kind: KindBounds, Op: "NewIterator"}
	}
	it, err := iterator.New[T](cache.m, first, last, readAhead)
	if err != nil {
		return nil, err
	}
	return &Iterator[T]{it: it}, nil
}

// Done reports whether the cursor has advanced past the range's end.
func (it *Iterator[T]) Done() bool { return it.it.Done() }

// Current returns the id the cursor currently points at.
func (it *Iterator[T]) Current() uint64 { return it.it.Current() }

// Value dereferences the id at Current, prefetching ahead first.
func (it *Iterator[T]) Value(ctx context.Context) (T, error) { return it.it.Value(ctx) }

// Next advances the cursor by one.
func (it *Iterator[T]) Next() { it.it.Next() }
