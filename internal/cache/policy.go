// Package cache implements the bounded client-side cache manager from
// spec.md §4.6: write-through puts, pluggable eviction on insert, and a
// pluggable prefetch policy consulted after every successful Get.
package cache

import (
	"container/list"

	"github.com/jcarreira/cirrus/internal/errs"
)

// EvictionPolicy chooses which ids to evict to make room for inserting
// id. The manager consults Evict before every insert of an id it does not
// already hold; Evict returns nothing while the manager is below capacity.
//
// Implementations must be safe to call only while the Manager holds its
// internal lock — the Manager never calls an EvictionPolicy method
// concurrently with itself, so implementations need no locking of their
// own.
type EvictionPolicy interface {
	// Inserted notifies the policy that id was just inserted (a cache hit
	// does not count; only fresh inserts do, matching spec.md §4.6's
	// "LR-added" ordering).
	Inserted(id uint64)
	// Removed notifies the policy that id was evicted or explicitly removed.
	Removed(id uint64)
	// Evict returns the ids to remove to free room for one more insert,
	// given the current size and capacity.
	//
	// Parameters:
	//   - size: the number of entries currently held.
	//   - capacity: the manager's configured maximum.
	//
	// Returns:
	//   - nil if size < capacity (no eviction needed).
	//   - one or more ids to remove otherwise.
	Evict(size, capacity int) []uint64
}

// FIFOEviction evicts the oldest still-present insertion first ("LR-added"
// rather than least-recently-used), backed by a container/list deque of
// insertion order — see DESIGN.md for why this is a plain deque and not
// hashicorp/golang-lru (that package tracks recency-of-access, which is
// precisely the policy spec.md §4.6 does not ask for).
type FIFOEviction struct {
	order *list.List
	elems map[uint64]*list.Element
}

// NewFIFOEviction constructs an empty FIFO eviction policy.
func NewFIFOEviction() *FIFOEviction {
	return &FIFOEviction{order: list.New(), elems: make(map[uint64]*list.Element)}
}

func (f *FIFOEviction) Inserted(id uint64) {
	if _, ok := f.elems[id]; ok {
		return
	}
	f.elems[id] = f.order.PushBack(id)
}

func (f *FIFOEviction) Removed(id uint64) {
	if e, ok := f.elems[id]; ok {
		f.order.Remove(e)
		delete(f.elems, id)
	}
}

func (f *FIFOEviction) Evict(size, capacity int) []uint64 {
	if size < capacity {
		return nil
	}
	front := f.order.Front()
	if front == nil {
		return nil
	}
	id := front.Value.(uint64)
	return []uint64{id}
}

// PrefetchPolicy is consulted after every successful Get — materialized
// hit, resolved-pending hit, or miss-fill alike — to decide which
// additional ids to speculatively prefetch (spec.md §4.6).
type PrefetchPolicy interface {
	// NextIDs returns the ids to prefetch after accessed was read.
	//
	// Parameters:
	//   - accessed: the id that was just successfully returned by Get.
	//
	// Returns:
	//   - the ids to schedule via Manager.Prefetch, in priority order.
	//   - ErrBounds if accessed falls outside a policy-configured range.
	NextIDs(accessed uint64) ([]uint64, error)
}

// NoPrefetch never schedules prefetches.
type NoPrefetch struct{}

func (NoPrefetch) NextIDs(uint64) ([]uint64, error) { return nil, nil }

// OrderedPrefetch schedules the next ReadAhead ids after accessed within a
// fixed [First, Last] range, wrapping modulo the range's width.
type OrderedPrefetch struct {
	First, Last uint64
	ReadAhead   int
}

func (p OrderedPrefetch) NextIDs(accessed uint64) ([]uint64, error) {
	if accessed < p.First || accessed > p.Last {
		return nil, &errs.Error{Kind: errs.KindBounds, Op: "prefetch", ID: accessed}
	}
	width := p.Last - p.First + 1
	out := make([]uint64, 0, p.ReadAhead)
	for i := 1; i <= p.ReadAhead; i++ {
		offset := (accessed - p.First + uint64(i)) % width
		out = append(out, p.First+offset)
	}
	return out, nil
}
