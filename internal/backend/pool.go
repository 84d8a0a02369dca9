package backend

import (
	"errors"
	"sync"
)

// ErrCapacityExceeded is returned by Pool.Put when admitting the write
// would push the sum of all stored blob lengths past Capacity.
var ErrCapacityExceeded = errors.New("backend: capacity exceeded")

// Pool wraps a Backend with the fixed-capacity admission control from
// spec.md §3/§4.2: the sum of all stored blob lengths never exceeds
// Capacity. A put that would violate this is rejected without mutating
// the backend; a previously existing blob under the same id is first
// subtracted from the accounting before the new size is checked.
//
// Pool is not safe for concurrent use by design: spec.md §4.3/§5 require
// the server to serialize all dispatch onto one goroutine specifically so
// the backend (and this accounting) never needs internal locking. The
// mutex here exists only so Stats() can be read from a separate metrics
// goroutine without racing the dispatcher.
type Pool struct {
	backend  Backend
	mu       sync.Mutex
	capacity uint64
	current  uint64
	count    int
}

// NewPool wraps backend with a capacity (in bytes) admission check.
func NewPool(b Backend, capacity uint64) *Pool {
	return &Pool{backend: b, capacity: capacity}
}

// Put admits the write if current+len(data)-oldSize <= capacity, then
// delegates to the wrapped backend.
func (p *Pool) Put(oid uint64, data []byte) error {
	oldSize, hadOld, err := p.existingSize(oid)
	if err != nil {
		return err
	}

	newSize := uint64(len(data))
	p.mu.Lock()
	projected := p.current - oldSize + newSize
	if projected > p.capacity {
		p.mu.Unlock()
		return ErrCapacityExceeded
	}
	p.mu.Unlock()

	if err := p.backend.Put(oid, data); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = p.current - oldSize + newSize
	if !hadOld {
		p.count++
	}
	p.mu.Unlock()
	return nil
}

func (p *Pool) existingSize(oid uint64) (size uint64, existed bool, err error) {
	exists, err := p.backend.Exists(oid)
	if err != nil {
		return 0, false, err
	}
	if !exists {
		return 0, false, nil
	}
	size, err = p.backend.Size(oid)
	if err != nil {
		return 0, false, err
	}
	return size, true, nil
}

func (p *Pool) Exists(oid uint64) (bool, error) { return p.backend.Exists(oid) }

func (p *Pool) Get(oid uint64) ([]byte, error) { return p.backend.Get(oid) }

func (p *Pool) Size(oid uint64) (uint64, error) { return p.backend.Size(oid) }

// Remove deletes oid, adjusting the capacity accounting if it was present.
func (p *Pool) Remove(oid uint64) (bool, error) {
	size, existed, err := p.existingSize(oid)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	removed, err := p.backend.Remove(oid)
	if err != nil {
		return false, err
	}
	if removed {
		p.mu.Lock()
		p.current -= size
		p.count--
		p.mu.Unlock()
	}
	return removed, nil
}

// Stats returns a snapshot of occupancy for monitoring.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Count: p.count, BytesUsed: p.current, Capacity: p.capacity}
}
