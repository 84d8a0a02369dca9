package engine

import (
	"context"
	"sync"
)

// Future is the handle an async operation returns. Get/Wait may be called
// from any goroutine, any number of times (spec.md §4.4's "calling get()
// twice is permitted and returns the same value").
type Future[R any] struct {
	done   chan struct{}
	once   sync.Once
	mu     sync.Mutex
	value  R
	err    error
	result bool // true once value/err are populated
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{done: make(chan struct{})}
}

// resolve is called exactly once, by the receiver goroutine that matches
// this future's transaction id, or by Close on cancellation.
func (f *Future[R]) resolve(value R, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.value, f.err, f.result = value, err, true
		f.mu.Unlock()
		close(f.done)
	})
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[R]) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryWait reports whether the result is ready without blocking.
func (f *Future[R]) TryWait() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get waits for the result then returns it, or the stored error. It is
// idempotent: repeated calls return the same value.
func (f *Future[R]) Get(ctx context.Context) (R, error) {
	if err := f.Wait(ctx); err != nil {
		var zero R
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}
