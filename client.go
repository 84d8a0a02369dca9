package cirrus

import (
	"context"
	"fmt"

	"github.com/jcarreira/cirrus/internal/engine"
	"golang.org/x/sync/errgroup"
)

// Client is a connected async client engine (spec.md §4.4): one or more
// TCP connections to a single server, with synchronous and asynchronous
// byte-level operations. Use NewObjectStore to layer a typed façade on
// top of a Client.
type Client struct {
	eng *engine.Engine
}

// Dial connects to cfg.ServerAddr, opening cfg.NumConns connections.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	eng, err := engine.Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{eng: eng}, nil
}

// Close cancels all pending operations and closes every connection.
func (c *Client) Close() error { return c.eng.Close() }

// Future is the async result handle returned by the *Async methods,
// satisfying spec.md §4.4's Wait/TryWait/Get contract.
type Future[R any] = engine.Future[R]

// Write stores data under oid synchronously.
func (c *Client) Write(ctx context.Context, oid uint64, data []byte) error {
	return c.eng.Write(ctx, oid, data)
}

// Read retrieves the bytes stored under oid synchronously.
func (c *Client) Read(ctx context.Context, oid uint64) ([]byte, error) {
	return c.eng.Read(ctx, oid)
}

// Remove deletes oid synchronously, reporting whether it was present.
func (c *Client) Remove(ctx context.Context, oid uint64) (bool, error) {
	return c.eng.Remove(ctx, oid)
}

// WriteAsync stores data under oid without blocking.
func (c *Client) WriteAsync(oid uint64, data []byte) *Future[bool] { return c.eng.WriteAsync(oid, data) }

// ReadAsync retrieves the bytes stored under oid without blocking.
func (c *Client) ReadAsync(oid uint64) *Future[[]byte] { return c.eng.ReadAsync(oid) }

// RemoveAsync deletes oid without blocking.
func (c *Client) RemoveAsync(oid uint64) *Future[bool] { return c.eng.RemoveAsync(oid) }

// WriteBulkAsync writes oids[i] -> blobs[i] for every i as a single wire
// request, without blocking. The server applies the writes in order and
// stops at the first one that would exceed its capacity; writes before
// that one stay in place and the future reports the failure.
func (c *Client) WriteBulkAsync(oids []uint64, blobs [][]byte) *Future[bool] {
	return c.eng.WriteBulkAsync(oids, blobs)
}

// ReadBulkAsync retrieves every id in oids as a single wire request,
// all-or-nothing, without blocking.
func (c *Client) ReadBulkAsync(oids []uint64) *Future[[][]byte] {
	return c.eng.ReadBulkAsync(oids)
}

// Serializer converts a value of type T into its wire bytes.
type Serializer[T any] func(T) ([]byte, error)

// Deserializer reconstructs a value of type T from wire bytes.
type Deserializer[T any] func([]byte) (T, error)

// ObjectStore wraps a Client with a user type T and a serializer pair
// (spec.md §4.5).
type ObjectStore[T any] struct {
	client      *Client
	serialize   Serializer[T]
	deserialize Deserializer[T]
}

// NewObjectStore builds a typed façade over client.
func NewObjectStore[T any](client *Client, ser Serializer[T], deser Deserializer[T]) *ObjectStore[T] {
	return &ObjectStore[T]{client: client, serialize: ser, deserialize: deser}
}

// Get retrieves and deserializes the value stored under id.
func (s *ObjectStore[T]) Get(ctx context.Context, id uint64) (T, error) {
	var zero T
	data, err := s.client.Read(ctx, id)
	if err != nil {
		return zero, err
	}
	return s.deserialize(data)
}

// Put serializes value and stores it under id.
func (s *ObjectStore[T]) Put(ctx context.Context, id uint64, value T) error {
	data, err := s.serialize(value)
	if err != nil {
		return fmt.Errorf("cirrus: serialize id=%d: %w", id, err)
	}
	return s.client.Write(ctx, id, data)
}

// Remove deletes id, reporting whether it was present.
func (s *ObjectStore[T]) Remove(ctx context.Context, id uint64) (bool, error) {
	return s.client.Remove(ctx, id)
}

// GetFuture is the future returned by GetAsync: its Get performs
// deserialization on the consumer's goroutine, per spec.md §4.5.
type GetFuture[T any] struct {
	inner       *Future[[]byte]
	deserialize Deserializer[T]
}

func (f *GetFuture[T]) Wait(ctx context.Context) error { return f.inner.Wait(ctx) }
func (f *GetFuture[T]) TryWait() bool                  { return f.inner.TryWait() }

func (f *GetFuture[T]) Get(ctx context.Context) (T, error) {
	var zero T
	data, err := f.inner.Get(ctx)
	if err != nil {
		return zero, err
	}
	return f.deserialize(data)
}

// GetAsync retrieves id without blocking; deserialization happens when the
// returned future's Get is called.
func (s *ObjectStore[T]) GetAsync(id uint64) *GetFuture[T] {
	return &GetFuture[T]{inner: s.client.ReadAsync(id), deserialize: s.deserialize}
}

// PutAsync serializes value on the caller's goroutine and stores it under
// id without blocking on the server's reply.
func (s *ObjectStore[T]) PutAsync(id uint64, value T) (*Future[bool], error) {
	data, err := s.serialize(value)
	if err != nil {
		return nil, fmt.Errorf("cirrus: serialize id=%d: %w", id, err)
	}
	return s.client.WriteAsync(id, data), nil
}

// GetBulk retrieves ids [start, last] inclusive, issuing last-start+1
// async operations and waiting on all of them in parallel; a failure on
// any element is reported only after every element has completed
// (spec.md §4.5).
func (s *ObjectStore[T]) GetBulk(ctx context.Context, start, last uint64) ([]T, error) {
	n := int(last-start) + 1
	out := make([]T, n)
	// A plain Group, not WithContext: spec.md §4.5 waits for every
	// operation to complete and reports the first failure afterward,
	// rather than cancelling the rest on the first error.
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		id := start + uint64(i)
		g.Go(func() error {
			v, err := s.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("id %d: %w", id, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PutBulk stores values[i] under start+i for every i, issuing len(values)
// operations and waiting on all of them in parallel.
func (s *ObjectStore[T]) PutBulk(ctx context.Context, start uint64, values []T) error {
	var g errgroup.Group
	for i, v := range values {
		i, v := i, v
		id := start + uint64(i)
		g.Go(func() error {
			if err := s.Put(ctx, id, v); err != nil {
				return fmt.Errorf("id %d: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}
