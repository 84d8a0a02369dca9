package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jcarreira/cirrus/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolvedFuture is a trivial Awaiter[T] already holding its result,
// standing in for *engine.Future[T] in these unit tests.
type resolvedFuture[T any] struct {
	value T
	err   error
}

func (f resolvedFuture[T]) Get(ctx context.Context) (T, error) { return f.value, f.err }

// fakeSource is an in-memory Source[string] that counts fetches, for
// asserting cache-hit behavior without a real server.
type fakeSource struct {
	mu     sync.Mutex
	data   map[uint64]string
	fetchN map[uint64]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{data: make(map[uint64]string), fetchN: make(map[uint64]int)}
}

func (s *fakeSource) set(id uint64, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = v
}

func (s *fakeSource) Get(ctx context.Context, id uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchN[id]++
	v, ok := s.data[id]
	if !ok {
		return "", &errs.Error{Kind: errs.KindNoSuchID, Op: "get", ID: id}
	}
	return v, nil
}

func (s *fakeSource) GetAsync(id uint64) Awaiter[string] {
	v, err := s.Get(context.Background(), id)
	return resolvedFuture[string]{value: v, err: err}
}

func (s *fakeSource) Put(ctx context.Context, id uint64, v string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = v
	return nil
}

func (s *fakeSource) Remove(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	delete(s.data, id)
	return ok, nil
}

func (s *fakeSource) fetchCount(id uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchN[id]
}

func TestManagerRejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewManager[string](newFakeSource(), 0, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCacheCapacity)
}

func TestManagerMissThenHit(t *testing.T) {
	src := newFakeSource()
	src.set(1, "a")
	m, err := NewManager[string](src, 4, nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	v, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, 1, src.fetchCount(1))

	v2, err := m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", v2)
	assert.Equal(t, 1, src.fetchCount(1), "second Get must be served from cache")
}

func TestManagerPutIsWriteThrough(t *testing.T) {
	src := newFakeSource()
	m, err := NewManager[string](src, 4, nil, nil)
	require.NoError(t, err)

	require.NoError(t, m.Put(context.Background(), 1, "a"))
	v, err := m.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Zero(t, src.fetchCount(1), "Put must not go through the source's Get path")
}

func TestManagerFIFOEvictionAtCapacity(t *testing.T) {
	src := newFakeSource()
	for i := uint64(1); i <= 5; i++ {
		src.set(i, fmt.Sprintf("v%d", i))
	}
	m, err := NewManager[string](src, 2, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Get(ctx, 1)
	require.NoError(t, err)
	_, err = m.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, 3) // evicts id 1, the oldest insertion
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = m.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, src.fetchCount(1), "id 1 was evicted, so refetching it is a second fetch")
}

func TestManagerOrderedPrefetchSchedulesNeighbors(t *testing.T) {
	src := newFakeSource()
	for i := uint64(0); i < 10; i++ {
		src.set(i, fmt.Sprintf("v%d", i))
	}
	policy := OrderedPrefetch{First: 0, Last: 9, ReadAhead: 2}
	m, err := NewManager[string](src, 10, nil, policy)
	require.NoError(t, err)

	_, err = m.Get(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, src.fetchCount(6))
	assert.Equal(t, 1, src.fetchCount(7))
	assert.Zero(t, src.fetchCount(8))
}

func TestManagerOrderedPrefetchWrapsAtRangeEnd(t *testing.T) {
	src := newFakeSource()
	for i := uint64(0); i < 5; i++ {
		src.set(i, fmt.Sprintf("v%d", i))
	}
	policy := OrderedPrefetch{First: 0, Last: 4, ReadAhead: 2}
	m, err := NewManager[string](src, 10, nil, policy)
	require.NoError(t, err)

	_, err = m.Get(context.Background(), 4) // wraps to 0, 1
	require.NoError(t, err)

	assert.Equal(t, 1, src.fetchCount(0))
	assert.Equal(t, 1, src.fetchCount(1))
}

func TestManagerRemoveDropsEntryAndIssuesSourceRemove(t *testing.T) {
	src := newFakeSource()
	src.set(1, "a")
	m, err := NewManager[string](src, 4, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.Get(ctx, 1)
	require.NoError(t, err)

	removed, err := m.Remove(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, m.Len())
}
