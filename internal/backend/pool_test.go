package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPoolScenarioS1 exercises spec.md §8 scenario S1: a 128-byte pool,
// two 100-byte puts, the second rejected, the first still readable.
func TestPoolScenarioS1(t *testing.T) {
	p := NewPool(NewMemoryBackend(), 128)

	require.NoError(t, p.Put(1, make([]byte, 100)))

	err := p.Put(2, make([]byte, 100))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	got, err := p.Get(1)
	require.NoError(t, err)
	assert.Len(t, got, 100)

	_, err = p.Get(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPoolOverwriteAccounting(t *testing.T) {
	p := NewPool(NewMemoryBackend(), 150)

	require.NoError(t, p.Put(1, make([]byte, 100)))
	require.NoError(t, p.Put(1, make([]byte, 140))) // old size subtracted first, so this fits

	stats := p.Stats()
	assert.EqualValues(t, 140, stats.BytesUsed)
	assert.Equal(t, 1, stats.Count)
}

func TestPoolRejectedPutLeavesStateUnchanged(t *testing.T) {
	p := NewPool(NewMemoryBackend(), 100)
	require.NoError(t, p.Put(1, make([]byte, 80)))

	before := p.Stats()
	err := p.Put(2, make([]byte, 30))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	after := p.Stats()
	assert.Equal(t, before, after)

	exists, err := p.Exists(2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPoolRemoveAccounting(t *testing.T) {
	p := NewPool(NewMemoryBackend(), 100)
	require.NoError(t, p.Put(1, make([]byte, 50)))

	removed, err := p.Remove(1)
	require.NoError(t, err)
	assert.True(t, removed)

	stats := p.Stats()
	assert.EqualValues(t, 0, stats.BytesUsed)
	assert.Equal(t, 0, stats.Count)

	// Now a full-capacity put succeeds again.
	require.NoError(t, p.Put(2, make([]byte, 100)))
}

func TestPoolOverwriteMatchesFreshPutAccounting(t *testing.T) {
	// put(id,v1); put(id,v2) should leave the pool in the same state as a
	// single put(id,v2) on an empty store with the same id (spec.md §8 law 2).
	a := NewPool(NewMemoryBackend(), 1000)
	require.NoError(t, a.Put(5, make([]byte, 10)))
	require.NoError(t, a.Put(5, make([]byte, 37)))

	b := NewPool(NewMemoryBackend(), 1000)
	require.NoError(t, b.Put(5, make([]byte, 37)))

	assert.Equal(t, b.Stats(), a.Stats())
}
