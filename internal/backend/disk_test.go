package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskBackendPutGetRemove(t *testing.T) {
	dir := t.TempDir()
	b, err := NewDiskBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put(42, []byte("hello")))

	got, err := b.Get(42)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	size, err := b.Size(42)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	removed, err := b.Remove(42)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = b.Get(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskBackendSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	b1, err := NewDiskBackend(dir)
	require.NoError(t, err)
	require.NoError(t, b1.Put(42, []byte("hello")))

	// Simulate a restart: a fresh DiskBackend instance over the same dir.
	b2, err := NewDiskBackend(dir)
	require.NoError(t, err)

	got, err := b2.Get(42)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestDiskBackendMissingID(t *testing.T) {
	dir := t.TempDir()
	b, err := NewDiskBackend(dir)
	require.NoError(t, err)

	_, err = b.Get(7)
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := b.Exists(7)
	require.NoError(t, err)
	assert.False(t, exists)

	removed, err := b.Remove(7)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDiskBackendOverwrite(t *testing.T) {
	dir := t.TempDir()
	b, err := NewDiskBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Put(1, []byte("v1")))
	require.NoError(t, b.Put(1, []byte("v2-longer")))

	got, err := b.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-longer"), got)
}
