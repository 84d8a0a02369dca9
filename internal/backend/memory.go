package backend

import "sync"

// MemoryBackend is a hash-table-backed Backend. Put copies the supplied
// bytes in; Get returns a shared view of the stored bytes without
// copying, per spec.md §4.2.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[uint64][]byte
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[uint64][]byte)}
}

func (m *MemoryBackend) Put(oid uint64, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[oid] = stored
	return nil
}

func (m *MemoryBackend) Exists(oid uint64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[oid]
	return ok, nil
}

func (m *MemoryBackend) Get(oid uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[oid]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *MemoryBackend) Remove(oid uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[oid]
	if ok {
		delete(m.data, oid)
	}
	return ok, nil
}

func (m *MemoryBackend) Size(oid uint64) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[oid]
	if !ok {
		return 0, ErrNotFound
	}
	return uint64(len(v)), nil
}
