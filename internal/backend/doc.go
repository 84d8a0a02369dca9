// Package backend defines the server-side key→bytes storage abstraction
// and the two concrete implementations spec.md §4.2 requires: an
// in-memory map and a disk-backed, one-file-per-id store. It also
// implements the fixed-capacity admission control (Pool) that the server
// loop consults on every write.
//
// Implementations:
//   - MemoryBackend: a mutex-guarded map[uint64][]byte. Fast, volatile.
//   - DiskBackend: one file per object id under a root directory, written
//     via a temp-file-then-rename so a crash mid-write never leaves a
//     partially-written object visible under its final name.
//
// Thread Safety:
// Both Backend implementations are safe for concurrent use, but the
// object-store server never calls them concurrently: the server loop
// (internal/objectserver) serializes all dispatch onto a single
// goroutine, so neither implementation needs — or takes — any lock of
// its own beyond what's required to make it independently safe to unit
// test concurrently.
//
// Performance:
// Pool.Put/Get/Remove are O(1) plus whatever the chosen Backend costs
// (map access for MemoryBackend, a file open+read/write for DiskBackend).
// Pool's capacity accounting is an in-memory counter updated under a
// single mutex, independent of the Backend's own cost.
package backend
