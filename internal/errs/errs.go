// Package errs defines the typed error kind and error value shared by
// every layer of this module (wire codec, backend, cache manager,
// iterator, engine) without requiring any of them to import the root
// package — which itself depends on several of them. The root package
// re-exports everything here as type aliases and sentinel vars, so
// callers only ever see the "cirrus" names; this package is an
// implementation seam, not a second public API.
package errs

import "fmt"

// Kind classifies the error kinds a future, a façade call, or a cache
// manager call can surface. It mirrors the wire-level error codes a
// server reply carries and the client-side failure modes layered on
// top of them.
type Kind uint8

const (
	// KindOK is not an error; it means success.
	KindOK Kind = iota
	// KindNoSuchID is returned by the server on a read of an absent id. A
	// remove of an absent id is not an error; it reports false.
	KindNoSuchID
	// KindCapacityExceeded is returned by the server on a put that would
	// overflow the pool.
	KindCapacityExceeded
	// KindConnectionFailed is returned by the client at connect time or
	// when an in-flight operation observes a dead connection.
	KindConnectionFailed
	// KindCacheCapacity is returned at cache manager construction with a
	// non-positive capacity.
	KindCacheCapacity
	// KindBounds is returned by the ordered prefetch policy when consulted
	// with an id outside its configured range.
	KindBounds
	// KindProtocol is returned through a future whose reply is a message
	// variant that does not match its request; that connection stays open.
	// A malformed frame does not surface as KindProtocol: the side that
	// reads it stops reading the connection, and the client fails its
	// pending futures with KindConnectionFailed.
	KindProtocol
	// KindBackendIO is returned by a storage backend on an I/O failure; it
	// is mapped to KindCapacityExceeded on write and KindNoSuchID on read
	// before it ever reaches a client.
	KindBackendIO
)

// String implements fmt.Stringer for log output.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoSuchID:
		return "no_such_id"
	case KindCapacityExceeded:
		return "capacity_exceeded"
	case KindConnectionFailed:
		return "connection_failed"
	case KindCacheCapacity:
		return "cache_capacity"
	case KindBounds:
		return "bounds"
	case KindProtocol:
		return "protocol"
	case KindBackendIO:
		return "backend_io"
	default:
		return "unknown"
	}
}

// Error is the typed error value returned through futures and façade
// calls. Callers pattern-match on Kind with errors.Is against the Err*
// sentinels below, or by calling errors.As to recover the Kind and
// wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	ID   uint64
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cirrus: %s id=%d: %s: %v", e.Op, e.ID, e.Kind, e.Err)
	}
	return fmt.Sprintf("cirrus: %s id=%d: %s", e.Op, e.ID, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNoSuchID) etc. match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, op string, id uint64, cause error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Err: cause}
}

// Sentinel errors for errors.Is comparisons. Only Kind is compared.
var (
	ErrNoSuchID         = &Error{Kind: KindNoSuchID}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrConnectionFailed = &Error{Kind: KindConnectionFailed}
	ErrCacheCapacity    = &Error{Kind: KindCacheCapacity}
	ErrBounds           = &Error{Kind: KindBounds}
	ErrProtocol         = &Error{Kind: KindProtocol}
	ErrBackendIO        = &Error{Kind: KindBackendIO}
)

// KindFromBackend maps a backend_io failure onto the wire-level kind the
// caller observes: write failures surface as capacity exhaustion, read
// failures surface as a missing id.
func KindFromBackend(isWrite bool) Kind {
	if isWrite {
		return KindCapacityExceeded
	}
	return KindNoSuchID
}
