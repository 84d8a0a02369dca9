package cirrus

import "github.com/jcarreira/cirrus/internal/errs"

// ErrorKind classifies the error kinds a future, a façade call, or a
// cache manager call can surface. It mirrors the wire-level error codes
// a server reply carries and the client-side failure modes layered on
// top of them.
type ErrorKind = errs.Kind

const (
	// KindOK is not an error; it means success.
	KindOK = errs.KindOK
	// KindNoSuchID is returned by the server on a read of an absent id. A
	// remove of an absent id is not an error; it reports false.
	KindNoSuchID = errs.KindNoSuchID
	// KindCapacityExceeded is returned by the server on a put that would
	// overflow the pool.
	KindCapacityExceeded = errs.KindCapacityExceeded
	// KindConnectionFailed is returned by the client at connect time or
	// when an in-flight operation observes a dead connection.
	KindConnectionFailed = errs.KindConnectionFailed
	// KindCacheCapacity is returned at cache manager construction with a
	// non-positive capacity.
	KindCacheCapacity = errs.KindCacheCapacity
	// KindBounds is returned by the ordered prefetch policy when consulted
	// with an id outside its configured range.
	KindBounds = errs.KindBounds
	// KindProtocol is returned through a future whose reply is a message
	// variant that does not match its request; that connection stays open.
	// A malformed frame does not surface as KindProtocol: the side that
	// reads it stops reading the connection, and the client fails its
	// pending futures with KindConnectionFailed.
	KindProtocol = errs.KindProtocol
	// KindBackendIO is returned by a storage backend on an I/O failure; it
	// is mapped to KindCapacityExceeded on write and KindNoSuchID on read
	// before it ever reaches a client.
	KindBackendIO = errs.KindBackendIO
)

// Error is the typed error value returned through futures and façade
// calls. Callers pattern-match on Kind with errors.Is against the
// Err* sentinels below, or by calling errors.As to recover the Kind
// and wrapped cause.
type Error = errs.Error

// Sentinel errors for errors.Is comparisons. Only Kind is compared.
var (
	ErrNoSuchID         = errs.ErrNoSuchID
	ErrCapacityExceeded = errs.ErrCapacityExceeded
	ErrConnectionFailed = errs.ErrConnectionFailed
	ErrCacheCapacity    = errs.ErrCacheCapacity
	ErrBounds           = errs.ErrBounds
	ErrProtocol         = errs.ErrProtocol
	ErrBackendIO        = errs.ErrBackendIO
)
