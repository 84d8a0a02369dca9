// Package wire implements the client/server frame codec: a length-prefixed,
// length-typed message format carrying the typed request/reply variants
// exchanged between an object-store client and server.
//
// # Wire format
//
// Every message on the wire is:
//
//	[4-byte big-endian length N][N bytes of typed payload]
//
// The payload is a compact, self-describing tag+fields binary encoding —
// this module's stand-in for the schema-driven encoding (FlatBuffers in
// the reference deployment) spec.md §4.1 allows. Every message carries a
// TransactionId. WriteAck, ReadAck and WriteBulkAck replies additionally
// carry an error-code byte; RemoveAck and ReadBulkAck carry only a
// success flag and no error code.
//
// Request variants: Write, Read, Remove, WriteBulk, ReadBulk.
// Reply variants: WriteAck, ReadAck, RemoveAck, WriteBulkAck, ReadBulkAck.
//
// Bulk payloads nest an inner framing:
//
//	[4-byte count][{4-byte length, bytes}...]
//
// in request order.
//
// # Failure modes
//
// A short read of the 4-byte length header before any byte has been
// consumed means the peer closed the connection; ReadFrame reports this
// as io.EOF, which callers treat as graceful shutdown rather than a
// protocol error. Any other short read, or a length exceeding the
// maxFrameSize passed to ReadFrame, is reported as a *wire.ProtocolError and the connection must be
// abandoned.
package wire
