package wire

import (
	"encoding/binary"
	"fmt"
)

// MessageKind tags the payload that follows a frame's length prefix.
type MessageKind uint8

const (
	KindWrite MessageKind = iota + 1
	KindRead
	KindRemove
	KindWriteBulk
	KindReadBulk
	KindWriteAck
	KindReadAck
	KindRemoveAck
	KindWriteBulkAck
	KindReadBulkAck
)

func (k MessageKind) String() string {
	switch k {
	case KindWrite:
		return "Write"
	case KindRead:
		return "Read"
	case KindRemove:
		return "Remove"
	case KindWriteBulk:
		return "WriteBulk"
	case KindReadBulk:
		return "ReadBulk"
	case KindWriteAck:
		return "WriteAck"
	case KindReadAck:
		return "ReadAck"
	case KindRemoveAck:
		return "RemoveAck"
	case KindWriteBulkAck:
		return "WriteBulkAck"
	case KindReadBulkAck:
		return "ReadBulkAck"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// ErrCode is the wire-level error code a reply carries. It is a narrower
// vocabulary than the client-visible ErrorKind: only the outcomes the
// server itself can produce ever cross the wire.
type ErrCode uint8

const (
	ErrNone ErrCode = iota
	ErrNoSuchID
	ErrCapacityExceeded
)

// Message is the decoded form of one frame, in either direction. Only the
// fields relevant to Kind are populated; callers are expected to know
// which fields apply based on Kind (mirroring the typed-variant union the
// schema encoding represents on the wire).
type Message struct {
	OIDs      []uint64 // WriteBulk/ReadBulk requests; no reply carries OIDs on the wire
	Blobs     [][]byte // WriteBulk request payloads (parallel to OIDs), ReadBulkAck reply payloads (in request order)
	Bytes     []byte   // Write request payload, ReadAck reply payload
	TxID      uint64
	OID       uint64 // Write/Read/Remove/*Ack (non-bulk)
	Kind      MessageKind
	Err       ErrCode
	Success   bool // *Ack variants
}

// NewWrite builds a Write request.
func NewWrite(tx, oid uint64, data []byte) Message {
	return Message{Kind: KindWrite, TxID: tx, OID: oid, Bytes: data}
}

// NewRead builds a Read request.
func NewRead(tx, oid uint64) Message {
	return Message{Kind: KindRead, TxID: tx, OID: oid}
}

// NewRemove builds a Remove request.
func NewRemove(tx, oid uint64) Message {
	return Message{Kind: KindRemove, TxID: tx, OID: oid}
}

// NewWriteBulk builds a WriteBulk request. oids and blobs must be parallel
// slices in request order.
func NewWriteBulk(tx uint64, oids []uint64, blobs [][]byte) Message {
	return Message{Kind: KindWriteBulk, TxID: tx, OIDs: oids, Blobs: blobs}
}

// NewReadBulk builds a ReadBulk request.
func NewReadBulk(tx uint64, oids []uint64) Message {
	return Message{Kind: KindReadBulk, TxID: tx, OIDs: oids}
}

// NewWriteAck builds a Write reply.
func NewWriteAck(tx, oid uint64, success bool, errCode ErrCode) Message {
	return Message{Kind: KindWriteAck, TxID: tx, OID: oid, Success: success, Err: errCode}
}

// NewReadAck builds a Read reply.
func NewReadAck(tx, oid uint64, success bool, errCode ErrCode, data []byte) Message {
	return Message{Kind: KindReadAck, TxID: tx, OID: oid, Success: success, Err: errCode, Bytes: data}
}

// NewRemoveAck builds a Remove reply.
func NewRemoveAck(tx, oid uint64, success bool) Message {
	return Message{Kind: KindRemoveAck, TxID: tx, OID: oid, Success: success}
}

// NewWriteBulkAck builds a WriteBulk reply.
func NewWriteBulkAck(tx uint64, success bool, errCode ErrCode) Message {
	return Message{Kind: KindWriteBulkAck, TxID: tx, Success: success, Err: errCode}
}

// NewReadBulkAck builds a ReadBulk reply.
func NewReadBulkAck(tx uint64, success bool, oids []uint64, blobs [][]byte) Message {
	return Message{Kind: KindReadBulkAck, TxID: tx, Success: success, OIDs: oids, Blobs: blobs}
}

// Marshal encodes the message into its wire payload (the bytes that go
// after the 4-byte frame length prefix). Layout, common to every kind:
//
//	[1 byte kind][8 bytes TxID][kind-specific fields]
func (m Message) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 32+len(m.Bytes))
	buf = append(buf, byte(m.Kind))
	buf = appendUint64(buf, m.TxID)

	switch m.Kind {
	case KindWrite:
		buf = appendUint64(buf, m.OID)
		buf = appendBytes(buf, m.Bytes)
	case KindRead, KindRemove:
		buf = appendUint64(buf, m.OID)
	case KindWriteBulk:
		buf = appendUint64Slice(buf, m.OIDs)
		buf = appendBulkBlobs(buf, m.Blobs)
	case KindReadBulk:
		buf = appendUint64Slice(buf, m.OIDs)
	case KindWriteAck:
		buf = appendUint64(buf, m.OID)
		buf = append(buf, boolByte(m.Success), byte(m.Err))
	case KindReadAck:
		buf = appendUint64(buf, m.OID)
		buf = append(buf, boolByte(m.Success), byte(m.Err))
		buf = appendBytes(buf, m.Bytes)
	case KindRemoveAck:
		buf = appendUint64(buf, m.OID)
		buf = append(buf, boolByte(m.Success))
	case KindWriteBulkAck:
		buf = append(buf, boolByte(m.Success), byte(m.Err))
	case KindReadBulkAck:
		buf = append(buf, boolByte(m.Success))
		if m.Success {
			buf = appendBulkBlobs(buf, m.Blobs)
		}
	default:
		return nil, fmt.Errorf("wire: marshal: unknown message kind %d", m.Kind)
	}
	return buf, nil
}

// Unmarshal decodes a wire payload (as produced by Marshal) into m.
func Unmarshal(payload []byte) (Message, error) {
	r := &reader{buf: payload}
	kindByte, err := r.byte()
	if err != nil {
		return Message{}, protoErr("truncated message kind: %v", err)
	}
	m := Message{Kind: MessageKind(kindByte)}
	m.TxID, err = r.uint64()
	if err != nil {
		return Message{}, protoErr("truncated transaction id: %v", err)
	}

	switch m.Kind {
	case KindWrite:
		if m.OID, err = r.uint64(); err != nil {
			return Message{}, protoErr("truncated write oid: %v", err)
		}
		if m.Bytes, err = r.bytes(); err != nil {
			return Message{}, protoErr("truncated write payload: %v", err)
		}
	case KindRead, KindRemove:
		if m.OID, err = r.uint64(); err != nil {
			return Message{}, protoErr("truncated oid: %v", err)
		}
	case KindWriteBulk:
		if m.OIDs, err = r.uint64Slice(); err != nil {
			return Message{}, protoErr("truncated bulk write oids: %v", err)
		}
		if m.Blobs, err = r.bulkBlobs(); err != nil {
			return Message{}, err
		}
		if len(m.Blobs) != len(m.OIDs) {
			return Message{}, protoErr("write bulk: %d oids but %d blobs", len(m.OIDs), len(m.Blobs))
		}
	case KindReadBulk:
		if m.OIDs, err = r.uint64Slice(); err != nil {
			return Message{}, protoErr("truncated bulk oids: %v", err)
		}
	case KindWriteAck:
		if m.OID, err = r.uint64(); err != nil {
			return Message{}, protoErr("truncated ack oid: %v", err)
		}
		if m.Success, m.Err, err = r.ackFlags(); err != nil {
			return Message{}, err
		}
	case KindReadAck:
		if m.OID, err = r.uint64(); err != nil {
			return Message{}, protoErr("truncated ack oid: %v", err)
		}
		if m.Success, m.Err, err = r.ackFlags(); err != nil {
			return Message{}, err
		}
		if m.Bytes, err = r.bytes(); err != nil {
			return Message{}, protoErr("truncated read payload: %v", err)
		}
	case KindRemoveAck:
		if m.OID, err = r.uint64(); err != nil {
			return Message{}, protoErr("truncated ack oid: %v", err)
		}
		ok, err2 := r.byte()
		if err2 != nil {
			return Message{}, protoErr("truncated remove ack flag: %v", err2)
		}
		m.Success = ok != 0
	case KindWriteBulkAck:
		if m.Success, m.Err, err = r.ackFlags(); err != nil {
			return Message{}, err
		}
	case KindReadBulkAck:
		ok, err2 := r.byte()
		if err2 != nil {
			return Message{}, protoErr("truncated bulk ack flag: %v", err2)
		}
		m.Success = ok != 0
		if m.Success {
			if m.Blobs, err = r.bulkBlobs(); err != nil {
				return Message{}, err
			}
		}
	default:
		return Message{}, protoErr("unknown message kind %d", kindByte)
	}

	if !r.empty() {
		return Message{}, protoErr("trailing bytes after message kind %s", m.Kind)
	}
	return m, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func appendUint64Slice(buf []byte, oids []uint64) []byte {
	buf = appendUint32(buf, uint32(len(oids)))
	for _, oid := range oids {
		buf = appendUint64(buf, oid)
	}
	return buf
}

// appendBulkBlobs encodes the inner bulk framing from spec.md §4.1: a
// 4-byte count followed by [4-byte length][bytes] pairs, in order.
func appendBulkBlobs(buf []byte, blobs [][]byte) []byte {
	buf = appendUint32(buf, uint32(len(blobs)))
	for _, blob := range blobs {
		buf = appendBytes(buf, blob)
	}
	return buf
}
