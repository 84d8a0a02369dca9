package wire

import (
	"encoding/binary"
	"fmt"
)

// ProtocolError indicates a malformed frame or an unexpected message
// variant. Per spec.md §4.1/§7, the connection carrying it must be
// abandoned; there is no recovery within a single connection.
type ProtocolError struct {
	msg string
}

func (e *ProtocolError) Error() string { return "wire: protocol error: " + e.msg }

func protoErr(format string, args ...any) error {
	return &ProtocolError{msg: fmt.Sprintf(format, args...)}
}

// reader walks a decoded payload byte slice without copying it.
type reader struct {
	buf []byte
	off int
}

func (r *reader) empty() bool { return r.off >= len(r.buf) }

func (r *reader) byte() (byte, error) {
	if r.off+1 > len(r.buf) {
		return 0, fmt.Errorf("need 1 byte, have %d", len(r.buf)-r.off)
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) uint64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("need 8 bytes, have %d", len(r.buf)-r.off)
	}
	v := binary.BigEndian.Uint64(r.buf[r.off : r.off+8])
	r.off += 8
	return v, nil
}

func (r *reader) uint32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("need 4 bytes, have %d", len(r.buf)-r.off)
	}
	v := binary.BigEndian.Uint32(r.buf[r.off : r.off+4])
	r.off += 4
	return v, nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if r.off+int(n) > len(r.buf) {
		return nil, fmt.Errorf("need %d bytes, have %d", n, len(r.buf)-r.off)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+int(n)])
	r.off += int(n)
	return out, nil
}

func (r *reader) uint64Slice() ([]uint64, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		v, err := r.uint64()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *reader) bulkBlobs() ([][]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, protoErr("truncated bulk blob count: %v", err)
	}
	out := make([][]byte, n)
	for i := range out {
		b, err := r.bytes()
		if err != nil {
			return nil, protoErr("truncated bulk blob %d: %v", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func (r *reader) ackFlags() (success bool, code ErrCode, err error) {
	b, err := r.byte()
	if err != nil {
		return false, 0, protoErr("truncated ack success flag: %v", err)
	}
	c, err := r.byte()
	if err != nil {
		return false, 0, protoErr("truncated ack error code: %v", err)
	}
	return b != 0, ErrCode(c), nil
}
