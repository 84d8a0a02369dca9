package wire

import (
	"encoding/binary"
	"io"
)

// DefaultMaxFrameSize is the ceiling on an incoming frame's declared
// length, guarding against a corrupt or hostile peer claiming an
// unreasonable allocation size.
const DefaultMaxFrameSize = 64 << 20 // 64 MiB

// ReadFrame reads one length-prefixed frame from r and decodes it.
//
// If the connection is closed before any byte of the length prefix is
// read, ReadFrame returns io.EOF — the caller should treat this as
// graceful peer shutdown, not a protocol error (spec.md §4.1). Any other
// short read, or a declared length greater than maxFrameSize, is
// reported as a *ProtocolError; the caller must abandon the connection.
func ReadFrame(r io.Reader, maxFrameSize int) (Message, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Message{}, protoErr("short read of frame length: %v", err)
		}
		return Message{}, err // io.EOF (or other) propagates for graceful-shutdown detection
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if maxFrameSize > 0 && int(n) > maxFrameSize {
		return Message{}, protoErr("frame length %d exceeds max %d", n, maxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, protoErr("short read of frame payload (%d bytes): %v", n, err)
	}
	msg, err := Unmarshal(payload)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// WriteFrame encodes m and writes it to w as one length-prefixed frame,
// looping until every byte is written (send_all semantics).
func WriteFrame(w io.Writer, m Message) error {
	payload, err := m.Marshal()
	if err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if err := writeAll(w, lenBuf[:]); err != nil {
		return err
	}
	return writeAll(w, payload)
}

func writeAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
