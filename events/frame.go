package events

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// maxFrameSize bounds a single record; anything larger is a corrupt prefix.
const maxFrameSize = 16 << 20

// ErrTruncated reports a record whose length prefix or payload was cut off
// mid-write. The frames read before it are intact.
var ErrTruncated = errors.New("truncated record")

// WriteFrame writes one length-prefixed record: a 4-byte big-endian payload
// length followed by the payload itself.
func WriteFrame(w io.Writer, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write record header: %v", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write record payload: %v", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed record. It returns io.EOF at a clean
// end of stream and ErrTruncated when the stream stops inside a record.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, ErrTruncated
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("record length %d exceeds limit", size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, ErrTruncated
	}
	return payload, nil
}
