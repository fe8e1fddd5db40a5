package frame

import (
	"encoding/binary"
	"fmt"
)

// Deframer reassembles complete frame payloads from an arbitrarily
// chunked byte stream. Partial data is buffered, never an error; the
// declared length is validated before payload bytes are accumulated so
// an oversized declaration fails without the matching allocation.
type Deframer struct {
	limits Limits
	buf    []byte
	// need is the validated payload length of the frame being
	// assembled, or -1 while the length prefix is incomplete.
	need int
}

func NewDeframer(limits Limits) *Deframer {
	return &Deframer{limits: limits, need: -1}
}

// Feed appends a chunk of stream bytes to the internal buffer.
func (d *Deframer) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes awaiting frame completion.
func (d *Deframer) Buffered() int {
	return len(d.buf)
}

// Next returns the payload of the next complete frame, or nil when no
// complete frame is buffered yet. A returned error means the stream's
// framing can no longer be trusted and the connection should close.
func (d *Deframer) Next() ([]byte, error) {
	if d.need < 0 {
		if len(d.buf) < LengthSize {
			return nil, nil
		}
		declared := binary.BigEndian.Uint32(d.buf[:LengthSize])
		if declared == 0 {
			return nil, fmt.Errorf("%w: zero-length frame", ErrHeaderCorrupt)
		}
		if declared > d.limits.MaxFrameBytes {
			return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, declared, d.limits.MaxFrameBytes)
		}
		d.need = int(declared)
	}

	total := LengthSize + d.need
	if len(d.buf) < total {
		return nil, nil
	}

	payload := make([]byte, d.need)
	copy(payload, d.buf[LengthSize:total])

	rest := len(d.buf) - total
	copy(d.buf, d.buf[total:])
	d.buf = d.buf[:rest]
	d.need = -1

	return payload, nil
}
