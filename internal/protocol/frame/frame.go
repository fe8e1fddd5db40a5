package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

// LengthSize is the width of the big-endian length prefix. The length
// counts only the payload bytes that follow it; the payload's first
// byte is the codec version tag, so a valid frame is never empty.
const LengthSize = 4

var (
	ErrFrameTooLarge = errors.New("frame: declared length exceeds limit")
	ErrHeaderCorrupt = errors.New("frame: corrupt length header")
	ErrEmptyPayload  = errors.New("frame: empty payload")
)

// Limits constrains frame memory use against a malicious or corrupted
// peer.
type Limits struct {
	MaxFrameBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxFrameBytes: 8 * 1024 * 1024}
}

// appendFrame appends the length prefix and payload to dst. Callers
// check the payload against Limits first; the uint32 conversion here
// would otherwise truncate.
func appendFrame(dst, payload []byte) []byte {
	var head [LengthSize]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))
	dst = append(dst, head[:]...)
	return append(dst, payload...)
}

// EncodeFrame returns one complete frame for payload.
func EncodeFrame(payload []byte, limits Limits) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if uint64(len(payload)) > uint64(limits.MaxFrameBytes) {
		return nil, ErrFrameTooLarge
	}
	return appendFrame(make([]byte, 0, LengthSize+len(payload)), payload), nil
}

// WriteFrame writes one complete frame to w. The single-buffer write
// keeps the frame atomic for callers serializing access to w.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	buf, err := EncodeFrame(payload, limits)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
