package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/retrokiller543/nexsock2/internal/codec"
)

// DecodeMessage parses one version-tagged byte sequence produced by
// EncodeMessage. It rejects versions newer than this build understands
// rather than guessing at their layout.
func DecodeMessage(data []byte) (Message, error) {
	if len(data) < 1 {
		return Message{}, fmt.Errorf("%w: missing version tag", ErrTruncated)
	}
	version := data[0]
	if version == 0 {
		return Message{}, fmt.Errorf("%w: reserved version tag", ErrMalformed)
	}
	if version > CodecVersion {
		return Message{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	var env envelope
	if err := codec.Unmarshal(data[1:], &env); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Message{}, fmt.Errorf("%w: %v", ErrTruncated, err)
		}
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	msg := Message{
		Kind:        env.Kind,
		Correlation: env.Correlation,
		Op:          env.Op,
		Flags:       env.Flags,
		Body:        env.Body,
	}
	if err := msg.Validate(); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return msg, nil
}
