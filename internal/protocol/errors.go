package protocol

import "errors"

var (
	ErrMalformed          = errors.New("protocol: malformed message")
	ErrTruncated          = errors.New("protocol: truncated data")
	ErrUnsupportedVersion = errors.New("protocol: unsupported codec version")
	ErrUnknownKind        = errors.New("protocol: unknown message kind")
	ErrUnknownOperation   = errors.New("protocol: unknown operation")
	ErrMissingCorrelation = errors.New("protocol: missing correlation id")
)
