package session

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout           = errors.New("session: request timed out")
	ErrConnectionClosed  = errors.New("session: connection closed")
	ErrProtocolViolation = errors.New("session: protocol violation")
	ErrNoMatchingRequest = errors.New("session: response matches no pending request")
	ErrNotOpen           = errors.New("session: not open")
)

// RemoteError is a daemon-reported failure carried in a response with
// the error flag set. It preserves the wire code and message so callers
// can make retry decisions per operation.
type RemoteError struct {
	Code    uint32
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("session: remote error %d: %s", e.Code, e.Message)
}
