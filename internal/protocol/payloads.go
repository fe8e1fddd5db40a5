package protocol

import (
	"fmt"

	"github.com/retrokiller543/nexsock2/internal/codec"
)

// ServiceState is the lifecycle state a managed service reports.
type ServiceState string

const (
	StateStarting ServiceState = "starting"
	StateRunning  ServiceState = "running"
	StateStopping ServiceState = "stopping"
	StateStopped  ServiceState = "stopped"
	StateFailed   ServiceState = "failed"
)

// ServiceInfo describes one managed service in responses and events.
type ServiceInfo struct {
	Name          string       `cbor:"1,keyasint"`
	State         ServiceState `cbor:"2,keyasint"`
	Pid           uint32       `cbor:"3,keyasint,omitempty"`
	UptimeSeconds uint64       `cbor:"4,keyasint,omitempty"`
}

// Request payloads, one per operation.

type ListServicesRequest struct{}

type StartServiceRequest struct {
	Name string            `cbor:"1,keyasint"`
	Args []string          `cbor:"2,keyasint,omitempty"`
	Env  map[string]string `cbor:"3,keyasint,omitempty"`
}

type StopServiceRequest struct {
	Name string `cbor:"1,keyasint"`
}

type RestartServiceRequest struct {
	Name string `cbor:"1,keyasint"`
}

type GetStatusRequest struct {
	Name string `cbor:"1,keyasint"`
}

type SubscribeEventsRequest struct {
	// Services filters event delivery to the named services. Empty
	// subscribes to all of them.
	Services []string `cbor:"1,keyasint,omitempty"`
}

// Success response payloads, one per operation.

type ListServicesReply struct {
	Services []ServiceInfo `cbor:"1,keyasint"`
}

type StartServiceReply struct {
	Service ServiceInfo `cbor:"1,keyasint"`
}

type StopServiceReply struct {
	Service ServiceInfo `cbor:"1,keyasint"`
}

type RestartServiceReply struct {
	Service ServiceInfo `cbor:"1,keyasint"`
}

type GetStatusReply struct {
	Service ServiceInfo `cbor:"1,keyasint"`
}

type SubscribeEventsReply struct {
	Subscribed uint32 `cbor:"1,keyasint"`
}

// ErrorReply is the shared failure payload carried by any response
// whose envelope has FlagError set.
type ErrorReply struct {
	Code    uint32 `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

// ServiceEvent is the payload of daemon-originated event messages.
type ServiceEvent struct {
	Service  ServiceInfo  `cbor:"1,keyasint"`
	Previous ServiceState `cbor:"2,keyasint,omitempty"`
	UnixMS   int64        `cbor:"3,keyasint"`
}

// NewRequestBody returns a zero value of the request payload for op.
// The switch is exhaustive over the closed operation set.
func NewRequestBody(op Operation) (any, error) {
	switch op {
	case OpListServices:
		return &ListServicesRequest{}, nil
	case OpStartService:
		return &StartServiceRequest{}, nil
	case OpStopService:
		return &StopServiceRequest{}, nil
	case OpRestartService:
		return &RestartServiceRequest{}, nil
	case OpGetStatus:
		return &GetStatusRequest{}, nil
	case OpSubscribeEvents:
		return &SubscribeEventsRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, uint8(op))
	}
}

// NewReplyBody returns a zero value of the success payload for op.
func NewReplyBody(op Operation) (any, error) {
	switch op {
	case OpListServices:
		return &ListServicesReply{}, nil
	case OpStartService:
		return &StartServiceReply{}, nil
	case OpStopService:
		return &StopServiceReply{}, nil
	case OpRestartService:
		return &RestartServiceReply{}, nil
	case OpGetStatus:
		return &GetStatusReply{}, nil
	case OpSubscribeEvents:
		return &SubscribeEventsReply{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, uint8(op))
	}
}

// NewRequest builds a request envelope around body.
func NewRequest(correlation uint64, op Operation, body any) (Message, error) {
	return build(KindRequest, correlation, op, 0, body)
}

// NewReply builds a success response envelope around body.
func NewReply(correlation uint64, op Operation, body any) (Message, error) {
	return build(KindResponse, correlation, op, 0, body)
}

// NewErrorReply builds a failure response carrying the shared failure
// payload.
func NewErrorReply(correlation uint64, op Operation, code uint32, message string) (Message, error) {
	return build(KindResponse, correlation, op, FlagError, ErrorReply{Code: code, Message: message})
}

// NewEvent builds an event envelope. Correlation zero marks a broadcast.
func NewEvent(op Operation, body any) (Message, error) {
	return build(KindEvent, 0, op, 0, body)
}

func build(kind Kind, correlation uint64, op Operation, flags Flags, body any) (Message, error) {
	msg := Message{
		Kind:        kind,
		Correlation: correlation,
		Op:          op,
		Flags:       flags,
	}
	if body != nil {
		raw, err := codec.Marshal(body)
		if err != nil {
			return Message{}, fmt.Errorf("protocol: encoding %s body: %w", op, err)
		}
		msg.Body = raw
		msg.Flags |= FlagHasPayload
	}
	if err := msg.Validate(); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DecodeBody unmarshals the envelope body into out.
func DecodeBody(m Message, out any) error {
	if len(m.Body) == 0 {
		return fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if err := codec.Unmarshal(m.Body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
