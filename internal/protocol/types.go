package protocol

import (
	"fmt"

	"github.com/retrokiller543/nexsock2/internal/codec"
)

// CodecVersion is the current encode format. Decoders reject anything
// newer so a stale daemon never misinterprets an upgraded controller.
const CodecVersion uint8 = 1

// Kind discriminates the three envelope shapes on the wire.
type Kind uint8

const (
	KindRequest  Kind = 1
	KindResponse Kind = 2
	KindEvent    Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	return k >= KindRequest && k <= KindEvent
}

// Operation is the closed set of control-plane operations. Adding one
// requires touching the exhaustive switches in payloads.go.
type Operation uint8

const (
	OpListServices    Operation = 1
	OpStartService    Operation = 2
	OpStopService     Operation = 3
	OpRestartService  Operation = 4
	OpGetStatus       Operation = 5
	OpSubscribeEvents Operation = 6
)

func (op Operation) String() string {
	switch op {
	case OpListServices:
		return "list-services"
	case OpStartService:
		return "start-service"
	case OpStopService:
		return "stop-service"
	case OpRestartService:
		return "restart-service"
	case OpGetStatus:
		return "get-status"
	case OpSubscribeEvents:
		return "subscribe-events"
	default:
		return fmt.Sprintf("operation(%d)", uint8(op))
	}
}

func (op Operation) valid() bool {
	return op >= OpListServices && op <= OpSubscribeEvents
}

// Flags is the envelope flag bitset.
type Flags uint16

const (
	FlagCompressed  Flags = 1 << 0
	FlagEncrypted   Flags = 1 << 1
	FlagRequiresAck Flags = 1 << 2
	FlagHasPayload  Flags = 1 << 3
	FlagError       Flags = 1 << 4
)

// Contains reports whether every bit in other is set.
func (f Flags) Contains(other Flags) bool {
	return f&other == other
}

// IsEmpty reports whether no flag is set.
func (f Flags) IsEmpty() bool {
	return f == 0
}

// Message is one decoded wire envelope. Correlation is zero only on
// broadcast events; requests and responses always carry the id linking
// them.
type Message struct {
	Kind        Kind
	Correlation uint64
	Op          Operation
	Flags       Flags
	Body        codec.RawMessage
}

// Validate checks the envelope invariants shared by encoder and decoder.
func (m Message) Validate() error {
	if !m.Kind.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownKind, uint8(m.Kind))
	}
	if !m.Op.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownOperation, uint8(m.Op))
	}
	if m.Correlation == 0 && m.Kind != KindEvent {
		return fmt.Errorf("%w: %s", ErrMissingCorrelation, m.Kind)
	}
	if m.Flags.Contains(FlagHasPayload) != (len(m.Body) > 0) {
		return fmt.Errorf("%w: payload flag mismatch", ErrMalformed)
	}
	return nil
}

// IsError reports whether a response carries the shared failure payload.
func (m Message) IsError() bool {
	return m.Flags.Contains(FlagError)
}
