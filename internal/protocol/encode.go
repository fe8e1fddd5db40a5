package protocol

import (
	"fmt"

	"github.com/retrokiller543/nexsock2/internal/codec"
)

// envelope is the CBOR layout of one message. Integer keys keep the
// encoded form compact; field numbers are part of the wire contract.
type envelope struct {
	Kind        Kind             `cbor:"1,keyasint"`
	Correlation uint64           `cbor:"2,keyasint,omitempty"`
	Op          Operation        `cbor:"3,keyasint"`
	Flags       Flags            `cbor:"4,keyasint,omitempty"`
	Body        codec.RawMessage `cbor:"5,keyasint,omitempty"`
}

// EncodeMessage serializes msg as one version-tagged byte sequence:
// a single codec version byte followed by the deterministic CBOR
// envelope. Total for any message that passes Validate.
func EncodeMessage(msg Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	env := envelope{
		Kind:        msg.Kind,
		Correlation: msg.Correlation,
		Op:          msg.Op,
		Flags:       msg.Flags,
		Body:        msg.Body,
	}
	raw, err := codec.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]byte, 0, 1+len(raw))
	out = append(out, CodecVersion)
	out = append(out, raw...)
	return out, nil
}
