package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTripRequest(t *testing.T) {
	msg, err := NewRequest(7, OpStartService, StartServiceRequest{
		Name: "web",
		Args: []string{"--port", "8080"},
		Env:  map[string]string{"MODE": "prod"},
	})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[0] != CodecVersion {
		t.Fatalf("version tag: got %d want %d", data[0], CodecVersion)
	}

	decoded, err := DecodeMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Kind != KindRequest || decoded.Correlation != 7 || decoded.Op != OpStartService {
		t.Fatalf("envelope mismatch: %+v", decoded)
	}
	if !decoded.Flags.Contains(FlagHasPayload) {
		t.Fatalf("expected payload flag")
	}

	var body StartServiceRequest
	if err := DecodeBody(decoded, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Name != "web" || len(body.Args) != 2 || body.Env["MODE"] != "prod" {
		t.Fatalf("body mismatch: %+v", body)
	}
}

func TestRoundTripAllKinds(t *testing.T) {
	reply, err := NewReply(3, OpGetStatus, GetStatusReply{
		Service: ServiceInfo{Name: "web", State: StateRunning, Pid: 4242, UptimeSeconds: 60},
	})
	if err != nil {
		t.Fatalf("new reply: %v", err)
	}
	event, err := NewEvent(OpSubscribeEvents, ServiceEvent{
		Service:  ServiceInfo{Name: "web", State: StateStopped},
		Previous: StateRunning,
		UnixMS:   1700000000000,
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	failure, err := NewErrorReply(9, OpStopService, uint32(CodeNotRunning), "service not running")
	if err != nil {
		t.Fatalf("new error reply: %v", err)
	}

	for _, msg := range []Message{reply, event, failure} {
		data, err := EncodeMessage(msg)
		if err != nil {
			t.Fatalf("encode %s: %v", msg.Kind, err)
		}
		decoded, err := DecodeMessage(data)
		if err != nil {
			t.Fatalf("decode %s: %v", msg.Kind, err)
		}
		if decoded.Kind != msg.Kind || decoded.Correlation != msg.Correlation ||
			decoded.Op != msg.Op || decoded.Flags != msg.Flags {
			t.Fatalf("envelope mismatch: got %+v want %+v", decoded, msg)
		}
		if !bytes.Equal(decoded.Body, msg.Body) {
			t.Fatalf("body bytes mismatch for %s", msg.Kind)
		}
	}

	if !failure.IsError() {
		t.Fatalf("expected error flag on failure reply")
	}
	var er ErrorReply
	if err := DecodeBody(failure, &er); err != nil {
		t.Fatalf("decode error reply: %v", err)
	}
	if Code(er.Code) != CodeNotRunning || er.Message != "service not running" {
		t.Fatalf("error reply mismatch: %+v", er)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	msg, err := NewRequest(1, OpStartService, StartServiceRequest{
		Name: "web",
		Env:  map[string]string{"B": "2", "A": "1", "C": "3"},
	})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	first, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("encoding not deterministic")
	}
}

func TestDecodeEmptyIsTruncated(t *testing.T) {
	_, err := DecodeMessage(nil)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeTruncatedEnvelope(t *testing.T) {
	msg, err := NewRequest(5, OpListServices, ListServicesRequest{})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	data, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = DecodeMessage(data[:len(data)-2])
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	msg, err := NewRequest(5, OpListServices, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	data, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data[0] = CodecVersion + 1
	_, err = DecodeMessage(data)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecodeReservedVersionIsMalformed(t *testing.T) {
	_, err := DecodeMessage([]byte{0x00, 0xa1})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeGarbageIsMalformed(t *testing.T) {
	_, err := DecodeMessage([]byte{CodecVersion, 0xff, 0xfe, 0xfd, 0xfc})
	if err == nil {
		t.Fatalf("expected decode failure")
	}
	if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrMalformed or ErrTruncated, got %v", err)
	}
}

func TestValidateRejectsResponseWithoutCorrelation(t *testing.T) {
	msg := Message{Kind: KindResponse, Op: OpGetStatus}
	if err := msg.Validate(); !errors.Is(err, ErrMissingCorrelation) {
		t.Fatalf("expected ErrMissingCorrelation, got %v", err)
	}
}

func TestValidateRejectsUnknownKindAndOperation(t *testing.T) {
	if err := (Message{Kind: Kind(99), Op: OpGetStatus, Correlation: 1}).Validate(); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if err := (Message{Kind: KindRequest, Op: Operation(99), Correlation: 1}).Validate(); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestBroadcastEventNeedsNoCorrelation(t *testing.T) {
	msg := Message{Kind: KindEvent, Op: OpSubscribeEvents}
	if err := msg.Validate(); err != nil {
		t.Fatalf("broadcast event should validate: %v", err)
	}
}

func TestPayloadRegistryIsExhaustive(t *testing.T) {
	ops := []Operation{
		OpListServices, OpStartService, OpStopService,
		OpRestartService, OpGetStatus, OpSubscribeEvents,
	}
	for _, op := range ops {
		if _, err := NewRequestBody(op); err != nil {
			t.Fatalf("request body for %s: %v", op, err)
		}
		if _, err := NewReplyBody(op); err != nil {
			t.Fatalf("reply body for %s: %v", op, err)
		}
	}
	if _, err := NewRequestBody(Operation(200)); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestFlags(t *testing.T) {
	flags := FlagCompressed | FlagRequiresAck
	if !flags.Contains(FlagCompressed) || !flags.Contains(FlagRequiresAck) {
		t.Fatalf("flags missing set bits: %016b", flags)
	}
	if flags.Contains(FlagEncrypted) {
		t.Fatalf("flags contain unset bit")
	}
	if flags.IsEmpty() {
		t.Fatalf("flags should not be empty")
	}
	if !Flags(0).IsEmpty() {
		t.Fatalf("zero flags should be empty")
	}
}
