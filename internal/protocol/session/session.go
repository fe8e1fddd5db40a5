package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/retrokiller543/nexsock2/internal/observability"
	"github.com/retrokiller543/nexsock2/internal/protocol"
	"github.com/retrokiller543/nexsock2/internal/protocol/frame"
)

// EventHandler receives daemon-originated event messages. It runs on
// the read-loop goroutine; slow handlers stall inbound dispatch.
type EventHandler func(protocol.Message)

// RequestHandler receives inbound request messages on the serving side
// of a session. Each invocation runs on its own goroutine; handlers
// respond via SendReply or SendErrorReply.
type RequestHandler func(protocol.Message)

// ClosedHandler observes terminal session shutdown with its cause.
// A clean local Close reports a nil error.
type ClosedHandler func(error)

type result struct {
	msg protocol.Message
	err error
}

// Session multiplexes concurrent request/response exchanges and event
// traffic over one duplex byte stream. The read half belongs solely to
// the read-loop goroutine; the write half is serialized by a mutex held
// for exactly one frame per acquisition.
type Session struct {
	cfg    Config
	stream io.ReadWriteCloser
	log    zerolog.Logger
	retry  *retryBackoff

	state  atomic.Int32
	nextID atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan result
	drained chan struct{} // non-nil while a Shutdown waits for pending to empty

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	onEvent   EventHandler
	onRequest RequestHandler
	onClosed  ClosedHandler

	// mismatchLog throttles warnings for late or unmatched responses,
	// which can arrive in bursts after a batch of timeouts.
	mismatchLog *rate.Limiter

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// New wraps an established duplex stream. The session starts in
// Connecting; call Open to start the read loop and accept requests.
func New(stream io.ReadWriteCloser, cfg Config, log zerolog.Logger) *Session {
	cfg = cfg.WithDefaults()
	s := &Session{
		cfg:         cfg,
		stream:      stream,
		log:         log.With().Str("component", "session").Logger(),
		retry:       newRetryBackoff(cfg.Backoff),
		pending:     make(map[uint64]chan result),
		mismatchLog: rate.NewLimiter(rate.Every(time.Second), 5),
		done:        make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// OnEvent registers the handler for inbound event messages.
func (s *Session) OnEvent(h EventHandler) {
	s.handlerMu.Lock()
	s.onEvent = h
	s.handlerMu.Unlock()
}

// OnRequest registers the handler for inbound request messages.
func (s *Session) OnRequest(h RequestHandler) {
	s.handlerMu.Lock()
	s.onRequest = h
	s.handlerMu.Unlock()
}

// OnClosed registers the handler invoked once when the session reaches
// Closed.
func (s *Session) OnClosed(h ClosedHandler) {
	s.handlerMu.Lock()
	s.onClosed = h
	s.handlerMu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed when the session reaches Closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal failure cause, nil for a clean close. Valid
// after Done is closed.
func (s *Session) Err() error {
	<-s.done
	return s.closeErr
}

// Open transitions Connecting -> Open and starts the read loop.
func (s *Session) Open() error {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return fmt.Errorf("%w: state=%s", ErrNotOpen, s.State())
	}
	go s.readLoop()
	return nil
}

// SendRequest writes one request and blocks until the matching response
// arrives, ctx ends, or the configured request timeout elapses. The
// returned message is the decoded response envelope; a response with
// the error flag set surfaces as *RemoteError.
func (s *Session) SendRequest(ctx context.Context, op protocol.Operation, body any) (protocol.Message, error) {
	if s.State() != StateOpen {
		return protocol.Message{}, fmt.Errorf("%w: state=%s", ErrNotOpen, s.State())
	}

	id := s.nextID.Add(1)
	msg, err := protocol.NewRequest(id, op, body)
	if err != nil {
		return protocol.Message{}, err
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	// Register before writing so a fast peer cannot respond into a
	// missing table entry.
	ch := make(chan result, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	observability.SetInflightRequests(s.pendingCount())

	if err := s.writeMessage(msg); err != nil {
		s.dropPending(id)
		s.fail(fmt.Errorf("%w: write: %v", ErrConnectionClosed, err))
		return protocol.Message{}, fmt.Errorf("%w: correlation=%d", ErrConnectionClosed, id)
	}
	observability.RecordFrameWritten(op.String())

	select {
	case res := <-ch:
		if res.err != nil {
			return protocol.Message{}, res.err
		}
		return s.resolveReply(res.msg)
	case <-ctx.Done():
		s.dropPending(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			observability.RecordRequestTimeout(op.String())
			s.log.Warn().Uint64("correlation", id).Stringer("op", op).Msg("request timed out")
			return protocol.Message{}, fmt.Errorf("%w: correlation=%d op=%s", ErrTimeout, id, op)
		}
		return protocol.Message{}, ctx.Err()
	}
}

// SendRequestRetry re-issues timed-out requests with backoff, up to
// maxAttempts. Failures other than ErrTimeout return immediately.
func (s *Session) SendRequestRetry(ctx context.Context, op protocol.Operation, body any, maxAttempts int) (protocol.Message, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := s.retry.delay(attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return protocol.Message{}, ctx.Err()
			}
		}
		msg, err := s.SendRequest(ctx, op, body)
		if err == nil || !errors.Is(err, ErrTimeout) {
			return msg, err
		}
		lastErr = err
	}
	return protocol.Message{}, lastErr
}

// SendEvent writes one fire-and-forget event message.
func (s *Session) SendEvent(op protocol.Operation, body any) error {
	if s.State() != StateOpen {
		return fmt.Errorf("%w: state=%s", ErrNotOpen, s.State())
	}
	msg, err := protocol.NewEvent(op, body)
	if err != nil {
		return err
	}
	if err := s.writeMessage(msg); err != nil {
		s.fail(fmt.Errorf("%w: write: %v", ErrConnectionClosed, err))
		return ErrConnectionClosed
	}
	observability.RecordFrameWritten(op.String())
	return nil
}

// SendReply writes a success response for an inbound request. Replies
// are permitted while draining so in-flight work can finish.
func (s *Session) SendReply(correlation uint64, op protocol.Operation, body any) error {
	msg, err := protocol.NewReply(correlation, op, body)
	if err != nil {
		return err
	}
	return s.sendResponse(msg)
}

// SendErrorReply writes a failure response carrying the shared failure
// payload.
func (s *Session) SendErrorReply(correlation uint64, op protocol.Operation, code uint32, message string) error {
	msg, err := protocol.NewErrorReply(correlation, op, code, message)
	if err != nil {
		return err
	}
	return s.sendResponse(msg)
}

func (s *Session) sendResponse(msg protocol.Message) error {
	switch s.State() {
	case StateOpen, StateDraining:
	default:
		return fmt.Errorf("%w: state=%s", ErrNotOpen, s.State())
	}
	if err := s.writeMessage(msg); err != nil {
		s.fail(fmt.Errorf("%w: write: %v", ErrConnectionClosed, err))
		return ErrConnectionClosed
	}
	observability.RecordFrameWritten(msg.Op.String())
	return nil
}

// Shutdown transitions Open -> Draining: no new requests are accepted
// while outstanding ones complete or time out, then the session closes
// cleanly. ctx bounds the wait in addition to the configured drain
// timeout.
func (s *Session) Shutdown(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateDraining)) {
		s.Close()
		return nil
	}

	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		s.Close()
		return nil
	}
	drained := make(chan struct{})
	s.drained = drained
	s.mu.Unlock()

	deadline := time.NewTimer(s.cfg.DrainTimeout)
	defer deadline.Stop()

	select {
	case <-drained:
		s.Close()
		return nil
	case <-deadline.C:
		s.log.Warn().Int("pending", s.pendingCount()).Msg("drain timeout, forcing close")
		s.Close()
		return nil
	case <-ctx.Done():
		s.Close()
		return ctx.Err()
	case <-s.done:
		return nil
	}
}

// Close releases the stream and resolves every pending request with
// ErrConnectionClosed. Safe to call multiple times.
func (s *Session) Close() {
	s.closeWith(nil)
}

func (s *Session) fail(cause error) {
	s.closeWith(cause)
}

func (s *Session) closeWith(cause error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.closeErr = cause
		_ = s.stream.Close()

		s.mu.Lock()
		orphaned := s.pending
		s.pending = make(map[uint64]chan result)
		s.signalDrainedLocked()
		s.mu.Unlock()
		for id, ch := range orphaned {
			ch <- result{err: fmt.Errorf("%w: correlation=%d", ErrConnectionClosed, id)}
		}
		observability.SetInflightRequests(0)

		if cause != nil {
			s.log.Error().Err(cause).Msg("session closed")
		} else {
			s.log.Debug().Msg("session closed")
		}

		s.handlerMu.RLock()
		onClosed := s.onClosed
		s.handlerMu.RUnlock()
		if onClosed != nil {
			onClosed(cause)
		}
		close(s.done)
	})
}

// writeMessage encodes, frames, and writes msg as one atomic stream
// write.
func (s *Session) writeMessage(msg protocol.Message) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return frame.WriteFrame(s.stream, data, s.cfg.Limits)
}

// readLoop is the sole reader of the stream: it feeds the deframer,
// decodes completed frames, and routes them. Any framing or decode
// failure is fatal to the session because frame boundaries can no
// longer be trusted.
func (s *Session) readLoop() {
	deframer := frame.NewDeframer(s.cfg.Limits)
	buf := make([]byte, s.cfg.ReadChunkBytes)

	for {
		n, err := s.stream.Read(buf)
		if n > 0 {
			deframer.Feed(buf[:n])
			if loopErr := s.drainFrames(deframer); loopErr != nil {
				observability.RecordProtocolViolation()
				s.fail(fmt.Errorf("%w: %v", ErrProtocolViolation, loopErr))
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Peer half-closed: stop issuing requests, let the
				// pending table resolve via close.
				s.state.CompareAndSwap(int32(StateOpen), int32(StateDraining))
				s.closeWith(nil)
			} else if s.State() == StateClosed {
				// Local close already raced the read.
				s.closeWith(nil)
			} else {
				s.fail(fmt.Errorf("%w: read: %v", ErrConnectionClosed, err))
			}
			return
		}
	}
}

func (s *Session) drainFrames(deframer *frame.Deframer) error {
	for {
		payload, err := deframer.Next()
		if err != nil {
			return err
		}
		if payload == nil {
			return nil
		}
		msg, err := protocol.DecodeMessage(payload)
		if err != nil {
			return err
		}
		observability.RecordFrameRead(msg.Op.String())
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindResponse:
		s.mu.Lock()
		ch, ok := s.pending[msg.Correlation]
		if ok {
			delete(s.pending, msg.Correlation)
			s.signalDrainedLocked()
		}
		s.mu.Unlock()
		if !ok {
			// Late response after timeout/cancel, or a peer bug.
			// Recoverable either way; drop it.
			observability.RecordUnmatchedResponse()
			if s.mismatchLog.Allow() {
				s.log.Warn().
					Uint64("correlation", msg.Correlation).
					Stringer("op", msg.Op).
					Err(ErrNoMatchingRequest).
					Msg("dropping unmatched response")
			}
			return
		}
		observability.SetInflightRequests(s.pendingCount())
		ch <- result{msg: msg}

	case protocol.KindEvent:
		s.handlerMu.RLock()
		handler := s.onEvent
		s.handlerMu.RUnlock()
		if handler == nil {
			s.log.Debug().Stringer("op", msg.Op).Msg("event without subscriber")
			return
		}
		handler(msg)

	case protocol.KindRequest:
		s.handlerMu.RLock()
		handler := s.onRequest
		s.handlerMu.RUnlock()
		if handler == nil {
			s.log.Warn().Uint64("correlation", msg.Correlation).Stringer("op", msg.Op).Msg("request without handler")
			_ = s.SendErrorReply(msg.Correlation, msg.Op, uint32(protocol.CodeUnimplemented), "no handler for operation")
			return
		}
		go handler(msg)
	}
}

// resolveReply converts a flagged error response into *RemoteError.
func (s *Session) resolveReply(msg protocol.Message) (protocol.Message, error) {
	if !msg.IsError() {
		return msg, nil
	}
	var failure protocol.ErrorReply
	if err := protocol.DecodeBody(msg, &failure); err != nil {
		return protocol.Message{}, fmt.Errorf("%w: undecodable error reply: %v", ErrProtocolViolation, err)
	}
	return msg, &RemoteError{Code: failure.Code, Message: failure.Message}
}

func (s *Session) dropPending(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.signalDrainedLocked()
	s.mu.Unlock()
	observability.SetInflightRequests(s.pendingCount())
}

// signalDrainedLocked wakes a waiting Shutdown once the pending table
// empties. Callers hold s.mu.
func (s *Session) signalDrainedLocked() {
	if s.drained != nil && len(s.pending) == 0 {
		close(s.drained)
		s.drained = nil
	}
}

func (s *Session) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
