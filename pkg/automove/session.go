package automove

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// SessionState is the lifecycle state of a Session.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateInitializing
	StateAwaitingHandshake
	StateAwaitingReady
	StateReady
	StateSearching
	StateFailed
)

var stateNames = [...]string{
	StateUninitialized:     "uninitialized",
	StateInitializing:      "initializing",
	StateAwaitingHandshake: "awaiting-handshake",
	StateAwaitingReady:     "awaiting-ready",
	StateReady:             "ready",
	StateSearching:         "searching",
	StateFailed:            "failed",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// SearchRequest is a single unit of work submitted to the engine.
type SearchRequest struct {
	ID      uint64
	FEN     string
	Depth   int
	Variant string
}

type searchResult struct {
	move Move
	err  error
}

type pendingRequest struct {
	req  SearchRequest
	done chan searchResult // buffered, written exactly once
}

// Session drives a UCI search engine over a Transport.
//
// Engine output is consumed by one reader goroutine per transport and every
// state change happens under mu, so transitions are applied strictly in
// arrival order. At most one search is in flight; a second request while
// searching is rejected with ErrEngineBusy.
type Session struct {
	launch Launcher
	log    zerolog.Logger

	mu        sync.Mutex
	state     SessionState
	transport Transport
	gen       uint64 // bumped on Init and Shutdown; stale readers exit
	pending   *pendingRequest
	nextID    uint64
	variant   string // variant last applied to the engine
	lastErr   error
	ready     chan struct{} // closed when the handshake ends either way
}

// NewSession returns an uninitialized session that will start its engine
// with launch.
func NewSession(launch Launcher, log zerolog.Logger) *Session {
	return &Session{launch: launch, log: log, variant: DefaultVariant}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the session to StateFailed, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Init starts the engine and runs the uci/isready handshake, blocking until
// the session is Ready, the handshake fails, or ctx is done. It is valid
// from Uninitialized and Failed; the latter is the explicit re-init.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized && s.state != StateFailed {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session init: already %s", state)
	}
	if s.launch == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: no engine launcher", ErrEngineUnavailable)
	}
	s.gen++
	gen := s.gen
	s.pending = nil
	s.lastErr = nil
	s.variant = DefaultVariant
	s.ready = make(chan struct{})
	ready := s.ready
	s.setState(StateInitializing)
	s.mu.Unlock()

	transport, output, err := s.launch(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if err == nil {
			_ = transport.Close()
		}
		return fmt.Errorf("%w: session shut down during init", ErrEngineUnavailable)
	}
	if err != nil {
		s.failLocked(err)
		s.mu.Unlock()
		return &EngineError{Err: err, State: StateInitializing}
	}
	s.transport = transport
	s.setState(StateAwaitingHandshake)
	go s.readLoop(gen, NewReader(output))
	_ = s.sendLocked(cmdIdentify)
	s.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		s.mu.Lock()
		if gen == s.gen && s.state != StateReady {
			s.failLocked(fmt.Errorf("handshake: %w", ctx.Err()))
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return fmt.Errorf("%w: session shut down during init", ErrEngineUnavailable)
	}
	if s.state == StateFailed {
		return &EngineError{Err: s.lastErr, State: StateFailed}
	}
	return nil
}

// Search submits one request and waits for its bestmove. A Failed session
// keeps rejecting requests until Init is called again. When ctx ends first
// the engine is told to stop, but the session stays Searching until the
// engine answers.
func (s *Session) Search(ctx context.Context, fen string, depth int, variant string) (Move, error) {
	p, err := s.submit(fen, depth, variant)
	if err != nil {
		return NoMove, err
	}
	select {
	case res := <-p.done:
		return res.move, res.err
	case <-ctx.Done():
	}
	select {
	case res := <-p.done:
		return res.move, res.err
	default:
	}
	s.abandon(p)
	return NoMove, &EngineError{
		Err:       fmt.Errorf("search %d: %w", p.req.ID, ctx.Err()),
		State:     StateSearching,
		RequestID: p.req.ID,
	}
}

func (s *Session) submit(fen string, depth int, variant string) (*pendingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateReady:
	case StateSearching:
		return nil, ErrEngineBusy
	case StateFailed:
		return nil, &EngineError{Err: s.lastErr, State: StateFailed}
	default:
		return nil, fmt.Errorf("%w: session %s", ErrEngineUnavailable, s.state)
	}
	if depth <= 0 {
		depth = DefaultSearchDepth
	}
	s.nextID++
	p := &pendingRequest{
		req:  SearchRequest{ID: s.nextID, FEN: fen, Depth: depth, Variant: variant},
		done: make(chan searchResult, 1),
	}
	s.pending = p
	s.setState(StateSearching)
	s.log.Debug().Uint64("request", p.req.ID).Str("fen", fen).Int("depth", depth).Msg("search submitted")

	// A failed send rejects p through failLocked, so the caller still gets
	// its answer from p.done.
	if variant != "" && variant != s.variant {
		if s.sendLocked(setOptionCommand(variantOption, variant)) != nil {
			return p, nil
		}
		s.variant = variant
	}
	if s.sendLocked(positionCommand(fen)) != nil {
		return p, nil
	}
	_ = s.sendLocked(searchCommand(depth))
	return p, nil
}

func (s *Session) abandon(p *pendingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != p {
		return
	}
	s.log.Warn().Uint64("request", p.req.ID).Msg("search timed out, stopping engine")
	_ = s.sendLocked(cmdStop)
}

// Shutdown closes the transport and returns the session to Uninitialized.
// A pending request is rejected.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	s.gen++
	transport := s.transport
	s.transport = nil
	if p := s.pending; p != nil {
		s.pending = nil
		p.done <- searchResult{err: &EngineError{Err: errors.New("session shut down"), State: s.state, RequestID: p.req.ID}}
	}
	s.closeReady()
	s.setState(StateUninitialized)
	s.mu.Unlock()
	if transport == nil {
		return nil
	}
	return transport.Close()
}

func (s *Session) readLoop(gen uint64, reader *Reader) {
	for {
		event, err := reader.Next()
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = errors.New("engine output closed")
			}
			s.failLocked(err)
			s.mu.Unlock()
			return
		}
		s.handleLocked(event)
		s.mu.Unlock()
	}
}

func (s *Session) handleLocked(event Event) {
	switch event.Type {
	case EventID:
		s.log.Debug().Str(event.Key, event.Value).Msg("engine id")
	case EventUCIOK:
		if s.state != StateAwaitingHandshake {
			return
		}
		s.setState(StateAwaitingReady)
		_ = s.sendLocked(cmdReady)
	case EventReadyOK:
		if s.state != StateAwaitingReady {
			return
		}
		s.setState(StateReady)
		s.closeReady()
	case EventBestMove:
		s.resolveLocked(event)
	case EventInfo:
		s.log.Trace().Str("line", event.Raw).Msg("engine info")
	default:
		s.log.Trace().Str("line", event.Raw).Msg("engine output")
	}
}

func (s *Session) resolveLocked(event Event) {
	p := s.pending
	if s.state != StateSearching || p == nil {
		s.log.Warn().Str("line", event.Raw).Str("state", s.state.String()).Msg("unexpected bestmove")
		return
	}
	s.pending = nil
	s.setState(StateReady)

	move := Move(event.Move)
	switch {
	case event.Move == "(none)" || event.Move == "0000":
		p.done <- searchResult{move: NoMove}
	case move.Valid():
		p.done <- searchResult{move: move}
	default:
		p.done <- searchResult{err: &EngineError{
			Err:       fmt.Errorf("unrecognized bestmove %q", event.Move),
			State:     StateSearching,
			RequestID: p.req.ID,
		}}
	}
}

// sendLocked writes one command; a write failure fails the session.
func (s *Session) sendLocked(line string) error {
	if s.transport == nil {
		err := errors.New("no transport")
		s.failLocked(err)
		return err
	}
	s.log.Trace().Str("cmd", line).Msg("engine command")
	if err := s.transport.Send(line); err != nil {
		s.failLocked(err)
		return err
	}
	return nil
}

// failLocked moves the session to Failed, rejects the pending request with
// err and releases the transport.
func (s *Session) failLocked(err error) {
	if s.state == StateFailed {
		return
	}
	prev := s.state
	s.lastErr = err
	s.setState(StateFailed)
	s.log.Error().Err(err).Str("from", prev.String()).Msg("engine session failed")
	if p := s.pending; p != nil {
		s.pending = nil
		p.done <- searchResult{err: &EngineError{Err: err, State: prev, RequestID: p.req.ID}}
	}
	s.closeReady()
	if t := s.transport; t != nil {
		s.transport = nil
		go func() { _ = t.Close() }()
	}
}

func (s *Session) closeReady() {
	if s.ready != nil {
		close(s.ready)
		s.ready = nil
	}
}

func (s *Session) setState(next SessionState) {
	if s.state == next {
		return
	}
	s.log.Debug().Str("from", s.state.String()).Str("to", next.String()).Msg("session state")
	s.state = next
}
