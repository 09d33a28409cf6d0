package automove

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the decision pipeline. Check them with errors.Is.
var (
	// ErrEngineUnavailable means no move source is configured or the
	// session has not finished its handshake.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrEngineBusy means a search is already in flight.
	ErrEngineBusy = errors.New("engine busy")

	// ErrEngine means the engine transport reported a failure.
	ErrEngine = errors.New("engine error")

	// ErrInvalidPosition means a position could not be completed or was
	// rejected by the rules engine.
	ErrInvalidPosition = errors.New("invalid position")
)

// EngineError carries the transport error that rejected a request.
type EngineError struct {
	Err       error        // underlying transport error
	State     SessionState // session state when the error surfaced
	RequestID uint64       // 0 when no request was pending
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return ErrEngine.Error()
	}
	return fmt.Sprintf("%v: %v", ErrEngine, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is reports ErrEngine so callers don't need errors.As for the common case.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngine
}

// PositionError describes why a position string was rejected.
type PositionError struct {
	FEN    string
	Reason string
	Err    error
}

func (e *PositionError) Error() string {
	msg := ErrInvalidPosition.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.FEN != "" {
		msg += fmt.Sprintf(" (%q)", e.FEN)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

func (e *PositionError) Is(target error) bool {
	return target == ErrInvalidPosition
}

func invalidPosition(fen, reason string, err error) error {
	return &PositionError{FEN: fen, Reason: reason, Err: err}
}
