package automove

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// MoveSource picks a move for a fully specified position.
type MoveSource interface {
	BestMove(ctx context.Context, pos Position) (Move, error)
	Ready() bool
	Name() string
}

// EngineSource asks a UCI engine session for the move.
type EngineSource struct {
	session  *Session
	settings *Settings
	timeout  time.Duration
}

// DefaultSearchTimeout bounds a single engine search.
const DefaultSearchTimeout = 30 * time.Second

// NewEngineSource wraps session. A non-positive timeout uses
// DefaultSearchTimeout.
func NewEngineSource(session *Session, settings *Settings, timeout time.Duration) *EngineSource {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &EngineSource{session: session, settings: settings, timeout: timeout}
}

func (s *EngineSource) Name() string {
	return "engine"
}

// Ready reports whether the session can take a request right now.
func (s *EngineSource) Ready() bool {
	return s.session != nil && s.session.State() == StateReady
}

// BestMove submits pos with the current depth and variant. Errors are
// returned as-is; there is no fallback to the heuristic search.
func (s *EngineSource) BestMove(ctx context.Context, pos Position) (Move, error) {
	if s.session == nil {
		return NoMove, ErrEngineUnavailable
	}
	opts := s.settings.Snapshot()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.session.Search(ctx, pos.String(), opts.SearchDepth, opts.Variant)
}

// HeuristicSource runs a one-ply search scored by a PositionEvaluator.
type HeuristicSource struct {
	rules     Rules
	evaluator PositionEvaluator
	log       zerolog.Logger
}

// NewHeuristicSource builds a one-ply searcher. A nil evaluator uses
// HeuristicEvaluator over rules.
func NewHeuristicSource(rules Rules, evaluator PositionEvaluator, log zerolog.Logger) *HeuristicSource {
	if evaluator == nil {
		evaluator = NewHeuristicEvaluator(rules)
	}
	return &HeuristicSource{rules: rules, evaluator: evaluator, log: log}
}

func (s *HeuristicSource) Name() string {
	return "heuristic"
}

func (s *HeuristicSource) Ready() bool {
	return s.rules != nil
}

// BestMove scores every legal reply and keeps the strict maximum, so ties
// go to the move enumerated first. A lone legal move is returned without
// evaluation.
func (s *HeuristicSource) BestMove(ctx context.Context, pos Position) (Move, error) {
	if s.rules == nil {
		return NoMove, ErrEngineUnavailable
	}
	moves, err := s.rules.LegalMoves(pos)
	if err != nil {
		return NoMove, err
	}
	switch len(moves) {
	case 0:
		return NoMove, nil
	case 1:
		return moves[0], nil
	}

	mover := s.rules.SideToMove(pos)
	best := NoMove
	bestScore := math.MinInt
	for _, m := range moves {
		if err := ctx.Err(); err != nil {
			return NoMove, err
		}
		// Apply returns a fresh Position; pos itself is never modified.
		child, err := s.rules.Apply(pos, m)
		if err != nil {
			return NoMove, err
		}
		score, err := s.evaluator.Evaluate(child, mover.Other())
		if err != nil {
			return NoMove, err
		}
		score = -score
		s.log.Trace().Str("move", string(m)).Int("score", score).Msg("candidate")
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best, nil
}

// Decision is the outcome of one Decide call.
type Decision struct {
	Position Position
	Move     Move // NoMove for terminal positions
	Source   string
	Elapsed  time.Duration
}

// Journal receives every decision, successful or not.
type Journal interface {
	Record(d Decision, err error)
}

// Decider is the pipeline entry point: normalize, then ask the MoveSource
// chosen at construction.
type Decider struct {
	source  MoveSource
	log     zerolog.Logger
	journal Journal
}

// DeciderOption configures a Decider.
type DeciderOption func(*Decider)

// WithLogger sets the decision logger.
func WithLogger(log zerolog.Logger) DeciderOption {
	return func(d *Decider) {
		d.log = log
	}
}

// WithJournal records every decision to j.
func WithJournal(j Journal) DeciderOption {
	return func(d *Decider) {
		d.journal = j
	}
}

// NewDecider returns a Decider over source. A nil source makes every
// Decide fail with ErrEngineUnavailable.
func NewDecider(source MoveSource, opts ...DeciderOption) *Decider {
	d := &Decider{source: source, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Source returns the configured move source, or nil.
func (d *Decider) Source() MoveSource {
	return d.source
}

// Decide normalizes partial and returns the best move for it.
func (d *Decider) Decide(ctx context.Context, partial PartialPosition) (Decision, error) {
	start := time.Now()
	decision, err := d.decide(ctx, partial)
	decision.Elapsed = time.Since(start)
	if d.journal != nil {
		d.journal.Record(decision, err)
	}
	if err != nil {
		d.log.Error().Err(err).Str("fen", partial.FEN).Int("index", partial.MoveIndex).Msg("no decision")
		return decision, err
	}
	d.log.Info().
		Str("fen", decision.Position.String()).
		Str("move", string(decision.Move)).
		Str("source", decision.Source).
		Dur("elapsed", decision.Elapsed).
		Msg("decided")
	return decision, nil
}

func (d *Decider) decide(ctx context.Context, partial PartialPosition) (Decision, error) {
	if d.source == nil {
		return Decision{}, ErrEngineUnavailable
	}
	decision := Decision{Source: d.source.Name()}
	pos, err := Normalize(partial)
	if err != nil {
		return decision, err
	}
	decision.Position = pos
	move, err := d.source.BestMove(ctx, pos)
	if err != nil {
		return decision, fmt.Errorf("%s: %w", d.source.Name(), err)
	}
	decision.Move = move
	return decision, nil
}
