package automove

import "unicode"

// PositionEvaluator scores a position. Positive means good for perspective.
type PositionEvaluator interface {
	Evaluate(pos Position, perspective Side) (int, error)
}

const (
	// MateScore is the magnitude returned for a checkmated position.
	MateScore = 10000
	// CheckScore is the fixed penalty for the side in check.
	CheckScore = 50
)

var pieceValues = map[rune]int{
	'p': 100,
	'n': 320,
	'b': 330,
	'r': 500,
	'q': 900,
	'k': 0,
}

// HeuristicEvaluator is a zero-lookahead static evaluator combining
// material, mobility and check status.
type HeuristicEvaluator struct {
	Rules Rules
}

// NewHeuristicEvaluator returns an evaluator backed by rules.
func NewHeuristicEvaluator(rules Rules) HeuristicEvaluator {
	return HeuristicEvaluator{Rules: rules}
}

// Evaluate scores pos from perspective. All terms are computed with White
// positive and negated for Black, so Evaluate(p, White) == -Evaluate(p, Black).
func (e HeuristicEvaluator) Evaluate(pos Position, perspective Side) (int, error) {
	score, err := e.whiteScore(pos)
	if err != nil {
		return 0, err
	}
	if perspective == Black {
		score = -score
	}
	return score, nil
}

func (e HeuristicEvaluator) whiteScore(pos Position) (int, error) {
	toMove := e.Rules.SideToMove(pos)
	inCheck, err := e.Rules.IsInCheck(pos)
	if err != nil {
		return 0, err
	}
	over, err := e.Rules.IsGameOver(pos)
	if err != nil {
		return 0, err
	}
	if over {
		if !inCheck {
			return 0, nil
		}
		return signFor(toMove.Other()) * MateScore, nil
	}

	moves, err := e.Rules.LegalMoves(pos)
	if err != nil {
		return 0, err
	}
	score := materialScore(pos.Placement) + signFor(toMove)*len(moves)
	if inCheck {
		score += signFor(toMove.Other()) * CheckScore
	}
	return score, nil
}

// materialScore sums piece values off the placement field, White positive.
func materialScore(placement string) int {
	score := 0
	for _, r := range placement {
		value, ok := pieceValues[unicode.ToLower(r)]
		if !ok {
			continue
		}
		if unicode.IsUpper(r) {
			score += value
		} else {
			score -= value
		}
	}
	return score
}

func signFor(side Side) int {
	if side == Black {
		return -1
	}
	return 1
}
