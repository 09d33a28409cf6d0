package automove

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Side identifies one of the two players.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Other returns the opponent.
func (s Side) Other() Side {
	if s == Black {
		return White
	}
	return Black
}

func (s Side) token() string {
	if s == Black {
		return "b"
	}
	return "w"
}

// Move is a coordinate move such as "e2e4" or "e7e8q".
type Move string

// NoMove is returned when the position has no legal move.
const NoMove Move = ""

var movePattern = regexp.MustCompile(`^[a-z][0-9][a-z][0-9][qrbnk]?$`)

// Valid reports whether m is shaped like a coordinate move.
func (m Move) Valid() bool {
	return movePattern.MatchString(string(m))
}

// Default values appended to positions that arrive without them.
const (
	DefaultCastling  = "KQkq"
	DefaultEnPassant = "-"
)

// Position is a fully specified board state in FEN terms.
type Position struct {
	Placement string
	Turn      string // "w" or "b"
	Castling  string
	EnPassant string
	HalfMove  int
	FullMove  int
}

// String renders the position as a six-field FEN.
func (p Position) String() string {
	return fmt.Sprintf("%s %s %s %s %d %d", p.Placement, p.Turn, p.Castling, p.EnPassant, p.HalfMove, p.FullMove)
}

// SideToMove reports whose turn it is.
func (p Position) SideToMove() Side {
	if p.Turn == "b" {
		return Black
	}
	return White
}

// ParsePosition parses a six-field FEN. Only the field structure is checked.
func ParsePosition(fen string) (Position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return Position{}, invalidPosition(fen, fmt.Sprintf("expected 6 fields, got %d", len(fields)), nil)
	}
	return positionFromFields(fen, fields)
}

func positionFromFields(fen string, fields []string) (Position, error) {
	if fields[1] != "w" && fields[1] != "b" {
		return Position{}, invalidPosition(fen, fmt.Sprintf("bad side to move %q", fields[1]), nil)
	}
	half, err := strconv.Atoi(fields[4])
	if err != nil || half < 0 {
		return Position{}, invalidPosition(fen, "bad halfmove clock", err)
	}
	full, err := strconv.Atoi(fields[5])
	if err != nil || full < 1 {
		return Position{}, invalidPosition(fen, "bad fullmove number", err)
	}
	return Position{
		Placement: fields[0],
		Turn:      fields[1],
		Castling:  fields[2],
		EnPassant: fields[3],
		HalfMove:  half,
		FullMove:  full,
	}, nil
}

// NoMoveIndex marks a PartialPosition that carries no move index.
const NoMoveIndex = -1

// PartialPosition is a position as seen on the feed: piece placement and
// possibly some of the remaining FEN fields.
type PartialPosition struct {
	FEN       string
	MoveIndex int
}

// SideForIndex derives the side to move from a feed move index.
func SideForIndex(index int) Side {
	if index%2 == 0 {
		return White
	}
	return Black
}

// Normalize completes a partial position into a fully specified one.
//
// A six-field input is returned unchanged. With only the placement, the
// side to move comes from the move index parity. A side token already
// present is kept, but it must agree with the move index when one is given.
// Missing castling, en-passant and clock fields get the defaults KQkq, -,
// 0 and 1.
func Normalize(partial PartialPosition) (Position, error) {
	fen := strings.TrimSpace(partial.FEN)
	fields := strings.Fields(fen)
	switch {
	case len(fields) == 0:
		return Position{}, invalidPosition(partial.FEN, "empty position", nil)
	case len(fields) > 6:
		return Position{}, invalidPosition(partial.FEN, fmt.Sprintf("too many fields (%d)", len(fields)), nil)
	case len(fields) == 6:
		return positionFromFields(fen, fields)
	}

	if len(fields) == 1 {
		if partial.MoveIndex < 0 {
			return Position{}, invalidPosition(fen, "no side to move and no move index", nil)
		}
		fields = append(fields, SideForIndex(partial.MoveIndex).token())
	} else if partial.MoveIndex >= 0 {
		if want := SideForIndex(partial.MoveIndex).token(); fields[1] != want {
			return Position{}, invalidPosition(fen, fmt.Sprintf("side %q disagrees with move index %d", fields[1], partial.MoveIndex), nil)
		}
	}

	defaults := []string{fields[0], fields[1], DefaultCastling, DefaultEnPassant, "0", "1"}
	full := append(fields[:len(fields):len(fields)], defaults[len(fields):]...)
	return positionFromFields(strings.Join(full, " "), full)
}
