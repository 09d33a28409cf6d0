package automove_test

import (
	"errors"
	"testing"

	"automove/pkg/automove"

	"github.com/google/go-cmp/cmp"
)

const (
	startPlacement = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"
	afterE4        = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR"
)

// TestNormalize_CompletesPartialPositions covers every field count the feed
// produces.
func TestNormalize_CompletesPartialPositions(t *testing.T) {
	tests := []struct {
		name    string
		partial automove.PartialPosition
		want    string
	}{
		{
			name:    "placement even index",
			partial: automove.PartialPosition{FEN: startPlacement, MoveIndex: 0},
			want:    startPlacement + " w KQkq - 0 1",
		},
		{
			name:    "placement odd index",
			partial: automove.PartialPosition{FEN: afterE4, MoveIndex: 1},
			want:    afterE4 + " b KQkq - 0 1",
		},
		{
			name:    "placement and matching side",
			partial: automove.PartialPosition{FEN: afterE4 + " b", MoveIndex: 1},
			want:    afterE4 + " b KQkq - 0 1",
		},
		{
			name:    "side without index",
			partial: automove.PartialPosition{FEN: afterE4 + " b", MoveIndex: automove.NoMoveIndex},
			want:    afterE4 + " b KQkq - 0 1",
		},
		{
			name:    "partial castling kept",
			partial: automove.PartialPosition{FEN: startPlacement + " w Kk", MoveIndex: automove.NoMoveIndex},
			want:    startPlacement + " w Kk - 0 1",
		},
		{
			name:    "five fields",
			partial: automove.PartialPosition{FEN: afterE4 + " b KQkq e3 0", MoveIndex: 1},
			want:    afterE4 + " b KQkq e3 0 1",
		},
		{
			name:    "complete position unchanged",
			partial: automove.PartialPosition{FEN: afterE4 + " b KQkq e3 0 1", MoveIndex: 6},
			want:    afterE4 + " b KQkq e3 0 1",
		},
		{
			name:    "surrounding whitespace",
			partial: automove.PartialPosition{FEN: "  " + startPlacement + "  ", MoveIndex: 2},
			want:    startPlacement + " w KQkq - 0 1",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pos, err := automove.Normalize(tc.partial)
			if err != nil {
				t.Fatalf("Normalize(%+v): %v", tc.partial, err)
			}
			if diff := cmp.Diff(tc.want, pos.String()); diff != "" {
				t.Fatalf("normalized FEN mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestNormalize_Rejects checks that unusable inputs fail with
// ErrInvalidPosition and a PositionError.
func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		partial automove.PartialPosition
	}{
		{"empty", automove.PartialPosition{FEN: "   ", MoveIndex: 0}},
		{"placement without index", automove.PartialPosition{FEN: startPlacement, MoveIndex: automove.NoMoveIndex}},
		{"side disagrees with index", automove.PartialPosition{FEN: afterE4 + " w", MoveIndex: 1}},
		{"bad side token", automove.PartialPosition{FEN: startPlacement + " x", MoveIndex: automove.NoMoveIndex}},
		{"too many fields", automove.PartialPosition{FEN: startPlacement + " w KQkq - 0 1 extra", MoveIndex: 0}},
		{"bad fullmove", automove.PartialPosition{FEN: startPlacement + " w KQkq - 0 0", MoveIndex: 0}},
		{"bad halfmove", automove.PartialPosition{FEN: startPlacement + " w KQkq - x 1", MoveIndex: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := automove.Normalize(tc.partial)
			if !errors.Is(err, automove.ErrInvalidPosition) {
				t.Fatalf("expected ErrInvalidPosition, got %v", err)
			}
			var perr *automove.PositionError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *PositionError, got %T", err)
			}
			if perr.Reason == "" {
				t.Fatal("PositionError has no reason")
			}
		})
	}
}

// TestNormalize_SideMatchesParity checks the move index parity rule over a
// range of indexes.
func TestNormalize_SideMatchesParity(t *testing.T) {
	for index := 0; index < 8; index++ {
		pos, err := automove.Normalize(automove.PartialPosition{FEN: startPlacement, MoveIndex: index})
		if err != nil {
			t.Fatalf("index %d: %v", index, err)
		}
		want := automove.White
		if index%2 == 1 {
			want = automove.Black
		}
		if pos.SideToMove() != want {
			t.Fatalf("index %d: side %s, want %s", index, pos.SideToMove(), want)
		}
		if automove.SideForIndex(index) != want {
			t.Fatalf("SideForIndex(%d) = %s, want %s", index, automove.SideForIndex(index), want)
		}
	}
}

func TestParsePosition(t *testing.T) {
	pos, err := automove.ParsePosition(afterE4 + " b KQkq e3 0 1")
	if err != nil {
		t.Fatalf("ParsePosition: %v", err)
	}
	want := automove.Position{
		Placement: afterE4,
		Turn:      "b",
		Castling:  "KQkq",
		EnPassant: "e3",
		HalfMove:  0,
		FullMove:  1,
	}
	if diff := cmp.Diff(want, pos); diff != "" {
		t.Fatalf("position mismatch (-want +got):\n%s", diff)
	}
	if _, err := automove.ParsePosition(afterE4 + " b"); !errors.Is(err, automove.ErrInvalidPosition) {
		t.Fatalf("two-field FEN: expected ErrInvalidPosition, got %v", err)
	}
}

func TestMoveValid(t *testing.T) {
	valid := []automove.Move{"e2e4", "e7e8q", "a7a8n", "g1f3"}
	for _, m := range valid {
		if !m.Valid() {
			t.Fatalf("%q should be valid", m)
		}
	}
	invalid := []automove.Move{"", "e2", "e2e4x", "E2E4", "(none)", "0000", "e2-e4"}
	for _, m := range invalid {
		if m.Valid() {
			t.Fatalf("%q should be invalid", m)
		}
	}
}
