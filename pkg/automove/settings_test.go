package automove_test

import (
	"testing"

	"automove/pkg/automove"

	"github.com/google/go-cmp/cmp"
)

func TestNewSettings_Defaults(t *testing.T) {
	s, err := automove.NewSettings(automove.Options{})
	if err != nil {
		t.Fatalf("NewSettings: %v", err)
	}
	want := automove.Options{Variant: "chess", SearchDepth: 15}
	if diff := cmp.Diff(want, s.Snapshot()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if _, err := automove.NewSettings(automove.Options{SearchDepth: -3}); err == nil {
		t.Fatal("expected error for negative depth")
	}
}

// TestSettings_Apply merges partial patches and keeps the old options when a
// patch is invalid.
func TestSettings_Apply(t *testing.T) {
	s, err := automove.NewSettings(automove.Options{})
	if err != nil {
		t.Fatalf("NewSettings: %v", err)
	}
	depth := 8
	got, err := s.Apply(automove.OptionsPatch{SearchDepth: &depth})
	if err != nil {
		t.Fatalf("Apply depth: %v", err)
	}
	if diff := cmp.Diff(automove.Options{Variant: "chess", SearchDepth: 8}, got); diff != "" {
		t.Fatalf("after depth patch (-want +got):\n%s", diff)
	}

	variant := " crazyhouse "
	if _, err := s.Apply(automove.OptionsPatch{Variant: &variant}); err != nil {
		t.Fatalf("Apply variant: %v", err)
	}

	zero := 0
	bad := "two words"
	for _, patch := range []automove.OptionsPatch{{SearchDepth: &zero}, {Variant: &bad}} {
		if _, err := s.Apply(patch); err == nil {
			t.Fatalf("expected error for patch %+v", patch)
		}
	}
	if diff := cmp.Diff(automove.Options{Variant: "crazyhouse", SearchDepth: 8}, s.Snapshot()); diff != "" {
		t.Fatalf("invalid patch changed options (-want +got):\n%s", diff)
	}
}
