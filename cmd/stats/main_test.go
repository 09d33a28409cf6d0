package main

import (
	"testing"
	"time"

	"automove/pkg/automove"

	"github.com/google/go-cmp/cmp"
)

func TestSourceStats_Add(t *testing.T) {
	s := newSourceStats()
	for _, r := range []automove.DecisionRecord{
		{Source: "engine", Move: "e2e4", ElapsedUs: 1000},
		{Source: "engine", Move: "e2e4", ElapsedUs: 3000},
		{Source: "engine", Move: "d2d4", ElapsedUs: 2000},
		{Source: "engine", ElapsedUs: 500},
		{Source: "engine", Error: "engine busy", ElapsedUs: 10},
	} {
		s.Add(r)
	}
	if s.decisions != 5 || s.failed != 1 || s.noMove != 1 {
		t.Fatalf("counts = %d/%d/%d", s.decisions, s.failed, s.noMove)
	}
	if s.maxUs != 3000 {
		t.Fatalf("maxUs = %d", s.maxUs)
	}
	if got := s.MeanLatency(); got != 1302*time.Microsecond {
		t.Fatalf("MeanLatency = %s", got)
	}
	want := []countEntry{{"e2e4", 2}, {"d2d4", 1}}
	if diff := cmp.Diff(want, topCounts(s.moves, 5), cmp.AllowUnexported(countEntry{})); diff != "" {
		t.Fatalf("top moves mismatch (-want +got):\n%s", diff)
	}
}

func TestTopCounts_TiesSortByKey(t *testing.T) {
	got := topCounts(map[string]int{"g1f3": 1, "b1c3": 1, "e2e4": 3}, 2)
	want := []countEntry{{"e2e4", 3}, {"b1c3", 1}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(countEntry{})); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
