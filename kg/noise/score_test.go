// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package noise

import "testing"

func TestScoreInferredEdge_Baseline(t *testing.T) {
	got := ScoreInferredEdge(EdgeContext{NameLength: 5})
	if got != 0.5 {
		t.Fatalf("baseline score = %v, want 0.5", got)
	}
}

func TestScoreInferredEdge_TypeCheckerAndExported(t *testing.T) {
	got := ScoreInferredEdge(EdgeContext{
		UsedTypeChecker: true,
		IsExported:      true,
		ToID:            "file:pkg/impl.ts#greet",
		NameLength:      5,
	})
	want := 0.5 + 0.25 + 0.10 + 0.10
	if got != want {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestScoreInferredEdge_ImportDepthPenaltyCaps(t *testing.T) {
	got := ScoreInferredEdge(EdgeContext{ImportDepth: 10, NameLength: 5})
	if got < 0 || got > 1 {
		t.Fatalf("score out of range: %v", got)
	}
	if got != 0.5-0.30 {
		t.Fatalf("expected capped penalty, got %v", got)
	}
}

func TestScoreInferredEdge_ShortNamePenalty(t *testing.T) {
	got := ScoreInferredEdge(EdgeContext{NameLength: 2})
	if got != 0.5-0.15 {
		t.Fatalf("score = %v, want %v", got, 0.5-0.15)
	}
}

func TestScoreInferredEdge_ClampedToUnitInterval(t *testing.T) {
	got := ScoreInferredEdge(EdgeContext{
		UsedTypeChecker: true,
		IsExported:      true,
		ToID:            "sym:a.ts#Foo@deadbeef",
		NameLength:      5,
	})
	if got > 1.0 {
		t.Fatalf("score exceeds 1.0: %v", got)
	}
}

func TestConfig_ShouldDropName(t *testing.T) {
	c := Default().WithExtraStoplist([]string{"Widget"})
	cases := map[string]bool{
		"log":       true,  // builtin stoplist
		"widget":    true,  // extra stoplist, case-insensitive
		"ab":        true,  // too short (< 3)
		"Processor": false, // passes both gates
	}
	for name, want := range cases {
		if got := c.ShouldDropName(name); got != want {
			t.Errorf("ShouldDropName(%q) = %v, want %v", name, got, want)
		}
	}
}
