// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package entity

import "testing"

func TestEntityKind_StringersRoundtrip(t *testing.T) {
	cases := []struct {
		k    Kind
		want string
	}{
		{KindFile, "file"},
		{KindDirectory, "directory"},
		{KindSymbol, "symbol"},
		{KindTest, "test"},
		{KindDocumentation, "documentation"},
		{KindBusinessDomain, "business_domain"},
		{KindSecurityIssue, "security_issue"},
		{KindVulnerability, "vulnerability"},
	}
	for _, c := range cases {
		if got := c.k.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.k, got, c.want)
		}
	}
}

func TestConcreteTypes_SatisfyEntityInterface(t *testing.T) {
	var entities []Entity = []Entity{
		&File{Base: Base{ID: "file:a.ts"}},
		&Directory{Base: Base{ID: "dir:src"}},
		&Symbol{Base: Base{ID: "sym:a.ts#Foo@aa"}},
		&Test{Base: Base{ID: "test:a.test.ts#runs"}},
		&Documentation{Base: Base{ID: "doc:readme"}},
		&BusinessDomain{Base: Base{ID: "domain:billing"}},
		&SecurityIssue{Base: Base{ID: "sec:a.ts:12"}},
		&Vulnerability{Base: Base{ID: "vuln:lodash@4.0.0"}},
	}

	wantKinds := []Kind{
		KindFile, KindDirectory, KindSymbol, KindTest,
		KindDocumentation, KindBusinessDomain, KindSecurityIssue, KindVulnerability,
	}

	for i, e := range entities {
		if got := e.EntityKind(); got != wantKinds[i] {
			t.Errorf("entity %d EntityKind() = %v, want %v", i, got, wantKinds[i])
		}
		if e.EntityID() == "" {
			t.Errorf("entity %d EntityID() is empty", i)
		}
	}
}

func TestRecomputeFlakyScore_AllPassingDecaysToZero(t *testing.T) {
	test := &Test{ExecutionHistory: []ExecutionRecord{
		{Passed: true}, {Passed: true}, {Passed: true}, {Passed: true},
	}}
	test.RecomputeFlakyScore()
	if test.FlakyScore != 0 {
		t.Fatalf("FlakyScore = %v, want 0 for all-passing history", test.FlakyScore)
	}
}

func TestRecomputeFlakyScore_FailAfterPassJumpsUp(t *testing.T) {
	stable := &Test{ExecutionHistory: []ExecutionRecord{
		{Passed: true}, {Passed: true}, {Passed: true},
	}}
	stable.RecomputeFlakyScore()

	flaky := &Test{ExecutionHistory: []ExecutionRecord{
		{Passed: true}, {Passed: false}, {Passed: true},
	}}
	flaky.RecomputeFlakyScore()

	if flaky.FlakyScore <= stable.FlakyScore {
		t.Fatalf("flaky score %v should exceed stable score %v", flaky.FlakyScore, stable.FlakyScore)
	}
	if flaky.FlakyScore < 0 || flaky.FlakyScore > 1 {
		t.Fatalf("FlakyScore out of [0,1]: %v", flaky.FlakyScore)
	}
}

func TestRecomputeFlakyScore_EmptyHistoryIsZero(t *testing.T) {
	test := &Test{FlakyScore: 0.7}
	test.RecomputeFlakyScore()
	if test.FlakyScore != 0 {
		t.Fatalf("FlakyScore = %v, want 0 for empty history", test.FlakyScore)
	}
}

func TestRecomputeFlakyScore_IsPureFunctionOfHistory(t *testing.T) {
	history := []ExecutionRecord{
		{Passed: true}, {Passed: false}, {Passed: false}, {Passed: true},
	}
	a := &Test{ExecutionHistory: append([]ExecutionRecord{}, history...)}
	b := &Test{ExecutionHistory: append([]ExecutionRecord{}, history...)}
	a.RecomputeFlakyScore()
	b.RecomputeFlakyScore()
	if a.FlakyScore != b.FlakyScore {
		t.Fatalf("RecomputeFlakyScore not deterministic: %v != %v", a.FlakyScore, b.FlakyScore)
	}
}
