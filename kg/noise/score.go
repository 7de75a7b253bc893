// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package noise

import "strings"

// EdgeContext carries the facts score_inferred_edge needs. It is produced
// by the AST Parser for every inferred (non-local, non-direct) edge
// candidate before emission.
type EdgeContext struct {
	RelationType    string
	ToID            string
	FromFileRel     string
	UsedTypeChecker bool
	IsExported      bool
	NameLength      int
	ImportDepth     int
}

// ScoreInferredEdge implements spec.md section 4.2's confidence formula.
//
// Starts at 0.5, then:
//   - +0.25 if the type checker resolved the target
//   - +0.10 if ToID looks like a resolved "file:...#..." form
//   - +0.10 if the declaration is exported
//   - -0.10 per unit of import depth beyond 1 (capped at -0.3)
//   - -0.15 if the name is shorter than 4 runes
//
// The result is clamped to [0,1].
func ScoreInferredEdge(ctx EdgeContext) float64 {
	score := 0.5

	if ctx.UsedTypeChecker {
		score += 0.25
	}
	if looksResolved(ctx.ToID) {
		score += 0.10
	}
	if ctx.IsExported {
		score += 0.10
	}
	if ctx.ImportDepth > 1 {
		penalty := 0.10 * float64(ctx.ImportDepth-1)
		if penalty > 0.30 {
			penalty = 0.30
		}
		score -= penalty
	}
	if ctx.NameLength > 0 && ctx.NameLength < 4 {
		score -= 0.15
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// looksResolved reports whether id has the shape of a concrete resolved
// declaration reference, e.g. "file:pkg/impl.ts#greet" or "sym:a.ts#Foo@...".
func looksResolved(id string) bool {
	if strings.HasPrefix(id, "sym:") {
		return true
	}
	if strings.HasPrefix(id, "file:") && strings.Contains(id, "#") {
		return true
	}
	return false
}
