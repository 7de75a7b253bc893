// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package differ implements incremental re-parse gating: a file whose
// content hash hasn't changed since the last sync is skipped entirely,
// and a file that has changed is diffed at the symbol level (keyed by
// name) so only the symbols that actually moved, changed, or
// disappeared cause graph writes. Relationships belonging to a changed
// file are always replaced wholesale, since re-deriving a partial edge
// set from a stale one is more error-prone than recomputing it.
package differ

import (
	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/parser"
)

// FileState is what the differ needs to know about a previously synced
// file: its content hash (for the gate) and its last-known symbols
// (for the symbol-level diff).
type FileState struct {
	ContentHash string
	Symbols     []*entity.Symbol
}

// SymbolChange classifies how a symbol changed between two parses.
type SymbolChange int

const (
	SymbolAdded SymbolChange = iota
	SymbolModified
	SymbolRemoved
	SymbolUnchanged
)

func (c SymbolChange) String() string {
	switch c {
	case SymbolAdded:
		return "added"
	case SymbolModified:
		return "modified"
	case SymbolRemoved:
		return "removed"
	default:
		return "unchanged"
	}
}

// SymbolDiff is one entry in a file's symbol-level diff.
type SymbolDiff struct {
	Change SymbolChange
	Name   string
	Before *entity.Symbol // nil for SymbolAdded
	After  *entity.Symbol // nil for SymbolRemoved
}

// FileDiff is the result of diffing one file's new parse against its
// previously stored state.
type FileDiff struct {
	FilePath string

	// Skipped is true when the content hash gate fired: the file is
	// byte-identical to what was last synced, and no further work
	// (symbol diff, relationship replacement) is needed.
	Skipped bool

	SymbolDiffs []SymbolDiff

	// ReplaceRelationships is true whenever the file was reparsed (i.e.
	// not Skipped); relationships are always replaced wholesale rather
	// than incrementally patched.
	ReplaceRelationships bool
}

// DiffFile compares a fresh ParseResult against the file's previously
// known state. prior may be nil for a file seen for the first time.
func DiffFile(prior *FileState, fresh *parser.ParseResult) FileDiff {
	diff := FileDiff{FilePath: fresh.FilePath}

	if prior != nil && prior.ContentHash == fresh.ContentHash {
		diff.Skipped = true
		return diff
	}

	diff.ReplaceRelationships = true
	diff.SymbolDiffs = diffSymbols(priorSymbols(prior), fresh.Symbols)
	return diff
}

func priorSymbols(prior *FileState) []*entity.Symbol {
	if prior == nil {
		return nil
	}
	return prior.Symbols
}

// diffSymbols keys symbols by (filePath, name) -- in practice just name,
// since both slices belong to the same file -- and compares content
// hashes to tell a genuine edit from a no-op re-parse of an unchanged
// declaration.
func diffSymbols(before, after []*entity.Symbol) []SymbolDiff {
	beforeByName := make(map[string]*entity.Symbol, len(before))
	for _, s := range before {
		beforeByName[s.Name] = s
	}
	afterByName := make(map[string]*entity.Symbol, len(after))
	for _, s := range after {
		afterByName[s.Name] = s
	}

	var diffs []SymbolDiff
	for name, a := range afterByName {
		b, existed := beforeByName[name]
		switch {
		case !existed:
			diffs = append(diffs, SymbolDiff{Change: SymbolAdded, Name: name, After: a})
		case b.ContentHash != a.ContentHash:
			diffs = append(diffs, SymbolDiff{Change: SymbolModified, Name: name, Before: b, After: a})
		default:
			diffs = append(diffs, SymbolDiff{Change: SymbolUnchanged, Name: name, Before: b, After: a})
		}
	}
	for name, b := range beforeByName {
		if _, stillPresent := afterByName[name]; !stillPresent {
			diffs = append(diffs, SymbolDiff{Change: SymbolRemoved, Name: name, Before: b})
		}
	}
	return diffs
}
