// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relationship defines the knowledge graph's edge model: the
// nineteen relationship types listed in spec.md section 4 (CONTAINS
// through SECURITY_IMPACTS) and the provenance an edge carries --
// source, resolution, scope, confidence, occurrences, and the evidence
// trail that justifies it.
//
// Multiple edges of the same type between the same two entities fold
// into one Relationship record keyed by a deterministic id (kg/ids.RelID);
// Merge implements that fold so the AST Parser (aggregating within one
// file) and the Knowledge Graph Service (aggregating across files and
// parses) apply identical semantics.
package relationship

import "github.com/kraklabs/kgsync/kg/ids"

// Type enumerates the relationship kinds from spec.md section 4.
type Type string

const (
	Contains            Type = "CONTAINS"
	Defines             Type = "DEFINES"
	Exports             Type = "EXPORTS"
	Imports             Type = "IMPORTS"
	Calls               Type = "CALLS"
	References          Type = "REFERENCES"
	Reads               Type = "READS"
	Writes              Type = "WRITES"
	DependsOn           Type = "DEPENDS_ON"
	Extends             Type = "EXTENDS"
	Implements          Type = "IMPLEMENTS"
	Overrides           Type = "OVERRIDES"
	Throws              Type = "THROWS"
	ReturnsType         Type = "RETURNS_TYPE"
	ParamType           Type = "PARAM_TYPE"
	CoverageProvides    Type = "COVERAGE_PROVIDES"
	HasSecurityIssue    Type = "HAS_SECURITY_ISSUE"
	DependsOnVulnerable Type = "DEPENDS_ON_VULNERABLE"
	SecurityImpacts     Type = "SECURITY_IMPACTS"
)

// Source identifies how an edge's target was determined.
type Source string

const (
	SourceAST         Source = "ast"
	SourceTypeChecker Source = "type-checker"
	SourceHeuristic   Source = "heuristic"
)

// Resolution describes the path by which an edge's target was reached.
type Resolution string

const (
	ResolutionDirect      Resolution = "direct"
	ResolutionViaImport   Resolution = "via-import"
	ResolutionTypeChecker Resolution = "type-checker"
	ResolutionHeuristic   Resolution = "heuristic"
)

// Scope classifies where an edge's target lives relative to its source.
type Scope string

const (
	ScopeLocal    Scope = "local"
	ScopeImported Scope = "imported"
	ScopeExternal Scope = "external"
	ScopeUnknown  Scope = "unknown"
)

// Location pinpoints where a relationship is expressed in source.
type Location struct {
	Path   string
	Line   int
	Column int
}

// Evidence is one observation supporting a relationship, kept so a
// reviewer (or a conflict-resolution strategy) can see why an edge was
// inferred and at what confidence.
type Evidence struct {
	Source     Source
	Confidence float64
	Location   Location
	Note       string
}

// Relationship is a single directed edge between two entities, tagged
// by Type, carrying the provenance fields spec.md section 4 requires.
type Relationship struct {
	ID   string
	From string
	To   string
	Type Type

	Source     Source
	Resolution Resolution
	Scope      Scope
	Confidence float64

	Inferred        bool
	Resolved        bool
	UsedTypeChecker bool
	IsExported      bool
	ImportDepth     int

	// Arity and Awaited apply to CALLS edges.
	Arity   int
	Awaited bool

	// Operator applies to READS/WRITES edges (e.g. "=", "+=").
	Operator string

	// AccessPath applies to READS/WRITES/REFERENCES edges on member
	// access (e.g. "this.cache.entries").
	AccessPath string

	// ParamName applies to PARAM_TYPE edges.
	ParamName string

	// Kind sub-classifies an edge within its Type, mirroring spec.md
	// section 4.4's kind= tags: "instantiation" or "identifier" for
	// REFERENCES, "type" for DEPENDS_ON. Empty for edge types that
	// don't carry a sub-classification.
	Kind string

	// Location is the primary (earliest-observed) location. Locations
	// holds every observed location, Location included.
	Location  Location
	Locations []Location

	Occurrences int
	Evidence    []Evidence
}

// New builds a Relationship with its id minted from from/to/type, a
// single occurrence, and loc recorded as both Location and the sole
// entry of Locations.
func New(from, to string, typ Type, loc Location) *Relationship {
	return &Relationship{
		ID:          ids.RelID(from, to, string(typ)),
		From:        from,
		To:          to,
		Type:        typ,
		Location:    loc,
		Locations:   []Location{loc},
		Occurrences: 1,
	}
}

// Merge folds other into r in place: other must describe the same
// logical edge (same ID). Occurrences sum, the earliest location
// remains primary, locations and evidence accumulate, and confidence
// is kept at the maximum of the two (a later, better-resolved
// observation should not be shadowed by an earlier weak one).
//
// Merge is idempotent under re-application of the same other value
// only in Occurrences/Locations bookkeeping already reflected in r;
// callers must not call Merge twice with the same other.
func (r *Relationship) Merge(other *Relationship) {
	if other == nil || other.ID != r.ID {
		return
	}

	r.Occurrences += other.Occurrences
	if other.Confidence > r.Confidence {
		r.Confidence = other.Confidence
	}
	if !other.Inferred {
		r.Inferred = false
	}
	if other.Resolved {
		r.Resolved = true
	}
	if other.UsedTypeChecker {
		r.UsedTypeChecker = true
	}
	if other.IsExported {
		r.IsExported = true
	}

	r.Locations = append(r.Locations, other.Locations...)
	r.Evidence = append(r.Evidence, other.Evidence...)

	if isEarlier(other.Location, r.Location) {
		r.Location = other.Location
	}
}

func isEarlier(a, b Location) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}
