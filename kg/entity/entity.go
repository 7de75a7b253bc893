// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package entity defines the knowledge graph's node types: File,
// Directory, Symbol (function/class/interface/typeAlias/variable/
// property/method), Test, Documentation, BusinessDomain, SecurityIssue,
// and Vulnerability.
//
// Dynamic dispatch over duck-typed AST nodes in the original system is
// replaced here with a closed, tagged union: every concrete type embeds
// Base and satisfies the small Entity capability trait (id, kind, path).
// Kind-specific attributes live as additional fields on each concrete
// type rather than as a generic metadata bag, so callers get compile-time
// field access instead of map lookups.
package entity

// Kind tags which concrete entity type a value holds.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	KindSymbol
	KindTest
	KindDocumentation
	KindBusinessDomain
	KindSecurityIssue
	KindVulnerability
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymbol:
		return "symbol"
	case KindTest:
		return "test"
	case KindDocumentation:
		return "documentation"
	case KindBusinessDomain:
		return "business_domain"
	case KindSecurityIssue:
		return "security_issue"
	case KindVulnerability:
		return "vulnerability"
	default:
		return "unknown"
	}
}

// SymbolKind distinguishes the seven symbol shapes named in spec.md
// section 3's Symbol row.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolClass
	SymbolInterface
	SymbolTypeAlias
	SymbolVariable
	SymbolProperty
	SymbolMethod
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolClass:
		return "class"
	case SymbolInterface:
		return "interface"
	case SymbolTypeAlias:
		return "typeAlias"
	case SymbolVariable:
		return "variable"
	case SymbolProperty:
		return "property"
	case SymbolMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Visibility mirrors a declaration's access modifier.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityPrivate
	VisibilityProtected
)

func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityProtected:
		return "protected"
	default:
		return "public"
	}
}

// Base holds the attributes common to every entity kind (spec.md
// section 3, "Entities").
type Base struct {
	ID                string
	Path              string
	ContentHash       string
	Language          string
	CreatedAtMilli    int64
	LastModifiedMilli int64
	Metadata          map[string]string
}

// Entity is the capability trait every concrete entity type implements.
// It deliberately exposes only what callers need to route and persist a
// value generically; kind-specific behavior requires a type switch on
// the concrete type (File, Directory, Symbol, Test, ...).
type Entity interface {
	EntityID() string
	EntityKind() Kind
	EntityPath() string
	EntityHash() string
}

func (b Base) EntityID() string   { return b.ID }
func (b Base) EntityPath() string { return b.Path }
func (b Base) EntityHash() string { return b.ContentHash }

// File represents a source file entity.
type File struct {
	Base
	Extension    string
	Size         int64
	LineCount    int
	IsTest       bool
	IsConfig     bool
	Dependencies []string // top-level package names declared by the file
}

func (*File) EntityKind() Kind { return KindFile }

// Directory represents a directory entity synthesized from file paths.
type Directory struct {
	Base
	Depth    int
	Children []string // immediate child entity ids (dirs and files)

	// FileCount, SymbolCount, and TestCount are roll-up statistics
	// accumulated as files under this directory are processed.
	// Supplemental to spec.md section 3's Directory row; see
	// SPEC_FULL.md "Directory roll-up statistics".
	FileCount   int
	SymbolCount int
	TestCount   int
}

func (*Directory) EntityKind() Kind { return KindDirectory }

// Parameter describes one function/method parameter.
type Parameter struct {
	Name     string
	Type     string
	Default  string
	Optional bool
}

// Symbol represents a named declaration: function, class, interface,
// type alias, variable, property, or method. Kind-specific attribute
// groups below are populated only for the kinds that use them; spec.md
// section 3 documents which fields apply to which SymbolKind.
type Symbol struct {
	Base
	Name         string
	Kind         SymbolKind
	Signature    string
	Docstring    string
	Visibility   Visibility
	IsExported   bool
	IsDeprecated bool

	// Function/method attributes.
	Parameters           []Parameter
	ReturnType           string
	IsAsync              bool
	IsGenerator          bool
	CyclomaticComplexity int

	// Class attributes.
	Extends    []string
	Implements []string
	IsAbstract bool
	Methods    []string // member symbol ids
	Properties []string // member symbol ids

	// TypeAlias attributes.
	AliasedType    string
	IsUnion        bool
	IsIntersection bool
}

func (*Symbol) EntityKind() Kind { return KindSymbol }

// TestType enumerates the granularity of a Test entity.
type TestType int

const (
	TestUnit TestType = iota
	TestIntegration
	TestE2E
)

func (t TestType) String() string {
	switch t {
	case TestIntegration:
		return "integration"
	case TestE2E:
		return "e2e"
	default:
		return "unit"
	}
}

// CoverageStats records coverage percentages in [0,100].
type CoverageStats struct {
	Lines      float64
	Branches   float64
	Functions  float64
	Statements float64
}

// ExecutionRecord is one entry in a Test's execution history.
type ExecutionRecord struct {
	AtMilli        int64
	Passed         bool
	DurationMillis int64
}

// PerformanceMetrics summarizes a test's recorded execution durations.
type PerformanceMetrics struct {
	AvgDurationMillis float64
	P95DurationMillis float64
}

// Test represents a test case correlated with the symbol(s) it covers.
type Test struct {
	Base
	TestType           TestType
	Framework          string
	TargetSymbol       string
	Coverage           CoverageStats
	ExecutionHistory   []ExecutionRecord
	PerformanceMetrics PerformanceMetrics
	FlakyScore         float64
}

func (*Test) EntityKind() Kind { return KindTest }

// flakyDecayFactor and flakyFailJump implement the original system's
// flaky-score heuristic: a passing run decays the score toward zero, a
// fail immediately following a pass jumps it toward one. See
// SPEC_FULL.md "Flaky-test score decay".
const (
	flakyDecayFactor = 0.85
	flakyFailJump    = 0.35
)

// RecomputeFlakyScore derives t.FlakyScore from t.ExecutionHistory as a
// pure function: it does not mutate ExecutionHistory, only FlakyScore.
// Safe to call after appending a new ExecutionRecord.
func (t *Test) RecomputeFlakyScore() {
	if len(t.ExecutionHistory) == 0 {
		t.FlakyScore = 0
		return
	}

	score := 0.0
	prevPassed := true
	for _, rec := range t.ExecutionHistory {
		if rec.Passed {
			score *= flakyDecayFactor
		} else {
			if prevPassed {
				score = score + flakyFailJump*(1-score)
			} else {
				score = score + (flakyFailJump/2)*(1-score)
			}
		}
		prevPassed = rec.Passed
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	t.FlakyScore = score
}

// Documentation represents an ingested documentation artifact. Ingestion
// itself is an external collaborator (spec.md section 1); the core only
// needs a stable entity shape to correlate documentation with symbols.
type Documentation struct {
	Base
	Title      string
	SourceURL  string
	RelatedIDs []string
}

func (*Documentation) EntityKind() Kind { return KindDocumentation }

// BusinessDomain groups symbols/files under a human-assigned domain
// label (e.g. "billing", "auth"). The assignment itself is produced by
// an external collaborator; the core stores and links it.
type BusinessDomain struct {
	Base
	Name        string
	Description string
	MemberIDs   []string
}

func (*BusinessDomain) EntityKind() Kind { return KindBusinessDomain }

// SecurityIssue represents a finding attributed to a file or symbol by
// the (external) security rule engine.
type SecurityIssue struct {
	Base
	RuleID     string
	Severity   string
	Confidence float64
	Message    string
}

func (*SecurityIssue) EntityKind() Kind { return KindSecurityIssue }

// Vulnerability represents a known-vulnerable dependency, typically
// populated from an OSV-like external lookup.
type Vulnerability struct {
	Base
	PackageName    string
	PackageVersion string
	AdvisoryID     string
	Severity       string
}

func (*Vulnerability) EntityKind() Kind { return KindVulnerability }
