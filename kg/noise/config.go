// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package noise holds the stoplist, minimum-name-length, and confidence
// scoring used to keep the AST Parser's inferred edges honest: cheap
// heuristics drop likely-noise targets before they ever reach the graph,
// and score_inferred_edge ranks the ones that remain.
package noise

import "strings"

// Severity mirrors the coarse severity scale used by the (external)
// security rule engine; the core only needs it to gate SECURITY_MIN_SEVERITY.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "low":
		return SeverityLow
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// builtinStoplist holds common globals, logging, and test-framework names
// that are never useful as inferred-edge targets on their own.
var builtinStoplist = map[string]struct{}{
	"log": {}, "logger": {}, "console": {}, "print": {}, "println": {},
	"get": {}, "set": {}, "new": {}, "run": {}, "init": {}, "main": {},
	"test": {}, "describe": {}, "it": {}, "expect": {}, "assert": {},
	"beforeeach": {}, "aftereach": {}, "beforeall": {}, "afterall": {},
	"require": {}, "import": {}, "exports": {}, "module": {},
	"this": {}, "self": {}, "super": {}, "error": {}, "errors": {},
	"object": {}, "array": {}, "string": {}, "number": {}, "boolean": {},
	"map": {}, "filter": {}, "reduce": {}, "foreach": {},
}

// Config holds the tunable knobs from spec.md section 4.2 / section 6.
// All fields have sane defaults; zero-value Config is usable via Default().
type Config struct {
	// MinNameLength is AST_MIN_NAME_LENGTH: identifiers/types shorter than
	// this are ignored as reference/dependency targets.
	MinNameLength int

	// StoplistExtra is AST_STOPLIST_EXTRA: additional lowercased names to
	// ignore beyond the built-in list.
	StoplistExtra []string

	// MinInferredConfidence is MIN_INFERRED_CONFIDENCE.
	MinInferredConfidence float64

	// SecurityMinConfidence is SECURITY_MIN_CONFIDENCE.
	SecurityMinConfidence float64

	// SecurityMinSeverity is SECURITY_MIN_SEVERITY.
	SecurityMinSeverity Severity

	stoplist map[string]struct{}
}

// Default returns the documented spec defaults.
func Default() Config {
	c := Config{
		MinNameLength:         3,
		MinInferredConfidence: 0.5,
		SecurityMinConfidence: 0.5,
		SecurityMinSeverity:   SeverityMedium,
	}
	c.compile()
	return c
}

// compile merges the built-in stoplist with StoplistExtra into a single
// lookup set. Must be called after StoplistExtra is populated and before
// any call to IsStoplisted.
func (c *Config) compile() {
	c.stoplist = make(map[string]struct{}, len(builtinStoplist)+len(c.StoplistExtra))
	for k := range builtinStoplist {
		c.stoplist[k] = struct{}{}
	}
	for _, extra := range c.StoplistExtra {
		c.stoplist[strings.ToLower(extra)] = struct{}{}
	}
	if c.MinNameLength <= 0 {
		c.MinNameLength = 3
	}
	if c.MinInferredConfidence <= 0 {
		c.MinInferredConfidence = 0.5
	}
	if c.SecurityMinConfidence <= 0 {
		c.SecurityMinConfidence = 0.5
	}
}

// WithExtraStoplist returns a copy of c with additional names merged in
// and the lookup set recompiled.
func (c Config) WithExtraStoplist(names []string) Config {
	c.StoplistExtra = append(append([]string{}, c.StoplistExtra...), names...)
	c.compile()
	return c
}

// IsStoplisted reports whether name.ToLower() is on the stoplist.
func (c Config) IsStoplisted(name string) bool {
	if c.stoplist == nil {
		c.compile()
	}
	_, ok := c.stoplist[strings.ToLower(name)]
	return ok
}

// IsTooShort reports whether name is shorter than MinNameLength.
func (c Config) IsTooShort(name string) bool {
	return len([]rune(name)) < c.MinNameLength
}

// ShouldDropName reports whether a candidate reference/dependency target
// name must be dropped per the stoplist or minimum-length gate (testable
// property 6 in spec.md section 8).
func (c Config) ShouldDropName(name string) bool {
	return c.IsStoplisted(name) || c.IsTooShort(name)
}
