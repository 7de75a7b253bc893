// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolve turns the import/export specifiers the AST Parser
// observes into the resolved file and symbol ids the graph needs: it
// applies path-alias configuration (baseUrl/paths, tsconfig-style) to
// module specifiers, and follows re-export chains (named and `export *`)
// to their ultimate declaration site.
package resolve

import (
	"path"
	"strings"
	"sync"
)

// MaxExportDepth bounds how many re-export hops ExportMap will follow
// before giving up, guarding against pathological or malformed chains.
const MaxExportDepth = 4

// AliasConfig mirrors a tsconfig "compilerOptions" baseUrl/paths block.
type AliasConfig struct {
	BaseURL string
	Paths   map[string][]string
}

// FileExistsFunc reports whether a candidate resolved path exists.
// Injected so ResolveSpecifier is testable without a real filesystem.
type FileExistsFunc func(path string) bool

// candidateSuffixes are tried, in order, against an extension-less
// specifier before it is declared unresolved.
var candidateSuffixes = []string{"", ".ts", ".tsx", ".js", ".jsx", "/index.ts", "/index.tsx", "/index.js"}

// Resolver resolves module specifiers and export maps for one project.
type Resolver struct {
	aliases AliasConfig
	exists  FileExistsFunc

	cacheMu sync.RWMutex
	cache   map[string]exportCacheEntry
}

type exportCacheEntry struct {
	hash string
	m    map[string]string
}

// NewResolver builds a Resolver. exists defaults to a function that
// always reports existence for the bare specifier (i.e. no extension
// probing) when nil, which is adequate for tests that supply exact paths.
func NewResolver(aliases AliasConfig, exists FileExistsFunc) *Resolver {
	if exists == nil {
		exists = func(string) bool { return true }
	}
	return &Resolver{
		aliases: aliases,
		exists:  exists,
		cache:   make(map[string]exportCacheEntry),
	}
}

// ResolveSpecifier resolves a module specifier written inside fromFile
// to an absolute project-relative path. Relative specifiers ("./x",
// "../y") resolve against fromFile's directory; bare specifiers are
// checked against aliases.Paths, then against aliases.BaseURL; anything
// left unresolved (bare package names like "react") is reported as
// external via the second bool.
func (r *Resolver) ResolveSpecifier(fromFile, specifier string) (resolved string, ok bool) {
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		dir := path.Dir(fromFile)
		joined := path.Clean(path.Join(dir, specifier))
		return r.probe(joined)
	}

	if target, matched := r.matchAlias(specifier); matched {
		return r.probe(target)
	}

	if r.aliases.BaseURL != "" {
		joined := path.Clean(path.Join(r.aliases.BaseURL, specifier))
		if resolved, ok := r.probe(joined); ok {
			return resolved, true
		}
	}

	// Bare specifier with no alias match: external package, not a project file.
	return "", false
}

// matchAlias finds the longest-prefix "paths" entry matching specifier
// and substitutes its wildcard, mirroring tsconfig's own longest-match
// precedence when multiple patterns could apply.
func (r *Resolver) matchAlias(specifier string) (string, bool) {
	var bestPrefix string
	var bestTarget string
	found := false

	for pattern, targets := range r.aliases.Paths {
		if len(targets) == 0 {
			continue
		}
		prefix := strings.TrimSuffix(pattern, "*")
		if !strings.HasPrefix(specifier, prefix) {
			continue
		}
		if len(prefix) < len(bestPrefix) {
			continue
		}
		suffix := specifier[len(prefix):]
		target := strings.TrimSuffix(targets[0], "*") + suffix
		bestPrefix = prefix
		bestTarget = target
		found = true
	}
	return bestTarget, found
}

func (r *Resolver) probe(base string) (string, bool) {
	for _, suffix := range candidateSuffixes {
		candidate := base + suffix
		if r.exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}
