// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser implements the AST Parser: the component that turns
// file content into entities and relationships. Each language gets its
// own Parser implementation registered by extension; ParseResult is the
// common output shape every implementation produces regardless of the
// source language.
package parser

import (
	"context"
	"sync"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/resolve"
)

// Parser extracts entities and relationships from one file's content.
// Implementations must be safe for concurrent use; a new Parse call may
// run concurrently with others against different files.
type Parser interface {
	// Parse extracts structured results from content. It returns partial
	// results (with Errors populated) rather than failing outright when
	// some part of the file cannot be understood; err is non-nil only
	// for conditions that make any result meaningless (oversized input,
	// invalid encoding, canceled context).
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language returns the canonical lowercase language name, e.g. "go"
	// or "typescript".
	Language() string

	// Extensions returns the file extensions (with leading dot) this
	// parser claims, e.g. [".ts", ".tsx"].
	Extensions() []string
}

// ParseResult is the common output of every Parser implementation.
type ParseResult struct {
	FilePath      string
	Language      string
	ContentHash   string
	ParsedAtMilli int64

	File          *entity.File
	Symbols       []*entity.Symbol
	Relationships []*relationship.Relationship

	// RawImports holds specifiers this file imports, left unresolved
	// (no filesystem access at parse time); kg/resolve turns each into
	// a concrete IMPORTS relationship once the project layout is known.
	RawImports []RawImport

	// Exports is this file's raw export shape, consumed by
	// resolve.Resolver.ExportMap to follow re-export chains.
	Exports resolve.FileExports

	// Errors holds non-fatal parse issues; the result is still usable.
	Errors []string
}

// RawImport is one import/require statement as seen in isolation, before
// its specifier has been resolved to a project file or flagged external.
type RawImport struct {
	Specifier     string
	DefaultName   string
	NamespaceName string
	Named         []ImportedName
	IsRequire     bool
	Location      relationship.Location
}

// ImportedName is one name pulled from a named-import clause, optionally
// aliased ("import { foo as bar }").
type ImportedName struct {
	Name  string
	Alias string
}

// Registry looks up a Parser by language name or file extension.
// Safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	byLanguage  map[string]Parser
	byExtension map[string]Parser
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// Register adds p under its Language() name and all its Extensions().
// A later registration for the same language or extension replaces an
// earlier one. Register is a no-op if p is nil.
func (r *Registry) Register(p Parser) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[p.Language()] = p
	for _, ext := range p.Extensions() {
		r.byExtension[ext] = p
	}
}

// ByLanguage returns the parser registered for language, if any.
func (r *Registry) ByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byLanguage[language]
	return p, ok
}

// ByExtension returns the parser registered for ext, if any.
func (r *Registry) ByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byExtension[ext]
	return p, ok
}
