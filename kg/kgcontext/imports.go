// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package kgcontext

import (
	"strings"

	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/noise"
	"github.com/kraklabs/kgsync/kg/parser"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/resolve"
)

// contextExportsProvider backs resolve.Resolver.ExportMap with the
// export shapes collected from every file this Context has parsed so
// far in the process's lifetime. It deliberately has no filesystem
// access of its own -- the AST Parser already did the one pass over
// source text the project's layout requires.
type contextExportsProvider struct{ c *Context }

func (p contextExportsProvider) FileExports(absPath string) (resolve.FileExports, string, bool) {
	exp, ok := p.c.fileExports[absPath]
	if !ok {
		return resolve.FileExports{}, "", false
	}
	return exp, p.c.fileHashes[absPath], true
}

// emitImportEdges turns result.RawImports into IMPORTS relationships by
// running each specifier through c.Resolver. A specifier that resolves
// to a project file yields a direct, imported-scope edge to that file;
// anything the Resolver can't place (a bare package specifier, or no
// Resolver at all) mints an external:<specifier> placeholder instead,
// still subject to the confidence gate like any other inferred edge.
func (c *Context) emitImportEdges(result *parser.ParseResult, path string) {
	if result.File == nil {
		return
	}
	for _, imp := range result.RawImports {
		var toID string
		resolved := false
		if c.Resolver != nil {
			if target, ok := c.Resolver.ResolveSpecifier(path, imp.Specifier); ok {
				toID = ids.FileID(target)
				resolved = true
			}
		}
		if !resolved {
			toID = "external:" + imp.Specifier
		}

		rel := relationship.New(result.File.ID, toID, relationship.Imports, imp.Location)
		rel.Source = relationship.SourceAST
		if resolved {
			rel.Resolution = relationship.ResolutionDirect
			rel.Scope = relationship.ScopeImported
			rel.Resolved = true
			rel.Confidence = 1.0
		} else {
			rel.Resolution = relationship.ResolutionHeuristic
			rel.Scope = relationship.ScopeExternal
			rel.Inferred = true
			rel.Confidence = noise.ScoreInferredEdge(noise.EdgeContext{
				ToID:       toID,
				NameLength: len([]rune(imp.Specifier)),
			})
			if rel.Confidence < c.Noise.MinInferredConfidence {
				continue
			}
		}
		result.Relationships = append(result.Relationships, rel)
	}
}

// resolveImportedEdges upgrades CALLS/WRITES/READS/REFERENCES/THROWS
// edges the AST Parser could only stamp with an external:<name>
// placeholder (no local declaration matched) into cross-file edges when
// the name traces back to one of the file's own imports. This is
// spec.md section 4.4's resolution step (d): imported root plus member,
// followed through re-export chains via Resolver.ExportMap.
//
// Steps (b) type-checker and (c) typed-base property access have no
// equivalent here: kgsync has no type-checker component, so a call
// target known only by its base expression's declared type can't be
// disambiguated from its textual name alone.
func (c *Context) resolveImportedEdges(result *parser.ParseResult, path string) {
	if c.Resolver == nil || len(result.RawImports) == 0 {
		return
	}
	index := buildImportIndex(c.Resolver, path, result.RawImports)
	if len(index) == 0 {
		return
	}
	provider := contextExportsProvider{c: c}

	for _, rel := range result.Relationships {
		switch rel.Type {
		case relationship.Calls, relationship.Writes, relationship.Reads,
			relationship.References, relationship.Throws:
		default:
			continue
		}
		if !strings.HasPrefix(rel.To, "external:") {
			continue
		}
		name := strings.TrimPrefix(rel.To, "external:")
		root := importRoot(rel.AccessPath)
		if root == "" {
			root = name
		}
		target, ok := index[root]
		if !ok {
			continue
		}

		owner := target
		if exports := c.Resolver.ExportMap(target, provider); exports != nil {
			if declFile, ok := exports[name]; ok {
				owner = declFile
			}
		}

		rel.To = "file:" + owner + "#" + name
		rel.Resolution = relationship.ResolutionViaImport
		rel.Scope = relationship.ScopeImported
		rel.ImportDepth = 1
		rel.Confidence = noise.ScoreInferredEdge(noise.EdgeContext{
			ToID:        rel.To,
			IsExported:  rel.IsExported,
			NameLength:  len([]rune(name)),
			ImportDepth: rel.ImportDepth,
		})
	}
}

// buildImportIndex maps every local name a file's imports bind (default,
// namespace, and named bindings) to the absolute path the Resolver
// places the import's specifier at. Specifiers the Resolver can't
// place (external packages) are left out of the index entirely.
func buildImportIndex(resolver *resolve.Resolver, fromPath string, raws []parser.RawImport) map[string]string {
	idx := make(map[string]string)
	for _, imp := range raws {
		target, ok := resolver.ResolveSpecifier(fromPath, imp.Specifier)
		if !ok {
			continue
		}
		if imp.DefaultName != "" {
			idx[imp.DefaultName] = target
		}
		if imp.NamespaceName != "" {
			idx[imp.NamespaceName] = target
		}
		for _, n := range imp.Named {
			key := n.Name
			if n.Alias != "" {
				key = n.Alias
			}
			idx[key] = target
		}
	}
	return idx
}

// importRoot returns the leading identifier of a dotted access path
// ("ns.method" -> "ns"), or accessPath unchanged if it has no member
// access.
func importRoot(accessPath string) string {
	if idx := strings.IndexByte(accessPath, '.'); idx >= 0 {
		return accessPath[:idx]
	}
	return accessPath
}
