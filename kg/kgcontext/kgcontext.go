// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package kgcontext is the composition root: it wires the parser
// registry, differ, conflict detector, knowledge graph service,
// rollback manager, and sync coordinator together over a chosen set of
// storage adapters, and exposes the one pipeline operation (Sync) the
// CLI drives.
//
// Data flow: Parser -> entities/relationships -> Differ -> Coordinator
// (opens a rollback point) -> Conflict Resolver (when the differ's
// output collides with persisted state) -> Knowledge Graph Service ->
// storage adapters. The Monitor observes every Coordinator event.
package kgcontext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/kgsync/kg/conflict"
	"github.com/kraklabs/kgsync/kg/differ"
	"github.com/kraklabs/kgsync/kg/embedprovider"
	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/graphsvc"
	"github.com/kraklabs/kgsync/kg/noise"
	"github.com/kraklabs/kgsync/kg/parser"
	"github.com/kraklabs/kgsync/kg/resolve"
	"github.com/kraklabs/kgsync/kg/rollback"
	"github.com/kraklabs/kgsync/kg/storage"
	syncpkg "github.com/kraklabs/kgsync/kg/sync"
)

// Context is the fully wired pipeline. Build one with New and drive it
// with Sync.
type Context struct {
	Parsers     *parser.Registry
	Resolver    *resolve.Resolver
	Noise       noise.Config
	Graph       *graphsvc.Service
	Conflicts   *conflict.Detector
	Strategies  *conflict.Registry
	Rollback    *rollback.Manager
	Emitter     *syncpkg.Emitter
	Monitor     *syncpkg.Monitor
	Coordinator *syncpkg.Coordinator

	fileStates  map[string]*differ.FileState
	fileExports map[string]resolve.FileExports
	fileHashes  map[string]string

	// OnFileProcessed, when set, is called after each file in a Sync
	// call's path list is parsed and applied, in order. index is
	// 0-based; total is len(paths). Intended for CLI progress display.
	OnFileProcessed func(path string, index, total int)
}

// Adapters bundles the storage backends a Context is built over. Vector,
// Relational, and Cache are optional; Graph is required.
type Adapters struct {
	Graph      storage.PropertyGraph
	Vectors    storage.VectorStore
	Relational storage.Relational
	Cache      storage.Cache
	Embed      embedprovider.Provider
}

// New wires a Context over the given adapters and parser set.
func New(adapters Adapters, parsers []parser.Parser, resolver *resolve.Resolver, noiseConfig noise.Config) *Context {
	registry := parser.NewRegistry()
	for _, p := range parsers {
		registry.Register(p)
	}

	svc := graphsvc.New(adapters.Graph, adapters.Vectors, adapters.Embed)
	rb := rollback.NewManager(svc, svc, 200)
	emitter := syncpkg.NewEmitter(1000)
	monitor := syncpkg.NewMonitor(emitter, 1000, 100)
	coordinator := syncpkg.NewCoordinator(rb, emitter, syncpkg.DefaultRetryConfig())

	return &Context{
		Parsers:     registry,
		Resolver:    resolver,
		Noise:       noiseConfig,
		Graph:       svc,
		Conflicts:   conflict.NewDetector(),
		Strategies:  conflict.NewRegistry(),
		Rollback:    rb,
		Emitter:     emitter,
		Monitor:     monitor,
		Coordinator: coordinator,
		fileStates:  map[string]*differ.FileState{},
		fileExports: map[string]resolve.FileExports{},
		fileHashes:  map[string]string{},
	}
}

// SyncResult summarizes one Sync call.
type SyncResult struct {
	Operation *syncpkg.Operation
	Conflicts []*conflict.Record
}

// Sync parses every file in paths, diffs each against its last known
// state, resolves conflicts against persisted state, and applies the
// result to the knowledge graph -- all under one Coordinator-managed
// operation with an automatic rollback point.
func (c *Context) Sync(ctx context.Context, paths []string, mode rollback.Mode) (SyncResult, error) {
	var conflicts []*conflict.Record

	op, err := c.Coordinator.Run(ctx, "sync", mode, paths, func(ctx context.Context, op *syncpkg.Operation, cancelled <-chan struct{}) error {
		if err := c.syncDirectories(ctx, op, paths); err != nil {
			return err
		}

		for i, path := range paths {
			select {
			case <-cancelled:
				return ctx.Err()
			default:
			}

			detected, err := c.syncFile(ctx, op, path)
			if err != nil {
				return err
			}
			conflicts = append(conflicts, detected...)
			op.Counters.FilesProcessed++
			if c.OnFileProcessed != nil {
				c.OnFileProcessed(path, i, len(paths))
			}
		}
		return nil
	})

	return SyncResult{Operation: op, Conflicts: conflicts}, err
}

// syncDirectories synthesizes every ancestor Directory entity implied by
// this batch's file paths and the CONTAINS edges connecting them to
// their children, parent directory to child directory and last
// directory to file alike. Directories have no parser of their own --
// they only exist because files live in them -- so this runs once per
// Sync call rather than once per file.
func (c *Context) syncDirectories(ctx context.Context, op *syncpkg.Operation, paths []string) error {
	dirs := parser.SynthesizeDirectories(paths)
	for _, d := range dirs {
		if err := c.Graph.CreateEntity(ctx, d); err != nil {
			return err
		}
		op.Counters.EntitiesCreated++
	}
	for _, rel := range parser.SynthesizeDirectoryEdges(dirs) {
		if err := c.Graph.UpsertRelationship(ctx, rel); err != nil {
			return err
		}
		op.Counters.RelationshipsCreated++
	}
	return nil
}

func (c *Context) syncFile(ctx context.Context, op *syncpkg.Operation, path string) ([]*conflict.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("kgcontext: read %s: %w", path, err)
	}

	p, ok := c.Parsers.ByExtension(filepath.Ext(path))
	if !ok {
		p, ok = c.Parsers.ByLanguage("text")
	}
	if !ok {
		return nil, nil
	}

	result, err := p.Parse(ctx, content, path)
	if err != nil {
		return nil, fmt.Errorf("kgcontext: parse %s: %w", path, err)
	}

	c.fileExports[path] = result.Exports
	c.fileHashes[path] = result.ContentHash
	c.emitImportEdges(result, path)
	c.resolveImportedEdges(result, path)

	diff := differ.DiffFile(c.fileStates[path], result)
	if diff.Skipped {
		return nil, nil
	}
	c.fileStates[path] = &differ.FileState{ContentHash: result.ContentHash, Symbols: result.Symbols}

	var conflicts []*conflict.Record
	for _, sd := range diff.SymbolDiffs {
		rec, err := c.applySymbolDiff(ctx, op, sd)
		if err != nil {
			return conflicts, err
		}
		if rec != nil {
			conflicts = append(conflicts, rec)
		}
	}

	if result.File != nil {
		if err := c.Graph.CreateEntity(ctx, result.File); err != nil {
			return conflicts, err
		}
	}

	if diff.ReplaceRelationships {
		for _, rel := range result.Relationships {
			if err := c.Graph.UpsertRelationship(ctx, rel); err != nil {
				return conflicts, err
			}
			op.Counters.RelationshipsCreated++
		}
	}

	return conflicts, nil
}

func (c *Context) applySymbolDiff(ctx context.Context, op *syncpkg.Operation, sd differ.SymbolDiff) (*conflict.Record, error) {
	switch sd.Change {
	case differ.SymbolAdded:
		if err := c.Graph.CreateEntity(ctx, sd.After); err != nil {
			return nil, err
		}
		op.Counters.EntitiesCreated++
	case differ.SymbolModified:
		current, err := c.Graph.GetEntity(ctx, sd.After.EntityID())
		if err == nil {
			rec, detectErr := c.Conflicts.Detect(sd.After.EntityID(), conflict.TargetEntity, conflict.ActionUpsert, current, sd.After)
			if detectErr != nil {
				return nil, detectErr
			}
			if rec != nil && !rec.ManualOverride {
				resolution, resolveErr := c.Strategies.Resolve(rec)
				if resolveErr != nil {
					return rec, resolveErr
				}
				if patch, ok := resolution.Value.(map[string]any); ok {
					if err := c.Graph.UpdateEntity(ctx, sd.After.EntityID(), patch); err != nil {
						return rec, err
					}
					op.Counters.EntitiesUpdated++
					return rec, nil
				}
			}
		}
		if err := c.Graph.UpdateEntity(ctx, sd.After.EntityID(), symbolPatch(sd.After)); err != nil {
			return nil, err
		}
		op.Counters.EntitiesUpdated++
	case differ.SymbolRemoved:
		if err := c.Graph.DeleteEntity(ctx, sd.Before.EntityID()); err != nil {
			return nil, err
		}
		op.Counters.EntitiesDeleted++
	}
	return nil, nil
}

func symbolPatch(sym *entity.Symbol) map[string]any {
	return map[string]any{
		"Name":        sym.Name,
		"Signature":   sym.Signature,
		"Docstring":   sym.Docstring,
		"ContentHash": sym.ContentHash,
	}
}
