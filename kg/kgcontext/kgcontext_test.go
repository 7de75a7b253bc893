// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package kgcontext

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/ids"
	"github.com/kraklabs/kgsync/kg/noise"
	"github.com/kraklabs/kgsync/kg/parser"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/resolve"
	"github.com/kraklabs/kgsync/kg/rollback"
	"github.com/kraklabs/kgsync/kg/storage"
)

// fakeGraph is a minimal in-memory storage.PropertyGraph, the same
// shape as graphsvc's own test double, kept local here since it's
// unexported there.
type fakeGraph struct {
	nodes map[string]storage.Node
	edges map[string]storage.Edge
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: map[string]storage.Node{}, edges: map[string]storage.Edge{}}
}

func (f *fakeGraph) Query(ctx context.Context, query string, params map[string]any) ([]storage.Row, error) {
	return nil, nil
}
func (f *fakeGraph) Command(ctx context.Context, args ...any) (any, error) { return nil, nil }
func (f *fakeGraph) BulkUpsertNodes(ctx context.Context, nodes []storage.Node) error {
	for _, n := range nodes {
		f.nodes[n.ID] = n
	}
	return nil
}
func (f *fakeGraph) BulkUpsertEdges(ctx context.Context, edges []storage.Edge) error {
	for _, e := range edges {
		f.edges[e.ID] = e
	}
	return nil
}
func (f *fakeGraph) DeleteNode(ctx context.Context, id string) error { delete(f.nodes, id); return nil }
func (f *fakeGraph) DeleteEdge(ctx context.Context, id string) error { delete(f.edges, id); return nil }
func (f *fakeGraph) GetNode(ctx context.Context, id string) (storage.Node, bool, error) {
	n, ok := f.nodes[id]
	return n, ok, nil
}
func (f *fakeGraph) GetEdge(ctx context.Context, id string) (storage.Edge, bool, error) {
	e, ok := f.edges[id]
	return e, ok, nil
}
func (f *fakeGraph) EdgesFrom(ctx context.Context, nodeID string) ([]storage.Edge, error) {
	var out []storage.Edge
	for _, e := range f.edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeGraph) EdgesTo(ctx context.Context, nodeID string) ([]storage.Edge, error) {
	var out []storage.Edge
	for _, e := range f.edges {
		if e.To == nodeID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeGraph) AllNodes(ctx context.Context) ([]storage.Node, error) {
	out := make([]storage.Node, 0, len(f.nodes))
	for _, n := range f.nodes {
		out = append(out, n)
	}
	return out, nil
}
func (f *fakeGraph) AllEdges(ctx context.Context) ([]storage.Edge, error) {
	out := make([]storage.Edge, 0, len(f.edges))
	for _, e := range f.edges {
		out = append(out, e)
	}
	return out, nil
}

var _ storage.PropertyGraph = (*fakeGraph)(nil)

func defaultParsers() []parser.Parser {
	return []parser.Parser{parser.NewGoParser(), parser.NewTypeScriptParser()}
}

// tsExists backs the Resolver's path probing with the real filesystem:
// a bare "./util" specifier only resolves once ".ts" is appended and
// the file is found on disk.
func tsExists() resolve.FileExistsFunc {
	return func(candidate string) bool {
		_, err := os.Stat(candidate)
		return err == nil
	}
}

func TestSync_SynthesizesDirectoriesWithContainsEdges(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "pkg", "main.go")
	if err := os.MkdirAll(filepath.Dir(mainPath), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mainPath, []byte("package pkg\n\nfunc Run() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	graph := newFakeGraph()
	resolver := resolve.NewResolver(resolve.AliasConfig{}, tsExists())
	c := New(Adapters{Graph: graph}, defaultParsers(), resolver, noise.Default())

	if _, err := c.Sync(context.Background(), []string{mainPath}, rollback.ChangeBased); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	dirID := ids.DirID(filepath.Dir(mainPath))
	fileID := ids.FileID(mainPath)
	if _, ok := graph.nodes[dirID]; !ok {
		t.Fatal("expected a synthesized Directory entity for the file's parent directory")
	}

	found := false
	for _, e := range graph.edges {
		if e.Type == string(relationship.Contains) && e.From == dirID && e.To == fileID {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a CONTAINS edge from the synthesized directory to main.go")
	}
}

func TestSync_CrossFileCallResolvesViaImport(t *testing.T) {
	dir := t.TempDir()
	utilPath := filepath.Join(dir, "util.ts")
	mainPath := filepath.Join(dir, "main.ts")
	if err := os.WriteFile(utilPath, []byte("export function helper() { return 1; }\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mainPath, []byte("import { helper } from './util';\nfunction main() { helper(); }\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	graph := newFakeGraph()
	resolver := resolve.NewResolver(resolve.AliasConfig{}, tsExists())
	c := New(Adapters{Graph: graph}, defaultParsers(), resolver, noise.Default())

	// util.ts first so its exports are already known to the context's
	// FileExportsProvider by the time main.ts's CALLS edge is resolved.
	if _, err := c.Sync(context.Background(), []string{utilPath, mainPath}, rollback.ChangeBased); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	var helperSymID string
	for _, n := range graph.nodes {
		if n.Kind == entity.KindSymbol.String() {
			if name, _ := n.Properties["Name"].(string); name == "helper" {
				helperSymID = n.ID
			}
		}
	}
	if helperSymID == "" {
		t.Fatal("expected a helper symbol node")
	}

	importFound := false
	for _, e := range graph.edges {
		if e.Type == string(relationship.Imports) && e.From == ids.FileID(mainPath) && e.To == ids.FileID(utilPath) {
			importFound = true
		}
	}
	if !importFound {
		t.Fatal("expected an IMPORTS edge from main.ts to util.ts")
	}

	callFound := false
	for _, e := range graph.edges {
		if e.Type != string(relationship.Calls) {
			continue
		}
		if !strings.HasPrefix(e.To, "file:"+utilPath+"#helper") {
			continue
		}
		callFound = true
		resolution, _ := e.Properties["Resolution"].(string)
		if resolution != string(relationship.ResolutionViaImport) {
			t.Fatalf("Resolution = %q, want via-import", resolution)
		}
	}
	if !callFound {
		t.Fatal("expected the CALLS edge from main() to be rewritten to file:util.ts#helper via cross-file import resolution")
	}
}
