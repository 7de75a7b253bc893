// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphsvc

import (
	"context"

	"github.com/kraklabs/kgsync/kg/storage"
)

// fakeGraph is an in-memory storage.PropertyGraph for unit tests.
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

func (f *fakeGraph) DeleteNode(ctx context.Context, id string) error {
	delete(f.nodes, id)
	return nil
}

func (f *fakeGraph) DeleteEdge(ctx context.Context, id string) error {
	delete(f.edges, id)
	return nil
}

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

// fakeVectors is an in-memory storage.VectorStore for unit tests.
type fakeVectors struct {
	records map[string][]storage.VectorRecord
}

func newFakeVectors() *fakeVectors {
	return &fakeVectors{records: map[string][]storage.VectorRecord{}}
}

func (f *fakeVectors) CreateCollection(ctx context.Context, name string, size int, distance string) error {
	return nil
}

func (f *fakeVectors) Upsert(ctx context.Context, collection string, record storage.VectorRecord) error {
	recs := f.records[collection]
	for i, r := range recs {
		if r.ID == record.ID {
			recs[i] = record
			f.records[collection] = recs
			return nil
		}
	}
	f.records[collection] = append(recs, record)
	return nil
}

func (f *fakeVectors) Search(ctx context.Context, collection string, vector []float32, limit int, filter storage.VectorFilter) ([]storage.VectorSearchResult, error) {
	var out []storage.VectorSearchResult
	for _, r := range f.records[collection] {
		out = append(out, storage.VectorSearchResult{Record: r, Score: 1.0})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeVectors) Delete(ctx context.Context, collection string, filter storage.VectorFilter) error {
	entityID, _ := filter["entityId"].(string)
	var kept []storage.VectorRecord
	for _, r := range f.records[collection] {
		if v, _ := r.Payload["entityId"].(string); v != entityID {
			kept = append(kept, r)
		}
	}
	f.records[collection] = kept
	return nil
}

var _ storage.VectorStore = (*fakeVectors)(nil)

// fakeEmbed is a deterministic stand-in embedprovider.Provider.
type fakeEmbed struct{}

func (fakeEmbed) Embed(ctx context.Context, content string) ([]float32, error) {
	return []float32{float32(len(content))}, nil
}
