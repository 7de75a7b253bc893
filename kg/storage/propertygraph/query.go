// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package propertygraph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/kraklabs/kgsync/kg/storage"
)

var _ storage.GraphQuery = (*Adapter)(nil)

// FindPaths enumerates up to 10 bounded paths between start and an
// optional end node, each no longer than maxDepth hops, optionally
// restricted to the given relationship types. Path reconstruction runs
// a bounded DFS over the adjacency built from the edge set; Mangle's
// Datalog fixpoint (used by Traverse below) proves reachability well
// but doesn't naturally enumerate the intermediate node sequence a
// caller needs to render a path, so FindPaths walks the graph directly.
func (a *Adapter) FindPaths(ctx context.Context, start, end string, types []string, maxDepth int) ([]storage.PathResult, error) {
	if maxDepth <= 0 || maxDepth > 5 {
		maxDepth = 5
	}
	edges, err := a.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	edges = filterByType(edges, types)

	adjacency := buildAdjacency(edges)

	var results []storage.PathResult
	visited := map[string]bool{start: true}
	var walk func(node string, nodes, edgeIDs []string)
	walk = func(node string, nodes, edgeIDs []string) {
		if len(results) >= 10 {
			return
		}
		if end != "" && node == end && len(nodes) > 1 {
			results = append(results, storage.PathResult{Nodes: append([]string{}, nodes...), Edges: append([]string{}, edgeIDs...)})
			return
		}
		if end == "" && len(nodes) > 1 {
			results = append(results, storage.PathResult{Nodes: append([]string{}, nodes...), Edges: append([]string{}, edgeIDs...)})
		}
		if len(nodes) > maxDepth {
			return
		}
		for _, ref := range adjacency[node] {
			if visited[ref.to] {
				continue
			}
			visited[ref.to] = true
			walk(ref.to, append(nodes, ref.to), append(edgeIDs, ref.id))
			visited[ref.to] = false
			if len(results) >= 10 {
				return
			}
		}
	}
	walk(start, []string{start}, nil)

	sort.Slice(results, func(i, j int) bool { return len(results[i].Nodes) < len(results[j].Nodes) })
	if len(results) > 10 {
		results = results[:10]
	}
	return results, nil
}

// Traverse returns up to limit distinct node ids reachable from start
// within maxDepth hops, optionally restricted to the given
// relationship types. It evaluates a small generated Mangle program
// (reach_1 .. reach_maxDepth, unioned into `reachable`) rather than a
// manual BFS, so the bound on depth and the edge-type filter are
// expressed declaratively instead of threaded through loop state.
func (a *Adapter) Traverse(ctx context.Context, start string, types []string, maxDepth, limit int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if limit <= 0 {
		limit = 50
	}
	edges, err := a.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	edges = filterByType(edges, types)

	store := factstore.NewSimpleInMemoryStore()
	for _, e := range edges {
		store.Add(ast.NewAtom("edge", ast.String(e.From), ast.String(e.To)))
	}

	program := buildReachabilityProgram(maxDepth)
	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("propertygraph: compile traversal program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("propertygraph: analyze traversal program: %w", err)
	}
	if _, err := engine.EvalProgramWithStats(info, store); err != nil {
		return nil, fmt.Errorf("propertygraph: evaluate traversal program: %w", err)
	}

	pred := ast.PredicateSym{Symbol: "reachable", Arity: 2}
	query := ast.NewQuery(pred)

	seen := map[string]bool{}
	var out []string
	err = store.GetFacts(query, func(atom ast.Atom) error {
		from := termString(atom.Args[0])
		to := termString(atom.Args[1])
		if from != start || seen[to] || to == start {
			return nil
		}
		seen[to] = true
		out = append(out, to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// buildReachabilityProgram generates reach_1(X,Y) :- edge(X,Y), then
// reach_N(X,Y) :- reach_(N-1)(X,Z), edge(Z,Y) up to maxDepth, and
// unions every level into `reachable`.
func buildReachabilityProgram(maxDepth int) string {
	var b strings.Builder
	b.WriteString("reach_1(X, Y) :- edge(X, Y).\n")
	for n := 2; n <= maxDepth; n++ {
		fmt.Fprintf(&b, "reach_%d(X, Y) :- reach_%d(X, Z), edge(Z, Y).\n", n, n-1)
	}
	for n := 1; n <= maxDepth; n++ {
		fmt.Fprintf(&b, "reachable(X, Y) :- reach_%d(X, Y).\n", n)
	}
	return b.String()
}

type edgeRef struct {
	to string
	id string
}

func buildAdjacency(edges []storage.Edge) map[string][]edgeRef {
	adj := make(map[string][]edgeRef)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], edgeRef{to: e.To, id: e.ID})
	}
	for k := range adj {
		sort.Slice(adj[k], func(i, j int) bool { return adj[k][i].id < adj[k][j].id })
	}
	return adj
}

// termString extracts the string value of a ground Mangle string
// constant produced by our own fact insertion; every atom this package
// queries was built exclusively from ast.String(...) terms.
func termString(term ast.BaseTerm) string {
	c, ok := term.(ast.Constant)
	if !ok || c.Type != ast.StringType {
		return ""
	}
	return c.Symbol
}

func filterByType(edges []storage.Edge, types []string) []storage.Edge {
	if len(types) == 0 {
		return edges
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	out := edges[:0:0]
	for _, e := range edges {
		if allowed[e.Type] {
			out = append(out, e)
		}
	}
	return out
}
