// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphsvc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kraklabs/kgsync/kg/storage"
)

// FindPaths delegates to the property graph's bounded path search,
// capped at the documented defaults (maxDepth=5, 10 results).
func (s *Service) FindPaths(ctx context.Context, start, end string, types []string, maxDepth int) ([]storage.PathResult, error) {
	q, ok := s.graph.(storage.GraphQuery)
	if !ok {
		return nil, fmt.Errorf("graphsvc: configured property graph adapter does not support path queries")
	}
	if maxDepth <= 0 || maxDepth > 5 {
		maxDepth = 5
	}
	return q.FindPaths(ctx, start, end, types, maxDepth)
}

// Traverse delegates to the property graph's bounded traversal,
// capped at the documented defaults (maxDepth=3, limit=50).
func (s *Service) Traverse(ctx context.Context, start string, types []string, maxDepth, limit int) ([]string, error) {
	q, ok := s.graph.(storage.GraphQuery)
	if !ok {
		return nil, fmt.Errorf("graphsvc: configured property graph adapter does not support traversal queries")
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if limit <= 0 {
		limit = 50
	}
	return q.Traverse(ctx, start, types, maxDepth, limit)
}

// StructuralFilters narrows a structural_search call. Every field is
// optional; zero values impose no restriction.
type StructuralFilters struct {
	Types          []string
	PathContains   string
	Language       string
	ModifiedSince  int64
	ModifiedUntil  int64
	Limit          int
}

// StructuralSearch scans every node and returns those matching every
// configured filter. Kept as a full scan rather than a query pushdown
// since storage.PropertyGraph makes no promise about secondary
// indexes beyond adjacency; adapters with richer query support are
// free to shadow this with their own optimized path.
func (s *Service) StructuralSearch(ctx context.Context, filters StructuralFilters) ([]storage.Node, error) {
	nodes, err := s.graph.AllNodes(ctx)
	if err != nil {
		return nil, err
	}

	allowedKinds := make(map[string]bool, len(filters.Types))
	for _, t := range filters.Types {
		allowedKinds[t] = true
	}

	var out []storage.Node
	for _, n := range nodes {
		if len(allowedKinds) > 0 && !allowedKinds[n.Kind] {
			continue
		}
		if filters.PathContains != "" {
			path, _ := n.Properties["Path"].(string)
			if !strings.Contains(path, filters.PathContains) {
				continue
			}
		}
		if filters.Language != "" {
			lang, _ := n.Properties["Language"].(string)
			if lang != filters.Language {
				continue
			}
		}
		if filters.ModifiedSince != 0 || filters.ModifiedUntil != 0 {
			modified := lastModifiedMilli(n)
			if filters.ModifiedSince != 0 && modified < filters.ModifiedSince {
				continue
			}
			if filters.ModifiedUntil != 0 && modified > filters.ModifiedUntil {
				continue
			}
		}
		out = append(out, n)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func lastModifiedMilli(n storage.Node) int64 {
	switch v := n.Properties["LastModifiedMilli"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

// SemanticResult pairs a hydrated entity with its similarity score.
type SemanticResult struct {
	Entity any
	Score  float32
}

// SemanticSearch embeds query, searches the code collection
// (storage.CollectionCode, "code_embeddings"), and
// hydrates each hit by its entityId payload field.
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int) ([]SemanticResult, error) {
	if s.vectors == nil || s.embed == nil {
		return nil, fmt.Errorf("graphsvc: semantic search requires a vector store and an embedding provider")
	}
	vec, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.vectors.Search(ctx, storage.CollectionCode, vec, limit, nil)
	if err != nil {
		return nil, err
	}

	out := make([]SemanticResult, 0, len(hits))
	for _, hit := range hits {
		entityID, _ := hit.Record.Payload["entityId"].(string)
		if entityID == "" {
			continue
		}
		node, found, err := s.graph.GetNode(ctx, entityID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		e, err := fromNode(node)
		if err != nil {
			return nil, err
		}
		out = append(out, SemanticResult{Entity: e, Score: hit.Score})
	}
	return out, nil
}
