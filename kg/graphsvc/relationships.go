// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphsvc

import (
	"context"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/storage"
)

// GetRelationship fetches and re-hydrates a single edge by id.
func (s *Service) GetRelationship(ctx context.Context, id string) (*relationship.Relationship, error) {
	edge, found, err := s.graph.GetEdge(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	return fromEdge(edge)
}

// DeleteRelationship removes a single edge without touching the nodes
// it connects.
func (s *Service) DeleteRelationship(ctx context.Context, id string) error {
	return s.graph.DeleteEdge(ctx, id)
}

// AllEntities hydrates every node currently in the graph. Used by
// state-based rollback snapshots and other full-scan consumers.
func (s *Service) AllEntities(ctx context.Context) ([]entity.Entity, error) {
	nodes, err := s.graph.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.Entity, 0, len(nodes))
	for _, n := range nodes {
		e, err := fromNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// AllRelationships hydrates every edge currently in the graph.
func (s *Service) AllRelationships(ctx context.Context) ([]*relationship.Relationship, error) {
	edges, err := s.graph.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*relationship.Relationship, 0, len(edges))
	for _, e := range edges {
		rel, err := fromEdge(e)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}
