// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphsvc is the Knowledge Graph Service: CRUD over entities,
// idempotent relationship upsert, bounded structural queries, and
// vector-backed semantic search, layered over the narrow storage
// adapter contracts rather than any one backend.
package graphsvc

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/kgsync/kg/embedprovider"
	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/storage"
)

// Service is the Knowledge Graph Service.
type Service struct {
	graph   storage.PropertyGraph
	vectors storage.VectorStore
	embed   embedprovider.Provider
}

// New wires a Service over the given adapters. embed may be nil, in
// which case vector maintenance is skipped and SemanticSearch returns
// an error.
func New(graph storage.PropertyGraph, vectors storage.VectorStore, embed embedprovider.Provider) *Service {
	return &Service{graph: graph, vectors: vectors, embed: embed}
}

// CreateEntity stores a new entity node and, if an embedding provider
// is configured, its vector record in the code collection
// (storage.CollectionCode, "code_embeddings").
func (s *Service) CreateEntity(ctx context.Context, e entity.Entity) error {
	node, err := toNode(e)
	if err != nil {
		return err
	}
	if err := s.graph.BulkUpsertNodes(ctx, []storage.Node{node}); err != nil {
		return err
	}
	return s.upsertVector(ctx, e)
}

// GetEntity fetches a node and re-hydrates it into the matching
// concrete entity.Entity type.
func (s *Service) GetEntity(ctx context.Context, id string) (entity.Entity, error) {
	node, found, err := s.graph.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	return fromNode(node)
}

// UpdateEntity applies a property patch to an existing entity and
// re-embeds it.
func (s *Service) UpdateEntity(ctx context.Context, id string, patch map[string]any) error {
	node, found, err := s.graph.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return storage.ErrNotFound
	}
	if node.Properties == nil {
		node.Properties = map[string]any{}
	}
	for k, v := range patch {
		node.Properties[k] = v
	}
	if err := s.graph.BulkUpsertNodes(ctx, []storage.Node{node}); err != nil {
		return err
	}
	e, err := fromNode(node)
	if err != nil {
		return err
	}
	return s.upsertVector(ctx, e)
}

// DeleteEntity removes every edge incident to id, then the node, then
// its vector record, in that order -- so a crash mid-delete never
// leaves a dangling edge pointing at a node that no longer exists.
func (s *Service) DeleteEntity(ctx context.Context, id string) error {
	out, err := s.graph.EdgesFrom(ctx, id)
	if err != nil {
		return err
	}
	in, err := s.graph.EdgesTo(ctx, id)
	if err != nil {
		return err
	}
	for _, e := range append(out, in...) {
		if err := s.graph.DeleteEdge(ctx, e.ID); err != nil {
			return err
		}
	}
	if err := s.graph.DeleteNode(ctx, id); err != nil {
		return err
	}
	if s.vectors == nil {
		return nil
	}
	for _, collection := range []string{storage.CollectionCode, storage.CollectionDocumentation, storage.CollectionIntegrationTests} {
		if err := s.vectors.Delete(ctx, collection, storage.VectorFilter{"entityId": id}); err != nil {
			return err
		}
	}
	return nil
}

// UpsertRelationship folds rel into the persisted edge with the same
// deterministic id, via relationship.Merge, and writes the merged
// result back. A first-seen relationship is stored as-is.
func (s *Service) UpsertRelationship(ctx context.Context, rel *relationship.Relationship) error {
	existing, found, err := s.graph.GetEdge(ctx, rel.ID)
	if err != nil {
		return err
	}
	if found {
		prior, err := fromEdge(existing)
		if err != nil {
			return err
		}
		prior.Merge(rel)
		rel = prior
	}
	edge, err := toEdge(rel)
	if err != nil {
		return err
	}
	return s.graph.BulkUpsertEdges(ctx, []storage.Edge{edge})
}

// entityVectorID hashes an entity id into a stable numeric id, used as
// the external vector-store id for engines that require a numeric key.
func entityVectorID(id string) uint64 {
	sum := sha256.Sum256([]byte(id))
	return binary.BigEndian.Uint64(sum[:8])
}

func (s *Service) upsertVector(ctx context.Context, e entity.Entity) error {
	if s.vectors == nil || s.embed == nil {
		return nil
	}
	content := vectorizableContent(e)
	if content == "" {
		return nil
	}
	vec, err := s.embed.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("graphsvc: embed entity %s: %w", e.EntityID(), err)
	}
	return s.vectors.Upsert(ctx, storage.CollectionCode, storage.VectorRecord{
		ID:     fmt.Sprintf("%d", entityVectorID(e.EntityID())),
		Vector: vec,
		Payload: map[string]any{
			"entityId": e.EntityID(),
			"kind":     e.EntityKind().String(),
			"path":     e.EntityPath(),
		},
	})
}

// vectorizableContent extracts the text a semantic search should match
// against. Only kinds with meaningful free text are embedded; a bare
// Directory or Vulnerability record has nothing worth vectorizing.
func vectorizableContent(e entity.Entity) string {
	switch v := e.(type) {
	case *entity.Symbol:
		return v.Name + " " + v.Signature + " " + v.Docstring
	case *entity.Documentation:
		return v.Title
	case *entity.Test:
		return v.TargetSymbol
	default:
		return ""
	}
}

func toNode(e entity.Entity) (storage.Node, error) {
	props, err := entityToProperties(e)
	if err != nil {
		return storage.Node{}, err
	}
	return storage.Node{ID: e.EntityID(), Kind: e.EntityKind().String(), Properties: props}, nil
}

func entityToProperties(e entity.Entity) (map[string]any, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var props map[string]any
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func fromNode(node storage.Node) (entity.Entity, error) {
	b, err := json.Marshal(node.Properties)
	if err != nil {
		return nil, err
	}
	switch node.Kind {
	case entity.KindFile.String():
		var f entity.File
		return &f, json.Unmarshal(b, &f)
	case entity.KindDirectory.String():
		var d entity.Directory
		return &d, json.Unmarshal(b, &d)
	case entity.KindSymbol.String():
		var sym entity.Symbol
		return &sym, json.Unmarshal(b, &sym)
	case entity.KindTest.String():
		var t entity.Test
		return &t, json.Unmarshal(b, &t)
	case entity.KindDocumentation.String():
		var d entity.Documentation
		return &d, json.Unmarshal(b, &d)
	case entity.KindBusinessDomain.String():
		var bd entity.BusinessDomain
		return &bd, json.Unmarshal(b, &bd)
	case entity.KindSecurityIssue.String():
		var si entity.SecurityIssue
		return &si, json.Unmarshal(b, &si)
	case entity.KindVulnerability.String():
		var v entity.Vulnerability
		return &v, json.Unmarshal(b, &v)
	default:
		return nil, fmt.Errorf("graphsvc: unknown entity kind %q", node.Kind)
	}
}

func toEdge(rel *relationship.Relationship) (storage.Edge, error) {
	b, err := json.Marshal(rel)
	if err != nil {
		return storage.Edge{}, err
	}
	var props map[string]any
	if err := json.Unmarshal(b, &props); err != nil {
		return storage.Edge{}, err
	}
	return storage.Edge{ID: rel.ID, From: rel.From, To: rel.To, Type: string(rel.Type), Properties: props}, nil
}

func fromEdge(edge storage.Edge) (*relationship.Relationship, error) {
	b, err := json.Marshal(edge.Properties)
	if err != nil {
		return nil, err
	}
	var rel relationship.Relationship
	if err := json.Unmarshal(b, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}
