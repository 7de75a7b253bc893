// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vectorstore

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/kraklabs/kgsync/kg/storage"
)

// WeaviateAdapter is the clustered storage.VectorStore backend, used
// when the deployment has a real Weaviate endpoint rather than the
// embedded sqlite-vec store.
type WeaviateAdapter struct {
	client *weaviate.Client
}

var _ storage.VectorStore = (*WeaviateAdapter)(nil)

// NewWeaviateAdapter wraps an already-constructed client.
func NewWeaviateAdapter(client *weaviate.Client) *WeaviateAdapter {
	return &WeaviateAdapter{client: client}
}

// DialWeaviate builds a client from a host/scheme pair, the same shape
// orchestrator's startup path uses (e.g. host="localhost:8080", scheme="http").
func DialWeaviate(host, scheme string) (*WeaviateAdapter, error) {
	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("vectorstore: create weaviate client: %w", err)
	}
	return &WeaviateAdapter{client: client}, nil
}

func className(collection string) string {
	// Weaviate class names must start with an uppercase letter.
	if collection == "" {
		return "Kgsync"
	}
	return "Kgsync_" + collection
}

func (a *WeaviateAdapter) CreateCollection(ctx context.Context, name string, size int, distance string) error {
	cls := className(name)
	if _, err := a.client.Schema().ClassGetter().WithClassName(cls).Do(ctx); err == nil {
		return nil
	}
	indexFilterable := true
	schema := &models.Class{
		Class:      cls,
		Vectorizer: "none",
		VectorIndexConfig: map[string]any{
			"distance": distance,
		},
		Properties: []*models.Property{
			{Name: "entityId", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "kind", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "path", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "language", DataType: []string{"text"}, IndexFilterable: &indexFilterable, Tokenization: "field"},
			{Name: "lastModified", DataType: []string{"int"}},
		},
	}
	if err := a.client.Schema().ClassCreator().WithClass(schema).Do(ctx); err != nil {
		return fmt.Errorf("vectorstore: create class %s: %w", cls, err)
	}
	return nil
}

func (a *WeaviateAdapter) Upsert(ctx context.Context, collection string, record storage.VectorRecord) error {
	cls := className(collection)

	existing, err := a.findByRecordID(ctx, cls, record.ID)
	if err != nil {
		return err
	}
	if existing != "" {
		if err := a.client.Data().Deleter().WithClassName(cls).WithID(existing).Do(ctx); err != nil {
			return fmt.Errorf("vectorstore: delete stale record before upsert: %w", err)
		}
	}

	props := map[string]any{"entityId": record.ID}
	for k, v := range record.Payload {
		props[k] = v
	}
	_, err = a.client.Data().Creator().
		WithClassName(cls).
		WithProperties(props).
		WithVector(record.Vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("vectorstore: upsert into %s: %w", cls, err)
	}
	return nil
}

func (a *WeaviateAdapter) findByRecordID(ctx context.Context, cls, entityID string) (string, error) {
	where := filters.Where().WithPath([]string{"entityId"}).WithOperator(filters.Equal).WithValueString(entityID)
	fields := []graphql.Field{{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}}}
	resp, err := a.client.GraphQL().Get().WithClassName(cls).WithWhere(where).WithFields(fields...).WithLimit(1).Do(ctx)
	if err != nil {
		return "", fmt.Errorf("vectorstore: lookup by entityId: %w", err)
	}
	return firstAdditionalID(resp, cls), nil
}

func (a *WeaviateAdapter) Search(ctx context.Context, collection string, vector []float32, limit int, filter storage.VectorFilter) ([]storage.VectorSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	cls := className(collection)
	nearVector := a.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "entityId"}, {Name: "kind"}, {Name: "path"}, {Name: "language"}, {Name: "lastModified"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}, {Name: "id"}}},
	}
	builder := a.client.GraphQL().Get().WithClassName(cls).WithFields(fields...).WithNearVector(nearVector).WithLimit(limit)
	if where := filterToWhere(filter); where != nil {
		builder = builder.WithWhere(where)
	}

	resp, err := builder.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search %s: %w", cls, err)
	}
	return parseSearchResults(resp, cls), nil
}

func (a *WeaviateAdapter) Delete(ctx context.Context, collection string, filter storage.VectorFilter) error {
	cls := className(collection)
	where := filterToWhere(filter)
	if where == nil {
		return fmt.Errorf("vectorstore: delete requires at least one filter key")
	}
	_, err := a.client.Batch().ObjectsBatchDeleter().WithClassName(cls).WithWhere(where).Do(ctx)
	if err != nil {
		return fmt.Errorf("vectorstore: delete from %s: %w", cls, err)
	}
	return nil
}

func filterToWhere(filter storage.VectorFilter) *filters.WhereBuilder {
	var clauses []*filters.WhereBuilder
	for k, v := range filter {
		s, ok := v.(string)
		if !ok {
			continue
		}
		clauses = append(clauses, filters.Where().WithPath([]string{k}).WithOperator(filters.Equal).WithValueString(s))
	}
	switch len(clauses) {
	case 0:
		return nil
	case 1:
		return clauses[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(clauses)
	}
}
