// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rollback

import (
	"context"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/storage"
)

// fakeStore is an in-memory EntityStore + RelationshipStore for tests.
type fakeStore struct {
	entities map[string]entity.Entity
	rels     map[string]*relationship.Relationship
}

func newFakeStore() *fakeStore {
	return &fakeStore{entities: map[string]entity.Entity{}, rels: map[string]*relationship.Relationship{}}
}

func (f *fakeStore) GetEntity(ctx context.Context, id string) (entity.Entity, error) {
	e, ok := f.entities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

func (f *fakeStore) CreateEntity(ctx context.Context, e entity.Entity) error {
	f.entities[e.EntityID()] = e
	return nil
}

func (f *fakeStore) UpdateEntity(ctx context.Context, id string, patch map[string]any) error {
	e, ok := f.entities[id]
	if !ok {
		return storage.ErrNotFound
	}
	if sym, ok := e.(*entity.Symbol); ok {
		if name, ok := patch["Name"].(string); ok {
			sym.Name = name
		}
	}
	return nil
}

func (f *fakeStore) DeleteEntity(ctx context.Context, id string) error {
	delete(f.entities, id)
	return nil
}

func (f *fakeStore) AllEntities(ctx context.Context) ([]entity.Entity, error) {
	out := make([]entity.Entity, 0, len(f.entities))
	for _, e := range f.entities {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) GetRelationship(ctx context.Context, id string) (*relationship.Relationship, error) {
	r, ok := f.rels[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) UpsertRelationship(ctx context.Context, rel *relationship.Relationship) error {
	f.rels[rel.ID] = rel
	return nil
}

func (f *fakeStore) DeleteRelationship(ctx context.Context, id string) error {
	delete(f.rels, id)
	return nil
}

func (f *fakeStore) AllRelationships(ctx context.Context) ([]*relationship.Relationship, error) {
	out := make([]*relationship.Relationship, 0, len(f.rels))
	for _, r := range f.rels {
		out = append(out, r)
	}
	return out, nil
}

var (
	_ EntityStore       = (*fakeStore)(nil)
	_ RelationshipStore = (*fakeStore)(nil)
)

// failingStore wraps a fakeStore and forces DeleteEntity to fail for a
// single id, so tests can exercise partial-failure reporting.
type failingStore struct {
	*fakeStore
	failDeleteID string
}

func (f *failingStore) DeleteEntity(ctx context.Context, id string) error {
	if id == f.failDeleteID {
		return storage.ErrUnavailable
	}
	return f.fakeStore.DeleteEntity(ctx, id)
}
