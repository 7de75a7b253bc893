// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rollback captures a RollbackPoint at the start of every sync
// operation and reverses it on request, either by replaying a mutation
// log backward (change-based) or by diffing a snapshot against current
// state, deleting what the snapshot lacks and writing back every
// snapshot entry (state-based).
package rollback

import (
	"context"
	"fmt"
	"time"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/internal/ringbuffer"
	"github.com/kraklabs/kgsync/kg/relationship"
)

// Mode selects how a RollbackPoint records state.
type Mode int

const (
	// ChangeBased records each mutation as it happens and reverses
	// them in reverse-chronological order. Cheap to create, but only
	// covers mutations made after the point, not drift from elsewhere.
	ChangeBased Mode = iota
	// StateBased snapshots every entity and relationship in scope up
	// front and reverses by diffing current state against that
	// snapshot. More expensive to create, but self-contained.
	StateBased
)

// TargetKind discriminates what a Mutation or snapshot entry refers to.
type TargetKind int

const (
	TargetEntity TargetKind = iota
	TargetRelationship
)

// Action classifies a recorded mutation.
type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
)

// Mutation is one recorded change, enough to reverse itself: a create
// reverses by deleting, an update by restoring PreviousState, a delete
// by recreating PreviousState.
type Mutation struct {
	TargetID      string
	Kind          TargetKind
	Action        Action
	PreviousState any
	NewState      any
}

// Snapshot is the state-based capture of everything in a RollbackPoint's
// scope at creation time.
type Snapshot struct {
	Entities      map[string]entity.Entity
	Relationships map[string]*relationship.Relationship
}

// Point is a single rollback point: either a running mutation log
// (ChangeBased) or a point-in-time Snapshot (StateBased).
type Point struct {
	ID            string
	Mode          Mode
	CreatedAtMilli int64
	Scope         []string // entity/relationship ids the point covers; empty means unscoped

	mutations []Mutation
	snapshot  Snapshot
}

// Record appends a mutation to a ChangeBased point. No-op on a
// StateBased point, since its reversal is computed from the snapshot
// instead of replayed.
func (p *Point) Record(m Mutation) {
	if p.Mode != ChangeBased {
		return
	}
	p.mutations = append(p.mutations, m)
}

// FailedReversal describes one mutation or snapshot entry that could
// not be reversed.
type FailedReversal struct {
	TargetID    string
	Err         error
	Recoverable bool
}

// Report summarizes the outcome of a rollback attempt.
type Report struct {
	Success        bool
	PartialSuccess bool
	Reversed       []string
	Failed         []FailedReversal
}

// EntityStore is the narrow surface rollback needs to reverse entity
// mutations, satisfied by graphsvc.Service.
type EntityStore interface {
	GetEntity(ctx context.Context, id string) (entity.Entity, error)
	CreateEntity(ctx context.Context, e entity.Entity) error
	UpdateEntity(ctx context.Context, id string, patch map[string]any) error
	DeleteEntity(ctx context.Context, id string) error
	AllEntities(ctx context.Context) ([]entity.Entity, error)
}

// RelationshipStore is the narrow surface rollback needs to reverse
// relationship mutations, satisfied by graphsvc.Service.
type RelationshipStore interface {
	GetRelationship(ctx context.Context, id string) (*relationship.Relationship, error)
	UpsertRelationship(ctx context.Context, rel *relationship.Relationship) error
	DeleteRelationship(ctx context.Context, id string) error
	AllRelationships(ctx context.Context) ([]*relationship.Relationship, error)
}

// Manager creates and reverses RollbackPoints against a pair of
// EntityStore/RelationshipStore backends. A bounded ring buffer of
// recently created points is kept for inspection; points are otherwise
// addressed by id and must be retained by the caller (the sync
// coordinator) for the lifetime of the operation they guard.
type Manager struct {
	entities      EntityStore
	relationships RelationshipStore
	recent        *ringbuffer.Buffer[string]
	points        map[string]*Point
}

// NewManager wires a Manager over the given stores. recentCapacity
// bounds how many point ids the manager remembers having created.
func NewManager(entities EntityStore, relationships RelationshipStore, recentCapacity int) *Manager {
	if recentCapacity <= 0 {
		recentCapacity = 100
	}
	return &Manager{
		entities:      entities,
		relationships: relationships,
		recent:        ringbuffer.New[string](recentCapacity),
		points:        map[string]*Point{},
	}
}

// BeginChangeBased opens a new ChangeBased rollback point with the
// given id. id must be distinct from any other concurrently open point
// -- the sync coordinator is responsible for minting unique ids per
// operation.
func (m *Manager) BeginChangeBased(id string, scope []string) *Point {
	p := &Point{ID: id, Mode: ChangeBased, CreatedAtMilli: time.Now().UnixMilli(), Scope: scope}
	m.points[id] = p
	m.recent.Push(id)
	return p
}

// BeginStateBased opens a new StateBased rollback point, snapshotting
// every entity and relationship in scope. An empty scope snapshots the
// entire graph.
func (m *Manager) BeginStateBased(ctx context.Context, id string, scope []string) (*Point, error) {
	snap, err := m.captureSnapshot(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("rollback: capture snapshot for point %s: %w", id, err)
	}
	p := &Point{ID: id, Mode: StateBased, CreatedAtMilli: time.Now().UnixMilli(), Scope: scope, snapshot: snap}
	m.points[id] = p
	m.recent.Push(id)
	return p, nil
}

func (m *Manager) captureSnapshot(ctx context.Context, scope []string) (Snapshot, error) {
	snap := Snapshot{Entities: map[string]entity.Entity{}, Relationships: map[string]*relationship.Relationship{}}
	inScope := make(map[string]bool, len(scope))
	for _, id := range scope {
		inScope[id] = true
	}

	entities, err := m.entities.AllEntities(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, e := range entities {
		if len(inScope) > 0 && !inScope[e.EntityID()] {
			continue
		}
		snap.Entities[e.EntityID()] = e
	}

	rels, err := m.relationships.AllRelationships(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, r := range rels {
		if len(inScope) > 0 && !inScope[r.ID] {
			continue
		}
		snap.Relationships[r.ID] = r
	}

	return snap, nil
}

// Point returns a previously created point by id, if still retained.
func (m *Manager) Point(id string) (*Point, bool) {
	p, ok := m.points[id]
	return p, ok
}

// Discard drops a point once its guarded operation has completed
// successfully and no rollback will ever be needed.
func (m *Manager) Discard(id string) {
	delete(m.points, id)
}

// Rollback reverses the point with the given id.
func (m *Manager) Rollback(ctx context.Context, id string) (Report, error) {
	p, ok := m.points[id]
	if !ok {
		return Report{}, fmt.Errorf("rollback: no such point %s", id)
	}
	switch p.Mode {
	case ChangeBased:
		return m.rollbackChangeBased(ctx, p), nil
	case StateBased:
		return m.rollbackStateBased(ctx, p)
	default:
		return Report{}, fmt.Errorf("rollback: unknown mode %d for point %s", p.Mode, id)
	}
}
