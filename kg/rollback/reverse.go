// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rollback

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/storage"
)

func entityToMap(e entity.Entity) (map[string]any, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// rollbackChangeBased replays p's mutation log in reverse order: a
// create reverses by deleting, an update by restoring PreviousState,
// a delete by recreating PreviousState. One mutation's failure does
// not stop the rest from being attempted.
func (m *Manager) rollbackChangeBased(ctx context.Context, p *Point) Report {
	report := Report{Success: true}

	for i := len(p.mutations) - 1; i >= 0; i-- {
		mut := p.mutations[i]
		var err error
		switch mut.Kind {
		case TargetEntity:
			err = m.reverseEntityMutation(ctx, mut)
		case TargetRelationship:
			err = m.reverseRelationshipMutation(ctx, mut)
		}
		if err != nil {
			report.Success = false
			report.Failed = append(report.Failed, FailedReversal{
				TargetID:    mut.TargetID,
				Err:         err,
				Recoverable: !errors.Is(err, storage.ErrUnavailable),
			})
			continue
		}
		report.Reversed = append(report.Reversed, mut.TargetID)
	}

	report.PartialSuccess = !report.Success && len(report.Reversed) > 0
	return report
}

func (m *Manager) reverseEntityMutation(ctx context.Context, mut Mutation) error {
	switch mut.Action {
	case ActionCreate:
		return m.entities.DeleteEntity(ctx, mut.TargetID)
	case ActionUpdate:
		patch, ok := mut.PreviousState.(map[string]any)
		if !ok {
			return nil
		}
		return m.entities.UpdateEntity(ctx, mut.TargetID, patch)
	case ActionDelete:
		e, ok := mut.PreviousState.(entity.Entity)
		if !ok {
			return nil
		}
		return m.entities.CreateEntity(ctx, e)
	}
	return nil
}

func (m *Manager) reverseRelationshipMutation(ctx context.Context, mut Mutation) error {
	switch mut.Action {
	case ActionCreate:
		return m.relationships.DeleteRelationship(ctx, mut.TargetID)
	case ActionUpdate, ActionDelete:
		rel, ok := mut.PreviousState.(*relationship.Relationship)
		if !ok {
			return nil
		}
		return m.relationships.UpsertRelationship(ctx, rel)
	}
	return nil
}

// rollbackStateBased diffs the snapshot against current state:
// entities/relationships present now but absent from the snapshot are
// deleted, and every entity/relationship in the snapshot is written
// back, whether or not it changed since the snapshot was taken.
func (m *Manager) rollbackStateBased(ctx context.Context, p *Point) (Report, error) {
	report := Report{Success: true}

	currentEntities, err := m.entities.AllEntities(ctx)
	if err != nil {
		return Report{}, err
	}
	currentByID := make(map[string]entity.Entity, len(currentEntities))
	inScope := make(map[string]bool, len(p.Scope))
	for _, id := range p.Scope {
		inScope[id] = true
	}
	for _, e := range currentEntities {
		if len(inScope) > 0 && !inScope[e.EntityID()] {
			continue
		}
		currentByID[e.EntityID()] = e
	}

	for id, snapEntity := range p.snapshot.Entities {
		if err := m.restoreEntity(ctx, id, snapEntity); err != nil {
			report.Success = false
			report.Failed = append(report.Failed, FailedReversal{TargetID: id, Err: err, Recoverable: !errors.Is(err, storage.ErrUnavailable)})
			continue
		}
		report.Reversed = append(report.Reversed, id)
	}
	for id := range currentByID {
		if _, inSnapshot := p.snapshot.Entities[id]; inSnapshot {
			continue
		}
		if err := m.entities.DeleteEntity(ctx, id); err != nil {
			report.Success = false
			report.Failed = append(report.Failed, FailedReversal{TargetID: id, Err: err, Recoverable: !errors.Is(err, storage.ErrUnavailable)})
			continue
		}
		report.Reversed = append(report.Reversed, id)
	}

	currentRels, err := m.relationships.AllRelationships(ctx)
	if err != nil {
		return Report{}, err
	}
	currentRelByID := make(map[string]*relationship.Relationship, len(currentRels))
	for _, r := range currentRels {
		if len(inScope) > 0 && !inScope[r.ID] {
			continue
		}
		currentRelByID[r.ID] = r
	}

	for id, snapRel := range p.snapshot.Relationships {
		if err := m.relationships.UpsertRelationship(ctx, snapRel); err != nil {
			report.Success = false
			report.Failed = append(report.Failed, FailedReversal{TargetID: id, Err: err, Recoverable: !errors.Is(err, storage.ErrUnavailable)})
			continue
		}
		report.Reversed = append(report.Reversed, id)
	}
	for id := range currentRelByID {
		if _, inSnapshot := p.snapshot.Relationships[id]; inSnapshot {
			continue
		}
		if err := m.relationships.DeleteRelationship(ctx, id); err != nil {
			report.Success = false
			report.Failed = append(report.Failed, FailedReversal{TargetID: id, Err: err, Recoverable: !errors.Is(err, storage.ErrUnavailable)})
			continue
		}
		report.Reversed = append(report.Reversed, id)
	}

	report.PartialSuccess = !report.Success && len(report.Reversed) > 0
	return report, nil
}

func (m *Manager) restoreEntity(ctx context.Context, id string, want entity.Entity) error {
	_, err := m.entities.GetEntity(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return m.entities.CreateEntity(ctx, want)
	}
	if err != nil {
		return err
	}
	props, err := entityToMap(want)
	if err != nil {
		return err
	}
	return m.entities.UpdateEntity(ctx, id, props)
}
