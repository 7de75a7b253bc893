// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/kgsync/kg/entity"
	"github.com/kraklabs/kgsync/kg/relationship"
	"github.com/kraklabs/kgsync/kg/rollback"
	"github.com/kraklabs/kgsync/kg/storage"
)

// fakeStore is a minimal rollback.EntityStore + RelationshipStore for
// coordinator tests; it never actually needs to reverse anything since
// these tests assert on Operation/event outcomes, not rollback content.
type fakeStore struct{}

func (fakeStore) GetEntity(ctx context.Context, id string) (entity.Entity, error) {
	return nil, storage.ErrNotFound
}
func (fakeStore) CreateEntity(ctx context.Context, e entity.Entity) error { return nil }
func (fakeStore) UpdateEntity(ctx context.Context, id string, patch map[string]any) error {
	return nil
}
func (fakeStore) DeleteEntity(ctx context.Context, id string) error { return nil }
func (fakeStore) AllEntities(ctx context.Context) ([]entity.Entity, error) { return nil, nil }

func (fakeStore) GetRelationship(ctx context.Context, id string) (*relationship.Relationship, error) {
	return nil, storage.ErrNotFound
}
func (fakeStore) UpsertRelationship(ctx context.Context, rel *relationship.Relationship) error {
	return nil
}
func (fakeStore) DeleteRelationship(ctx context.Context, id string) error { return nil }
func (fakeStore) AllRelationships(ctx context.Context) ([]*relationship.Relationship, error) {
	return nil, nil
}

func newTestCoordinator() (*Coordinator, *Emitter) {
	store := fakeStore{}
	rb := rollback.NewManager(store, store, 10)
	emitter := NewEmitter(100)
	retry := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffFactor: 2, JitterFactor: 0}
	return NewCoordinator(rb, emitter, retry), emitter
}

func TestRun_SuccessMarksCompletedAndDiscardsRollbackPoint(t *testing.T) {
	coord, emitter := newTestCoordinator()
	var events []EventType
	emitter.Subscribe(func(e Event) { events = append(events, e.Type) })

	op, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
		op.Counters.FilesProcessed = 3
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, StatusCompleted, op.Status)
	require.Equal(t, 3, op.Counters.FilesProcessed)
	require.Contains(t, events, EventOperationStarted)
	require.Contains(t, events, EventOperationCompleted)

	_, stillOpen := coord.rollback.Point(op.RollbackPointID)
	require.False(t, stillOpen)
}

func TestRun_NonRetryableErrorFailsAndRollsBackImmediately(t *testing.T) {
	coord, emitter := newTestCoordinator()
	var events []EventType
	emitter.Subscribe(func(e Event) { events = append(events, e.Type) })

	attempts := 0
	boom := errors.New("boom")
	op, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
		attempts++
		return boom
	})

	require.ErrorIs(t, err, boom)
	require.Equal(t, StatusFailed, op.Status)
	require.Equal(t, 1, attempts, "non-retryable errors must not be retried")
	require.Contains(t, events, EventOperationFailed)
	require.Contains(t, events, EventRollbackStarted)
	require.Contains(t, events, EventRollbackFinished)
}

func TestRun_StorageUnavailableRetriesThenFails(t *testing.T) {
	coord, _ := newTestCoordinator()

	attempts := 0
	op, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
		attempts++
		return storage.ErrUnavailable
	})

	require.ErrorIs(t, err, storage.ErrUnavailable)
	require.Equal(t, StatusFailed, op.Status)
	require.Equal(t, 3, attempts, "should exhaust MaxAttempts before giving up")
}

func TestRun_StorageUnavailableSucceedsOnRetry(t *testing.T) {
	coord, _ := newTestCoordinator()

	attempts := 0
	op, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
		attempts++
		if attempts < 2 {
			return storage.ErrUnavailable
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, StatusCompleted, op.Status)
	require.Equal(t, 2, attempts)
}

func TestCancel_StopsOperationDuringBackoffWait(t *testing.T) {
	store := fakeStore{}
	rb := rollback.NewManager(store, store, 10)
	emitter := NewEmitter(100)
	// A long backoff so the test has time to call Cancel mid-wait.
	retry := RetryConfig{MaxAttempts: 5, InitialBackoff: 200 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 1, JitterFactor: 0}
	coord := NewCoordinator(rb, emitter, retry)

	opStarted := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		op, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
			select {
			case opStarted <- op.ID:
			default:
			}
			return storage.ErrUnavailable
		})
		_ = op
		done <- err
	}()

	opID := <-opStarted
	coord.Cancel(opID)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not finish after cancel")
	}
}

func TestMultipleRuns_UseDistinctRollbackPointIDs(t *testing.T) {
	coord, _ := newTestCoordinator()

	op1, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
		return nil
	})
	require.NoError(t, err)

	op2, err := coord.Run(context.Background(), "sync", rollback.ChangeBased, nil, func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error {
		return nil
	})
	require.NoError(t, err)

	require.NotEqual(t, op1.RollbackPointID, op2.RollbackPointID)
}
