// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sync is the Synchronization Coordinator: it runs a single
// parse/diff/graph-update pipeline as one Operation, snapshotting a
// rollback point before work starts, retrying storage hiccups with
// exponential backoff, and rolling back automatically on unrecoverable
// failure. The Monitor observes the Coordinator's events to derive
// running health and performance metrics.
package sync

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/kgsync/kg/rollback"
	"github.com/kraklabs/kgsync/kg/storage"
)

// RetryConfig configures the coordinator's retry-with-backoff behavior
// for storage-unavailable failures.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64
}

// DefaultRetryConfig mirrors the defaults used elsewhere in the stack
// for transient backend failures.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// Work is the caller-supplied pipeline body -- parse, diff, and apply
// to the graph service -- run under one Operation. cancelled is closed
// if the coordinator is asked to cancel the operation; Work should
// check it between files or major AST passes and return a non-nil
// error (Cancel does not cancel ctx, so ctx.Err() stays nil).
type Work func(ctx context.Context, op *Operation, cancelled <-chan struct{}) error

// Coordinator runs sync operations with rollback-point bracketing,
// retry-with-backoff on transient storage failures, and cooperative
// cancellation.
type Coordinator struct {
	rollback *rollback.Manager
	emitter  *Emitter
	retry    RetryConfig

	mu     sync.Mutex
	cancel map[string]chan struct{}
}

// NewCoordinator wires a Coordinator over the given rollback manager
// and event emitter.
func NewCoordinator(rb *rollback.Manager, emitter *Emitter, retry RetryConfig) *Coordinator {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Coordinator{
		rollback: rb,
		emitter:  emitter,
		retry:    retry,
		cancel:   map[string]chan struct{}{},
	}
}

// Run executes work as one Operation of the given type. scope narrows
// the rollback point (entity/relationship ids); an empty scope covers
// the whole graph. Each call mints its own operation/rollback-point id,
// so concurrent Run calls never share a rollback point.
func (c *Coordinator) Run(ctx context.Context, opType string, mode rollback.Mode, scope []string, work Work) (*Operation, error) {
	op := &Operation{
		ID:             uuid.NewString(),
		Type:           opType,
		StartTimeMilli: time.Now().UnixMilli(),
		Status:         StatusPending,
	}
	op.RollbackPointID = op.ID

	cancelled := c.registerCancel(op.ID)
	defer c.unregisterCancel(op.ID)

	if err := c.openRollbackPoint(ctx, op, mode, scope); err != nil {
		op.Status = StatusFailed
		op.EndTimeMilli = time.Now().UnixMilli()
		op.Errors = append(op.Errors, err.Error())
		c.emitter.Emit(EventOperationFailed, op.ID, err)
		return op, err
	}

	op.Status = StatusRunning
	c.emitter.Emit(EventOperationStarted, op.ID, nil)

	err := c.runWithRetry(ctx, op, cancelled, work)
	op.EndTimeMilli = time.Now().UnixMilli()

	if err == nil {
		op.Status = StatusCompleted
		c.rollback.Discard(op.RollbackPointID)
		c.emitter.Emit(EventOperationCompleted, op.ID, op.Counters)
		return op, nil
	}

	op.Status = StatusFailed
	op.Errors = append(op.Errors, err.Error())
	c.emitter.Emit(EventOperationFailed, op.ID, err)

	c.emitter.Emit(EventRollbackStarted, op.ID, nil)
	report, rbErr := c.rollback.Rollback(context.Background(), op.RollbackPointID)
	c.emitter.Emit(EventRollbackFinished, op.ID, report)
	if rbErr != nil {
		return op, fmt.Errorf("sync: operation %s failed (%w) and rollback also failed: %v", op.ID, err, rbErr)
	}
	return op, err
}

func (c *Coordinator) openRollbackPoint(ctx context.Context, op *Operation, mode rollback.Mode, scope []string) error {
	if mode == rollback.StateBased {
		_, err := c.rollback.BeginStateBased(ctx, op.RollbackPointID, scope)
		return err
	}
	c.rollback.BeginChangeBased(op.RollbackPointID, scope)
	return nil
}

// runWithRetry retries work only on errors wrapping storage.ErrUnavailable,
// with exponential backoff and jitter. Any other error, or cancellation,
// returns immediately.
func (c *Coordinator) runWithRetry(ctx context.Context, op *Operation, cancelled <-chan struct{}, work Work) error {
	backoff := c.retry.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		op.Attempts = attempt

		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := work(ctx, op, cancelled)
		if err == nil {
			return nil
		}
		lastErr = err

		if !errors.Is(err, storage.ErrUnavailable) {
			return err
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		wait := jitter(backoff, c.retry.JitterFactor)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-cancelled:
			return fmt.Errorf("sync: operation %s cancelled during backoff", op.ID)
		case <-time.After(wait):
		}
		backoff = nextBackoff(backoff, c.retry.BackoffFactor, c.retry.MaxBackoff)
	}

	return lastErr
}

func jitter(base time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return base
	}
	delta := (rand.Float64()*2 - 1) * factor
	return time.Duration(float64(base) * (1.0 + delta))
}

func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}

func (c *Coordinator) registerCancel(opID string) chan struct{} {
	ch := make(chan struct{})
	c.mu.Lock()
	c.cancel[opID] = ch
	c.mu.Unlock()
	return ch
}

func (c *Coordinator) unregisterCancel(opID string) {
	c.mu.Lock()
	delete(c.cancel, opID)
	c.mu.Unlock()
}

// Cancel requests cooperative cancellation of a running operation. It
// is a no-op if the operation is not currently running.
func (c *Coordinator) Cancel(opID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.cancel[opID]
	if !ok {
		return
	}
	select {
	case <-ch:
	default:
		close(ch)
	}
}
