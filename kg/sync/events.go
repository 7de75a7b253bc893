// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/kgsync/kg/internal/ringbuffer"
)

// EventType identifies the kind of coordinator event.
type EventType string

const (
	EventOperationStarted   EventType = "operation_started"
	EventOperationCompleted EventType = "operation_completed"
	EventOperationFailed    EventType = "operation_failed"
	EventRollbackStarted    EventType = "rollback_started"
	EventRollbackFinished   EventType = "rollback_finished"
)

// Event is one notification emitted by the Coordinator.
type Event struct {
	ID            string
	Type          EventType
	OperationID   string
	TimestampMilli int64
	Data          any
}

// Handler processes emitted events. Panics inside a Handler are
// recovered so one misbehaving subscriber cannot take down the
// coordinator.
type Handler func(event Event)

// Emitter broadcasts coordinator events to subscribers and keeps a
// bounded in-memory history.
type Emitter struct {
	mu            sync.RWMutex
	subscriptions map[string]Handler
	buffer        *ringbuffer.Buffer[Event]
}

// NewEmitter creates an Emitter with the given history capacity.
func NewEmitter(bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Emitter{
		subscriptions: map[string]Handler{},
		buffer:        ringbuffer.New[Event](bufferSize),
	}
}

// Subscribe registers a handler and returns a subscription id for
// later Unsubscribe.
func (e *Emitter) Subscribe(handler Handler) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := uuid.NewString()
	e.subscriptions[id] = handler
	return id
}

// Unsubscribe removes a handler by subscription id.
func (e *Emitter) Unsubscribe(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscriptions, id)
}

// Emit broadcasts an event to every subscriber and appends it to the
// rolling history.
func (e *Emitter) Emit(eventType EventType, operationID string, data any) {
	event := Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		OperationID:    operationID,
		TimestampMilli: time.Now().UnixMilli(),
		Data:           data,
	}

	e.mu.Lock()
	e.buffer.Push(event)
	handlers := make([]Handler, 0, len(e.subscriptions))
	for _, h := range e.subscriptions {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		e.safeInvoke(h, event)
	}
}

func (e *Emitter) safeInvoke(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sync: event handler panicked", "event_type", event.Type, "panic", r)
		}
	}()
	handler(event)
}

// History returns a copy of the buffered events, oldest first.
func (e *Emitter) History() []Event {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buffer.Slice()
}
