// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sync

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kraklabs/kgsync/kg/internal/ringbuffer"
)

// Health summarizes the coordinator's recent track record.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// Metrics is a point-in-time read of the coordinator's operation
// counters.
type Metrics struct {
	OperationsTotal      int
	OperationsSucceeded  int
	OperationsFailed     int
	AverageSyncMillis    float64
	ThroughputPerMinute  float64
	ErrorRate            float64
	EntitiesProcessed    int
	RelationshipsProcessed int
}

// PerformanceMetrics tracks the sub-operation timings a coordinator's
// Work callback reports via RecordPerformance.
type PerformanceMetrics struct {
	AvgParseMillis     float64
	AvgGraphUpdateMillis float64
	AvgEmbeddingMillis float64
	MemoryBytes        uint64
}

// Alert is a Monitor-raised condition that may need operator attention.
type Alert struct {
	ID             string
	RaisedAtMilli  int64
	Message        string
	Resolved       bool
	ResolvedAtMilli int64
}

// Monitor observes a Coordinator's event stream and derives running
// health, throughput, and error-rate metrics. It keeps a bounded log
// of recent operations and alerts so memory stays flat over a
// long-running process.
type Monitor struct {
	mu sync.Mutex

	total, succeeded, failed int
	totalSyncMillis          int64
	entitiesProcessed        int
	relationshipsProcessed   int
	windowStart              time.Time

	consecutiveFailures int

	parseMillis, graphMillis, embedMillis sampleSum
	memoryBytes                           uint64

	log    *ringbuffer.Buffer[Event]
	alerts *ringbuffer.Buffer[*Alert]
}

// sampleSum accumulates a running mean incrementally.
type sampleSum struct {
	count int
	total float64
}

func (s *sampleSum) add(v float64) {
	s.count++
	s.total += v
}

func (s *sampleSum) mean() float64 {
	if s.count == 0 {
		return 0
	}
	return s.total / float64(s.count)
}

// NewMonitor creates a Monitor and subscribes it to emitter. logCap
// and alertCap bound the rolling log/alert history (spec default:
// 1000 / 100).
func NewMonitor(emitter *Emitter, logCap, alertCap int) *Monitor {
	if logCap <= 0 {
		logCap = 1000
	}
	if alertCap <= 0 {
		alertCap = 100
	}
	m := &Monitor{
		windowStart: time.Now(),
		log:         ringbuffer.New[Event](logCap),
		alerts:      ringbuffer.New[*Alert](alertCap),
	}
	emitter.Subscribe(m.observe)
	return m
}

func (m *Monitor) observe(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Push(event)

	switch event.Type {
	case EventOperationCompleted:
		m.total++
		m.succeeded++
		m.consecutiveFailures = 0
		if counters, ok := event.Data.(Counters); ok {
			m.entitiesProcessed += counters.EntitiesCreated + counters.EntitiesUpdated + counters.EntitiesDeleted
			m.relationshipsProcessed += counters.RelationshipsCreated + counters.RelationshipsUpdated + counters.RelationshipsDeleted
		}
	case EventOperationFailed:
		m.total++
		m.failed++
		m.consecutiveFailures++
		m.raiseAlertLocked("operation failed: " + event.OperationID)
	}
}

// RecordSyncDuration records a completed operation's total wall-clock
// time, used to compute average sync time and throughput.
func (m *Monitor) RecordSyncDuration(millis int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalSyncMillis += millis
}

// RecordPerformance records one operation's sub-stage timings and peak
// memory usage.
func (m *Monitor) RecordPerformance(parseMillis, graphUpdateMillis, embeddingMillis float64, memBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parseMillis.add(parseMillis)
	m.graphMillis.add(graphUpdateMillis)
	m.embedMillis.add(embeddingMillis)
	if memBytes > m.memoryBytes {
		m.memoryBytes = memBytes
	}
}

func (m *Monitor) raiseAlertLocked(message string) {
	m.alerts.Push(&Alert{
		ID:            uuid.NewString(),
		RaisedAtMilli: time.Now().UnixMilli(),
		Message:       message,
	})
}

// ResolveAlert marks the named alert resolved, if still present in the
// rolling window.
func (m *Monitor) ResolveAlert(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	found := false
	m.alerts.ForEach(func(a *Alert) bool {
		if a.ID == id {
			a.Resolved = true
			a.ResolvedAtMilli = time.Now().UnixMilli()
			found = true
		}
		return true
	})
	return found
}

// Alerts returns every alert currently in the rolling window, oldest
// first.
func (m *Monitor) Alerts() []*Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts.Slice()
}

// Snapshot computes the current Metrics.
func (m *Monitor) Snapshot() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := Metrics{
		OperationsTotal:        m.total,
		OperationsSucceeded:    m.succeeded,
		OperationsFailed:       m.failed,
		EntitiesProcessed:      m.entitiesProcessed,
		RelationshipsProcessed: m.relationshipsProcessed,
	}
	if m.total > 0 {
		metrics.AverageSyncMillis = float64(m.totalSyncMillis) / float64(m.total)
		metrics.ErrorRate = float64(m.failed) / float64(m.total)
	}
	elapsedMinutes := time.Since(m.windowStart).Minutes()
	if elapsedMinutes > 0 {
		metrics.ThroughputPerMinute = float64(m.total) / elapsedMinutes
	}
	return metrics
}

// PerformanceSnapshot computes the current PerformanceMetrics.
func (m *Monitor) PerformanceSnapshot() PerformanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return PerformanceMetrics{
		AvgParseMillis:       m.parseMillis.mean(),
		AvgGraphUpdateMillis: m.graphMillis.mean(),
		AvgEmbeddingMillis:   m.embedMillis.mean(),
		MemoryBytes:          m.memoryBytes,
	}
}

// Health derives the coordinator's current health from its recent
// failure streak and overall error rate: three or more consecutive
// failures, or an error rate above 50% with at least four samples, is
// unhealthy; one or two consecutive failures is degraded.
func (m *Monitor) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consecutiveFailures >= 3 {
		return HealthUnhealthy
	}
	if m.total >= 4 && float64(m.failed)/float64(m.total) > 0.5 {
		return HealthUnhealthy
	}
	if m.consecutiveFailures > 0 {
		return HealthDegraded
	}
	return HealthHealthy
}

// Log returns the most recent n events from the rolling log, newest
// first.
func (m *Monitor) Log(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.Last(n)
}
