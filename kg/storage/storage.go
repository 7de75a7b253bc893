// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage declares the narrow adapter contracts the knowledge
// graph core depends on. The core never imports a driver directly --
// only these interfaces -- so the property graph, vector, relational,
// and cache backends can be swapped without touching graphsvc, conflict,
// rollback, or sync.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned by any adapter call that fails for a
// transient, retry-worthy reason (connection refused, timeout,
// degraded backend). The coordinator classifies it as StorageUnavailable
// and retries with backoff.
var ErrUnavailable = errors.New("storage: backend unavailable")

// ErrNotFound is returned when a lookup by id finds nothing.
var ErrNotFound = errors.New("storage: not found")

// Node is the property-graph adapter's node representation: an opaque
// id, a kind label, and a flat property bag. graphsvc is responsible
// for marshaling entity.Entity values to and from this shape.
type Node struct {
	ID         string
	Kind       string
	Properties map[string]any
}

// Edge is the property-graph adapter's edge representation.
type Edge struct {
	ID         string
	From       string
	To         string
	Type       string
	Properties map[string]any
}

// Row is one result row from a property-graph query or a relational
// query; callers know the column shape they asked for.
type Row map[string]any

// PropertyGraph is the adapter contract for the node/edge store.
//
// Engines that only support templated (non-parameterized) queries MUST
// escape parameters themselves before building the template: string
// values quoted with single quotes doubled, nil rendered as the
// literal `null`, and nested maps/slices rendered as property-syntax
// text rather than interpolated verbatim.
type PropertyGraph interface {
	Query(ctx context.Context, query string, params map[string]any) ([]Row, error)
	Command(ctx context.Context, args ...any) (any, error)
	BulkUpsertNodes(ctx context.Context, nodes []Node) error
	BulkUpsertEdges(ctx context.Context, edges []Edge) error
	DeleteNode(ctx context.Context, id string) error
	DeleteEdge(ctx context.Context, id string) error
	GetNode(ctx context.Context, id string) (Node, bool, error)
	GetEdge(ctx context.Context, id string) (Edge, bool, error)
	EdgesFrom(ctx context.Context, nodeID string) ([]Edge, error)
	EdgesTo(ctx context.Context, nodeID string) ([]Edge, error)
	AllNodes(ctx context.Context) ([]Node, error)
	AllEdges(ctx context.Context) ([]Edge, error)
}

// PathResult is one path returned by GraphQuery.FindPaths: the ordered
// node ids from start to end, plus the edge ids walked to produce it.
type PathResult struct {
	Nodes []string
	Edges []string
}

// GraphQuery is the bounded-search contract a PropertyGraph adapter
// additionally implements. It is kept separate from PropertyGraph
// itself because the bounded-depth semantics (bulk fact loading,
// Datalog evaluation) are specific to engines that support it; an
// adapter without native path support can simply not implement this
// interface, in which case graphsvc's path/traversal operations return
// an error.
type GraphQuery interface {
	FindPaths(ctx context.Context, start, end string, types []string, maxDepth int) ([]PathResult, error)
	Traverse(ctx context.Context, start string, types []string, maxDepth, limit int) ([]string, error)
}

// VectorRecord is one point in a vector collection.
type VectorRecord struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// VectorFilter restricts a search or delete to records whose payload
// matches every key/value pair.
type VectorFilter map[string]any

// VectorSearchResult pairs a record with its similarity score.
type VectorSearchResult struct {
	Record VectorRecord
	Score  float32
}

// VectorStore is the adapter contract for the embedding stores. The
// core always uses 1536-dimensional cosine collections.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, size int, distance string) error
	Upsert(ctx context.Context, collection string, record VectorRecord) error
	Search(ctx context.Context, collection string, vector []float32, limit int, filter VectorFilter) ([]VectorSearchResult, error)
	Delete(ctx context.Context, collection string, filter VectorFilter) error
}

// Standard vector collection names, per the documented three-collection
// discipline (each 1536-d cosine).
const (
	CollectionCode               = "code_embeddings"
	CollectionDocumentation      = "documentation_embeddings"
	CollectionIntegrationTests   = "integration_test_embeddings"
)

// QueryOptions configures a single relational query call.
type QueryOptions struct {
	Timeout time.Duration
}

// BulkStatement is one statement in a Relational.BulkQuery batch.
type BulkStatement struct {
	SQL    string
	Params []any
}

// BulkOptions configures BulkQuery's failure handling.
type BulkOptions struct {
	ContinueOnError bool
}

// Relational is the adapter contract for the SQL-backed side tables
// (documents, sessions, changes, test_results) that the graph service
// reads for correlation but does not own.
type Relational interface {
	Query(ctx context.Context, sql string, params []any, opts QueryOptions) ([]Row, error)
	Transaction(ctx context.Context, fn func(tx Relational) error) error
	BulkQuery(ctx context.Context, stmts []BulkStatement, opts BulkOptions) error
}

// Cache is an optional best-effort key/value adapter. A nil Cache is a
// valid configuration; callers must treat a miss and an unavailable
// cache identically.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}
