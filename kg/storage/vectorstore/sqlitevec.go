// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vectorstore implements storage.VectorStore. SQLiteAdapter is
// the embedded backend: a sqlite-vec vec0 virtual table per
// collection, queried with vec_distance_cosine, for single-process or
// test deployments that should not require a running Weaviate cluster.
package vectorstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kraklabs/kgsync/kg/storage"
)

func init() {
	// Registers vec0 as an auto-loadable extension on mattn/go-sqlite3's
	// default driver before any connection is opened.
	vec.Auto()
}

// SQLiteAdapter is a storage.VectorStore backed by sqlite-vec vec0
// virtual tables, one per collection.
type SQLiteAdapter struct {
	db *sql.DB
}

var _ storage.VectorStore = (*SQLiteAdapter)(nil)

// OpenSQLite opens (or creates) the sqlite-vec-backed vector store at
// path. An empty path opens an in-memory database.
func OpenSQLite(path string) (*SQLiteAdapter, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open sqlite: %w", err)
	}
	return &SQLiteAdapter{db: db}, nil
}

// Close releases the underlying database handle.
func (a *SQLiteAdapter) Close() error { return a.db.Close() }

func tableName(collection string) string {
	return "vec_" + strings.ReplaceAll(collection, "-", "_")
}

func (a *SQLiteAdapter) CreateCollection(ctx context.Context, name string, size int, distance string) error {
	// distance is accepted for interface parity; sqlite-vec's
	// vec_distance_cosine is the only metric wired, matching the
	// documented 1536-d cosine discipline for every collection.
	_, err := a.db.ExecContext(ctx, fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
			embedding float[%d],
			record_id TEXT,
			payload TEXT
		)`, tableName(name), size))
	return err
}

func (a *SQLiteAdapter) Upsert(ctx context.Context, collection string, record storage.VectorRecord) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return err
	}
	blob := encodeVector(record.Vector)

	tbl := tableName(collection)
	_, err = a.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE record_id = ?`, tbl), record.ID)
	if err != nil {
		return err
	}
	_, err = a.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (embedding, record_id, payload) VALUES (?, ?, ?)`, tbl),
		blob, record.ID, string(payload))
	return err
}

func (a *SQLiteAdapter) Search(ctx context.Context, collection string, vector []float32, limit int, filter storage.VectorFilter) ([]storage.VectorSearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	tbl := tableName(collection)
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT record_id, payload, vec_distance_cosine(embedding, ?) AS distance
		 FROM %s ORDER BY distance ASC LIMIT ?`, tbl), encodeVector(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.VectorSearchResult
	for rows.Next() {
		var id, payloadJSON string
		var distance float64
		if err := rows.Scan(&id, &payloadJSON, &distance); err != nil {
			return nil, err
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, err
		}
		if !matchesFilter(payload, filter) {
			continue
		}
		out = append(out, storage.VectorSearchResult{
			Record: storage.VectorRecord{ID: id, Payload: payload},
			Score:  float32(1 - distance),
		})
	}
	return out, rows.Err()
}

func (a *SQLiteAdapter) Delete(ctx context.Context, collection string, filter storage.VectorFilter) error {
	entityID, ok := filter["entityId"].(string)
	if !ok {
		return fmt.Errorf("vectorstore: sqlite adapter only supports deletion filtered by entityId")
	}
	tbl := tableName(collection)
	rows, err := a.db.QueryContext(ctx, fmt.Sprintf(`SELECT record_id, payload FROM %s`, tbl))
	if err != nil {
		return err
	}
	var toDelete []string
	for rows.Next() {
		var id, payloadJSON string
		if err := rows.Scan(&id, &payloadJSON); err != nil {
			rows.Close()
			return err
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			rows.Close()
			return err
		}
		if v, _ := payload["entityId"].(string); v == entityID {
			toDelete = append(toDelete, id)
		}
	}
	rows.Close()
	for _, id := range toDelete {
		if _, err := a.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE record_id = ?`, tbl), id); err != nil {
			return err
		}
	}
	return nil
}

func matchesFilter(payload map[string]any, filter storage.VectorFilter) bool {
	for k, v := range filter {
		if payload[k] != v {
			return false
		}
	}
	return true
}

// encodeVector little-endian-encodes a float32 slice to the binary
// blob shape sqlite-vec expects for a vec0 embedding column.
func encodeVector(v []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, v)
	return buf.Bytes()
}
