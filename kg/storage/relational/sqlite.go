// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package relational implements storage.Relational on mattn/go-sqlite3
// and owns the schema for the side tables the graph service reads for
// correlation (documents, sessions, changes, test_results) but that
// are populated by external collaborators, not by kgsync itself.
package relational

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kraklabs/kgsync/kg/storage"
)

// Adapter is a storage.Relational backed by an embedded sqlite3 database.
type Adapter struct {
	db *sql.DB
}

var _ storage.Relational = (*Adapter)(nil)
var _ storage.Relational = (*txAdapter)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT,
	source_url TEXT,
	created_at INTEGER
);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	operation_type TEXT,
	status TEXT,
	started_at INTEGER,
	ended_at INTEGER
);
CREATE TABLE IF NOT EXISTS changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT,
	entity_id TEXT,
	action TEXT,
	previous_state TEXT,
	new_state TEXT,
	recorded_at INTEGER
);
CREATE TABLE IF NOT EXISTS test_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	test_id TEXT,
	passed INTEGER,
	duration_millis INTEGER,
	recorded_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_changes_session ON changes(session_id);
CREATE INDEX IF NOT EXISTS idx_test_results_test ON test_results(test_id);
`

// Open opens (or creates) the sqlite3 database at path and applies the
// schema. An empty path opens an in-memory database.
func Open(path string) (*Adapter, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("relational: open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("relational: apply schema: %w", err)
	}
	return &Adapter{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Adapter) Close() error { return a.db.Close() }

func (a *Adapter) Query(ctx context.Context, query string, params []any, opts storage.QueryOptions) ([]storage.Row, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	rows, err := a.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]storage.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []storage.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(storage.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// txAdapter wraps a *sql.Tx so nested Relational calls inside a
// Transaction callback run against the same transaction rather than
// opening a second connection.
type txAdapter struct {
	tx *sql.Tx
}

func (t *txAdapter) Query(ctx context.Context, query string, params []any, opts storage.QueryOptions) ([]storage.Row, error) {
	rows, err := t.tx.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (t *txAdapter) Transaction(ctx context.Context, fn func(storage.Relational) error) error {
	return fmt.Errorf("relational: nested transactions are not supported")
}

func (t *txAdapter) BulkQuery(ctx context.Context, stmts []storage.BulkStatement, opts storage.BulkOptions) error {
	return execBulk(ctx, t.tx, stmts, opts)
}

func (a *Adapter) Transaction(ctx context.Context, fn func(storage.Relational) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&txAdapter{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execBulk(ctx context.Context, e execer, stmts []storage.BulkStatement, opts storage.BulkOptions) error {
	var firstErr error
	for _, s := range stmts {
		if _, err := e.ExecContext(ctx, s.SQL, s.Params...); err != nil {
			if !opts.ContinueOnError {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (a *Adapter) BulkQuery(ctx context.Context, stmts []storage.BulkStatement, opts storage.BulkOptions) error {
	return execBulk(ctx, a.db, stmts, opts)
}
