// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package relational

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/kgsync/kg/storage"
)

func TestAdapter_BulkQueryAndQueryRoundtrip(t *testing.T) {
	a, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	err = a.BulkQuery(ctx, []storage.BulkStatement{
		{SQL: `INSERT INTO documents (id, title, source_url, created_at) VALUES (?, ?, ?, ?)`, Params: []any{"d1", "Readme", "https://example.com", int64(1)}},
	}, storage.BulkOptions{})
	require.NoError(t, err)

	rows, err := a.Query(ctx, `SELECT id, title FROM documents WHERE id = ?`, []any{"d1"}, storage.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Readme", rows[0]["title"])
}

func TestAdapter_TransactionRollsBackOnError(t *testing.T) {
	a, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	err = a.Transaction(ctx, func(tx storage.Relational) error {
		if err := tx.BulkQuery(ctx, []storage.BulkStatement{
			{SQL: `INSERT INTO sessions (id, operation_type, status) VALUES (?, ?, ?)`, Params: []any{"s1", "sync", "running"}},
		}, storage.BulkOptions{}); err != nil {
			return err
		}
		return errors.New("forced failure to exercise rollback")
	})
	require.Error(t, err)

	rows, err := a.Query(ctx, `SELECT id FROM sessions WHERE id = ?`, []any{"s1"}, storage.QueryOptions{})
	require.NoError(t, err)
	require.Empty(t, rows)
}
