// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/kgsync/kg/storage"
)

func TestSQLiteAdapter_UpsertAndSearch(t *testing.T) {
	a, err := OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	require.NoError(t, a.CreateCollection(ctx, "code", 4, "cosine"))

	require.NoError(t, a.Upsert(ctx, "code", storage.VectorRecord{
		ID: "file:a.ts", Vector: []float32{1, 0, 0, 0}, Payload: map[string]any{"entityId": "file:a.ts", "kind": "File"},
	}))
	require.NoError(t, a.Upsert(ctx, "code", storage.VectorRecord{
		ID: "file:b.ts", Vector: []float32{0, 1, 0, 0}, Payload: map[string]any{"entityId": "file:b.ts", "kind": "File"},
	}))

	results, err := a.Search(ctx, "code", []float32{1, 0, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "file:a.ts", results[0].Record.ID)
}

func TestSQLiteAdapter_UpsertReplacesExistingRecord(t *testing.T) {
	a, err := OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	require.NoError(t, a.CreateCollection(ctx, "code", 2, "cosine"))
	require.NoError(t, a.Upsert(ctx, "code", storage.VectorRecord{ID: "x", Vector: []float32{1, 0}, Payload: map[string]any{"entityId": "x", "v": 1}}))
	require.NoError(t, a.Upsert(ctx, "code", storage.VectorRecord{ID: "x", Vector: []float32{0, 1}, Payload: map[string]any{"entityId": "x", "v": 2}}))

	results, err := a.Search(ctx, "code", []float32{0, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSQLiteAdapter_DeleteByEntityID(t *testing.T) {
	a, err := OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	require.NoError(t, a.CreateCollection(ctx, "code", 2, "cosine"))
	require.NoError(t, a.Upsert(ctx, "code", storage.VectorRecord{ID: "x", Vector: []float32{1, 0}, Payload: map[string]any{"entityId": "x"}}))
	require.NoError(t, a.Delete(ctx, "code", storage.VectorFilter{"entityId": "x"}))

	results, err := a.Search(ctx, "code", []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}
