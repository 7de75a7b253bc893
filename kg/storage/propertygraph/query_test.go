// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package propertygraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/kgsync/kg/storage"
)

func seedChain(t *testing.T, a *Adapter) {
	t.Helper()
	require.NoError(t, a.BulkUpsertEdges(context.Background(), []storage.Edge{
		{ID: "r1", From: "a", To: "b", Type: "CALLS"},
		{ID: "r2", From: "b", To: "c", Type: "CALLS"},
		{ID: "r3", From: "c", To: "d", Type: "CALLS"},
	}))
}

func TestTraverse_RespectsMaxDepthAndLimit(t *testing.T) {
	a := openTest(t)
	seedChain(t, a)

	out, err := a.Traverse(context.Background(), "a", nil, 2, 50)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, out)
}

func TestTraverse_FiltersByType(t *testing.T) {
	a := openTest(t)
	require.NoError(t, a.BulkUpsertEdges(context.Background(), []storage.Edge{
		{ID: "r1", From: "a", To: "b", Type: "CALLS"},
		{ID: "r2", From: "a", To: "x", Type: "IMPORTS"},
	}))

	out, err := a.Traverse(context.Background(), "a", []string{"CALLS"}, 3, 50)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, out)
}

func TestFindPaths_FindsBoundedPathToEnd(t *testing.T) {
	a := openTest(t)
	seedChain(t, a)

	paths, err := a.FindPaths(context.Background(), "a", "c", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	require.Equal(t, []string{"a", "b", "c"}, paths[0].Nodes)
}

func TestFindPaths_CapsAtTenResults(t *testing.T) {
	a := openTest(t)
	ctx := context.Background()
	var edges []storage.Edge
	for i := 0; i < 20; i++ {
		edges = append(edges, storage.Edge{ID: string(rune('a' + i)), From: "hub", To: string(rune('a' + i)), Type: "CALLS"})
	}
	require.NoError(t, a.BulkUpsertEdges(ctx, edges))

	paths, err := a.FindPaths(ctx, "hub", "", nil, 2)
	require.NoError(t, err)
	require.LessOrEqual(t, len(paths), 10)
}
