// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphsvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/kgsync/kg/storage"
	"github.com/kraklabs/kgsync/kg/storage/propertygraph"
)

func TestFindPathsAndTraverse_DelegateToGraphQueryAdapter(t *testing.T) {
	adapter, err := propertygraph.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })

	svc := New(adapter, nil, nil)
	ctx := context.Background()

	require.NoError(t, adapter.BulkUpsertEdges(ctx, []storage.Edge{
		{ID: "r1", From: "a", To: "b", Type: "CALLS"},
		{ID: "r2", From: "b", To: "c", Type: "CALLS"},
	}))

	paths, err := svc.FindPaths(ctx, "a", "c", nil, 5)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	reached, err := svc.Traverse(ctx, "a", nil, 3, 50)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"b", "c"}, reached)
}

func TestFindPaths_RejectsAdapterWithoutGraphQuery(t *testing.T) {
	svc := New(newFakeGraph(), nil, nil)
	_, err := svc.FindPaths(context.Background(), "a", "b", nil, 5)
	require.Error(t, err)
}
