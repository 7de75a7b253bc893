// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report node and edge counts from the configured graph store",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	adapters, closeAdapters, err := openAdapters(cfg)
	if err != nil {
		return fmt.Errorf("open adapters: %w", err)
	}
	defer closeAdapters()

	ctx := context.Background()
	nodes, err := adapters.Graph.AllNodes(ctx)
	if err != nil {
		return fmt.Errorf("list nodes: %w", err)
	}
	edges, err := adapters.Graph.AllEdges(ctx)
	if err != nil {
		return fmt.Errorf("list edges: %w", err)
	}

	byKind := map[string]int{}
	for _, n := range nodes {
		byKind[n.Kind]++
	}

	fmt.Printf("nodes=%d edges=%d\n", len(nodes), len(edges))
	for kind, count := range byKind {
		fmt.Printf("  %s: %d\n", kind, count)
	}
	return nil
}
