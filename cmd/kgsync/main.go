// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command kgsync is the thin CLI entrypoint over the kg/kgcontext
// pipeline: it loads a YAML config, opens the storage adapters it
// names, and drives a Sync over the paths given on the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	quiet        bool
	logJSON      bool
	logLevel     string
	traceEnabled bool
	metricsAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "kgsync",
	Short: "Synchronize a codebase's knowledge graph from source",
	Long: `kgsync parses source files, diffs them against the last known
knowledge graph state, resolves any conflicts against persisted state,
and applies the result to the graph, vector, and relational stores.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "kgsync.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "export spans to stdout and metrics to stdout (or to Prometheus with --metrics-addr)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics on this address (requires --trace)")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
