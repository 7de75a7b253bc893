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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/kraklabs/kgsync/kg/kgcontext"
	"github.com/kraklabs/kgsync/kg/parser"
	"github.com/kraklabs/kgsync/kg/resolve"
	"github.com/kraklabs/kgsync/kg/rollback"
	"github.com/kraklabs/kgsync/pkg/logging"
	"github.com/kraklabs/kgsync/pkg/telemetry"
)

var (
	rollbackMode string
	watch        bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [path...]",
	Short: "Parse the given paths and sync the knowledge graph",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().StringVar(&rollbackMode, "rollback-mode", "change", "rollback strategy: change or state")
	syncCmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-sync on file changes")
}

func runSync(cmd *cobra.Command, paths []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logJSON {
		cfg.Logging.JSON = true
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.LogDir,
		Service: "sync",
		JSON:    cfg.Logging.JSON,
		Quiet:   quiet,
	})
	defer logger.Close()

	mode, err := parseRollbackMode(rollbackMode)
	if err != nil {
		return err
	}

	telem, err := telemetry.Setup(telemetry.Config{
		Enabled:     traceEnabled,
		ServiceName: "kgsync-sync",
		MetricsAddr: metricsAddr,
	})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		if terr := telem.Shutdown(context.Background()); terr != nil {
			logger.Error("error shutting down telemetry", "error", terr)
		}
	}()
	filesCounter, err := telem.Meter.Int64Counter("kgsync_files_processed_total")
	if err != nil {
		return fmt.Errorf("build files counter: %w", err)
	}
	durationHist, err := telem.Meter.Float64Histogram("kgsync_operation_duration_seconds")
	if err != nil {
		return fmt.Errorf("build duration histogram: %w", err)
	}

	adapters, closeAdapters, err := openAdapters(cfg)
	if err != nil {
		return fmt.Errorf("open adapters: %w", err)
	}
	defer func() {
		if cerr := closeAdapters(); cerr != nil {
			logger.Error("error closing adapters", "error", cerr)
		}
	}()

	resolver := resolve.NewResolver(resolve.AliasConfig{
		BaseURL: cfg.Resolve.BaseURL,
		Paths:   cfg.Resolve.Paths,
	}, nil)

	pipeline := kgcontext.New(adapters, defaultParsers(), resolver, cfg.Noise.noiseConfig())

	reporter := newProgressReporter(pipeline.Emitter, len(paths), quiet)
	defer reporter.Close(pipeline.Emitter)
	pipeline.OnFileProcessed = func(path string, index, total int) { reporter.Tick() }

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received interrupt, cancelling sync")
		cancel()
	}()

	logger.Info("sync started", "paths", len(paths), "rollback_mode", rollbackMode)
	spanCtx, span := telem.Tracer.Start(runCtx, "kgsync.sync",
		traceAttrs(len(paths), rollbackMode)...,
	)
	result, err := pipeline.Sync(spanCtx, paths, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if err != nil {
		logger.Error("sync failed", "error", err, "operation_id", operationID(result))
		return err
	}

	filesCounter.Add(runCtx, int64(result.Operation.Counters.FilesProcessed))
	durationHist.Record(runCtx, float64(result.Operation.Duration())/1000)

	logger.Info("sync completed",
		"operation_id", operationID(result),
		"files_processed", result.Operation.Counters.FilesProcessed,
		"conflicts", len(result.Conflicts),
		"duration_ms", result.Operation.Duration(),
	)
	if !quiet {
		printSummary(result.Operation, len(result.Conflicts))
		printHealth(pipeline.Monitor.Health())
	}

	if watch {
		return watchSync(runCtx, pipeline, paths, mode, logger)
	}
	return nil
}

func operationID(result kgcontext.SyncResult) string {
	if result.Operation == nil {
		return ""
	}
	return result.Operation.ID
}

func parseRollbackMode(s string) (rollback.Mode, error) {
	switch s {
	case "", "change":
		return rollback.ChangeBased, nil
	case "state":
		return rollback.StateBased, nil
	default:
		return 0, fmt.Errorf("unknown rollback mode %q (want change or state)", s)
	}
}

func traceAttrs(pathCount int, rollbackMode string) []oteltrace.SpanStartOption {
	return []oteltrace.SpanStartOption{
		oteltrace.WithAttributes(
			attribute.Int("kgsync.paths", pathCount),
			attribute.String("kgsync.rollback_mode", rollbackMode),
		),
	}
}

// defaultParsers wires the full set of AST parsers kgsync understands,
// keyed by file extension through parser.Registry.
func defaultParsers() []parser.Parser {
	return []parser.Parser{
		parser.NewGoParser(),
		parser.NewTypeScriptParser(),
		parser.NewTSXParser(),
		parser.NewJavaScriptParser(),
		parser.NewGenericParser(),
	}
}
