// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for kgsync.
// It follows the same no-op/enterprise split the CLI's diagnostics
// package uses: with Enabled false, Setup returns a tracer and meter
// backed by OTel's global no-op providers, so every call site pays
// nothing for instrumentation it never exports. With Enabled true it
// builds a stdout span exporter and, for metrics, a Prometheus exporter
// when MetricsAddr is set or a periodic stdout exporter otherwise --
// exporters already in kgsync's own dependency set rather than
// requiring a collector.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls whether and how telemetry exports.
type Config struct {
	// Enabled turns on the stdout trace exporter and a metrics exporter
	// (Prometheus when MetricsAddr is set, stdout otherwise). When false,
	// Setup returns no-op providers.
	Enabled bool
	// ServiceName names the tracer and meter Setup returns.
	ServiceName string
	// MetricsAddr, when non-empty and Enabled is true, serves
	// Prometheus's /metrics endpoint on this address.
	MetricsAddr string
}

// Handle bundles the tracer and meter kgsync's commands instrument
// with, plus a Shutdown that flushes and tears both down.
type Handle struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Shutdown func(context.Context) error
}

// Setup builds a Handle per cfg. Callers should defer h.Shutdown(ctx)
// immediately after a successful call.
func Setup(cfg Config) (*Handle, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "kgsync"
	}
	if !cfg.Enabled {
		return &Handle{
			Tracer:   otel.Tracer(cfg.ServiceName),
			Meter:    otel.Meter(cfg.ServiceName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("telemetry: build stdout trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	// With a metrics address configured, scrape via Prometheus; otherwise
	// print periodic snapshots to stdout so a bare `--trace` run still
	// shows something without standing up a server.
	var reader sdkmetric.Reader
	var server *http.Server
	if cfg.MetricsAddr != "" {
		promExporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: build prometheus exporter: %w", err)
		}
		reader = promExporter

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			_ = server.ListenAndServe()
		}()
	} else {
		stdoutExporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("telemetry: build stdout metric exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(stdoutExporter, sdkmetric.WithInterval(30*time.Second))
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(meterProvider)

	shutdown := func(ctx context.Context) error {
		if server != nil {
			_ = server.Shutdown(ctx)
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
		return meterProvider.Shutdown(ctx)
	}

	return &Handle{
		Tracer:   tracerProvider.Tracer(cfg.ServiceName),
		Meter:    meterProvider.Meter(cfg.ServiceName),
		Shutdown: shutdown,
	}, nil
}
