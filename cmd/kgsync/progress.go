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
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	syncpkg "github.com/kraklabs/kgsync/kg/sync"
)

// progressReporter subscribes to a sync Emitter and drives a terminal
// progress bar plus colored status lines from the events it sees. It
// has no notion of "phases" the way a multi-stage pipeline does --
// kgsync runs one file-processing loop per operation -- so it reports
// files processed against the total path count handed to Sync.
type progressReporter struct {
	bar     *progressbar.ProgressBar
	total   int
	quiet   bool
	unsubID string
}

// newProgressReporter wires a reporter to emitter for an operation over
// total files. Pass quiet true to suppress the bar entirely (JSON log
// output, non-interactive terminals).
func newProgressReporter(emitter *syncpkg.Emitter, total int, quiet bool) *progressReporter {
	r := &progressReporter{total: total, quiet: quiet}
	if !quiet {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("syncing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100),
			progressbar.OptionClearOnFinish(),
		)
	}
	r.unsubID = emitter.Subscribe(r.observe)
	return r
}

func (r *progressReporter) observe(ev syncpkg.Event) {
	switch ev.Type {
	case syncpkg.EventOperationStarted:
		if !r.quiet {
			color.New(color.FgCyan).Fprintf(os.Stderr, "sync %s started\n", ev.OperationID)
		}
	case syncpkg.EventOperationCompleted:
		if r.bar != nil {
			r.bar.Finish()
		}
		if !r.quiet {
			color.New(color.FgGreen).Fprintf(os.Stderr, "sync %s completed\n", ev.OperationID)
		}
	case syncpkg.EventOperationFailed:
		if r.bar != nil {
			r.bar.Finish()
		}
		if !r.quiet {
			color.New(color.FgRed).Fprintf(os.Stderr, "sync %s failed: %v\n", ev.OperationID, ev.Data)
		}
	case syncpkg.EventRollbackStarted:
		if !r.quiet {
			color.New(color.FgYellow).Fprintf(os.Stderr, "rolling back %s\n", ev.OperationID)
		}
	}
}

// Tick advances the bar by one file. Sync itself has no per-file
// event, so the caller ticks the reporter as it iterates.
func (r *progressReporter) Tick() {
	if r.bar != nil {
		r.bar.Add(1)
	}
}

// Close unsubscribes the reporter from the emitter. Safe to call once
// the operation has finished.
func (r *progressReporter) Close(emitter *syncpkg.Emitter) {
	emitter.Unsubscribe(r.unsubID)
}

// printHealth renders a Monitor.Health snapshot as a colored summary
// line, the same traffic-light convention the coordinator's own Health
// type implies (healthy/degraded/unhealthy).
func printHealth(h syncpkg.Health) {
	var c *color.Color
	switch h {
	case syncpkg.HealthHealthy:
		c = color.New(color.FgGreen)
	case syncpkg.HealthDegraded:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed)
	}
	c.Fprintf(os.Stderr, "health: %s\n", h)
}

// printSummary renders an Operation's counters after a sync run.
func printSummary(op *syncpkg.Operation, conflictCount int) {
	fmt.Fprintf(os.Stderr, "files=%d entities(+%d ~%d -%d) relationships(+%d) conflicts=%d duration=%dms\n",
		op.Counters.FilesProcessed,
		op.Counters.EntitiesCreated, op.Counters.EntitiesUpdated, op.Counters.EntitiesDeleted,
		op.Counters.RelationshipsCreated,
		conflictCount,
		op.Duration(),
	)
}
