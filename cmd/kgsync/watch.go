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

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/kgsync/kg/kgcontext"
	"github.com/kraklabs/kgsync/kg/rollback"
	"github.com/kraklabs/kgsync/pkg/logging"
)

// watchSync re-runs a one-file Sync every time fsnotify reports a write
// or create on one of paths, until ctx is cancelled. It never returns
// an error for a failed individual sync -- those are logged and the
// watch continues -- only for a watcher setup failure.
func watchSync(ctx context.Context, pipeline *kgcontext.Context, paths []string, mode rollback.Mode, logger *logging.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			logger.Warn("watch: could not watch path", "path", p, "error", err)
		}
	}

	logger.Info("watch: waiting for changes", "paths", len(paths))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			logger.Info("watch: change detected", "path", event.Name, "op", event.Op.String())
			if _, err := pipeline.Sync(ctx, []string{event.Name}, mode); err != nil {
				logger.Error("watch: sync failed", "path", event.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: watcher error", "error", err)
		}
	}
}
