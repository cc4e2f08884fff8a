// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration file whenever it changes.
//
// Description:
//
//	Watches the directory holding path, since editors often replace the
//	file instead of writing it in place. Each write or create of path
//	triggers Load; valid results are passed to onChange, invalid ones are
//	logged and ignored. Blocks until ctx is cancelled.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	path - The config file. Must not be empty.
//	onChange - Called with each successfully reloaded configuration.
//
// Outputs:
//
//	error - Non-nil if the watcher cannot be created. Nil on cancellation.
//
// Example:
//
//	go config.Watch(ctx, path, func(cfg config.Config) {
//	    level.Set(telemetry.ParseLevel(cfg.Log.Level))
//	})
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	if path == "" {
		return fmt.Errorf("watch: empty config path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: add %s: %w", filepath.Dir(abs), err)
	}

	slog.Debug("Watching config file", "path", abs)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				slog.Warn("Ignoring invalid config reload", "path", abs, "error", err)
				continue
			}
			slog.Info("Config reloaded", "path", abs)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}
