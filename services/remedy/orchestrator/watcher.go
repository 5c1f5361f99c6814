// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSSettler implements Settler by watching the project tree for
// filesystem events and waiting for a quiet window.
//
// # Description
//
// Each Settle call creates a fresh fsnotify watcher over the project's
// directories (dot directories and node_modules are skipped) and returns
// once no mutating event has arrived for the quiet duration, or the
// maximum wait elapses. If the watcher cannot be created, Settle degrades
// to a fixed sleep of the quiet duration.
//
// # Thread Safety
//
// Safe for concurrent use; each call owns its watcher.
type FSSettler struct {
	root    string
	quiet   time.Duration
	maxWait time.Duration
	logger  *slog.Logger
}

// NewFSSettler creates a quiescence settler for the project tree.
func NewFSSettler(root string, quiet, maxWait time.Duration) *FSSettler {
	return &FSSettler{
		root:    root,
		quiet:   quiet,
		maxWait: maxWait,
		logger:  slog.Default().With("component", "orchestrator.FSSettler"),
	}
}

// Settle blocks until the tree has been quiet or the wait is exhausted.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//
// # Outputs
//
//   - error: Only the context's error; quiescence itself cannot fail.
func (s *FSSettler) Settle(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("fsnotify unavailable, falling back to fixed delay",
			"error", err)
		return sleepCtx(ctx, s.quiet)
	}
	defer watcher.Close()

	s.addDirs(watcher)

	quiet := time.NewTimer(s.quiet)
	defer quiet.Stop()
	deadline := time.NewTimer(s.maxWait)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-deadline.C:
			s.logger.Debug("settle wait exhausted, proceeding")
			return nil

		case <-quiet.C:
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !quiet.Stop() {
				select {
				case <-quiet.C:
				default:
				}
			}
			quiet.Reset(s.quiet)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Debug("settle watcher error", "error", err)
		}
	}
}

// addDirs registers the project's directories with the watcher.
//
// fsnotify does not watch recursively, so every directory is added
// individually. Failures are logged and skipped; a partially watched tree
// still detects the common case.
func (s *FSSettler) addDirs(watcher *fsnotify.Watcher) {
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != s.root && (strings.HasPrefix(name, ".") || name == "node_modules") {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(path); addErr != nil {
			s.logger.Debug("failed to watch directory",
				"path", path,
				"error", addErr)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("walking project tree for watch setup", "error", err)
	}
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Compile-time interface check
var _ Settler = (*FSSettler)(nil)
