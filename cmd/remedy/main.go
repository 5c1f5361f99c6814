// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command remedy measures a project's compiler diagnostics, groups them by
// root cause, and remediates them one prioritized, checkpointed phase at a
// time.
//
// Usage:
//
//	remedy run /path/to/project
//	remedy run /path/to/project --dry-run
//	remedy run /path/to/project --max-allowed-increase 10 --strict
//	remedy backups list --project /path/to/project
//	remedy backups restore <backup-id> --project /path/to/project
//	remedy backups prune --project /path/to/project --days 30
//	remedy report --project /path/to/project
//
// The toolchain command (e.g. tsc --noEmit) is configured in
// ~/.remedy/remedy.yaml, created with defaults on first run.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
