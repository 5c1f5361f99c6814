// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package checkpoint

import (
	"context"
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// DiffStats summarizes what changed between a checkpoint and the current
// tree.
//
// # Description
//
// Runs `git diff <ref>` and parses the unified diff into per-file line
// stats for the run report. An empty ref diffs against HEAD.
//
// # Inputs
//
//   - ctx: Context for timeout and cancellation.
//   - ref: Checkpoint ref to diff against.
//
// # Outputs
//
//   - []FileStat: One entry per changed file; nil when nothing changed.
//   - error: Non-nil if the diff cannot be produced or parsed.
func (g *GitProvider) DiffStats(ctx context.Context, ref string) ([]FileStat, error) {
	args := []string{"diff"}
	if ref != "" {
		args = append(args, ref)
	}

	output, err := g.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("diffing against %s: %w", ref, err)
	}
	if output == "" {
		return nil, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(output))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	stats := make([]FileStat, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		stat := fd.Stat()
		stats = append(stats, FileStat{
			Path:    diffPath(fd),
			Added:   int(stat.Added + stat.Changed),
			Deleted: int(stat.Deleted + stat.Changed),
		})
	}

	return stats, nil
}

// diffPath extracts the working-tree path from a file diff, preferring
// the new name and stripping git's a/ b/ prefixes.
func diffPath(fd *godiff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}
