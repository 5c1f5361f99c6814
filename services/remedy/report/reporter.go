// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report assembles and persists the structured artifact of a
// remediation run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/AleutianAI/remedy/services/remedy/category"
)

// DefaultFileName is the report file written under the project's state
// directory.
const DefaultFileName = "report.json"

// Builder accumulates phase results during a run and assembles the final
// RunReport.
//
// Thread Safety: NOT thread-safe. The orchestrator appends phases from a
// single goroutine.
type Builder struct {
	startedAt     time.Time
	initialErrors int
	dryRun        bool
	phases        []PhaseResult
}

// NewBuilder starts a report for a run that began now with the given
// whole-tree diagnostic count.
func NewBuilder(initialErrors int, dryRun bool) *Builder {
	return &Builder{
		startedAt:     time.Now(),
		initialErrors: initialErrors,
		dryRun:        dryRun,
	}
}

// AddPhase appends one phase attempt to the run log.
//
// Insertion order is preserved; the report's Phases field reads as the
// execution history of the run.
func (b *Builder) AddPhase(result PhaseResult) {
	b.phases = append(b.phases, result)
}

// Finish assembles the immutable RunReport.
//
// # Description
//
// Computes the run totals from the boundary counts and derives one
// recommendation per category that still has diagnostics, ordered by
// descending residual count with ties broken alphabetically.
//
// # Inputs
//
//   - finalErrors: Whole-tree diagnostic count after the last phase.
//   - residual: Per-category counts of surviving diagnostics. May be nil.
//
// # Outputs
//
//   - *RunReport: The finished artifact. Never nil.
func (b *Builder) Finish(finalErrors int, residual map[category.Category]int) *RunReport {
	r := &RunReport{
		Timestamp:        b.startedAt,
		DurationMs:       time.Since(b.startedAt).Milliseconds(),
		InitialErrors:    b.initialErrors,
		FinalErrors:      finalErrors,
		TotalImprovement: b.initialErrors - finalErrors,
		DryRun:           b.dryRun,
		Phases:           b.phases,
		Recommendations:  recommendations(residual),
	}
	if b.initialErrors > 0 {
		r.SuccessRate = float64(r.TotalImprovement) / float64(b.initialErrors)
	}
	return r
}

// recommendations derives follow-up advice from surviving diagnostics.
func recommendations(residual map[category.Category]int) []string {
	type entry struct {
		cat   category.Category
		count int
	}

	entries := make([]entry, 0, len(residual))
	for cat, count := range residual {
		if count > 0 {
			entries = append(entries, entry{cat, count})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].cat.Name < entries[j].cat.Name
	})

	recs := make([]string, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, fmt.Sprintf(
			"%d %s diagnostics remain; review %s manually",
			e.count, e.cat.Name, e.cat.RootCause))
	}
	return recs
}

// WriteFile persists the report as indented JSON.
//
// # Description
//
// Writes to a temp file in the destination directory and renames it into
// place, so a crash mid-write never leaves a truncated report. Parent
// directories are created as needed.
//
// # Inputs
//
//   - path: Destination file path.
//
// # Outputs
//
//   - error: Non-nil if marshalling or any filesystem step fails.
func (r *RunReport) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("installing report: %w", err)
	}
	return nil
}
