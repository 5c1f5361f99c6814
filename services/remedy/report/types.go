// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"time"

	"github.com/AleutianAI/remedy/services/remedy/checkpoint"
)

// PhaseResult records one phase attempt against one category.
//
// Produced once per attempt and appended to the run log in execution
// order.
//
// Thread Safety: Immutable after creation.
type PhaseResult struct {
	// Category is the category the phase remediated.
	Category string `json:"category"`

	// Iteration is the 1-indexed iteration within the phase.
	Iteration int `json:"iteration"`

	// BeforeCount and AfterCount are whole-tree diagnostic counts
	// measured around the transform.
	BeforeCount int `json:"before_count"`
	AfterCount  int `json:"after_count"`

	// Improvement is max(BeforeCount-AfterCount, 0).
	Improvement int `json:"improvement"`

	// Increase is max(AfterCount-BeforeCount, 0).
	Increase int `json:"increase"`

	// Applied is the number of fixes the transform reported applying.
	Applied int `json:"applied"`

	// Reverted is true if the regression guard tripped and the tree was
	// restored to its pre-phase checkpoint.
	Reverted bool `json:"reverted"`

	// Timeout is true if the toolchain invocation timed out.
	Timeout bool `json:"timeout,omitempty"`

	// DurationMs is the wall time of the attempt in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Error holds the failure description for failed phases.
	Error string `json:"error,omitempty"`

	// Changes summarizes committed file changes, when available.
	Changes []checkpoint.FileStat `json:"changes,omitempty"`
}

// RunReport is the structured artifact of one full remediation run.
//
// Created once at the end of a run and never mutated afterward. It is
// the only externally consumed artifact besides the mutated tree itself.
type RunReport struct {
	// Timestamp is when the run started.
	Timestamp time.Time `json:"timestamp"`

	// DurationMs is the whole-run wall time in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// InitialErrors and FinalErrors are the diagnostic counts at the
	// run boundaries.
	InitialErrors int `json:"initial_errors"`
	FinalErrors   int `json:"final_errors"`

	// TotalImprovement is InitialErrors - FinalErrors.
	TotalImprovement int `json:"total_improvement"`

	// SuccessRate is TotalImprovement/InitialErrors, 0 when the tree
	// started clean.
	SuccessRate float64 `json:"success_rate"`

	// DryRun marks reports produced by a simulated pass.
	DryRun bool `json:"dry_run,omitempty"`

	// Phases is the ordered run log (insertion order = execution order).
	Phases []PhaseResult `json:"phases"`

	// Recommendations are free-text follow-ups derived from categories
	// that still have diagnostics after the run.
	Recommendations []string `json:"recommendations,omitempty"`
}
