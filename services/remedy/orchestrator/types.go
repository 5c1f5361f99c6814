// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator drives the remediation run: measure, categorize,
// schedule, then execute one checkpointed phase per category with a
// regression guard deciding commit or revert.
package orchestrator

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the orchestrator package.
var (
	// ErrInvalidInput indicates invalid orchestrator configuration.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSetupFailed indicates the run could not start (toolchain missing,
	// tree not snapshot-managed, archive root unwritable).
	ErrSetupFailed = errors.New("run setup failed")
)

// State is the orchestrator's lifecycle state.
type State int

// Orchestrator lifecycle states, in normal order of progression.
const (
	StateIdle State = iota
	StateAnalyzing
	StateScheduling
	StateRunningPhase
	StateReporting
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateScheduling:
		return "scheduling"
	case StateRunningPhase:
		return "running-phase"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config configures a remediation run.
//
// Thread Safety: Treat as immutable after creation.
type Config struct {
	// ProjectPath is the absolute path to the project tree to remediate.
	ProjectPath string

	// DryRun simulates the run: phases execute against a no-op strategy
	// and no checkpoint, commit, or backup is taken. The report is still
	// produced.
	DryRun bool

	// BackupEnabled snapshots each phase's file set into the backup
	// archive before the transform runs.
	BackupEnabled bool

	// MaxIterationsPerPhase bounds repeated attempts at one category
	// within a single run. Defaults to 1; an iteration that makes no
	// progress ends the phase early regardless.
	MaxIterationsPerPhase int

	// MaxAllowedIncrease is the regression tolerance: a phase whose
	// whole-tree diagnostic count rises by more than this is reverted.
	// Zero (the default) reverts on any regression.
	MaxAllowedIncrease int

	// SettleQuiet is how long the tree must be free of filesystem events
	// after a transform before re-measuring. Defaults to 500ms.
	SettleQuiet time.Duration

	// SettleMaxWait bounds the total quiescence wait. Defaults to 10s.
	SettleMaxWait time.Duration
}

// validate applies defaults and rejects unusable configuration.
func (c *Config) validate() error {
	if c.ProjectPath == "" {
		return errors.New("ProjectPath is required")
	}
	if c.MaxIterationsPerPhase <= 0 {
		c.MaxIterationsPerPhase = 1
	}
	if c.MaxAllowedIncrease < 0 {
		return errors.New("MaxAllowedIncrease must not be negative")
	}
	if c.SettleQuiet <= 0 {
		c.SettleQuiet = 500 * time.Millisecond
	}
	if c.SettleMaxWait <= 0 {
		c.SettleMaxWait = 10 * time.Second
	}
	return nil
}

// Settler blocks until the project tree has stopped changing.
//
// The orchestrator settles between applying a transform and re-measuring,
// so editors, formatters, or build daemons reacting to the mutation do not
// race the measurement.
type Settler interface {
	Settle(ctx context.Context) error
}
