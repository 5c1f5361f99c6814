// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
)

// =============================================================================
// INVOKER
// =============================================================================

// CheckResult holds the raw outcome of one check-only toolchain run.
//
// Thread Safety: Immutable after creation.
type CheckResult struct {
	// Output is stdout and stderr concatenated, in that order. A
	// non-zero exit with diagnostic-shaped lines here is the normal
	// "errors found" case, not a tool failure.
	Output string

	// ExitCode is the toolchain's exit code.
	ExitCode int

	// Duration is how long the invocation took.
	Duration time.Duration
}

// Invoker runs the language toolchain in check-only mode.
//
// The orchestrator issues exactly one invocation at a time; implementations
// do not need to support concurrent calls against the same tree.
type Invoker interface {
	// Check runs the toolchain against the source tree.
	Check(ctx context.Context) (*CheckResult, error)
}

// Config configures a CommandInvoker.
//
// Thread Safety: Treat as immutable after creation.
type Config struct {
	// Command is the toolchain executable name (e.g., "tsc").
	Command string

	// Args are the check-only arguments (e.g., ["--noEmit"]).
	Args []string

	// Dir is the project directory the toolchain runs in.
	Dir string

	// Timeout is the hard per-invocation timeout. Defaults to 120s,
	// sized for large trees.
	Timeout time.Duration
}

// CommandInvoker implements Invoker as a blocking subprocess call.
//
// # Description
//
// Runs the configured command with a hard timeout and captures combined
// output. Construction verifies the binary is resolvable so a missing
// toolchain fails the run at setup, not mid-phase.
//
// # Thread Safety
//
// Safe for concurrent use, though the orchestrator never overlaps calls.
type CommandInvoker struct {
	config Config
	logger *slog.Logger
}

// NewCommandInvoker creates an invoker for the configured toolchain.
//
// # Inputs
//
//   - config: Toolchain command configuration. Dir must be set.
//
// # Outputs
//
//   - *CommandInvoker: Ready-to-use invoker.
//   - error: ErrInvalidInput for missing fields, ErrNotInstalled if the
//     binary is not in PATH.
func NewCommandInvoker(config Config) (*CommandInvoker, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("%w: Command is required", ErrInvalidInput)
	}
	if config.Dir == "" {
		return nil, fmt.Errorf("%w: Dir is required", ErrInvalidInput)
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}

	if _, err := exec.LookPath(config.Command); err != nil {
		return nil, NewInvokerError(config.Command, ErrNotInstalled)
	}

	absDir, err := filepath.Abs(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project dir: %w", err)
	}
	config.Dir = absDir

	return &CommandInvoker{
		config: config,
		logger: slog.Default().With("component", "toolchain.CommandInvoker"),
	}, nil
}

// Check runs the toolchain in check-only mode against the source tree.
//
// # Description
//
// Blocks until the toolchain exits or the timeout fires. A non-zero exit
// that produced output is returned as a successful CheckResult; only a
// silent failure or a timeout is an error.
//
// # Inputs
//
//   - ctx: Context for cancellation; the configured timeout is layered on.
//
// # Outputs
//
//   - *CheckResult: Combined output, exit code, and duration.
//   - error: ErrTimeout wrapped in InvokerError on deadline, ErrFailed if
//     the process failed without output.
func (inv *CommandInvoker) Check(ctx context.Context) (*CheckResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}

	start := time.Now()

	cmdCtx, cancel := context.WithTimeout(ctx, inv.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, inv.config.Command, inv.config.Args...)
	cmd.Dir = inv.config.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		return nil, NewInvokerError(inv.config.Command, ErrTimeout).
			WithOutput(stderr.String())
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, NewInvokerError(inv.config.Command, ErrFailed).
				WithOutput(stderr.String())
		}
	}

	// Exit code != 0 with no output at all is a tool failure, not a
	// normal errors-found run.
	if exitCode != 0 && stdout.Len() == 0 && stderr.Len() == 0 {
		return nil, NewInvokerError(inv.config.Command, ErrFailed)
	}

	inv.logger.Debug("toolchain check completed",
		slog.Int("exit_code", exitCode),
		slog.Duration("duration", duration),
	)

	return &CheckResult{
		Output:   stdout.String() + stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// Compile-time interface check
var _ Invoker = (*CommandInvoker)(nil)
