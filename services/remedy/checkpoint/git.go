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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// GitProvider implements Provider using the git command line.
//
// # Description
//
// Checkpoints are commits: Checkpoint stages everything and records an
// (allow-empty) commit whose SHA is the ref; Revert is a hard reset to
// that SHA plus removal of untracked debris; Commit stages and records
// the phase's changes. All operations run in the configured repository
// with a per-command timeout.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type GitProvider struct {
	repoPath string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewGitProvider creates a git-backed snapshot provider.
//
// # Inputs
//
//   - repoPath: Absolute path to the repository (the project tree).
//   - timeout: Maximum duration for each git operation. Defaults to 30s.
//
// # Outputs
//
//   - *GitProvider: Ready-to-use provider.
//   - error: Non-nil if repoPath is not absolute.
func NewGitProvider(repoPath string, timeout time.Duration) (*GitProvider, error) {
	if !filepath.IsAbs(repoPath) {
		return nil, fmt.Errorf("%w: repoPath must be absolute: %s", ErrInvalidInput, repoPath)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GitProvider{
		repoPath: repoPath,
		timeout:  timeout,
		logger:   slog.Default().With("component", "checkpoint.GitProvider"),
	}, nil
}

// run executes a git command and returns stdout.
func (g *GitProvider) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("git %s: timeout after %v", args[0], g.timeout)
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, stderr.String())
	}

	return strings.TrimSpace(stdout.String()), nil
}

// runSilent executes a git command and returns only success/failure.
func (g *GitProvider) runSilent(ctx context.Context, args ...string) error {
	_, err := g.run(ctx, args...)
	return err
}

// IsRepository checks if the path is inside a git repository.
func (g *GitProvider) IsRepository(ctx context.Context) bool {
	return g.runSilent(ctx, "rev-parse", "--git-dir") == nil
}

// IsClean reports whether the working tree has no pending changes.
//
// # Description
//
// Parses `git status --porcelain`; any output means pending changes.
func (g *GitProvider) IsClean(ctx context.Context) (bool, error) {
	output, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}
	return output == "", nil
}

// Checkpoint tags the current tree state and returns the commit SHA.
//
// # Description
//
// Stages all tracked and untracked changes and records an allow-empty
// commit, so the returned ref always exists even on a clean tree.
//
// # Inputs
//
//   - ctx: Context for timeout and cancellation.
//   - label: Human-readable checkpoint label.
//
// # Outputs
//
//   - string: Full commit SHA of the checkpoint.
//   - error: ErrNotRepository if the tree is not git-managed.
func (g *GitProvider) Checkpoint(ctx context.Context, label string) (string, error) {
	if !g.IsRepository(ctx) {
		return "", fmt.Errorf("%w: %s", ErrNotRepository, g.repoPath)
	}

	if err := g.runSilent(ctx, "add", "-A"); err != nil {
		return "", fmt.Errorf("staging for checkpoint: %w", err)
	}
	if err := g.runSilent(ctx, "commit", "--allow-empty", "-m", "remedy checkpoint: "+label); err != nil {
		return "", fmt.Errorf("recording checkpoint: %w", err)
	}

	sha, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolving checkpoint ref: %w", err)
	}

	g.logger.Debug("checkpoint created",
		"label", label,
		"ref", sha)

	return sha, nil
}

// Commit makes all changes since the last checkpoint durable.
//
// # Description
//
// Stages everything and commits. A phase with no effective changes is a
// no-op, not an error.
func (g *GitProvider) Commit(ctx context.Context, label string) error {
	if err := g.runSilent(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("staging for commit: %w", err)
	}

	staged, err := g.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return fmt.Errorf("checking staged changes: %w", err)
	}
	if staged == "" {
		g.logger.Debug("commit skipped, no changes", "label", label)
		return nil
	}

	if err := g.runSilent(ctx, "commit", "-m", "remedy: "+label); err != nil {
		return fmt.Errorf("committing phase: %w", err)
	}

	g.logger.Debug("phase committed", "label", label)
	return nil
}

// Revert restores the tree bit-for-bit to the checkpoint ref.
//
// # Description
//
// Hard-resets to the ref and removes untracked files and directories the
// reverted phase may have created. Ignored files are untouched.
func (g *GitProvider) Revert(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: ref must not be empty", ErrInvalidInput)
	}

	if err := g.runSilent(ctx, "reset", "--hard", ref); err != nil {
		return fmt.Errorf("resetting to checkpoint: %w", err)
	}
	if err := g.runSilent(ctx, "clean", "-fd"); err != nil {
		return fmt.Errorf("removing untracked files: %w", err)
	}

	g.logger.Info("tree reverted", "ref", ref)
	return nil
}

// Compile-time interface check
var _ Provider = (*GitProvider)(nil)
