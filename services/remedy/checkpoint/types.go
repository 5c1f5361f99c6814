// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package checkpoint abstracts the versioned-snapshot provider the
// orchestrator uses for its per-phase checkpoint/commit/revert protocol.
//
// The orchestrator's logic is independent of which snapshot mechanism is
// wired in; GitProvider is the default implementation, but any system
// that can tag the current tree state and revert to it satisfies the
// Provider contract.
package checkpoint

import (
	"context"
	"errors"
)

// Sentinel errors for the checkpoint package.
var (
	// ErrNotRepository indicates the project tree is not under the
	// snapshot provider's control.
	ErrNotRepository = errors.New("not a snapshot-managed tree")

	// ErrInvalidInput indicates invalid input to a provider operation.
	ErrInvalidInput = errors.New("invalid input")
)

// Provider tags tree states and reverts to them.
//
// # Description
//
// Checkpoint captures the current tree state under a label before a phase
// mutates anything and returns an opaque ref. Commit makes the phase's
// changes durable. Revert restores the tree bit-for-bit to a previously
// returned ref. Crash consistency between these calls is the provider's
// concern, not the orchestrator's.
type Provider interface {
	// Checkpoint tags the current tree state and returns its ref.
	Checkpoint(ctx context.Context, label string) (ref string, err error)

	// Commit makes all changes since the last checkpoint durable.
	Commit(ctx context.Context, label string) error

	// Revert restores the tree to the state captured at ref.
	Revert(ctx context.Context, ref string) error
}

// FileStat summarizes the change to one file between a checkpoint and the
// current tree.
type FileStat struct {
	// Path is the file path as reported by the provider.
	Path string `json:"path"`

	// Added and Deleted are changed line counts.
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}
