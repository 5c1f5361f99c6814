// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package transform defines the contract between the remediation
// orchestrator and the pluggable per-category fix strategies.
//
// The orchestrator never knows how a category's diagnostics are fixed; it
// only requires that a strategy is idempotent-safe (a second call on an
// already-fixed tree is a no-op returning Applied=0) and that every
// touched file is declared in Result.FilesChanged.
package transform

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AleutianAI/remedy/services/remedy/category"
	"github.com/AleutianAI/remedy/services/remedy/diag"
)

// Sentinel errors for the transform package.
var (
	// ErrStrategyNotFound indicates no strategy is registered for a
	// category's strategy ID.
	ErrStrategyNotFound = errors.New("transform strategy not found")

	// ErrInvalidInput indicates invalid input to a transform call.
	ErrInvalidInput = errors.New("invalid input")
)

// Result describes the effect of one strategy application.
type Result struct {
	// FilesChanged lists every file the strategy touched, including any
	// outside the diagnostics' reported file set.
	FilesChanged []string `json:"files_changed"`

	// Applied is the number of individual fixes applied. Zero means the
	// call was a no-op (already fixed, or nothing matched).
	Applied int `json:"applied"`
}

// Strategy remediates all diagnostics of one category.
//
// # Description
//
// Implementations mutate files under tree in place. Apply must be safe to
// invoke repeatedly: calling it again on an already-fixed tree must return
// Applied=0 without further mutation. Implementations must not spawn
// concurrent writers; the orchestrator owns the tree while a phase runs.
type Strategy interface {
	// Name returns the strategy identifier.
	Name() string

	// Apply attempts to fix the given diagnostics under the tree root.
	Apply(ctx context.Context, cat category.Category, records []diag.Record, tree string) (Result, error)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry resolves strategies by the catalogue's strategy IDs.
//
// # Description
//
// Strategies are registered at startup and dispatched dynamically per
// phase. The registry replaces any hard-coded per-category fix wiring.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds or replaces the strategy for an ID.
//
// Inputs:
//
//	id - The strategy ID, as referenced by category.Category.StrategyID
//	s - The strategy implementation
func (r *Registry) Register(id string, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[id] = s
}

// Get returns the strategy registered under an ID, or nil.
func (r *Registry) Get(id string) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.strategies[id]
}

// Resolve returns the strategy for a category.
//
// Outputs:
//
//	Strategy - The registered strategy
//	error - ErrStrategyNotFound if the category's strategy ID is unbound
func (r *Registry) Resolve(cat category.Category) (Strategy, error) {
	s := r.Get(cat.StrategyID)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, cat.StrategyID)
	}
	return s, nil
}

// IDs returns the registered strategy IDs (unordered).
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	return ids
}

// =============================================================================
// NOOP STRATEGY
// =============================================================================

// NoopStrategy is a strategy that never mutates anything.
//
// Used for dry runs and as a safe default binding for categories whose
// real strategy is not wired in a deployment.
type NoopStrategy struct {
	ID string
}

// Name returns the strategy identifier.
func (s *NoopStrategy) Name() string {
	if s.ID == "" {
		return "noop"
	}
	return s.ID
}

// Apply does nothing and reports zero applications.
func (s *NoopStrategy) Apply(ctx context.Context, cat category.Category, records []diag.Record, tree string) (Result, error) {
	if ctx == nil {
		return Result{}, fmt.Errorf("%w: ctx must not be nil", ErrInvalidInput)
	}
	return Result{FilesChanged: []string{}, Applied: 0}, nil
}

// Compile-time interface check
var _ Strategy = (*NoopStrategy)(nil)
