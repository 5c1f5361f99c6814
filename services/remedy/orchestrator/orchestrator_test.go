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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/remedy/services/remedy/backup"
	"github.com/AleutianAI/remedy/services/remedy/category"
	"github.com/AleutianAI/remedy/services/remedy/diag"
	"github.com/AleutianAI/remedy/services/remedy/toolchain"
	"github.com/AleutianAI/remedy/services/remedy/transform"
)

// fakeTree couples the fake invoker, provider, and strategies: strategies
// rewrite the toolchain output, checkpoints save it, reverts restore it.
type fakeTree struct {
	output  string
	saved   map[string]string
	refSeq  int
	commits []string
	reverts []string
}

func newFakeTree(output string) *fakeTree {
	return &fakeTree{output: output, saved: make(map[string]string)}
}

type fakeProvider struct {
	tree *fakeTree
}

func (p *fakeProvider) Checkpoint(ctx context.Context, label string) (string, error) {
	p.tree.refSeq++
	ref := fmt.Sprintf("ref-%d", p.tree.refSeq)
	p.tree.saved[ref] = p.tree.output
	return ref, nil
}

func (p *fakeProvider) Commit(ctx context.Context, label string) error {
	p.tree.commits = append(p.tree.commits, label)
	return nil
}

func (p *fakeProvider) Revert(ctx context.Context, ref string) error {
	saved, ok := p.tree.saved[ref]
	if !ok {
		return fmt.Errorf("unknown ref %s", ref)
	}
	p.tree.output = saved
	p.tree.reverts = append(p.tree.reverts, ref)
	return nil
}

type fakeInvoker struct {
	tree  *fakeTree
	calls int
}

func (inv *fakeInvoker) Check(ctx context.Context) (*toolchain.CheckResult, error) {
	inv.calls++
	exitCode := 0
	if inv.tree.output != "" {
		exitCode = 2
	}
	return &toolchain.CheckResult{Output: inv.tree.output, ExitCode: exitCode}, nil
}

// rewriteStrategy replaces the whole toolchain output on apply.
type rewriteStrategy struct {
	id      string
	tree    *fakeTree
	outputs []string
	call    int
	applied int
}

func (s *rewriteStrategy) Name() string { return s.id }

func (s *rewriteStrategy) Apply(ctx context.Context, cat category.Category, records []diag.Record, treePath string) (transform.Result, error) {
	i := s.call
	if i >= len(s.outputs) {
		i = len(s.outputs) - 1
	}
	s.call++
	s.tree.output = s.outputs[i]
	return transform.Result{Applied: s.applied}, nil
}

type instantSettler struct{}

func (instantSettler) Settle(ctx context.Context) error { return nil }

// diagLines fabricates n toolchain diagnostics with the given code.
func diagLines(code string, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "src/file%d.ts(%d,5): error %s: synthetic diagnostic %d\n", i, i+1, code, i)
	}
	return sb.String()
}

func newTestOrchestrator(t *testing.T, tree *fakeTree, config Config, registry *transform.Registry) *Orchestrator {
	t.Helper()
	if config.ProjectPath == "" {
		config.ProjectPath = t.TempDir()
	}
	o, err := New(config, &fakeInvoker{tree: tree}, &fakeProvider{tree: tree}, registry,
		WithSettler(instantSettler{}))
	require.NoError(t, err)
	return o
}

func TestRunCleanTreeShortCircuits(t *testing.T) {
	tree := newFakeTree("")
	o := newTestOrchestrator(t, tree, Config{}, transform.NewRegistry())

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, r.InitialErrors)
	assert.Zero(t, r.FinalErrors)
	assert.Empty(t, r.Phases)
	assert.Equal(t, StateDone, o.State())

	// The report artifact is written even for a clean tree.
	_, statErr := os.Stat(o.ReportPath())
	assert.NoError(t, statErr)
}

func TestRunRegressionGuardReverts(t *testing.T) {
	// A phase that makes things worse beyond the tolerance is rolled
	// back and the tree count carries forward unchanged.
	tree := newFakeTree(diagLines("TS2322", 50))

	registry := transform.NewRegistry()
	registry.Register(category.TypeMismatches, &rewriteStrategy{
		id:      category.TypeMismatches,
		tree:    tree,
		outputs: []string{diagLines("TS2322", 65)},
		applied: 65,
	})

	o := newTestOrchestrator(t, tree, Config{MaxAllowedIncrease: 10}, registry)

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, 1)
	phase := r.Phases[0]
	assert.Equal(t, category.TypeMismatches, phase.Category)
	assert.Equal(t, 50, phase.BeforeCount)
	assert.Equal(t, 65, phase.AfterCount)
	assert.Equal(t, 15, phase.Increase)
	assert.True(t, phase.Reverted)
	assert.Empty(t, phase.Error)

	// Tree restored, nothing committed.
	assert.Equal(t, diagLines("TS2322", 50), tree.output)
	assert.Len(t, tree.reverts, 1)
	assert.Empty(t, tree.commits)

	assert.Equal(t, 50, r.FinalErrors)
	assert.Zero(t, r.TotalImprovement)
}

func TestRunIncreaseWithinToleranceCommits(t *testing.T) {
	tree := newFakeTree(diagLines("TS2322", 50))

	registry := transform.NewRegistry()
	registry.Register(category.TypeMismatches, &rewriteStrategy{
		id:      category.TypeMismatches,
		tree:    tree,
		outputs: []string{diagLines("TS2322", 55)},
	})

	o := newTestOrchestrator(t, tree, Config{MaxAllowedIncrease: 10}, registry)

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, 1)
	assert.False(t, r.Phases[0].Reverted)
	assert.Equal(t, 5, r.Phases[0].Increase)
	assert.Len(t, tree.commits, 1)
	assert.Empty(t, tree.reverts)
}

func TestRunImprovementCarriesForward(t *testing.T) {
	// Two categories; the first phase's after-count is the second
	// phase's before-count.
	tree := newFakeTree(diagLines("TS2322", 20) + diagLines("TS2304", 30))

	registry := transform.NewRegistry()
	registry.Register(category.TypeMismatches, &rewriteStrategy{
		id:      category.TypeMismatches,
		tree:    tree,
		outputs: []string{diagLines("TS2304", 30)},
		applied: 20,
	})
	registry.Register(category.MissingDeclarations, &rewriteStrategy{
		id:      category.MissingDeclarations,
		tree:    tree,
		outputs: []string{""},
		applied: 30,
	})

	o := newTestOrchestrator(t, tree, Config{}, registry)

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, 2)

	// type-mismatches (base 70) schedules before missing-declarations
	// (base 60).
	assert.Equal(t, category.TypeMismatches, r.Phases[0].Category)
	assert.Equal(t, 50, r.Phases[0].BeforeCount)
	assert.Equal(t, 30, r.Phases[0].AfterCount)
	assert.Equal(t, 20, r.Phases[0].Improvement)

	assert.Equal(t, category.MissingDeclarations, r.Phases[1].Category)
	assert.Equal(t, 30, r.Phases[1].BeforeCount)
	assert.Equal(t, 0, r.Phases[1].AfterCount)

	assert.Equal(t, 0, r.FinalErrors)
	assert.Equal(t, 50, r.TotalImprovement)
	assert.InDelta(t, 1.0, r.SuccessRate, 1e-9)
	assert.Len(t, tree.commits, 2)
}

func TestRunStopsIterationsWithoutProgress(t *testing.T) {
	// A strategy that changes nothing ends its phase after one
	// iteration even when more are allowed.
	tree := newFakeTree(diagLines("TS2322", 10))

	registry := transform.NewRegistry()
	registry.Register(category.TypeMismatches, &rewriteStrategy{
		id:      category.TypeMismatches,
		tree:    tree,
		outputs: []string{diagLines("TS2322", 10)},
	})

	o := newTestOrchestrator(t, tree, Config{MaxIterationsPerPhase: 3}, registry)

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, 1)
	assert.Zero(t, r.Phases[0].Improvement)
	assert.Equal(t, 10, r.FinalErrors)
}

func TestRunIteratesWhileImproving(t *testing.T) {
	tree := newFakeTree(diagLines("TS2322", 50))

	registry := transform.NewRegistry()
	registry.Register(category.TypeMismatches, &rewriteStrategy{
		id:      category.TypeMismatches,
		tree:    tree,
		outputs: []string{diagLines("TS2322", 30), diagLines("TS2322", 10)},
	})

	o := newTestOrchestrator(t, tree, Config{MaxIterationsPerPhase: 2}, registry)

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, 2)
	assert.Equal(t, 1, r.Phases[0].Iteration)
	assert.Equal(t, 2, r.Phases[1].Iteration)
	assert.Equal(t, 30, r.Phases[1].BeforeCount)
	assert.Equal(t, 10, r.FinalErrors)
}

func TestRunUnboundStrategyIsContained(t *testing.T) {
	// syntax-errors has no registered strategy; its phase fails but the
	// next phase still runs.
	tree := newFakeTree(diagLines("TS1005", 5) + diagLines("TS2304", 10))

	registry := transform.NewRegistry()
	registry.Register(category.MissingDeclarations, &rewriteStrategy{
		id:      category.MissingDeclarations,
		tree:    tree,
		outputs: []string{diagLines("TS1005", 5)},
	})

	o := newTestOrchestrator(t, tree, Config{}, registry)

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, r.Phases, 2)
	assert.Equal(t, category.SyntaxErrors, r.Phases[0].Category)
	assert.NotEmpty(t, r.Phases[0].Error)
	assert.Equal(t, category.MissingDeclarations, r.Phases[1].Category)
	assert.Empty(t, r.Phases[1].Error)

	assert.Equal(t, 5, r.FinalErrors)
	require.Len(t, r.Recommendations, 1)
	assert.Contains(t, r.Recommendations[0], "syntax-errors")
	assert.Equal(t, StateDone, o.State())
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	tree := newFakeTree(diagLines("TS2322", 8))

	// No strategies registered; dry runs substitute a no-op anyway.
	o := newTestOrchestrator(t, tree, Config{DryRun: true}, transform.NewRegistry())

	r, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, r.DryRun)
	require.Len(t, r.Phases, 1)
	assert.Zero(t, r.Phases[0].Applied)
	assert.Zero(t, r.Phases[0].Improvement)

	assert.Empty(t, tree.commits)
	assert.Empty(t, tree.reverts)
	assert.Empty(t, tree.saved)
	assert.Equal(t, diagLines("TS2322", 8), tree.output)

	// Dry runs write no report artifact.
	_, statErr := os.Stat(o.ReportPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunScheduleOrderIsDeterministic(t *testing.T) {
	build := func() (*fakeTree, *transform.Registry) {
		tree := newFakeTree(
			diagLines("TS6196", 40) + diagLines("TS1005", 2) + diagLines("TS2307", 7))
		registry := transform.NewRegistry()
		for _, id := range []string{category.SyntaxErrors, category.ImportIssues, category.UnusedCode} {
			registry.Register(id, &rewriteStrategy{
				id:      id,
				tree:    tree,
				outputs: []string{tree.output},
			})
		}
		return tree, registry
	}

	var first []string
	for i := 0; i < 3; i++ {
		tree, registry := build()
		o := newTestOrchestrator(t, tree, Config{}, registry)
		r, err := o.Run(context.Background())
		require.NoError(t, err)

		order := make([]string, len(r.Phases))
		for j, p := range r.Phases {
			order[j] = p.Category
		}
		if first == nil {
			first = order
			assert.Equal(t, []string{
				category.SyntaxErrors,
				category.ImportIssues,
				category.UnusedCode,
			}, order)
			continue
		}
		assert.Equal(t, first, order)
	}
}

func TestRunBackupBeforePhase(t *testing.T) {
	project := t.TempDir()
	for _, rel := range []string{"src/file0.ts", "src/file1.ts"} {
		path := filepath.Join(project, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("export {}\n"), 0644))
	}

	tree := newFakeTree(diagLines("TS2322", 2))
	registry := transform.NewRegistry()
	registry.Register(category.TypeMismatches, &rewriteStrategy{
		id:      category.TypeMismatches,
		tree:    tree,
		outputs: []string{""},
		applied: 2,
	})

	mgr, err := backup.NewManager(backup.Config{ProjectRoot: project})
	require.NoError(t, err)

	o, err := New(Config{ProjectPath: project, BackupEnabled: true},
		&fakeInvoker{tree: tree}, &fakeProvider{tree: tree}, registry,
		WithSettler(instantSettler{}), WithBackupManager(mgr))
	require.NoError(t, err)

	r, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, r.FinalErrors)

	backups, err := mgr.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, []string{"src/file0.ts", "src/file1.ts"}, backups[0].Files)
	assert.Contains(t, backups[0].Description, category.TypeMismatches)
}

func TestNewValidation(t *testing.T) {
	tree := newFakeTree("")

	_, err := New(Config{}, &fakeInvoker{tree: tree}, &fakeProvider{tree: tree}, transform.NewRegistry())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(Config{ProjectPath: "/tmp/p"}, nil, &fakeProvider{tree: tree}, transform.NewRegistry())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(Config{ProjectPath: "/tmp/p", BackupEnabled: true},
		&fakeInvoker{tree: tree}, &fakeProvider{tree: tree}, transform.NewRegistry())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(99).String())
}
