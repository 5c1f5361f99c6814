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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/remedy/services/remedy/backup"
	"github.com/AleutianAI/remedy/services/remedy/category"
	"github.com/AleutianAI/remedy/services/remedy/checkpoint"
	"github.com/AleutianAI/remedy/services/remedy/diag"
	"github.com/AleutianAI/remedy/services/remedy/report"
	"github.com/AleutianAI/remedy/services/remedy/toolchain"
	"github.com/AleutianAI/remedy/services/remedy/transform"
)

// diffStatter is the optional provider capability for per-file change
// stats in the run report.
type diffStatter interface {
	DiffStats(ctx context.Context, ref string) ([]checkpoint.FileStat, error)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs the measure-categorize-schedule-remediate loop.
//
// # Description
//
// A run measures the tree, groups diagnostics into root-cause categories,
// schedules one phase per non-empty category by priority, and executes the
// phases sequentially. Each phase is bracketed by a checkpoint; after the
// transform the tree is re-measured and the phase is committed or reverted
// by the regression guard. Phase failures are contained: a failed phase is
// recorded and the run moves on.
//
// # Thread Safety
//
// Run must not be called concurrently on the same Orchestrator. State is
// safe to read from other goroutines.
type Orchestrator struct {
	config    Config
	invoker   toolchain.Invoker
	snapshots checkpoint.Provider
	registry  *transform.Registry
	backups   *backup.Manager
	settler   Settler
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBackupManager wires the backup archive used when BackupEnabled is
// set.
func WithBackupManager(m *backup.Manager) Option {
	return func(o *Orchestrator) { o.backups = m }
}

// WithSettler replaces the default filesystem-quiescence settler.
func WithSettler(s Settler) Option {
	return func(o *Orchestrator) { o.settler = s }
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger.With("component", "orchestrator.Orchestrator")
	}
}

// New creates an orchestrator for one project tree.
//
// # Inputs
//
//   - config: Run configuration. ProjectPath is required.
//   - invoker: Check-only toolchain runner.
//   - snapshots: Checkpoint provider for the project tree.
//   - registry: Strategy registry resolved per phase.
//   - opts: Optional overrides.
//
// # Outputs
//
//   - *Orchestrator: Ready-to-run orchestrator in StateIdle.
//   - error: ErrInvalidInput for unusable configuration or missing
//     collaborators.
func New(config Config, invoker toolchain.Invoker, snapshots checkpoint.Provider, registry *transform.Registry, opts ...Option) (*Orchestrator, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if invoker == nil {
		return nil, fmt.Errorf("%w: invoker is required", ErrInvalidInput)
	}
	if snapshots == nil && !config.DryRun {
		return nil, fmt.Errorf("%w: snapshot provider is required", ErrInvalidInput)
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: strategy registry is required", ErrInvalidInput)
	}

	o := &Orchestrator{
		config:    config,
		invoker:   invoker,
		snapshots: snapshots,
		registry:  registry,
		logger:    slog.Default().With("component", "orchestrator.Orchestrator"),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.settler == nil {
		o.settler = NewFSSettler(config.ProjectPath, config.SettleQuiet, config.SettleMaxWait)
	}
	if config.BackupEnabled && o.backups == nil && !config.DryRun {
		return nil, fmt.Errorf("%w: BackupEnabled requires a backup manager", ErrInvalidInput)
	}

	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// ReportPath returns where Run persists the report for this project.
func (o *Orchestrator) ReportPath() string {
	return filepath.Join(o.config.ProjectPath, ".remedy", report.DefaultFileName)
}

// Run executes one full remediation pass.
//
// # Description
//
// Measures the tree first; a clean tree short-circuits to an immediate
// empty report. Otherwise phases run in schedule order. The report is
// always assembled and persisted, even when every phase failed; only a
// setup-level failure (the initial measurement) aborts the run.
//
// # Inputs
//
//   - ctx: Context for cancellation; phase timeouts are layered on by the
//     toolchain invoker.
//
// # Outputs
//
//   - *report.RunReport: The run artifact, also written to ReportPath
//     unless this is a dry run.
//   - error: Non-nil only for setup failures or a failed report write.
func (o *Orchestrator) Run(ctx context.Context) (*report.RunReport, error) {
	ctx, span := startRunSpan(ctx, o.config.ProjectPath, o.config.DryRun)
	defer span.End()

	o.setState(StateAnalyzing)
	o.logger.Info("run started",
		"project", o.config.ProjectPath,
		"dry_run", o.config.DryRun)

	records, err := o.measure(ctx)
	if err != nil {
		o.setState(StateFailed)
		recordRunMetrics(ctx, false)
		return nil, fmt.Errorf("%w: initial measurement: %v", ErrSetupFailed, err)
	}

	builder := report.NewBuilder(len(records), o.config.DryRun)

	if len(records) == 0 {
		o.logger.Info("tree is already clean")
		return o.finish(ctx, builder, records)
	}

	o.setState(StateScheduling)
	grouping := category.Categorize(records)
	phases := category.Schedule(grouping)
	o.logger.Info("phases scheduled",
		"diagnostics", grouping.Total,
		"phases", len(phases))

	current := len(records)
	lastRecords := records

	for _, phase := range phases {
		o.setState(StateRunningPhase)

		for iteration := 1; iteration <= o.config.MaxIterationsPerPhase; iteration++ {
			result, afterRecords := o.runPhase(ctx, phase, iteration, current)
			builder.AddPhase(result)
			recordPhaseMetrics(ctx, result.Category,
				time.Duration(result.DurationMs)*time.Millisecond,
				result.Improvement, result.Reverted, result.Error != "")

			if result.Error != "" || result.Reverted {
				break
			}

			current = result.AfterCount
			lastRecords = afterRecords

			if result.Improvement == 0 || current == 0 {
				break
			}
		}

		if current == 0 {
			break
		}
	}

	return o.finish(ctx, builder, lastRecords)
}

// finish assembles, persists, and returns the report. Dry runs return
// the report without writing anything.
func (o *Orchestrator) finish(ctx context.Context, builder *report.Builder, lastRecords []diag.Record) (*report.RunReport, error) {
	o.setState(StateReporting)

	r := builder.Finish(len(lastRecords), residualCounts(lastRecords))
	if !o.config.DryRun {
		if err := r.WriteFile(o.ReportPath()); err != nil {
			o.setState(StateFailed)
			recordRunMetrics(ctx, false)
			return r, fmt.Errorf("persisting run report: %w", err)
		}
	}

	o.setState(StateDone)
	recordRunMetrics(ctx, true)
	o.logger.Info("run finished",
		"initial_errors", r.InitialErrors,
		"final_errors", r.FinalErrors,
		"improvement", r.TotalImprovement)

	return r, nil
}

// =============================================================================
// PHASE EXECUTION
// =============================================================================

// runPhase executes one attempt at one category.
//
// # Description
//
// Checkpoint, optional backup, transform, settle, re-measure, then commit
// or revert. Every failure path is contained in the returned PhaseResult;
// runPhase never propagates an error to the run loop. The returned records
// are the post-phase measurement, or nil when the tree was not advanced
// (failure or revert).
func (o *Orchestrator) runPhase(ctx context.Context, phase category.Scheduled, iteration, before int) (report.PhaseResult, []diag.Record) {
	ctx, span := startPhaseSpan(ctx, phase.Category.Name, iteration)
	defer span.End()

	start := time.Now()
	result := report.PhaseResult{
		Category:    phase.Category.Name,
		Iteration:   iteration,
		BeforeCount: before,
		AfterCount:  before,
	}
	fail := func(stage string, err error) (report.PhaseResult, []diag.Record) {
		result.Error = fmt.Sprintf("%s: %v", stage, err)
		result.DurationMs = time.Since(start).Milliseconds()
		o.logger.Error("phase failed",
			"category", phase.Category.Name,
			"stage", stage,
			"error", err)
		return result, nil
	}

	o.logger.Info("phase started",
		"category", phase.Category.Name,
		"iteration", iteration,
		"priority", phase.Priority,
		"diagnostics", len(phase.Records))

	strategy, err := o.resolveStrategy(phase.Category)
	if err != nil {
		return fail("resolving strategy", err)
	}

	var ref string
	if !o.config.DryRun {
		ref, err = o.snapshots.Checkpoint(ctx, phase.Category.Name)
		if err != nil {
			return fail("checkpoint", err)
		}

		if o.config.BackupEnabled {
			files := phaseFiles(phase.Records)
			desc := fmt.Sprintf("before %s phase (iteration %d)", phase.Category.Name, iteration)
			if _, err := o.backups.CreateBackup(files, desc); err != nil {
				// Nothing mutated yet, so no revert is needed.
				return fail("backup", err)
			}
		}
	}

	applied, err := strategy.Apply(ctx, phase.Category, phase.Records, o.config.ProjectPath)
	if err != nil {
		o.revert(ctx, ref)
		return fail("transform", err)
	}
	result.Applied = applied.Applied

	if err := o.settler.Settle(ctx); err != nil {
		o.revert(ctx, ref)
		return fail("settling", err)
	}

	afterRecords, err := o.measure(ctx)
	if err != nil {
		result.Timeout = errors.Is(err, toolchain.ErrTimeout)
		o.revert(ctx, ref)
		return fail("re-measuring", err)
	}

	after := len(afterRecords)
	result.AfterCount = after
	if after < before {
		result.Improvement = before - after
	} else {
		result.Increase = after - before
	}

	if !o.config.DryRun {
		if result.Increase > o.config.MaxAllowedIncrease {
			o.revert(ctx, ref)
			result.Reverted = true
			result.DurationMs = time.Since(start).Milliseconds()
			o.logger.Warn("phase reverted by regression guard",
				"category", phase.Category.Name,
				"before", before,
				"after", after,
				"max_allowed_increase", o.config.MaxAllowedIncrease)
			return result, nil
		}

		result.Changes = o.diffStats(ctx, ref)
		label := fmt.Sprintf("%s phase (%d -> %d)", phase.Category.Name, before, after)
		if err := o.snapshots.Commit(ctx, label); err != nil {
			o.revert(ctx, ref)
			result.Changes = nil
			return fail("commit", err)
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	o.logger.Info("phase completed",
		"category", phase.Category.Name,
		"before", before,
		"after", after,
		"applied", result.Applied)

	return result, afterRecords
}

// resolveStrategy returns the phase's strategy, or a no-op for dry runs.
func (o *Orchestrator) resolveStrategy(cat category.Category) (transform.Strategy, error) {
	if o.config.DryRun {
		return &transform.NoopStrategy{ID: cat.StrategyID}, nil
	}
	return o.registry.Resolve(cat)
}

// revert restores the checkpoint, logging rather than propagating
// failures. A failed revert leaves the tree dirty, which the next
// measurement will surface.
func (o *Orchestrator) revert(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := o.snapshots.Revert(ctx, ref); err != nil {
		o.logger.Error("revert failed, tree may be dirty",
			"ref", ref,
			"error", err)
	}
}

// diffStats collects per-file change stats when the provider supports it.
func (o *Orchestrator) diffStats(ctx context.Context, ref string) []checkpoint.FileStat {
	ds, ok := o.snapshots.(diffStatter)
	if !ok || ref == "" {
		return nil
	}
	stats, err := ds.DiffStats(ctx, ref)
	if err != nil {
		o.logger.Debug("diff stats unavailable", "error", err)
		return nil
	}
	return stats
}

// =============================================================================
// MEASUREMENT
// =============================================================================

// measure runs one toolchain check and parses the diagnostics.
func (o *Orchestrator) measure(ctx context.Context) ([]diag.Record, error) {
	check, err := o.invoker.Check(ctx)
	if err != nil {
		return nil, err
	}
	records := diag.Parse(check.Output)
	o.logger.Debug("tree measured",
		"diagnostics", len(records),
		"exit_code", check.ExitCode,
		"duration", check.Duration)
	return records, nil
}

// phaseFiles returns the sorted unique file set of a phase's diagnostics.
func phaseFiles(records []diag.Record) []string {
	seen := make(map[string]struct{}, len(records))
	for i := range records {
		seen[records[i].File] = struct{}{}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// residualCounts groups surviving diagnostics per category for the
// report's recommendations.
func residualCounts(records []diag.Record) map[category.Category]int {
	if len(records) == 0 {
		return nil
	}
	grouping := category.Categorize(records)
	counts := make(map[category.Category]int, len(grouping.ByCategory))
	for name, recs := range grouping.ByCategory {
		cat, _ := category.Lookup(name)
		counts[cat] += len(recs)
	}
	return counts
}
