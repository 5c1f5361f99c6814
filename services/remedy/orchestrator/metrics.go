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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for remediation runs.
var (
	tracer = otel.Tracer("remedy.orchestrator")
	meter  = otel.Meter("remedy.orchestrator")
)

// Metrics for remediation phases and runs.
var (
	phaseLatency     metric.Float64Histogram
	phasesTotal      metric.Int64Counter
	phaseImprovement metric.Int64Histogram
	revertsTotal     metric.Int64Counter
	runsTotal        metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		phaseLatency, err = meter.Float64Histogram(
			"remedy_phase_duration_seconds",
			metric.WithDescription("Duration of remediation phases"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		phasesTotal, err = meter.Int64Counter(
			"remedy_phases_total",
			metric.WithDescription("Total number of remediation phases executed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		phaseImprovement, err = meter.Int64Histogram(
			"remedy_phase_improvement",
			metric.WithDescription("Diagnostics resolved per phase"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		revertsTotal, err = meter.Int64Counter(
			"remedy_reverts_total",
			metric.WithDescription("Total number of phases reverted by the regression guard"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runsTotal, err = meter.Int64Counter(
			"remedy_runs_total",
			metric.WithDescription("Total number of remediation runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startRunSpan creates a span for a full remediation run.
func startRunSpan(ctx context.Context, projectPath string, dryRun bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Orchestrator.Run",
		trace.WithAttributes(
			attribute.String("remedy.project_path", projectPath),
			attribute.Bool("remedy.dry_run", dryRun),
		),
	)
}

// startPhaseSpan creates a span for one phase attempt.
func startPhaseSpan(ctx context.Context, categoryName string, iteration int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Orchestrator.runPhase",
		trace.WithAttributes(
			attribute.String("remedy.category", categoryName),
			attribute.Int("remedy.iteration", iteration),
		),
	)
}

// recordPhaseMetrics records metrics for one phase attempt.
func recordPhaseMetrics(ctx context.Context, categoryName string, duration time.Duration, improvement int, reverted, failed bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("category", categoryName),
		attribute.Bool("failed", failed),
	)

	phaseLatency.Record(ctx, duration.Seconds(), attrs)
	phasesTotal.Add(ctx, 1, attrs)

	if reverted {
		revertsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", categoryName),
		))
	} else if !failed {
		phaseImprovement.Record(ctx, int64(improvement), metric.WithAttributes(
			attribute.String("category", categoryName),
		))
	}
}

// recordRunMetrics records metrics for a completed run.
func recordRunMetrics(ctx context.Context, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}
