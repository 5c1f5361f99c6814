// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/remedy/cmd/remedy/config"
	"github.com/AleutianAI/remedy/services/remedy/backup"
	"github.com/AleutianAI/remedy/services/remedy/category"
	"github.com/AleutianAI/remedy/services/remedy/checkpoint"
	"github.com/AleutianAI/remedy/services/remedy/orchestrator"
	"github.com/AleutianAI/remedy/services/remedy/report"
	"github.com/AleutianAI/remedy/services/remedy/toolchain"
	"github.com/AleutianAI/remedy/services/remedy/transform"
)

// runRun executes one full remediation pass.
func runRun(cmd *cobra.Command, args []string) error {
	project := "."
	if len(args) == 1 {
		project = args[0]
	}
	absProject, err := filepath.Abs(project)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	cfg := config.Global

	timeout := time.Duration(cfg.Toolchain.TimeoutSeconds) * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	invoker, err := toolchain.NewCommandInvoker(toolchain.Config{
		Command: cfg.Toolchain.Command,
		Args:    cfg.Toolchain.Args,
		Dir:     absProject,
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("setting up toolchain: %w", err)
	}

	runCfg := orchestrator.Config{
		ProjectPath:           absProject,
		DryRun:                dryRun,
		BackupEnabled:         cfg.Run.BackupEnabled && !noBackup && !dryRun,
		MaxIterationsPerPhase: cfg.Run.MaxIterationsPerPhase,
		MaxAllowedIncrease:    cfg.Run.MaxAllowedIncrease,
		SettleQuiet:           time.Duration(cfg.Run.SettleQuietMs) * time.Millisecond,
		SettleMaxWait:         time.Duration(cfg.Run.SettleMaxWaitMs) * time.Millisecond,
	}
	if maxIterations > 0 {
		runCfg.MaxIterationsPerPhase = maxIterations
	}
	if maxAllowedIncrease >= 0 {
		runCfg.MaxAllowedIncrease = maxAllowedIncrease
	}

	var provider checkpoint.Provider
	if !dryRun {
		gp, err := checkpoint.NewGitProvider(absProject, 0)
		if err != nil {
			return fmt.Errorf("setting up checkpoints: %w", err)
		}
		provider = gp
	}

	// Every catalogue category gets a binding; deployments replace the
	// no-op defaults with real fix strategies.
	registry := transform.NewRegistry()
	for _, cat := range category.Catalog() {
		registry.Register(cat.StrategyID, &transform.NoopStrategy{ID: cat.StrategyID})
	}

	var opts []orchestrator.Option
	if runCfg.BackupEnabled {
		mgr, err := backup.NewManager(backup.Config{
			ProjectRoot: absProject,
			ArchiveRoot: cfg.Backup.ArchiveDir,
		})
		if err != nil {
			return fmt.Errorf("setting up backup archive: %w", err)
		}
		opts = append(opts, orchestrator.WithBackupManager(mgr))
	}

	o, err := orchestrator.New(runCfg, invoker, provider, registry, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := o.Run(ctx)
	if err != nil {
		return err
	}

	printRunSummary(r, o.ReportPath())

	if strict && r.FinalErrors > 0 {
		return fmt.Errorf("%d diagnostics remain (strict mode)", r.FinalErrors)
	}
	return nil
}

// printRunSummary renders the run outcome for the terminal.
func printRunSummary(r *report.RunReport, reportPath string) {
	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Printf("Remediation finished in %dms%s\n", r.DurationMs, mode)
	fmt.Printf("  diagnostics: %d -> %d (improvement %d, success rate %.1f%%)\n",
		r.InitialErrors, r.FinalErrors, r.TotalImprovement, r.SuccessRate*100)

	for _, p := range r.Phases {
		status := "committed"
		switch {
		case p.Error != "":
			status = "failed: " + p.Error
		case p.Reverted:
			status = "reverted"
		}
		fmt.Printf("  phase %-22s %4d -> %-4d %s\n", p.Category, p.BeforeCount, p.AfterCount, status)
	}

	for _, rec := range r.Recommendations {
		fmt.Printf("  note: %s\n", rec)
	}
	if !r.DryRun {
		fmt.Printf("Report written to %s\n", reportPath)
	}
}

// runReport prints the last persisted run report.
func runReport(cmd *cobra.Command, args []string) error {
	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return fmt.Errorf("resolving project path: %w", err)
	}

	path := filepath.Join(absProject, ".remedy", report.DefaultFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no report at %s; run 'remedy run' first", path)
		}
		return fmt.Errorf("reading report: %w", err)
	}

	_, err = os.Stdout.Write(data)
	return err
}
