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
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AleutianAI/remedy/cmd/remedy/config"
	"github.com/AleutianAI/remedy/pkg/logging"
)

// --- Global Command Variables ---
var (
	projectPath        string
	dryRun             bool
	noBackup           bool
	maxIterations      int
	maxAllowedIncrease int
	timeoutSeconds     int
	strict             bool
	verbose            bool
	debugMetrics       bool
	pruneDays          int

	logger          *logging.Logger
	metricsShutdown func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "remedy",
		Short: "Remediate compiler diagnostics in prioritized, reversible phases",
		Long: `Remedy runs your compiler in check-only mode, groups the diagnostics
by root cause, and fixes them one checkpointed phase at a time. A phase
that makes the tree worse is reverted automatically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}

			level := parseLevel(config.Global.Log.Level)
			if verbose {
				level = slog.LevelDebug
			}
			log, err := logging.New(logging.Config{
				Level:   level,
				LogDir:  config.Global.Log.Dir,
				Service: "remedy",
			})
			if err != nil {
				return err
			}
			log.Install()
			logger = log

			if debugMetrics {
				shutdown, err := setupDebugMetrics()
				if err != nil {
					return err
				}
				metricsShutdown = shutdown
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if metricsShutdown != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := metricsShutdown(ctx); err != nil {
					slog.Warn("metrics shutdown failed", "error", err)
				}
			}
			if logger != nil {
				logger.Close()
			}
		},
	}

	runCmd = &cobra.Command{
		Use:   "run [project-path]",
		Short: "Run one full remediation pass against a project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRun, // Defined in cmd_run.go
	}

	// --- Backup Archive ---
	backupsCmd = &cobra.Command{
		Use:   "backups",
		Short: "Inspect and manage the pre-phase backup archive",
	}
	backupsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all backups for a project, oldest first",
		RunE:  runBackupsList, // Defined in cmd_backups.go
	}
	backupsRestoreCmd = &cobra.Command{
		Use:   "restore [backup-id]",
		Short: "Overwrite the project files with a backup's archived bytes",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupsRestore, // Defined in cmd_backups.go
	}
	backupsPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Remove backups older than the retention window",
		RunE:  runBackupsPrune, // Defined in cmd_backups.go
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Print the last run's report",
		RunE:  runReport, // Defined in cmd_run.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&debugMetrics, "debug-metrics", false,
		"Periodically dump otel metrics to stdout")

	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false,
		"Simulate the run without mutating the tree")
	runCmd.Flags().BoolVar(&noBackup, "no-backup", false,
		"Skip pre-phase file backups")
	runCmd.Flags().IntVar(&maxIterations, "max-iterations", 0,
		"Max iterations per phase (0 = config default)")
	runCmd.Flags().IntVar(&maxAllowedIncrease, "max-allowed-increase", -1,
		"Regression tolerance before a phase is reverted (-1 = config default)")
	runCmd.Flags().IntVar(&timeoutSeconds, "timeout", 0,
		"Toolchain invocation timeout in seconds (0 = config default)")
	runCmd.Flags().BoolVar(&strict, "strict", false,
		"Exit nonzero if diagnostics remain after the run")

	rootCmd.AddCommand(backupsCmd)
	backupsCmd.PersistentFlags().StringVar(&projectPath, "project", ".",
		"Project path whose backup archive to use")
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsRestoreCmd)
	backupsCmd.AddCommand(backupsPruneCmd)
	backupsPruneCmd.Flags().IntVar(&pruneDays, "days", 0,
		"Remove backups older than this many days (0 = config default)")

	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&projectPath, "project", ".",
		"Project path whose report to print")
}

// parseLevel maps the config level name to a slog level.
func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupDebugMetrics installs a periodic stdout metric exporter.
func setupDebugMetrics() (func(context.Context) error, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(5*time.Second))),
	)
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}
