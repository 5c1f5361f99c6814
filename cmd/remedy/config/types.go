// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// RemedyConfig is the operator-facing configuration for the remedy CLI.
type RemedyConfig struct {
	// Toolchain: how to run the compiler in check-only mode
	Toolchain ToolchainConfig `yaml:"toolchain" validate:"required"`

	// Run: defaults for the remediation loop, overridable per-run by flags
	Run RunConfig `yaml:"run"`

	// Backup: archive location and retention
	Backup BackupConfig `yaml:"backup"`

	// Log: structured logging destinations
	Log LogConfig `yaml:"log"`
}

type ToolchainConfig struct {
	// Command is the check-only compiler executable, e.g. "tsc".
	Command string `yaml:"command" validate:"required"`

	// Args are the check-only arguments, e.g. ["--noEmit"].
	Args []string `yaml:"args"`

	// TimeoutSeconds is the hard per-invocation timeout.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"gte=0"`
}

type RunConfig struct {
	MaxIterationsPerPhase int  `yaml:"max_iterations_per_phase" validate:"gte=0"`
	MaxAllowedIncrease    int  `yaml:"max_allowed_increase" validate:"gte=0"`
	BackupEnabled         bool `yaml:"backup_enabled"`

	// SettleQuietMs is the filesystem quiet window required between a
	// transform and the re-measurement.
	SettleQuietMs int `yaml:"settle_quiet_ms" validate:"gte=0"`

	// SettleMaxWaitMs bounds the total quiescence wait.
	SettleMaxWaitMs int `yaml:"settle_max_wait_ms" validate:"gte=0"`
}

type BackupConfig struct {
	// ArchiveDir overrides the archive location. Empty means
	// <project>/.remedy/backups.
	ArchiveDir string `yaml:"archive_dir"`

	// RetentionDays drives the prune command's default cutoff.
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`
}

type LogConfig struct {
	// Dir enables JSON file logging when set. Supports ~ expansion.
	Dir string `yaml:"dir"`

	// Level is the minimum level logged: debug, info, warn, or error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

func DefaultConfig() RemedyConfig {
	return RemedyConfig{
		Toolchain: ToolchainConfig{
			Command:        "tsc",
			Args:           []string{"--noEmit"},
			TimeoutSeconds: 120,
		},
		Run: RunConfig{
			MaxIterationsPerPhase: 1,
			MaxAllowedIncrease:    0,
			BackupEnabled:         true,
			SettleQuietMs:         500,
			SettleMaxWaitMs:       10000,
		},
		Backup: BackupConfig{
			RetentionDays: 30,
		},
		Log: LogConfig{
			Dir:   "~/.remedy/logs",
			Level: "info",
		},
	}
}
