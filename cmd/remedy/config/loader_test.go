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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".remedy", "remedy.yaml")

	var cfg RemedyConfig
	require.NoError(t, loadFrom(path, &cfg))

	// The default file now exists and round-trips.
	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "tsc", cfg.Toolchain.Command)
	assert.Equal(t, []string{"--noEmit"}, cfg.Toolchain.Args)
	assert.Equal(t, 1, cfg.Run.MaxIterationsPerPhase)
	assert.True(t, cfg.Run.BackupEnabled)
}

func TestLoadFromExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remedy.yaml")
	content := `toolchain:
  command: npx
  args: ["tsc", "--noEmit"]
  timeout_seconds: 60
run:
  max_allowed_increase: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	var cfg RemedyConfig
	require.NoError(t, loadFrom(path, &cfg))

	assert.Equal(t, "npx", cfg.Toolchain.Command)
	assert.Equal(t, 60, cfg.Toolchain.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Run.MaxAllowedIncrease)
}

func TestLoadFromRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remedy.yaml")

	// Missing toolchain.command fails validation.
	require.NoError(t, os.WriteFile(path, []byte("run:\n  max_allowed_increase: 0\n"), 0644))

	var cfg RemedyConfig
	err := loadFrom(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadFromRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remedy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("toolchain: [unclosed"), 0644))

	var cfg RemedyConfig
	assert.Error(t, loadFrom(path, &cfg))
}
