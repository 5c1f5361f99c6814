// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestManager creates a manager over a throwaway project tree with the
// given files.
func newTestManager(t *testing.T, files map[string]string) *Manager {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	m, err := NewManager(Config{ProjectRoot: root})
	require.NoError(t, err)
	return m
}

func TestCreateBackupWritesManifestAndCopies(t *testing.T) {
	m := newTestManager(t, map[string]string{
		"src/a.ts":      "const a = 1;\n",
		"src/deep/b.ts": "const b = 2;\n",
	})

	b, err := m.CreateBackup([]string{"src/a.ts", "src/deep/b.ts"}, "pre-phase snapshot")
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)

	// Relative paths are preserved inside the archive.
	copied, err := os.ReadFile(filepath.Join(b.BackupPath, "src/deep/b.ts"))
	require.NoError(t, err)
	assert.Equal(t, "const b = 2;\n", string(copied))

	_, err = os.Stat(filepath.Join(b.BackupPath, "manifest.json"))
	assert.NoError(t, err)
}

func TestBackupRoundTrip(t *testing.T) {
	// Backed-up bytes must equal restored bytes exactly.
	original := "original bytes \x00\xff with binary\n"
	m := newTestManager(t, map[string]string{"data.bin": original})

	b, err := m.CreateBackup([]string{"data.bin"}, "round trip")
	require.NoError(t, err)

	// Clobber the working copy.
	projectFile := filepath.Join(m.config.ProjectRoot, "data.bin")
	require.NoError(t, os.WriteFile(projectFile, []byte("mutated"), 0644))

	require.NoError(t, m.RestoreBackup(b.ID))

	restored, err := os.ReadFile(projectFile)
	require.NoError(t, err)
	assert.Equal(t, []byte(original), restored)
}

func TestCreateBackupAtomicOnFailure(t *testing.T) {
	m := newTestManager(t, map[string]string{"exists.ts": "x"})

	_, err := m.CreateBackup([]string{"exists.ts", "missing.ts"}, "partial")
	require.Error(t, err)

	// No partial backup may remain referenced.
	backups, err := m.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestCreateBackupRejectsEmptyFileList(t *testing.T) {
	m := newTestManager(t, nil)
	_, err := m.CreateBackup(nil, "empty")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListBackupsCreationOrder(t *testing.T) {
	// Scenario: three createBackup calls, listBackups returns exactly 3
	// records in creation order.
	m := newTestManager(t, map[string]string{"f.ts": "x"})

	var ids []string
	for _, desc := range []string{"first", "second", "third"} {
		b, err := m.CreateBackup([]string{"f.ts"}, desc)
		require.NoError(t, err)
		ids = append(ids, b.ID)
		time.Sleep(2 * time.Millisecond)
	}

	backups, err := m.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 3)
	for i := range ids {
		assert.Equal(t, ids[i], backups[i].ID)
	}
	assert.Equal(t, "first", backups[0].Description)
	assert.Equal(t, "third", backups[2].Description)
}

func TestRestoreUnknownID(t *testing.T) {
	m := newTestManager(t, nil)
	err := m.RestoreBackup("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreFailsLoudlyOnMissingArchivedFile(t *testing.T) {
	m := newTestManager(t, map[string]string{"f.ts": "keep me"})

	b, err := m.CreateBackup([]string{"f.ts"}, "to be corrupted")
	require.NoError(t, err)

	// Corrupt the archive.
	require.NoError(t, os.Remove(filepath.Join(b.BackupPath, "f.ts")))

	err = m.RestoreBackup(b.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchiveCorrupt)

	// The working copy was not touched.
	content, err := os.ReadFile(filepath.Join(m.config.ProjectRoot, "f.ts"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(content))
}

func TestPruneOlderThan(t *testing.T) {
	m := newTestManager(t, map[string]string{"f.ts": "x"})

	old, err := m.CreateBackup([]string{"f.ts"}, "old")
	require.NoError(t, err)
	fresh, err := m.CreateBackup([]string{"f.ts"}, "fresh")
	require.NoError(t, err)

	// Age the first backup by rewriting its manifest.
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, m.writeManifest(old))

	removed, err := m.PruneOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	backups, err := m.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, fresh.ID, backups[0].ID)
}

func TestNewManagerRequiresProjectRoot(t *testing.T) {
	_, err := NewManager(Config{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
