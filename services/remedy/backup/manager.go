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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Manager snapshots file contents before mutation and restores them by
// identifier.
//
// # Description
//
// Each backup is a uuid-keyed directory under the archive root containing
// copies of the backed-up files (preserving their relative paths) plus a
// manifest. Backup creation is atomic at the record level: if any file
// fails to copy, the partial directory is removed and no backup is left
// referenced.
//
// # Thread Safety
//
// Safe for concurrent use, though the orchestrator backs up sequentially.
type Manager struct {
	config Config
	logger *slog.Logger
}

// NewManager creates an archive manager rooted under the project.
//
// # Inputs
//
//   - config: Archive configuration. ProjectRoot is required.
//
// # Outputs
//
//   - *Manager: Ready-to-use manager; the archive root exists on return.
//   - error: Non-nil if ProjectRoot is missing or the archive root cannot
//     be created (a setup-level failure that aborts the whole run).
func NewManager(config Config) (*Manager, error) {
	if config.ProjectRoot == "" {
		return nil, fmt.Errorf("%w: ProjectRoot is required", ErrInvalidInput)
	}

	absRoot, err := filepath.Abs(config.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}
	config.ProjectRoot = absRoot

	if config.ArchiveRoot == "" {
		config.ArchiveRoot = filepath.Join(config.ProjectRoot, ".remedy", "backups")
	}
	if config.CopyConcurrency <= 0 {
		config.CopyConcurrency = 4
	}

	if err := os.MkdirAll(config.ArchiveRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating archive root: %w", err)
	}

	return &Manager{
		config: config,
		logger: slog.Default().With("component", "backup.Manager"),
	}, nil
}

// CreateBackup copies the current bytes of each file into a new backup.
//
// # Description
//
// Copies every listed file into a timestamped, uuid-identified archive
// directory, preserving relative paths, then writes the manifest last so
// a backup is only visible once complete. Any copy failure removes the
// partial directory and fails the call.
//
// # Inputs
//
//   - files: Paths relative to the project root. Must be non-empty.
//   - description: Operator-facing reason for the backup.
//
// # Outputs
//
//   - *Backup: The immutable backup record.
//   - error: Non-nil on any I/O failure; no partial backup remains.
func (m *Manager) CreateBackup(files []string, description string) (*Backup, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: files must not be empty", ErrInvalidInput)
	}

	b := &Backup{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now(),
		Description: description,
		Files:       append([]string(nil), files...),
	}
	b.BackupPath = filepath.Join(m.config.ArchiveRoot, b.ID)

	if err := os.MkdirAll(b.BackupPath, 0755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(m.config.CopyConcurrency)

	for _, rel := range files {
		g.Go(func() error {
			src := filepath.Join(m.config.ProjectRoot, rel)
			dst := filepath.Join(b.BackupPath, rel)
			if err := copyFile(src, dst); err != nil {
				return fmt.Errorf("backing up %s: %w", rel, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Record-level atomicity: remove the partial directory.
		if rmErr := os.RemoveAll(b.BackupPath); rmErr != nil {
			m.logger.Warn("failed to remove partial backup",
				"backup_id", b.ID,
				"error", rmErr)
		}
		return nil, err
	}

	if err := m.writeManifest(b); err != nil {
		if rmErr := os.RemoveAll(b.BackupPath); rmErr != nil {
			m.logger.Warn("failed to remove partial backup",
				"backup_id", b.ID,
				"error", rmErr)
		}
		return nil, err
	}

	m.logger.Info("backup created",
		"backup_id", b.ID,
		"files", len(b.Files),
		"description", description)

	return b, nil
}

// RestoreBackup overwrites the current files with the archived bytes.
//
// # Description
//
// Verifies every archived file exists before writing anything, so a
// corrupt archive fails loudly without a half-restored tree.
//
// # Inputs
//
//   - id: The backup identifier.
//
// # Outputs
//
//   - error: ErrNotFound for unknown IDs, ErrArchiveCorrupt if an
//     archived file is missing, or the first write failure.
func (m *Manager) RestoreBackup(id string) error {
	b, err := m.loadManifest(id)
	if err != nil {
		return err
	}

	// Verify the full archive before touching the tree.
	for _, rel := range b.Files {
		archived := filepath.Join(b.BackupPath, rel)
		if _, err := os.Stat(archived); err != nil {
			return fmt.Errorf("%w: %s missing from backup %s", ErrArchiveCorrupt, rel, id)
		}
	}

	for _, rel := range b.Files {
		src := filepath.Join(b.BackupPath, rel)
		dst := filepath.Join(m.config.ProjectRoot, rel)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("restoring %s: %w", rel, err)
		}
	}

	m.logger.Info("backup restored",
		"backup_id", id,
		"files", len(b.Files))

	return nil
}

// ListBackups returns all backups in creation order.
//
// # Outputs
//
//   - []Backup: All complete backups (those with a manifest), oldest
//     first. Directories without a manifest are skipped: they are either
//     in-flight or the debris of a failed create.
//   - error: Non-nil if the archive root is unreadable.
func (m *Manager) ListBackups() ([]Backup, error) {
	entries, err := os.ReadDir(m.config.ArchiveRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive root: %w", err)
	}

	var backups []Backup
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		b, err := m.loadManifest(entry.Name())
		if err != nil {
			continue
		}
		backups = append(backups, *b)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.Before(backups[j].CreatedAt)
	})

	return backups, nil
}

// PruneOlderThan removes backups older than the given age.
//
// # Description
//
// Backups are durable artifacts and are never deleted by the
// orchestrator itself; pruning is an explicit operator action.
//
// # Inputs
//
//   - maxAge: Backups created before now-maxAge are removed.
//
// # Outputs
//
//   - int: Number of backups removed.
//   - error: Non-nil if listing failed; individual removal failures are
//     logged and skipped.
func (m *Manager) PruneOlderThan(maxAge time.Duration) (int, error) {
	backups, err := m.ListBackups()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, b := range backups {
		if !b.CreatedAt.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(b.BackupPath); err != nil {
			m.logger.Warn("failed to prune backup",
				"backup_id", b.ID,
				"error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

// writeManifest persists the backup record inside its directory.
func (m *Manager) writeManifest(b *Backup) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	path := filepath.Join(b.BackupPath, manifestName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// loadManifest reads a backup record by ID.
func (m *Manager) loadManifest(id string) (*Backup, error) {
	path := filepath.Join(m.config.ArchiveRoot, id, manifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: manifest for %s: %v", ErrArchiveCorrupt, id, err)
	}
	return &b, nil
}

// copyFile copies src to dst byte-for-byte, creating parent directories
// and preserving the source mode.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating parent dir: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("creating copy: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return fmt.Errorf("copying bytes: %w", err)
	}

	return dstFile.Close()
}
