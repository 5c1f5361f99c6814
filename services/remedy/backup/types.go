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
	"time"
)

// Backup describes one durable, restorable snapshot of specific files.
//
// Thread Safety: Immutable after creation.
type Backup struct {
	// ID is the opaque unique identifier. Restore is addressed by ID,
	// never by path, so it survives filesystem drift.
	ID string `json:"id"`

	// CreatedAt is the creation timestamp (nanosecond precision, so
	// creation order is recoverable from manifests alone).
	CreatedAt time.Time `json:"created_at"`

	// Description is the operator-facing reason for the backup.
	Description string `json:"description"`

	// Files are the backed-up paths, relative to the project root.
	Files []string `json:"files"`

	// BackupPath is the archive directory holding the copies.
	BackupPath string `json:"backup_path"`
}

// Config configures the archive manager.
//
// Thread Safety: Treat as immutable after creation.
type Config struct {
	// ProjectRoot is the tree the backed-up paths are relative to.
	ProjectRoot string

	// ArchiveRoot is where backup directories are created. Defaults to
	// <ProjectRoot>/.remedy/backups.
	ArchiveRoot string

	// CopyConcurrency bounds parallel file copies within one backup.
	// Defaults to 4. The tree is quiescent during backup, so fan-out
	// here does not violate the single-writer model.
	CopyConcurrency int
}

// manifestName is the per-backup manifest file.
const manifestName = "manifest.json"
