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
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/remedy/cmd/remedy/config"
	"github.com/AleutianAI/remedy/services/remedy/backup"
)

// newBackupManager builds the archive manager for the --project flag.
func newBackupManager() (*backup.Manager, error) {
	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolving project path: %w", err)
	}
	return backup.NewManager(backup.Config{
		ProjectRoot: absProject,
		ArchiveRoot: config.Global.Backup.ArchiveDir,
	})
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	mgr, err := newBackupManager()
	if err != nil {
		return err
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	for _, b := range backups {
		fmt.Printf("%s  %s  %3d files  %s\n",
			b.ID,
			b.CreatedAt.Format(time.RFC3339),
			len(b.Files),
			b.Description)
	}
	return nil
}

func runBackupsRestore(cmd *cobra.Command, args []string) error {
	mgr, err := newBackupManager()
	if err != nil {
		return err
	}

	id := args[0]
	if err := mgr.RestoreBackup(id); err != nil {
		return err
	}
	fmt.Printf("Restored backup %s\n", id)
	return nil
}

func runBackupsPrune(cmd *cobra.Command, args []string) error {
	mgr, err := newBackupManager()
	if err != nil {
		return err
	}

	days := pruneDays
	if days <= 0 {
		days = config.Global.Backup.RetentionDays
	}
	if days <= 0 {
		return fmt.Errorf("no retention window: set --days or backup.retention_days")
	}

	removed, err := mgr.PruneOlderThan(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d backup(s) older than %d day(s)\n", removed, days)
	return nil
}
