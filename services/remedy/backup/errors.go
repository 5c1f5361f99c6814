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
	"errors"
)

// Sentinel errors for the backup package.
var (
	// ErrNotFound indicates no backup exists for the given ID.
	ErrNotFound = errors.New("backup not found")

	// ErrArchiveCorrupt indicates a backup's manifest references an
	// archived file that is missing or unreadable. Restore fails loudly
	// rather than restoring a partial set.
	ErrArchiveCorrupt = errors.New("backup archive corrupt")

	// ErrInvalidInput indicates invalid input to a backup operation.
	ErrInvalidInput = errors.New("invalid input")
)
