// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diag

import (
	"encoding/json"
	"strconv"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	// SeverityLow represents informational or stylistic findings.
	SeverityLow Severity = iota

	// SeverityMedium represents findings worth attention that do not
	// block compilation.
	SeverityMedium

	// SeverityHigh represents findings that block compilation.
	SeverityHigh

	// SeverityCritical represents findings that invalidate whole files,
	// typically syntax errors that mask everything behind them.
	SeverityCritical
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses a severity from its string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = SeverityFromString(str)
	return nil
}

// SeverityFromString parses a severity string.
//
// Description:
//
//	Parses severity keywords as emitted by toolchains. Unknown values
//	default to SeverityMedium.
//
// Inputs:
//
//	s - Severity string (e.g., "error", "warning", "info")
//
// Outputs:
//
//	Severity - The parsed severity level
func SeverityFromString(s string) Severity {
	switch s {
	case "error", "err", "fatal", "critical":
		return SeverityHigh
	case "warning", "warn", "medium":
		return SeverityMedium
	case "info", "note", "hint", "low":
		return SeverityLow
	case "high":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// =============================================================================
// DIAGNOSTIC RECORD
// =============================================================================

// Record represents a single positional diagnostic from the toolchain.
//
// Records are a fresh snapshot of one toolchain run. They are never merged
// across runs; the same (file, line, code) may legitimately repeat.
//
// Thread Safety: Immutable after parsing.
type Record struct {
	// File is the path to the file containing the diagnostic, as reported
	// by the toolchain (usually relative to the project root).
	File string `json:"file"`

	// Line is the 1-indexed line number.
	Line int `json:"line"`

	// Column is the 1-indexed column number.
	Column int `json:"column"`

	// Code is the toolchain's diagnostic code (e.g., "TS2304").
	Code string `json:"code"`

	// Message is the human-readable description, captured to end of line.
	Message string `json:"message"`

	// Severity is the severity level derived from the severity keyword.
	// The categorizer may escalate it for root causes that mask other
	// diagnostics.
	Severity Severity `json:"severity"`
}

// Location returns a formatted location string (file(line,col)).
func (r *Record) Location() string {
	return r.File + "(" + strconv.Itoa(r.Line) + "," + strconv.Itoa(r.Column) + ")"
}
