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
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// PARSER
// =============================================================================

// diagnosticLine matches the positional diagnostic format:
//
//	<file>(<line>,<column>): <severityKeyword> <code>: <message>
//
// Only the positional prefix is anchored; the message capture runs to end
// of line so multi-line messages keep their first line and continuation
// lines are skipped as non-conforming.
var diagnosticLine = regexp.MustCompile(`^(.+?)\((\d+),(\d+)\):\s+([A-Za-z]+)\s+([A-Za-z0-9_.-]+):\s?(.*)$`)

// Parse converts raw toolchain output into structured diagnostic records.
//
// Description:
//
//	Accepts toolchain stdout and stderr concatenated as one string.
//	Lines that do not match the positional pattern (banners, summaries,
//	message continuations) are silently skipped. Parsing is pure and
//	deterministic: identical input yields identical output in the source
//	order of the raw text.
//
// Inputs:
//
//	raw - Combined toolchain output
//
// Outputs:
//
//	[]Record - Parsed records; empty (not nil-error) for a clean tree
func Parse(raw string) []Record {
	records, _ := ParseReader(strings.NewReader(raw))
	return records
}

// ParseReader is the streaming variant of Parse for large outputs.
//
// Description:
//
//	Scans line by line so multi-megabyte toolchain output does not need
//	a second in-memory copy. Semantics are identical to Parse.
//
// Inputs:
//
//	r - Reader over combined toolchain output
//
// Outputs:
//
//	[]Record - Parsed records in source order
//	error - Non-nil only if reading fails; parse anomalies are not errors
func ParseReader(r io.Reader) ([]Record, error) {
	records := make([]Record, 0)

	scanner := bufio.NewScanner(r)
	// Toolchains can emit very long single-line messages.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if rec, ok := parseLine(scanner.Text()); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}

	return records, nil
}

// parseLine parses a single line into a record.
//
// Returns false for non-conforming lines, including positions below 1,
// which toolchains use for file-level banners.
func parseLine(line string) (Record, bool) {
	matches := diagnosticLine.FindStringSubmatch(line)
	if matches == nil {
		return Record{}, false
	}

	lineNo, err := strconv.Atoi(matches[2])
	if err != nil || lineNo < 1 {
		return Record{}, false
	}
	column, err := strconv.Atoi(matches[3])
	if err != nil || column < 1 {
		return Record{}, false
	}

	return Record{
		File:     strings.TrimSpace(matches[1]),
		Line:     lineNo,
		Column:   column,
		Code:     matches[5],
		Message:  matches[6],
		Severity: SeverityFromString(strings.ToLower(matches[4])),
	}, true
}

// Count returns the number of records with severity at or above the floor.
//
// Description:
//
//	The orchestrator measures regression on the full record count; this
//	helper exists for reporting breakdowns by severity.
func Count(records []Record, floor Severity) int {
	n := 0
	for i := range records {
		if records[i].Severity >= floor {
			n++
		}
	}
	return n
}
