// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package category

import (
	"sort"
	"strings"

	"github.com/AleutianAI/remedy/services/remedy/diag"
)

// =============================================================================
// CLASSIFICATION TABLES
// =============================================================================

// codeTable maps diagnostic codes to category names (exact match).
var codeTable = map[string]string{
	// Syntax.
	"TS1005":  SyntaxErrors, // ';' expected
	"TS1109":  SyntaxErrors, // expression expected
	"TS1128":  SyntaxErrors, // declaration or statement expected
	"TS1161":  SyntaxErrors, // unterminated regular expression
	"TS1434":  SyntaxErrors, // unexpected keyword or identifier
	"TS17008": SyntaxErrors, // JSX element has no corresponding closing tag

	// Imports.
	"TS2307": ImportIssues, // cannot find module
	"TS2305": ImportIssues, // module has no exported member
	"TS2306": ImportIssues, // file is not a module
	"TS1192": ImportIssues, // module has no default export
	"TS2614": ImportIssues, // module has no exported member (did you mean)

	// Types.
	"TS2322": TypeMismatches, // type X is not assignable to type Y
	"TS2345": TypeMismatches, // argument not assignable to parameter
	"TS2339": TypeMismatches, // property does not exist on type
	"TS2353": TypeMismatches, // object literal may only specify known properties
	"TS2740": TypeMismatches, // type is missing properties

	// Declarations.
	"TS2304": MissingDeclarations, // cannot find name
	"TS2552": MissingDeclarations, // cannot find name (did you mean)
	"TS2663": MissingDeclarations, // cannot find name (instance member)
	"TS7005": MissingDeclarations, // variable implicitly has an 'any' type
	"TS7006": MissingDeclarations, // parameter implicitly has an 'any' type

	// Unused code. TS6133 intentionally absent: it spans two root causes
	// and is routed by message fallback below.
	"TS6196": UnusedCode, // declared but never used
	"TS6138": UnusedCode, // property declared but never read

	// Configuration.
	"TS5023":  ConfigurationIssues, // unknown compiler option
	"TS5024":  ConfigurationIssues, // compiler option requires a value
	"TS5042":  ConfigurationIssues, // option incompatible with project references
	"TS18003": ConfigurationIssues, // no inputs found in config file
}

// fallbackRule routes a code whose category depends on message content.
type fallbackRule struct {
	code      string
	substring string
	category  string
}

// fallbackRules are checked in order; the first matching substring wins.
// They exist for codes that span multiple root causes, e.g. the generic
// "declared but its value is never read" covers both stale imports and
// dead local variables.
var fallbackRules = []fallbackRule{
	{code: "TS6133", substring: "import", category: ImportIssues},
	{code: "TS6133", substring: "", category: UnusedCode},
	{code: "TS6192", substring: "", category: ImportIssues}, // all imports unused
}

// =============================================================================
// GROUPING
// =============================================================================

// Grouping is the result of categorizing one snapshot of diagnostics.
//
// Thread Safety: Immutable after Categorize returns.
type Grouping struct {
	// ByCategory maps category name to its diagnostics, preserving the
	// source order of the input. Every input record appears in exactly
	// one bucket.
	ByCategory map[string][]diag.Record

	// ByCode maps diagnostic code to its diagnostics.
	ByCode map[string][]diag.Record

	// Total is the number of input records.
	Total int
}

// Categorize assigns each diagnostic to exactly one category.
//
// Description:
//
//	Classification is a deterministic lookup keyed on the diagnostic
//	code, with message-substring fallback rules for codes that span
//	multiple root causes. Unmatched diagnostics land in the "other"
//	bucket. Syntax-category diagnostics are escalated to critical
//	severity because they mask everything behind them.
//
// Inputs:
//
//	records - One fresh snapshot of diagnostics
//
// Outputs:
//
//	*Grouping - Buckets by category and by code; union of the category
//	buckets equals the input with no duplicates and no omissions
func Categorize(records []diag.Record) *Grouping {
	g := &Grouping{
		ByCategory: make(map[string][]diag.Record),
		ByCode:     make(map[string][]diag.Record),
		Total:      len(records),
	}

	for _, rec := range records {
		name := classify(rec)
		if name == SyntaxErrors && rec.Severity < diag.SeverityCritical {
			rec.Severity = diag.SeverityCritical
		}
		g.ByCategory[name] = append(g.ByCategory[name], rec)
		g.ByCode[rec.Code] = append(g.ByCode[rec.Code], rec)
	}

	return g
}

// classify resolves the category name for a single record.
func classify(rec diag.Record) string {
	if name, ok := codeTable[rec.Code]; ok {
		return name
	}

	msg := strings.ToLower(rec.Message)
	for _, rule := range fallbackRules {
		if rule.code != rec.Code {
			continue
		}
		if rule.substring == "" || strings.Contains(msg, rule.substring) {
			return rule.category
		}
	}

	return Other
}

// =============================================================================
// PRIORITY SCHEDULING
// =============================================================================

// Scheduled pairs a catalogue entry with its computed priority for one run.
type Scheduled struct {
	Category Category

	// Priority is BasePriority plus saturating volume adjustments.
	Priority float64

	// Records are the diagnostics scheduled for this category's phase.
	Records []diag.Record
}

// PriorityFor computes the scheduling priority for one category bucket.
//
// Description:
//
//	priority = base + min(fileCount*0.1, 2) + min(errorCount*0.01, 1)
//
//	The volume boosts saturate so a category with thousands of trivial
//	diagnostics cannot outrank a small but critical syntax category.
func PriorityFor(c Category, records []diag.Record) float64 {
	files := make(map[string]struct{}, len(records))
	for i := range records {
		files[records[i].File] = struct{}{}
	}

	fileBoost := float64(len(files)) * 0.1
	if fileBoost > 2 {
		fileBoost = 2
	}
	countBoost := float64(len(records)) * 0.01
	if countBoost > 1 {
		countBoost = 1
	}

	return c.BasePriority + fileBoost + countBoost
}

// Schedule orders the non-empty categories for phase execution.
//
// Description:
//
//	Sorts by priority descending; ties are broken by catalogue
//	declaration order, so the schedule is identical across repeated runs
//	on the same snapshot.
//
// Inputs:
//
//	g - The grouping produced by Categorize
//
// Outputs:
//
//	[]Scheduled - Execution order for the phase loop; empty categories
//	are omitted
func Schedule(g *Grouping) []Scheduled {
	scheduled := make([]Scheduled, 0, len(g.ByCategory))

	for _, c := range catalog {
		records := g.ByCategory[c.Name]
		if len(records) == 0 {
			continue
		}
		scheduled = append(scheduled, Scheduled{
			Category: c,
			Priority: PriorityFor(c, records),
			Records:  records,
		})
	}

	sort.SliceStable(scheduled, func(i, j int) bool {
		return scheduled[i].Priority > scheduled[j].Priority
	})

	return scheduled
}
