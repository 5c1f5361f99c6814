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

// =============================================================================
// CATEGORY
// =============================================================================

// Category is a root-cause grouping of diagnostics sharing a remediation
// strategy.
//
// Thread Safety: Treat as immutable after creation.
type Category struct {
	// Name identifies the category (e.g., "syntax-errors").
	Name string `json:"name"`

	// BasePriority is the fixed weight before volume adjustments.
	// Syntax categories carry the highest base priority regardless of
	// diagnostic volume, since unfixed syntax masks everything behind it.
	BasePriority float64 `json:"base_priority"`

	// RootCause is a short description of what diagnostics in this
	// category have in common.
	RootCause string `json:"root_cause"`

	// StrategyID names the transform strategy that remediates this
	// category. Resolved against the transform registry at run time.
	StrategyID string `json:"strategy_id"`
}

// Catalog names, matching the fixed catalogue order.
const (
	SyntaxErrors        = "syntax-errors"
	ImportIssues        = "import-issues"
	TypeMismatches      = "type-mismatches"
	MissingDeclarations = "missing-declarations"
	UnusedCode          = "unused-code"
	ConfigurationIssues = "configuration-issues"
	Other               = "other"
)

// catalog is the fixed, ordered category catalogue. Declaration order is
// the tiebreaker when priorities are equal, so the order here is part of
// the scheduling contract.
var catalog = []Category{
	{
		Name:         SyntaxErrors,
		BasePriority: 100,
		RootCause:    "malformed source that masks downstream diagnostics",
		StrategyID:   SyntaxErrors,
	},
	{
		Name:         ImportIssues,
		BasePriority: 80,
		RootCause:    "unresolved, missing, or unused module imports",
		StrategyID:   ImportIssues,
	},
	{
		Name:         TypeMismatches,
		BasePriority: 70,
		RootCause:    "value assigned or passed where its type is not accepted",
		StrategyID:   TypeMismatches,
	},
	{
		Name:         MissingDeclarations,
		BasePriority: 60,
		RootCause:    "identifiers referenced without a visible declaration",
		StrategyID:   MissingDeclarations,
	},
	{
		Name:         UnusedCode,
		BasePriority: 40,
		RootCause:    "declarations whose value is never read",
		StrategyID:   UnusedCode,
	},
	{
		Name:         ConfigurationIssues,
		BasePriority: 30,
		RootCause:    "toolchain or project configuration problems",
		StrategyID:   ConfigurationIssues,
	},
	{
		Name:         Other,
		BasePriority: 10,
		RootCause:    "diagnostics with no matching classification rule",
		StrategyID:   Other,
	},
}

// Catalog returns the fixed category catalogue in declaration order.
//
// Description:
//
//	Returns a copy so callers cannot mutate the catalogue.
func Catalog() []Category {
	out := make([]Category, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalogue entry with the given name.
//
// Outputs:
//
//	Category - The entry, or the "other" entry if the name is unknown
//	bool - False if the name was unknown
func Lookup(name string) (Category, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c, true
		}
	}
	return catalog[len(catalog)-1], false
}
