// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package redflag scans document text for heuristic risk patterns.
//
// Rules are an ordered table evaluated in a deterministic loop. Each rule is
// independent: one rule matching never suppresses another, so a block can
// carry several findings. Two scopes exist: block rules test each block's
// text, absence rules test the combined document text and attach their
// finding to the last block.
package redflag

import (
	"regexp"
	"sort"

	"github.com/pdiddy/review-engine/pkg/types"
)

// BlockRule flags individual blocks whose text matches Pattern. When Unless
// is set the rule only fires if Unless does not also match, which expresses
// "mentions X without naming Y" checks.
type BlockRule struct {
	ID         string
	Severity   types.Severity
	Pattern    *regexp.Regexp
	Unless     *regexp.Regexp
	Message    string
	Suggestion string
}

// AbsenceRule flags whole documents whose combined text never matches
// Pattern.
type AbsenceRule struct {
	ID         string
	Severity   types.Severity
	Pattern    *regexp.Regexp
	Message    string
	Suggestion string
}

// jurisdictionPattern names the expected jurisdiction in any accepted form.
var jurisdictionPattern = regexp.MustCompile(`(?i)ADGM|Abu Dhabi Global Market|Abu Dhabi`)

// blockRules in evaluation order. The ambiguous-language terms are separate
// rules so each discretionary term produces its own finding.
var blockRules = []BlockRule{
	{
		ID:         "federal-courts-reference",
		Severity:   types.SeverityCritical,
		Pattern:    regexp.MustCompile(`(?i)UAE Federal Courts|Federal Courts of the UAE|\bUAE Courts\b`),
		Message:    "References UAE Federal Courts instead of ADGM",
		Suggestion: "Replace references to UAE Federal Courts with ADGM Courts (per ADGM Companies Regulations).",
	},
	{
		ID:         "governing-law-no-jurisdiction",
		Severity:   types.SeverityWarning,
		Pattern:    regexp.MustCompile(`(?i)governing law`),
		Unless:     jurisdictionPattern,
		Message:    "Governing-law clause does not name a jurisdiction",
		Suggestion: "Name the governing jurisdiction explicitly (ADGM and ADGM Courts).",
	},
	{
		ID:         "ambiguous-may",
		Severity:   types.SeverityWarning,
		Pattern:    regexp.MustCompile(`(?i)\bmay\b`),
		Message:    "Ambiguous language: contains 'may'",
		Suggestion: "Consider clarifying to an explicit obligation or removing the discretionary term.",
	},
	{
		ID:         "ambiguous-possible",
		Severity:   types.SeverityWarning,
		Pattern:    regexp.MustCompile(`(?i)\bpossible\b`),
		Message:    "Ambiguous language: contains 'possible'",
		Suggestion: "Consider clarifying to an explicit obligation or removing the discretionary term.",
	},
	{
		ID:         "ambiguous-subject-to",
		Severity:   types.SeverityWarning,
		Pattern:    regexp.MustCompile(`(?i)\bsubject to\b`),
		Message:    "Ambiguous language: contains 'subject to'",
		Suggestion: "Consider clarifying to an explicit obligation or removing the discretionary term.",
	},
	{
		ID:         "ambiguous-as-appropriate",
		Severity:   types.SeverityWarning,
		Pattern:    regexp.MustCompile(`(?i)\bas appropriate\b`),
		Message:    "Ambiguous language: contains 'as appropriate'",
		Suggestion: "Consider clarifying to an explicit obligation or removing the discretionary term.",
	},
	{
		ID:         "ambiguous-where-practicable",
		Severity:   types.SeverityWarning,
		Pattern:    regexp.MustCompile(`(?i)\bwhere practicable\b`),
		Message:    "Ambiguous language: contains 'where practicable'",
		Suggestion: "Consider clarifying to an explicit obligation or removing the discretionary term.",
	},
}

// absenceRules in evaluation order.
var absenceRules = []AbsenceRule{
	{
		ID:         "missing-signature-block",
		Severity:   types.SeverityCritical,
		Pattern:    regexp.MustCompile(`(?i)Signature:|Signed by|Signatory|Signature\s+of`),
		Message:    "No signatory or signature block detected",
		Suggestion: "Add a clearly labelled signature block for authorized signatories with name, title and date.",
	},
	{
		ID:         "missing-jurisdiction",
		Severity:   types.SeverityCritical,
		Pattern:    jurisdictionPattern,
		Message:    "Jurisdiction not specified as ADGM",
		Suggestion: "Set governing law and jurisdiction to ADGM and ADGM Courts.",
	},
}

// Detect applies every rule to the document and returns the findings in
// block order, critical first within a block. Pure, deterministic, total: a
// clean document yields an empty slice, never nil.
func Detect(doc *types.Document) []types.Finding {
	findings := []types.Finding{}

	for _, block := range doc.Blocks {
		for _, rule := range blockRules {
			if !rule.Pattern.MatchString(block.Text) {
				continue
			}
			if rule.Unless != nil && rule.Unless.MatchString(block.Text) {
				continue
			}
			findings = append(findings, types.Finding{
				Document:   doc.Name,
				BlockIndex: block.Index,
				Category:   rule.ID,
				Severity:   rule.Severity,
				Message:    rule.Message,
				Suggestion: rule.Suggestion,
			})
		}
	}

	full := doc.FullText()
	for _, rule := range absenceRules {
		if rule.Pattern.MatchString(full) {
			continue
		}
		findings = append(findings, types.Finding{
			Document:   doc.Name,
			BlockIndex: doc.LastBlockIndex(),
			Category:   rule.ID,
			Severity:   rule.Severity,
			Message:    rule.Message,
			Suggestion: rule.Suggestion,
		})
	}

	Sort(findings)
	return findings
}

// Sort orders findings by block position, then severity (critical first),
// preserving insertion order for equal keys.
func Sort(findings []types.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].BlockIndex != findings[j].BlockIndex {
			return findings[i].BlockIndex < findings[j].BlockIndex
		}
		return findings[i].Severity.Rank() < findings[j].Severity.Rank()
	})
}

// Suspicious reports whether a block's text matches any pattern worth
// sending to the model adjudicator: discretionary terms, court references,
// or signature markers. This is the quick filter that bounds model traffic.
func Suspicious(text string) bool {
	for _, rule := range blockRules {
		if rule.Pattern.MatchString(text) {
			return true
		}
	}
	for _, rule := range absenceRules {
		if rule.Pattern.MatchString(text) {
			return true
		}
	}
	return false
}
