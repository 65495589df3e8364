// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns formation documents a type label using ordered
// keyword rules. Classification is total and deterministic: the rule table
// is scanned in a fixed priority order, the first match wins, and a document
// matching nothing is TypeUnknown.
package classify

import (
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// titleBlocks is how many leading blocks count as the title region.
// Formation documents put their self-identifying heading near the top.
const titleBlocks = 5

// rule maps a keyword set to a document type. Title rules are checked
// against the leading blocks before any full-text rule is consulted, so a
// document whose heading names it is never reclassified by body text.
type rule struct {
	Type     types.DocumentType
	Keywords []string
}

// titleRules are evaluated against the first titleBlocks blocks, in order.
var titleRules = []rule{
	{types.TypeArticlesOfAssociation, []string{"articles of association"}},
	{types.TypeMemorandumOfAssociation, []string{"memorandum of association"}},
	{types.TypeIncorporationApplication, []string{"incorporation application", "application for incorporation"}},
	{types.TypeUBODeclaration, []string{"ubo declaration", "ultimate beneficial owner"}},
	{types.TypeRegisterOfMembers, []string{"register of members", "register of directors"}},
	{types.TypeBoardResolution, []string{"board resolution", "resolution of the board", "resolution of the directors"}},
	{types.TypeShareholderResolution, []string{"shareholder resolution", "resolution of the shareholders", "resolution of the members"}},
}

// bodyRules are evaluated against the full text after the title rules, in
// order. They carry the looser keyword variants and abbreviations.
var bodyRules = []rule{
	{types.TypeArticlesOfAssociation, []string{"articles of association"}},
	{types.TypeMemorandumOfAssociation, []string{"memorandum of association"}},
	{types.TypeIncorporationApplication, []string{"incorporation application", "incorporation form"}},
	{types.TypeUBODeclaration, []string{"ubo declaration", "ubo form"}},
	{types.TypeRegisterOfMembers, []string{"register of members and directors", "register of members", "register of directors"}},
	{types.TypeBoardResolution, []string{"board resolution"}},
	{types.TypeShareholderResolution, []string{"shareholder resolution"}},
}

// Classify returns the document's type label. It never fails and is
// idempotent: the same blocks always produce the same type.
func Classify(doc *types.Document) types.DocumentType {
	title := strings.ToLower(leadingText(doc, titleBlocks))
	for _, r := range titleRules {
		if matches(title, r.Keywords) {
			return r.Type
		}
	}

	full := strings.ToLower(doc.FullText())
	for _, r := range bodyRules {
		if matches(full, r.Keywords) {
			return r.Type
		}
	}

	// Last-resort guesses for sloppily titled documents.
	if strings.Contains(full, "article") && strings.Contains(full, "association") {
		return types.TypeArticlesOfAssociation
	}
	if strings.Contains(full, "memorandum") {
		return types.TypeMemorandumOfAssociation
	}

	return types.TypeUnknown
}

func leadingText(doc *types.Document, n int) string {
	if len(doc.Blocks) < n {
		n = len(doc.Blocks)
	}
	parts := make([]string, 0, n)
	for _, b := range doc.Blocks[:n] {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

func matches(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
