// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adjudicate

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/pdiddy/review-engine/internal/redflag"
	"github.com/pdiddy/review-engine/pkg/types"
)

// DefaultMergeThreshold is the message-similarity level above which an
// adjudicated finding is considered a duplicate of a heuristic one.
const DefaultMergeThreshold = 0.72

// Merge folds model findings into the heuristic findings for one document.
// A model finding lands on an existing finding when both sit on the same
// block and their messages are near-duplicates at or above threshold; the
// merged finding keeps the higher severity and concatenates distinct
// suggestions. Everything else is appended as an independent finding. The
// result is re-sorted into report order.
func Merge(heuristic, model []types.Finding, threshold float64) []types.Finding {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMergeThreshold
	}

	merged := make([]types.Finding, len(heuristic))
	copy(merged, heuristic)

	for _, mf := range model {
		target := -1
		for i := range merged {
			if merged[i].Document != mf.Document || merged[i].BlockIndex != mf.BlockIndex {
				continue
			}
			if Similarity(merged[i].Message, mf.Message) >= threshold {
				target = i
				break
			}
		}

		if target < 0 {
			merged = append(merged, mf)
			continue
		}

		merged[target].Severity = merged[target].Severity.Max(mf.Severity)
		if mf.Suggestion != "" && !strings.Contains(merged[target].Suggestion, mf.Suggestion) {
			if merged[target].Suggestion == "" {
				merged[target].Suggestion = mf.Suggestion
			} else {
				merged[target].Suggestion += " " + mf.Suggestion
			}
		}
	}

	redflag.Sort(merged)
	return merged
}

// Similarity is the normalized Levenshtein similarity of two messages in
// [0, 1]: 1 for identical texts (case-insensitive), 0 for entirely
// different ones.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
