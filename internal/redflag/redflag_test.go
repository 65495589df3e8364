package redflag

import (
	"testing"

	"github.com/pdiddy/review-engine/pkg/types"
)

func doc(texts ...string) *types.Document {
	d := &types.Document{Name: "sample.docx"}
	for i, text := range texts {
		d.Blocks = append(d.Blocks, types.Block{Index: i, Kind: types.BlockParagraph, Text: text})
	}
	return d
}

func TestDetectCleanDocument(t *testing.T) {
	d := doc(
		"The company shall be registered in ADGM.",
		"Disputes shall be resolved before the ADGM Courts.",
		"Signed by: Jane Roe, Director",
	)

	findings := Detect(d)
	if findings == nil {
		t.Fatal("Detect returned nil, want empty slice")
	}
	if len(findings) != 0 {
		t.Errorf("Detect on clean document = %d findings, want 0: %v", len(findings), findings)
	}
}

func TestDetectBlockRules(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantCategory string
		wantSeverity types.Severity
	}{
		{"federal courts", "Disputes go to the UAE Federal Courts.", "federal-courts-reference", types.SeverityCritical},
		{"governing law without jurisdiction", "The governing law of this agreement shall apply.", "governing-law-no-jurisdiction", types.SeverityWarning},
		{"discretionary may", "The directors may issue shares.", "ambiguous-may", types.SeverityWarning},
		{"discretionary possible", "Where possible the board meets quarterly.", "ambiguous-possible", types.SeverityWarning},
		{"discretionary subject to", "Transfers are subject to board approval.", "ambiguous-subject-to", types.SeverityWarning},
		{"discretionary as appropriate", "Notices are given as appropriate.", "ambiguous-as-appropriate", types.SeverityWarning},
		{"discretionary where practicable", "Records are kept where practicable.", "ambiguous-where-practicable", types.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Padding blocks keep the flagged text away from index zero, and
			// the closing blocks satisfy the absence rules.
			d := doc(
				"Registered office in ADGM.",
				tt.text,
				"Signed by: Jane Roe, Director",
			)

			findings := Detect(d)
			var hit *types.Finding
			for i := range findings {
				if findings[i].Category == tt.wantCategory {
					hit = &findings[i]
				}
			}
			if hit == nil {
				t.Fatalf("no finding with category %s in %v", tt.wantCategory, findings)
			}
			if hit.BlockIndex != 1 {
				t.Errorf("BlockIndex = %d, want 1", hit.BlockIndex)
			}
			if hit.Severity != tt.wantSeverity {
				t.Errorf("Severity = %s, want %s", hit.Severity, tt.wantSeverity)
			}
			if hit.Document != "sample.docx" {
				t.Errorf("Document = %s, want sample.docx", hit.Document)
			}
			if hit.Message == "" || hit.Suggestion == "" {
				t.Error("finding missing message or suggestion")
			}
		})
	}
}

func TestDetectGoverningLawWithJurisdiction(t *testing.T) {
	d := doc(
		"The governing law of this agreement is the law of ADGM.",
		"Signed by: Jane Roe, Director",
	)

	for _, f := range Detect(d) {
		if f.Category == "governing-law-no-jurisdiction" {
			t.Errorf("rule fired although block names ADGM: %v", f)
		}
	}
}

func TestDetectMultipleRulesSameBlock(t *testing.T) {
	d := doc(
		"The board may refer disputes to the UAE Federal Courts.",
		"Registered in ADGM. Signed by: Jane Roe",
	)

	findings := Detect(d)
	var categories []string
	for _, f := range findings {
		if f.BlockIndex == 0 {
			categories = append(categories, f.Category)
		}
	}
	if len(categories) != 2 {
		t.Fatalf("block 0 findings = %v, want federal-courts-reference and ambiguous-may", categories)
	}
	// Critical sorts ahead of warning within the same block.
	if categories[0] != "federal-courts-reference" || categories[1] != "ambiguous-may" {
		t.Errorf("order = %v, want critical first", categories)
	}
}

func TestDetectAbsenceRules(t *testing.T) {
	d := doc(
		"Clause one.",
		"Clause two.",
	)

	findings := Detect(d)
	got := map[string]types.Finding{}
	for _, f := range findings {
		got[f.Category] = f
	}

	for _, category := range []string{"missing-signature-block", "missing-jurisdiction"} {
		f, ok := got[category]
		if !ok {
			t.Errorf("missing absence finding %s", category)
			continue
		}
		if f.Severity != types.SeverityCritical {
			t.Errorf("%s severity = %s, want critical", category, f.Severity)
		}
		if f.BlockIndex != 1 {
			t.Errorf("%s BlockIndex = %d, want last block 1", category, f.BlockIndex)
		}
	}
}

func TestDetectOrdering(t *testing.T) {
	d := doc(
		"Transfers are subject to approval.",
		"Fine text in ADGM.",
		"Directors may act. Disputes go to the UAE Federal Courts.",
		"Signed by: Jane Roe",
	)

	findings := Detect(d)
	for i := 1; i < len(findings); i++ {
		prev, cur := findings[i-1], findings[i]
		if cur.BlockIndex < prev.BlockIndex {
			t.Fatalf("findings out of block order at %d: %v", i, findings)
		}
		if cur.BlockIndex == prev.BlockIndex && cur.Severity.Rank() < prev.Severity.Rank() {
			t.Fatalf("findings out of severity order at %d: %v", i, findings)
		}
	}
}

func TestDetectDeterministic(t *testing.T) {
	d := doc(
		"The board may act as appropriate.",
		"Governing law to be decided.",
	)

	first := Detect(d)
	second := Detect(d)
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("finding %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestSuspicious(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"The directors may issue shares.", true},
		{"Disputes go to the UAE Federal Courts.", true},
		{"Signed by: Jane Roe", true},
		{"The company holds an annual general meeting.", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Suspicious(tt.text); got != tt.want {
			t.Errorf("Suspicious(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
