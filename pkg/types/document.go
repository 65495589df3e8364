// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures passed between
// review-engine pipeline stages.
package types

// BlockKind distinguishes the structural origin of a text block.
type BlockKind string

const (
	// BlockParagraph is a top-level body paragraph.
	BlockParagraph BlockKind = "paragraph"

	// BlockTableCell is a paragraph inside a table cell. Tables often carry
	// structured fields such as signatory names and registered addresses.
	BlockTableCell BlockKind = "table-cell"
)

// Block is one unit of extracted document text.
type Block struct {
	// Index is the ordinal of the underlying paragraph element in document
	// order. Table-cell paragraphs are counted in the same sequence, so the
	// index maps back to an annotation target in the source file.
	Index int `json:"index" yaml:"index"`

	// Kind records whether the block came from a body paragraph or a table cell.
	Kind BlockKind `json:"kind" yaml:"kind"`

	// Text is the trimmed block text. Empty blocks are dropped at load time.
	Text string `json:"text" yaml:"text"`
}

// DocumentType is one of the fixed set of formation document labels.
type DocumentType string

const (
	TypeArticlesOfAssociation   DocumentType = "ArticlesOfAssociation"
	TypeMemorandumOfAssociation DocumentType = "MemorandumOfAssociation"
	TypeIncorporationApplication DocumentType = "IncorporationApplication"
	TypeUBODeclaration          DocumentType = "UBODeclaration"
	TypeRegisterOfMembers       DocumentType = "RegisterOfMembers"
	TypeBoardResolution         DocumentType = "BoardResolution"
	TypeShareholderResolution   DocumentType = "ShareholderResolution"

	// TypeUnknown is the terminal fallback when no classification rule
	// matches. It is a valid type, never an absent one.
	TypeUnknown DocumentType = "Unknown"
)

// Severity grades a finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for report sorting, critical first.
var severityRank = map[Severity]int{
	SeverityCritical: 0,
	SeverityWarning:  1,
	SeverityInfo:     2,
}

// Rank returns the sort rank of the severity; lower sorts first.
// Unrecognized severities sort last.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// Max returns the higher-ranked of the two severities.
func (s Severity) Max(other Severity) Severity {
	if other.Rank() < s.Rank() {
		return other
	}
	return s
}

// CategoryLLM marks findings produced by the model adjudication step.
// Heuristic findings carry their rule ID as category instead.
const CategoryLLM = "llm"

// Finding is a single flagged issue attached to a document block.
type Finding struct {
	// Document is the source filename the finding belongs to.
	Document string `json:"document" yaml:"document"`

	// BlockIndex locates the flagged block. Document-level findings attach
	// to the last block of the document.
	BlockIndex int `json:"block_index" yaml:"block_index"`

	// Category is the heuristic rule ID, or "llm" for adjudicated findings.
	Category string `json:"category" yaml:"category"`

	// Severity grades the finding: info, warning, or critical.
	Severity Severity `json:"severity" yaml:"severity"`

	// Message describes the issue.
	Message string `json:"message" yaml:"message"`

	// Suggestion is optional replacement or remediation text.
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// Document is the normalized in-memory representation of one input file.
// It is owned by a single pipeline run and discarded when the run ends.
type Document struct {
	// Name is the base filename of the source file.
	Name string `json:"name" yaml:"name"`

	// Path is the location the document was loaded from.
	Path string `json:"path" yaml:"path"`

	// Blocks is the ordered sequence of extracted text blocks.
	Blocks []Block `json:"blocks" yaml:"blocks"`

	// Type is the classified document type. TypeUnknown until classified.
	Type DocumentType `json:"type" yaml:"type"`

	// Findings accumulates issues flagged against this document.
	// Append-only during a run.
	Findings []Finding `json:"findings" yaml:"findings"`
}

// FullText joins all block texts with newlines, for whole-document checks.
func (d *Document) FullText() string {
	switch len(d.Blocks) {
	case 0:
		return ""
	case 1:
		return d.Blocks[0].Text
	}
	n := 0
	for _, b := range d.Blocks {
		n += len(b.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, b := range d.Blocks {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, b.Text...)
	}
	return string(buf)
}

// LastBlockIndex returns the index of the final block, or 0 for an empty
// document. Document-level findings attach here.
func (d *Document) LastBlockIndex() int {
	if len(d.Blocks) == 0 {
		return 0
	}
	return d.Blocks[len(d.Blocks)-1].Index
}
