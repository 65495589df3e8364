// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Requirement is one entry in a checklist: a document type and whether the
// procedure can complete without it.
type Requirement struct {
	// Type is the required document type.
	Type DocumentType `json:"type" yaml:"type"`

	// Optional marks requirements whose absence is not reported as missing.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Checklist is a named, ordered set of document types required for a
// jurisdiction procedure (e.g. "Company Incorporation"). Immutable once
// loaded for a run.
type Checklist struct {
	// Name identifies the checklist in the registry.
	Name string `json:"name" yaml:"name"`

	// Requirements lists the expected document types in checklist order.
	Requirements []Requirement `json:"requirements" yaml:"requirements"`
}

// RequiredTypes returns the non-optional document types in checklist order.
func (c Checklist) RequiredTypes() []DocumentType {
	var out []DocumentType
	for _, r := range c.Requirements {
		if !r.Optional {
			out = append(out, r.Type)
		}
	}
	return out
}

// ReconciliationResult compares classified documents against a checklist.
// Present, Missing, and Extra together cover exactly the union of the
// checklist's required types and the classified types, and no type appears
// in both Present and Missing.
type ReconciliationResult struct {
	// Checklist is the name of the checklist reconciled against.
	Checklist string `json:"checklist" yaml:"checklist"`

	// Present lists checklist types that at least one document satisfied,
	// in checklist order.
	Present []DocumentType `json:"present" yaml:"present"`

	// Missing lists required checklist types no document satisfied,
	// in checklist order.
	Missing []DocumentType `json:"missing" yaml:"missing"`

	// Extra lists classified types outside the checklist, including
	// Unknown, in first-seen order.
	Extra []DocumentType `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Complete reports whether no required type is missing.
func (r ReconciliationResult) Complete() bool {
	return len(r.Missing) == 0
}
