// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checklist registers jurisdiction checklists and reconciles
// classified documents against them.
package checklist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrUnknownChecklist marks a lookup of a checklist name that was never
// registered. This aborts the whole run: there is nothing to reconcile
// against.
var ErrUnknownChecklist = errors.New("unknown checklist")

// CompanyIncorporation is the name of the built-in incorporation checklist.
const CompanyIncorporation = "Company Incorporation"

// Registry holds the named checklists available to a run. Checklists are
// immutable once registered.
type Registry struct {
	byName map[string]types.Checklist
	order  []string
}

// NewRegistry returns a registry preloaded with the built-in checklists.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]types.Checklist)}
	r.Register(types.Checklist{
		Name: CompanyIncorporation,
		Requirements: []types.Requirement{
			{Type: types.TypeArticlesOfAssociation},
			{Type: types.TypeMemorandumOfAssociation},
			{Type: types.TypeIncorporationApplication},
			{Type: types.TypeUBODeclaration},
			{Type: types.TypeRegisterOfMembers},
			{Type: types.TypeBoardResolution, Optional: true},
			{Type: types.TypeShareholderResolution, Optional: true},
		},
	})
	return r
}

// Register adds or replaces a checklist by name.
func (r *Registry) Register(c types.Checklist) {
	if _, ok := r.byName[c.Name]; !ok {
		r.order = append(r.order, c.Name)
	}
	r.byName[c.Name] = c
}

// LoadDir registers every checklist described by a .yaml file in dir.
// A missing directory is not an error; a malformed file is.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading checklist directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading checklist %s: %w", name, err)
		}
		var c types.Checklist
		if err := yaml.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("parsing checklist %s: %w", name, err)
		}
		if c.Name == "" {
			return fmt.Errorf("checklist %s: missing name", name)
		}
		r.Register(c)
	}
	return nil
}

// Get returns the checklist registered under name.
func (r *Registry) Get(name string) (types.Checklist, error) {
	c, ok := r.byName[name]
	if !ok {
		return types.Checklist{}, fmt.Errorf("%w: %q", ErrUnknownChecklist, name)
	}
	return c, nil
}

// Names returns all registered checklist names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Reconcile compares classified documents against a checklist. Duplicates of
// the same type count once as present. Classified types outside the
// checklist, including Unknown, are reported as extra in first-seen order.
// Pure function of its inputs.
func Reconcile(c types.Checklist, docs []*types.Document) types.ReconciliationResult {
	classified := make(map[types.DocumentType]bool, len(docs))
	var seen []types.DocumentType
	for _, d := range docs {
		if !classified[d.Type] {
			classified[d.Type] = true
			seen = append(seen, d.Type)
		}
	}

	listed := make(map[types.DocumentType]bool, len(c.Requirements))
	result := types.ReconciliationResult{Checklist: c.Name}
	for _, req := range c.Requirements {
		listed[req.Type] = true
		switch {
		case classified[req.Type]:
			result.Present = append(result.Present, req.Type)
		case !req.Optional:
			result.Missing = append(result.Missing, req.Type)
		}
	}

	for _, t := range seen {
		if !listed[t] {
			result.Extra = append(result.Extra, t)
		}
	}

	return result
}
