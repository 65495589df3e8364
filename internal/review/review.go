// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review orchestrates the document analysis pipeline: load,
// classify, and scan documents in parallel, reconcile the classified set
// against the checklist after the join, and emit annotated copies plus a
// structured summary.
//
// Failure isolation follows the run taxonomy: an unreadable document is
// excluded with a recorded error while the rest proceed; adjudication
// failures degrade to heuristic findings; an unknown checklist aborts the
// run before any output exists.
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/review-engine/internal/adjudicate"
	"github.com/pdiddy/review-engine/internal/annotate"
	"github.com/pdiddy/review-engine/internal/checklist"
	"github.com/pdiddy/review-engine/internal/classify"
	"github.com/pdiddy/review-engine/internal/docload"
	"github.com/pdiddy/review-engine/internal/redflag"
	"github.com/pdiddy/review-engine/internal/refindex"
	"github.com/pdiddy/review-engine/pkg/types"
)

// Machine-readable error kinds reported in document entries.
const (
	KindUnsupportedFormat = "unsupported_format"
	KindCorruptFile       = "corrupt_file"
	KindLoadFailed        = "load_failed"
)

// Pipeline holds the resolved capabilities of one run. Index and Backend
// are fixed at construction: a run is either heuristics-only or
// heuristics+RAG for its whole duration, never re-deciding mid-pipeline.
type Pipeline struct {
	// Registry resolves the checklist name.
	Registry *checklist.Registry

	// Index is the reference retrieval index; nil when retrieval is disabled.
	Index *refindex.Index

	// Backend is the adjudication model; nil when adjudication is disabled.
	Backend adjudicate.ModelBackend

	// Config carries the per-stage settings.
	Config types.PipelineConfig
}

// DocumentReport is one document's entry in the run summary.
type DocumentReport struct {
	// File is the input's base filename.
	File string `json:"file"`

	// Type is the classified document type; empty when the file failed to load.
	Type types.DocumentType `json:"type,omitempty"`

	// Findings is the merged finding list in report order. Always present
	// and non-null for cleanly loaded documents, even when empty.
	Findings []types.Finding `json:"findings"`

	// Error and ErrorKind record a per-document failure.
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`

	// Annotated is the path of the reviewed copy, when one was written.
	Annotated string `json:"annotated,omitempty"`
}

// Result is the structured summary of a run.
type Result struct {
	// RunID uniquely names the run's output artifacts.
	RunID string `json:"run_id"`

	// Checklist is the reconciliation outcome for the run.
	Checklist types.ReconciliationResult `json:"checklist"`

	// Documents holds one entry per input file, in input order.
	Documents []DocumentReport `json:"documents"`
}

// docOutcome carries one worker's result to the join point.
type docOutcome struct {
	doc      *types.Document
	report   DocumentReport
	progress bytes.Buffer
}

// Run executes the pipeline over the input paths. Progress and degrade
// warnings go to w. The only fatal errors are an unknown checklist and an
// unwritable output directory; everything document-scoped is isolated into
// that document's report entry.
func (p *Pipeline) Run(ctx context.Context, paths []string, w io.Writer) (*Result, error) {
	cl, err := p.Registry.Get(p.Config.Review.ChecklistName)
	if err != nil {
		return nil, err
	}

	outDir := p.Config.Review.OutDir
	if outDir == "" {
		outDir = "outputs"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	workers := p.Config.Review.Workers
	if workers <= 0 {
		workers = 4
	}

	// Fan out one task per document. Each task owns its document's finding
	// list and progress buffer, so the only shared state is read-only.
	outcomes := make([]docOutcome, len(paths))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = p.processDocument(ctx, path)
		}(i, path)
	}
	wg.Wait()

	// Join point: reconciliation needs every document classified first.
	var classified []*types.Document
	for i := range outcomes {
		if outcomes[i].doc != nil {
			classified = append(classified, outcomes[i].doc)
		}
	}
	reconciled := checklist.Reconcile(cl, classified)

	result := &Result{
		RunID:     uuid.New().String(),
		Checklist: reconciled,
	}

	for i := range outcomes {
		o := &outcomes[i]
		io.Copy(w, &o.progress)

		if o.doc != nil {
			outPath := filepath.Join(outDir, "reviewed_"+o.doc.Name)
			if err := annotate.Annotate(o.doc.Path, outPath, o.report.Findings); err != nil {
				fmt.Fprintf(w, "warning: annotating %s failed: %v\n", o.doc.Name, err)
			} else {
				o.report.Annotated = outPath
			}
		}

		result.Documents = append(result.Documents, o.report)
	}

	return result, nil
}

// processDocument runs the per-document stages: load, classify, detect,
// and, when enabled, adjudicate and merge.
func (p *Pipeline) processDocument(ctx context.Context, path string) docOutcome {
	var o docOutcome

	doc, err := docload.Load(path)
	if err != nil {
		o.report = DocumentReport{
			File:      filepath.Base(path),
			Error:     err.Error(),
			ErrorKind: errorKind(err),
		}
		return o
	}

	doc.Type = classify.Classify(doc)
	findings := redflag.Detect(doc)

	if p.Backend != nil {
		modelFindings, err := adjudicate.Adjudicate(
			ctx, p.Backend, doc, p.Index, p.Config.Adjudication, p.Config.Corpus.TopK, &o.progress)
		if err != nil {
			// Degrade, never abort: heuristic findings stand on their own.
			fmt.Fprintf(&o.progress, "warning: adjudication for %s degraded: %v\n", doc.Name, err)
		}
		findings = adjudicate.Merge(findings, modelFindings, p.Config.Adjudication.MergeThreshold)
	}

	doc.Findings = findings
	o.doc = doc
	o.report = DocumentReport{
		File:     doc.Name,
		Type:     doc.Type,
		Findings: findings,
	}
	fmt.Fprintf(&o.progress, "reviewed %s (%s, %d findings)\n", doc.Name, doc.Type, len(findings))
	return o
}

// errorKind maps a load failure onto its machine-readable kind.
func errorKind(err error) string {
	switch {
	case errors.Is(err, docload.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, docload.ErrCorruptFile):
		return KindCorruptFile
	default:
		return KindLoadFailed
	}
}

// WriteSummary writes the run summary JSON next to the annotated copies and
// returns its path.
func (r *Result) WriteSummary(outDir string) (string, error) {
	path := filepath.Join(outDir, "analysis_"+r.RunID+".json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}
	return path, nil
}
