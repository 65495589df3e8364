// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adjudicate asks a language model for structured verdicts on
// suspicious document blocks, grounded in retrieved reference passages, and
// merges those verdicts into the heuristic finding stream.
//
// Adjudication is strictly best-effort: every failure mode here is
// recoverable at the pipeline boundary, which logs it and continues with
// heuristic findings only.
package adjudicate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/review-engine/internal/redflag"
	"github.com/pdiddy/review-engine/internal/refindex"
	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrModelUnavailable marks adjudication calls that could not complete:
// network failure, authentication rejection, or timeout.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrMalformedResponse marks model output that cannot be parsed into the
// expected verdict structure.
var ErrMalformedResponse = errors.New("malformed model response")

// ModelBackend abstracts the chat model API so tests can supply a mock.
// Review sends one prompt and returns the raw response text.
type ModelBackend interface {
	Review(ctx context.Context, prompt string) (string, error)
}

// verdict is a single issue as returned by the model.
type verdict struct {
	Issue      string `json:"issue"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion"`
}

// severityFromModel maps the model's severity vocabulary onto ours. The
// prompt asks for critical/warning/info but models trained on legal review
// output often answer High/Medium/Low, so both are accepted.
var severityFromModel = map[string]types.Severity{
	"critical": types.SeverityCritical,
	"high":     types.SeverityCritical,
	"warning":  types.SeverityWarning,
	"medium":   types.SeverityWarning,
	"info":     types.SeverityInfo,
	"low":      types.SeverityInfo,
}

// Adjudicate reviews every suspicious block of the document with the model,
// grounding each prompt in the top-k reference passages for that block.
// Malformed responses are logged to w and skipped; an unavailable model
// aborts adjudication for the document after the configured retries.
// Returned findings carry category "llm" and are not yet merged.
func Adjudicate(ctx context.Context, backend ModelBackend, doc *types.Document, idx *refindex.Index, cfg types.AdjudicationConfig, topK int, w io.Writer) ([]types.Finding, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if topK <= 0 {
		topK = 3
	}

	var findings []types.Finding
	for _, block := range doc.Blocks {
		if !redflag.Suspicious(block.Text) {
			continue
		}

		matches := idx.Retrieve(block.Text, topK)
		prompt, err := renderPrompt(string(doc.Type), block.Text, matches)
		if err != nil {
			return findings, fmt.Errorf("rendering prompt: %w", err)
		}

		raw, err := callWithRetry(ctx, backend, prompt, maxRetries, timeout)
		if err != nil {
			return findings, fmt.Errorf("block %d: %w", block.Index, err)
		}

		verdicts, err := parseVerdicts(raw)
		if err != nil {
			fmt.Fprintf(w, "warning: %s block %d: %v\n", doc.Name, block.Index, err)
			continue
		}

		for _, v := range verdicts {
			severity, ok := severityFromModel[strings.ToLower(strings.TrimSpace(v.Severity))]
			if !ok {
				severity = types.SeverityInfo
			}
			findings = append(findings, types.Finding{
				Document:   doc.Name,
				BlockIndex: block.Index,
				Category:   types.CategoryLLM,
				Severity:   severity,
				Message:    v.Issue,
				Suggestion: v.Suggestion,
			})
		}
	}

	return findings, nil
}

// callWithRetry bounds each model call with the configured timeout and
// retries transient failures. maxRetries counts retries, not attempts.
func callWithRetry(ctx context.Context, backend ModelBackend, prompt string, maxRetries int, timeout time.Duration) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		raw, err := backend.Review(callCtx, prompt)
		cancel()
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if errors.Is(lastErr, ErrModelUnavailable) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr)
}

// parseVerdicts decodes the model output. The expected shape is a JSON
// array of verdict objects; a fenced code block around it is tolerated.
func parseVerdicts(raw string) ([]verdict, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var verdicts []verdict
	if err := json.Unmarshal([]byte(text), &verdicts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for i, v := range verdicts {
		if v.Issue == "" {
			return nil, fmt.Errorf("%w: verdict %d has no issue text", ErrMalformedResponse, i)
		}
	}
	return verdicts, nil
}
