package types

import "time"

// AIConfig holds shared settings for the model adjudication call.
type AIConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the model API. Empty disables
	// adjudication for the run.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for transient call
	// failures (default 1).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AdjudicationConfig holds settings for the LLM adjudication stage.
type AdjudicationConfig struct {
	AIConfig `yaml:",inline"`

	// Timeout bounds each model call. A timed-out call is treated as
	// model-unavailable and the run degrades to heuristics only (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MergeThreshold is the string-similarity level in [0,1] above which an
	// adjudicated finding is folded into an existing heuristic finding on
	// the same block (default 0.72).
	MergeThreshold float64 `json:"merge_threshold" yaml:"merge_threshold"`
}

// CorpusConfig holds settings for the reference retrieval stage.
type CorpusConfig struct {
	// ReferenceDir is the directory of reference .txt files. Empty disables
	// retrieval for the run.
	ReferenceDir string `json:"reference_dir,omitempty" yaml:"reference_dir,omitempty"`

	// IndexDir is the directory holding the cached reference index
	// (contains review.db).
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// TopK is the number of reference passages retrieved per query
	// (default 3).
	TopK int `json:"top_k" yaml:"top_k"`
}

// ReviewConfig holds settings for a review run.
type ReviewConfig struct {
	// ChecklistName selects the checklist to reconcile against
	// (default "Company Incorporation").
	ChecklistName string `json:"checklist_name" yaml:"checklist_name"`

	// ChecklistDir is an optional directory of additional checklist YAML
	// files registered at startup.
	ChecklistDir string `json:"checklist_dir,omitempty" yaml:"checklist_dir,omitempty"`

	// OutDir is where annotated copies and the JSON summary are written.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Workers bounds concurrent per-document processing (default 4).
	Workers int `json:"workers" yaml:"workers"`
}

// PipelineConfig groups all stage configurations for a run.
type PipelineConfig struct {
	Review       ReviewConfig       `json:"review" yaml:"review"`
	Corpus       CorpusConfig       `json:"corpus" yaml:"corpus"`
	Adjudication AdjudicationConfig `json:"adjudication" yaml:"adjudication"`
}
