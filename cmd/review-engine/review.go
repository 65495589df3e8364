// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/review-engine/internal/adjudicate"
	"github.com/pdiddy/review-engine/internal/checklist"
	"github.com/pdiddy/review-engine/internal/refindex"
	"github.com/pdiddy/review-engine/internal/review"
	"github.com/pdiddy/review-engine/internal/secrets"
	"github.com/pdiddy/review-engine/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review [files...]",
	Short: "Review formation documents against a checklist",
	Long: `Review loads each .docx file, classifies its document type, reconciles
the set against the named checklist, and scans clause text for red flags.
Annotated copies and a JSON summary are written to the output directory.

When --reference-dir points at a corpus of reference .txt files and a model
credential is available (--api-key, the openai-api-key secret, or config),
flagged clauses are also adjudicated by the model and the verdicts merged
into the findings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().String("checklist", "", `checklist name (default "Company Incorporation")`)
	reviewCmd.Flags().String("checklist-dir", "", "directory of additional checklist YAML files")
	reviewCmd.Flags().String("reference-dir", "", "directory of reference .txt files (enables retrieval)")
	reviewCmd.Flags().String("index-dir", "", `reference index cache directory (default "index")`)
	reviewCmd.Flags().Int("top-k", 0, "reference passages retrieved per clause (default 3)")
	reviewCmd.Flags().String("model", "", `model identifier for adjudication (default "gpt-4o-mini")`)
	reviewCmd.Flags().String("api-key", "", "model API key (enables adjudication)")
	reviewCmd.Flags().Float64("merge-threshold", 0, "similarity threshold for merging model findings (default 0.72)")
	reviewCmd.Flags().Duration("timeout", 0, "model call timeout (default 30s)")
	reviewCmd.Flags().String("out-dir", "", `output directory for annotated copies and summary (default "outputs")`)
	reviewCmd.Flags().Int("workers", 0, "concurrent document workers (default 4)")
	reviewCmd.Flags().Bool("json", false, "print the summary JSON to stdout")

	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	registry := checklist.NewRegistry()
	if cfg.Review.ChecklistDir != "" {
		if err := registry.LoadDir(cfg.Review.ChecklistDir); err != nil {
			return err
		}
	}

	ctx := context.Background()

	// Resolve run capabilities once: the pipeline is heuristics-only or
	// heuristics+RAG for the whole run.
	var idx *refindex.Index
	if cfg.Corpus.ReferenceDir != "" {
		var err error
		idx, err = refindex.Ensure(ctx, cfg.Corpus.ReferenceDir, cfg.Corpus.IndexDir, os.Stderr)
		if err != nil {
			return err
		}
	}

	var backend adjudicate.ModelBackend
	if cfg.Adjudication.APIKey != "" {
		backend = &adjudicate.OpenAIBackend{
			APIKey: cfg.Adjudication.APIKey,
			Model:  cfg.Adjudication.Model,
		}
	}

	pipeline := &review.Pipeline{
		Registry: registry,
		Index:    idx,
		Backend:  backend,
		Config:   cfg,
	}

	result, err := pipeline.Run(ctx, args, os.Stderr)
	if err != nil {
		return err
	}

	summaryPath, err := result.WriteSummary(cfg.Review.OutDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "summary written to %s\n", summaryPath)

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printRunSummary(result)
	return nil
}

func printRunSummary(result *review.Result) {
	fmt.Printf("Checklist: %s\n", result.Checklist.Checklist)
	fmt.Printf("  present: %v\n", result.Checklist.Present)
	fmt.Printf("  missing: %v\n", result.Checklist.Missing)
	if len(result.Checklist.Extra) > 0 {
		fmt.Printf("  extra:   %v\n", result.Checklist.Extra)
	}
	for _, d := range result.Documents {
		if d.Error != "" {
			fmt.Printf("%s: error (%s): %s\n", d.File, d.ErrorKind, d.Error)
			continue
		}
		fmt.Printf("%s: %s, %d findings\n", d.File, d.Type, len(d.Findings))
	}
}

// pipelineConfig resolves every setting from flags, then config file, then
// defaults. The model credential falls back to the openai-api-key secret.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = viper.GetString("adjudication.api_key")
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = viper.GetDuration("adjudication.timeout")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	mergeThreshold, _ := cmd.Flags().GetFloat64("merge-threshold")
	if mergeThreshold <= 0 {
		mergeThreshold = viper.GetFloat64("adjudication.merge_threshold")
	}
	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = viper.GetInt("corpus.top_k")
	}
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = viper.GetInt("review.workers")
	}

	return types.PipelineConfig{
		Review: types.ReviewConfig{
			ChecklistName: stringSetting(cmd, "checklist", "review.checklist_name", checklist.CompanyIncorporation),
			ChecklistDir:  stringSetting(cmd, "checklist-dir", "review.checklist_dir", ""),
			OutDir:        stringSetting(cmd, "out-dir", "review.out_dir", "outputs"),
			Workers:       workers,
		},
		Corpus: types.CorpusConfig{
			ReferenceDir: stringSetting(cmd, "reference-dir", "corpus.reference_dir", ""),
			IndexDir:     stringSetting(cmd, "index-dir", "corpus.index_dir", "index"),
			TopK:         topK,
		},
		Adjudication: types.AdjudicationConfig{
			AIConfig: types.AIConfig{
				Model:      stringSetting(cmd, "model", "adjudication.model", "gpt-4o-mini"),
				APIKey:     secretDefault(secrets.OpenAIAPIKey, apiKey),
				MaxRetries: 1,
			},
			Timeout:        timeout,
			MergeThreshold: mergeThreshold,
		},
	}
}

// stringSetting returns the flag value, then the config value, then def.
func stringSetting(cmd *cobra.Command, flag, viperKey, def string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(viperKey); v != "" {
		return v
	}
	return def
}
