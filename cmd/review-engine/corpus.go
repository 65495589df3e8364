// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/review-engine/internal/refindex"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the reference corpus index",
}

var corpusIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the reference retrieval index",
	Long: `Index reads every .txt file in the reference directory, splits it into
passages, embeds them, and caches the result in a SQLite database keyed by
a corpus content hash. An unchanged corpus is a no-op on later runs; a
changed corpus invalidates and rebuilds the cache.`,
	RunE: runCorpusIndex,
}

func init() {
	corpusIndexCmd.Flags().String("reference-dir", "", "directory of reference .txt files")
	corpusIndexCmd.Flags().String("index-dir", "", `index cache directory (default "index")`)

	corpusCmd.AddCommand(corpusIndexCmd)
	rootCmd.AddCommand(corpusCmd)
}

func runCorpusIndex(cmd *cobra.Command, args []string) error {
	referenceDir := stringSetting(cmd, "reference-dir", "corpus.reference_dir", "")
	if referenceDir == "" {
		return fmt.Errorf("reference directory required: use --reference-dir or set corpus.reference_dir")
	}
	indexDir := stringSetting(cmd, "index-dir", "corpus.index_dir", "index")

	idx, err := refindex.Ensure(context.Background(), referenceDir, indexDir, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Printf("%d chunks indexed (corpus hash %.12s)\n", idx.Len(), idx.Hash())
	return nil
}
