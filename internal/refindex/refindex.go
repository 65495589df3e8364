// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refindex builds a retrieval index over a directory of reference
// texts and serves top-k similarity queries against it. The built index can
// be cached in SQLite keyed by a corpus content hash, so an unchanged corpus
// loads instead of re-embedding and a changed corpus invalidates the cache.
package refindex

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/review-engine/pkg/types"
)

// ErrEmptyCorpus marks an indexing attempt over a directory that yields no
// reference chunks. Fatal only when retrieval was explicitly requested.
var ErrEmptyCorpus = errors.New("reference corpus is empty")

// Index is a read-only retrieval index over the reference corpus. Built once
// per corpus state; safe for concurrent Retrieve calls.
type Index struct {
	chunks  []types.ReferenceChunk
	vectors [][]float64
	emb     *embedder
	hash    string
}

// Build reads every .txt file in dir, splits it into blank-line separated
// chunks labelled with the source filename, and embeds them. Files are
// visited in name order so chunk IDs are stable.
func Build(dir string) (*Index, error) {
	chunks, err := readCorpus(dir)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmptyCorpus)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	emb := newEmbedder(texts)

	vectors := make([][]float64, len(chunks))
	for i, t := range texts {
		vectors[i] = emb.Embed(t)
	}

	hash, err := HashDir(dir)
	if err != nil {
		return nil, err
	}

	return &Index{chunks: chunks, vectors: vectors, emb: emb, hash: hash}, nil
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

// Hash returns the corpus content hash the index was built from.
func (idx *Index) Hash() string { return idx.hash }

// Retrieve returns up to k reference chunks most similar to the query, in
// descending score order. Ties keep corpus insertion order. A nil or empty
// index returns no matches rather than failing.
func (idx *Index) Retrieve(query string, k int) []types.RetrievalMatch {
	if idx == nil || len(idx.chunks) == 0 || k <= 0 {
		return nil
	}

	qv := idx.emb.Embed(query)

	matches := make([]types.RetrievalMatch, len(idx.chunks))
	for i := range idx.chunks {
		matches[i] = types.RetrievalMatch{
			Chunk: idx.chunks[i],
			Score: dot(idx.vectors[i], qv),
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}

// readCorpus collects labelled chunks from every .txt file in dir.
func readCorpus(dir string) ([]types.ReferenceChunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading reference directory %s: %w", dir, err)
	}

	var chunks []types.ReferenceChunk
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading reference %s: %w", name, err)
		}
		for _, raw := range strings.Split(string(data), "\n\n") {
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}
			chunks = append(chunks, types.ReferenceChunk{
				ID:     len(chunks),
				Source: name,
				Text:   text,
			})
		}
	}
	return chunks, nil
}

// HashDir computes the corpus invalidation key: SHA-256 over the sorted
// reference file names and their contents.
func HashDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading reference directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("reading reference %s: %w", name, err)
		}
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(data)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
