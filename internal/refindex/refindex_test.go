package refindex

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestBuildChunksAndLabels(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"companies.txt": "Article one covers share capital.\n\nArticle two covers director duties.",
		"courts.txt":    "Disputes are heard before the courts of the free zone.",
		"notes.md":      "ignored, not a txt file",
	})

	idx, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}
	if idx.Hash() == "" {
		t.Error("Hash is empty")
	}

	// Chunks carry sequential IDs and the source filename label.
	for i, chunk := range idx.chunks {
		if chunk.ID != i {
			t.Errorf("chunk %d has ID %d", i, chunk.ID)
		}
		if !strings.HasPrefix(chunk.Label(), "["+chunk.Source+"]") {
			t.Errorf("Label = %q, want [%s] prefix", chunk.Label(), chunk.Source)
		}
	}
	if idx.chunks[0].Source != "companies.txt" || idx.chunks[2].Source != "courts.txt" {
		t.Errorf("chunk sources = %s, %s; files not visited in name order",
			idx.chunks[0].Source, idx.chunks[2].Source)
	}
}

func TestBuildEmptyCorpus(t *testing.T) {
	for _, files := range []map[string]string{
		{},
		{"readme.md": "no txt files here"},
		{"blank.txt": "\n\n  \n\n"},
	} {
		dir := writeCorpus(t, files)
		_, err := Build(dir)
		if !errors.Is(err, ErrEmptyCorpus) {
			t.Errorf("Build(%v) error = %v, want ErrEmptyCorpus", files, err)
		}
	}
}

func TestRetrieve(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"refs.txt": "Directors owe fiduciary duties under companies regulations.\n\n" +
			"Share capital must equal the nominal value of issued shares.\n\n" +
			"Annual accounts are filed within six months of the financial year end.",
	})

	idx, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	matches := idx.Retrieve("fiduciary duties of directors", 2)
	if len(matches) != 2 {
		t.Fatalf("Retrieve returned %d matches, want 2", len(matches))
	}
	if !strings.Contains(matches[0].Chunk.Text, "fiduciary") {
		t.Errorf("top match = %q, want the fiduciary duties chunk", matches[0].Chunk.Text)
	}
	if matches[0].Score < matches[1].Score {
		t.Errorf("scores not descending: %f < %f", matches[0].Score, matches[1].Score)
	}
	if matches[0].Score <= 0 {
		t.Errorf("top score = %f, want positive", matches[0].Score)
	}
}

func TestRetrieveBounds(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"refs.txt": "Only one chunk in the corpus.",
	})
	idx, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := idx.Retrieve("chunk corpus", 5); len(got) != 1 {
		t.Errorf("k beyond corpus size returned %d matches, want 1", len(got))
	}
	if got := idx.Retrieve("chunk corpus", 0); got != nil {
		t.Errorf("k = 0 returned %v, want nil", got)
	}

	var nilIdx *Index
	if got := nilIdx.Retrieve("anything", 3); got != nil {
		t.Errorf("nil index returned %v, want nil", got)
	}
}

func TestRetrieveUnknownQuery(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"refs.txt": "Directors owe fiduciary duties.\n\nShare capital must be stated.",
	})
	idx, err := Build(dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Every query token is outside the corpus vocabulary, so every score is
	// zero and ties keep corpus order.
	matches := idx.Retrieve("zanzibar quokka", 2)
	if len(matches) != 2 {
		t.Fatalf("Retrieve returned %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.Score != 0 {
			t.Errorf("score for unknown query = %f, want 0", m.Score)
		}
	}
	if matches[0].Chunk.ID != 0 || matches[1].Chunk.ID != 1 {
		t.Errorf("tie order = %d, %d; want corpus order", matches[0].Chunk.ID, matches[1].Chunk.ID)
	}
}

func TestEmbedderUnitVectors(t *testing.T) {
	corpus := []string{
		"fiduciary duties of directors",
		"share capital and nominal value",
	}
	emb := newEmbedder(corpus)

	for _, text := range corpus {
		vec := emb.Embed(text)
		norm := 0.0
		for _, v := range vec {
			norm += v * v
		}
		if math.Abs(norm-1) > 1e-9 {
			t.Errorf("Embed(%q) norm^2 = %f, want 1", text, norm)
		}
		if got := dot(vec, vec); math.Abs(got-1) > 1e-9 {
			t.Errorf("self similarity of %q = %f, want 1", text, got)
		}
	}

	zero := emb.Embed("the and of")
	for i, v := range zero {
		if v != 0 {
			t.Errorf("stopword-only embedding has nonzero component %d = %f", i, v)
		}
	}
}

func TestHashDirStability(t *testing.T) {
	files := map[string]string{
		"a.txt": "alpha content",
		"b.txt": "beta content",
	}
	dir := writeCorpus(t, files)

	h1, err := HashDir(dir)
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}
	h2, err := HashDir(dir)
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}
	if h1 != h2 {
		t.Errorf("hash not stable: %s vs %s", h1, h2)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("beta changed"), 0o644); err != nil {
		t.Fatal(err)
	}
	h3, err := HashDir(dir)
	if err != nil {
		t.Fatalf("HashDir: %v", err)
	}
	if h3 == h1 {
		t.Error("hash unchanged after corpus edit")
	}
}

func TestEnsureCacheRoundtrip(t *testing.T) {
	ctx := context.Background()
	refDir := writeCorpus(t, map[string]string{
		"refs.txt": "Directors owe fiduciary duties.\n\nShare capital must be stated.",
	})
	indexDir := t.TempDir()

	var out strings.Builder
	built, err := Ensure(ctx, refDir, indexDir, &out)
	if err != nil {
		t.Fatalf("Ensure (cold): %v", err)
	}
	if !strings.Contains(out.String(), "built") {
		t.Errorf("cold Ensure output = %q, want build message", out.String())
	}

	out.Reset()
	loaded, err := Ensure(ctx, refDir, indexDir, &out)
	if err != nil {
		t.Fatalf("Ensure (warm): %v", err)
	}
	if !strings.Contains(out.String(), "loaded from cache") {
		t.Errorf("warm Ensure output = %q, want cache-load message", out.String())
	}

	if loaded.Len() != built.Len() {
		t.Fatalf("cached Len = %d, built Len = %d", loaded.Len(), built.Len())
	}
	if loaded.Hash() != built.Hash() {
		t.Errorf("cached hash %s differs from built hash %s", loaded.Hash(), built.Hash())
	}

	// Retrieval behaviour survives the round trip.
	query := "fiduciary duties of directors"
	want := built.Retrieve(query, 1)
	got := loaded.Retrieve(query, 1)
	if len(got) != 1 || got[0].Chunk.Text != want[0].Chunk.Text {
		t.Errorf("cached retrieval = %v, built = %v", got, want)
	}
	if math.Abs(got[0].Score-want[0].Score) > 1e-9 {
		t.Errorf("cached score %f differs from built score %f", got[0].Score, want[0].Score)
	}
}

func TestEnsureInvalidatesOnChange(t *testing.T) {
	ctx := context.Background()
	refDir := writeCorpus(t, map[string]string{
		"refs.txt": "Original reference paragraph.",
	})
	indexDir := t.TempDir()

	var out strings.Builder
	if _, err := Ensure(ctx, refDir, indexDir, &out); err != nil {
		t.Fatalf("Ensure (cold): %v", err)
	}

	if err := os.WriteFile(filepath.Join(refDir, "refs.txt"),
		[]byte("Rewritten paragraph.\n\nAnd a second one."), 0o644); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	idx, err := Ensure(ctx, refDir, indexDir, &out)
	if err != nil {
		t.Fatalf("Ensure (after change): %v", err)
	}
	if strings.Contains(out.String(), "loaded from cache") {
		t.Errorf("stale cache served after corpus change: %q", out.String())
	}
	if idx.Len() != 2 {
		t.Errorf("rebuilt Len = %d, want 2", idx.Len())
	}
}
