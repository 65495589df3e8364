// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package refindex

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches word tokens, including apostrophe contractions.
var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// stopwords are dropped before counting. Legal reference text is dense with
// these and they carry no retrieval signal.
var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of", "in",
		"on", "at", "by", "with", "as", "is", "are", "was", "were", "be",
		"been", "it", "this", "that", "these", "those", "from", "such",
		"shall", "any", "may", "not", "no",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// embedder turns text into L2-normalised TF-IDF vectors over a fixed
// vocabulary built from the reference corpus. With unit vectors the cosine
// similarity of two embeddings is their dot product.
type embedder struct {
	vocab map[string]int
	idf   []float64
}

// newEmbedder builds the vocabulary and smoothed IDF values from the corpus.
// The vocabulary order is lexicographic so embeddings are reproducible
// across runs and cache round-trips.
func newEmbedder(corpus []string) *embedder {
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	e := &embedder{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(corpus))
	for i, term := range terms {
		e.vocab[term] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return e
}

// dimension is the embedding vector length.
func (e *embedder) dimension() int { return len(e.idf) }

// Embed computes the TF-IDF vector for text. Tokens outside the corpus
// vocabulary are ignored; a text with no known tokens embeds to the zero
// vector, which scores zero against everything.
func (e *embedder) Embed(text string) []float64 {
	vec := make([]float64, e.dimension())
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokenize(text) {
		if idx, ok := e.vocab[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec
	}

	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
