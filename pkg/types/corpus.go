package types

// ReferenceChunk is one passage from the reference corpus.
type ReferenceChunk struct {
	// ID is the chunk's position in corpus insertion order.
	ID int `json:"id" yaml:"id"`

	// Source is the reference file the chunk came from.
	Source string `json:"source" yaml:"source"`

	// Text is the passage text.
	Text string `json:"text" yaml:"text"`
}

// Label formats the chunk for prompts and traceability: "[source] text".
func (c ReferenceChunk) Label() string {
	return "[" + c.Source + "] " + c.Text
}

// RetrievalMatch pairs a reference chunk with its similarity to a query.
type RetrievalMatch struct {
	// Chunk is the matched reference passage.
	Chunk ReferenceChunk `json:"chunk" yaml:"chunk"`

	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64 `json:"score" yaml:"score"`
}
