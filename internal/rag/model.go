package rag

import "context"

// Passage is the unit of retrieved context: one chunk of a source document
// plus the metadata needed to trace it back to its file.
type Passage struct {
	ID     string  `json:"passage_id"`
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score,omitempty"` // Similarity score, set on retrieval results only
}

// SearchOptions provides filtering options for vector search
type SearchOptions struct {
	Source string `json:"source,omitempty"` // Restrict candidates to passages from this source path
}

// VectorStore defines the interface for passage storage and similarity search.
// Implementations must rank results by descending similarity score and break
// ties by insertion order.
type VectorStore interface {
	// Upsert inserts passage embeddings in a single operation.
	// vectors[i] is the embedding of passages[i].
	Upsert(ctx context.Context, passages []Passage, vectors [][]float32) error

	// Search performs top-K similarity search with optional filtering.
	// Fewer than topK passages may be returned if the store holds fewer.
	Search(ctx context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]Passage, error)

	// DeleteBySource removes every passage ingested from the given source path.
	DeleteBySource(ctx context.Context, source string) error

	// Stats returns collection statistics (record count, etc.)
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close releases resources and closes connections
	Close() error
}

// IndexOptions provides configuration for passage indexing
type IndexOptions struct {
	// BatchSize determines how many passages to embed per API call
	BatchSize int

	// ReplaceSources deletes existing passages for each source before upserting
	ReplaceSources bool
}

// DefaultIndexOptions returns sensible defaults for indexing
func DefaultIndexOptions() IndexOptions {
	return IndexOptions{
		BatchSize:      16,
		ReplaceSources: false,
	}
}
