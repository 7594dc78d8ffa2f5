package rag

import (
	"context"
	"fmt"
)

// Query is the planned form of a user question: the text to embed for
// semantic search plus an optional metadata filter.
type Query struct {
	Text   string
	Source string // optional source-path filter
}

// QueryPlanner turns a natural-language question into a Query. Planning is
// best effort: implementations must fall back to the raw question rather than
// fail the retrieval.
type QueryPlanner interface {
	Plan(ctx context.Context, question string) Query
}

// PlainPlanner performs no rewriting: the raw question is the semantic query.
type PlainPlanner struct{}

// Plan returns the question unchanged with no filter.
func (PlainPlanner) Plan(_ context.Context, question string) Query {
	return Query{Text: question}
}

// Retriever provides top-k semantic retrieval over indexed passages.
type Retriever struct {
	embedder    Embedder
	vectorStore VectorStore
	planner     QueryPlanner
	topK        int
}

// NewRetriever creates a Retriever. planner may be nil, in which case no
// query rewriting is performed. topK defaults to 4.
func NewRetriever(embedder Embedder, vectorStore VectorStore, planner QueryPlanner, topK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if vectorStore == nil {
		return nil, fmt.Errorf("vector store cannot be nil")
	}
	if planner == nil {
		planner = PlainPlanner{}
	}
	if topK <= 0 {
		topK = 4
	}

	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		planner:     planner,
		topK:        topK,
	}, nil
}

// Retrieve returns up to topK passages relevant to the question, ranked by
// descending similarity. An empty index yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Passage, error) {
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	query := r.planner.Plan(ctx, question)
	if query.Text == "" {
		query.Text = question
	}

	records, err := r.embedder.Embed(ctx, []string{query.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no embedding generated for query")
	}

	var opts *SearchOptions
	if query.Source != "" {
		opts = &SearchOptions{Source: query.Source}
	}

	passages, err := r.vectorStore.Search(ctx, records[0].Embedding, r.topK, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search for query: %w", err)
	}

	return passages, nil
}
