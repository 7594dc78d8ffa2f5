package rag

import (
	"context"
	"fmt"
)

// IndexPassages embeds passages in batches and stores them in the vector
// store. It is safe to run against a live store: queries observe newly
// indexed passages eventually.
func IndexPassages(
	ctx context.Context,
	passages []Passage,
	embedder Embedder,
	vectorStore VectorStore,
	opts IndexOptions,
) error {
	if len(passages) == 0 {
		return nil
	}

	if embedder == nil {
		return fmt.Errorf("embedder cannot be nil")
	}
	if vectorStore == nil {
		return fmt.Errorf("vector store cannot be nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultIndexOptions().BatchSize
	}

	if opts.ReplaceSources {
		for _, source := range uniqueSources(passages) {
			if err := vectorStore.DeleteBySource(ctx, source); err != nil {
				return fmt.Errorf("failed to delete existing passages for %s: %w", source, err)
			}
		}
	}

	for batchStart := 0; batchStart < len(passages); batchStart += opts.BatchSize {
		batchEnd := batchStart + opts.BatchSize
		if batchEnd > len(passages) {
			batchEnd = len(passages)
		}

		batch := passages[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.Text
		}

		records, err := embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings for batch starting at %d: %w", batchStart, err)
		}
		if len(records) != len(batch) {
			return fmt.Errorf("embedder returned %d records for %d texts", len(records), len(batch))
		}

		vectors := make([][]float32, len(batch))
		for i, rec := range records {
			vectors[i] = rec.Embedding
		}

		if err := vectorStore.Upsert(ctx, batch, vectors); err != nil {
			return fmt.Errorf("failed to insert batch starting at %d: %w", batchStart, err)
		}
	}

	return nil
}

func uniqueSources(passages []Passage) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, p := range passages {
		if _, ok := seen[p.Source]; ok {
			continue
		}
		seen[p.Source] = struct{}{}
		sources = append(sources, p.Source)
	}
	return sources
}
