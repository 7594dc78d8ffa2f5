package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-process VectorStore that performs an exact cosine scan.
// It exists so the service can run (and be tested) without a Milvus endpoint.
type MemoryStore struct {
	mu      sync.RWMutex
	records []memoryRecord
}

type memoryRecord struct {
	passage Passage
	vector  []float32
	seq     int // insertion order, used to break score ties
}

// NewMemoryStore creates an empty in-process vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Upsert inserts passage embeddings. Passages with an ID already present are
// replaced in place.
func (s *MemoryStore) Upsert(_ context.Context, passages []Passage, vectors [][]float32) error {
	if len(passages) == 0 {
		return ErrEmptyPassages
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("%w: %d passages, %d vectors", ErrInvalidDimension, len(passages), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range passages {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])

		replaced := false
		for j := range s.records {
			if s.records[j].passage.ID == p.ID {
				s.records[j].passage = p
				s.records[j].vector = vec
				replaced = true
				break
			}
		}
		if !replaced {
			s.records = append(s.records, memoryRecord{
				passage: p,
				vector:  vec,
				seq:     len(s.records),
			})
		}
	}
	return nil
}

// Search returns up to topK passages ranked by descending cosine similarity.
func (s *MemoryStore) Search(_ context.Context, queryVector []float32, topK int, opts *SearchOptions) ([]Passage, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", ErrSearchFailed)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		passage Passage
		score   float32
		seq     int
	}

	candidates := make([]scored, 0, len(s.records))
	for _, rec := range s.records {
		if opts != nil && opts.Source != "" && rec.passage.Source != opts.Source {
			continue
		}
		candidates = append(candidates, scored{
			passage: rec.passage,
			score:   cosineSimilarity(queryVector, rec.vector),
			seq:     rec.seq,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	out := make([]Passage, 0, topK)
	for _, c := range candidates[:topK] {
		p := c.passage
		p.Score = c.score
		out = append(out, p)
	}
	return out, nil
}

// DeleteBySource removes every passage ingested from the given source path
func (s *MemoryStore) DeleteBySource(_ context.Context, source string) error {
	if source == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.passage.Source != source {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	return nil
}

// Stats returns the record count
func (s *MemoryStore) Stats(_ context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"row_count": len(s.records),
	}, nil
}

// Close is a no-op for the in-process store
func (s *MemoryStore) Close() error { return nil }

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
