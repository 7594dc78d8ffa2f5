package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubEmbedder maps known texts to fixed vectors so retrieval is
// deterministic without a provider round trip.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([]EmbeddingRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		vec, ok := s.vectors[text]
		if !ok {
			vec = []float32{0, 0, 1}
		}
		records[i] = EmbeddingRecord{Text: text, Embedding: vec, Index: i, Model: "stub"}
	}
	return records, nil
}

func (s *stubEmbedder) GetModel() string  { return "stub" }
func (s *stubEmbedder) GetDimension() int { return 3 }

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newTestIndex(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	passages := []Passage{
		{ID: "w1", Text: "decant red wine before serving", Source: "wine.md"},
		{ID: "g1", Text: "greet guests within one minute", Source: "greeting.md"},
		{ID: "w2", Text: "pair fish with white wine", Source: "wine.md"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.8, 0.2, 0},
	}
	if err := store.Upsert(context.Background(), passages, vectors); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	return store
}

func TestRetrieverReturnsRankedPassages(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"wine?": {1, 0, 0},
	}}
	store := newTestIndex(t)

	r, err := NewRetriever(embedder, store, nil, 2)
	if err != nil {
		t.Fatalf("NewRetriever failed: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "wine?")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected topK=2 passages, got %d", len(got))
	}
	if got[0].ID != "w1" || got[1].ID != "w2" {
		t.Errorf("wrong ranking: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestRetrieverIsIdempotent(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"wine?": {1, 0, 0},
	}}
	store := newTestIndex(t)

	r, err := NewRetriever(embedder, store, nil, 3)
	if err != nil {
		t.Fatalf("NewRetriever failed: %v", err)
	}

	first, err := r.Retrieve(context.Background(), "wine?")
	if err != nil {
		t.Fatalf("first Retrieve failed: %v", err)
	}
	second, err := r.Retrieve(context.Background(), "wine?")
	if err != nil {
		t.Fatalf("second Retrieve failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("result count changed between identical queries: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("result %d changed: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestRetrieverEmptyIndex(t *testing.T) {
	embedder := &stubEmbedder{}
	r, err := NewRetriever(embedder, NewMemoryStore(), nil, 4)
	if err != nil {
		t.Fatalf("NewRetriever failed: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("empty index must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no passages, got %d", len(got))
	}
}

func TestRetrieverEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("provider down")}
	r, err := NewRetriever(embedder, NewMemoryStore(), nil, 4)
	if err != nil {
		t.Fatalf("NewRetriever failed: %v", err)
	}

	if _, err := r.Retrieve(context.Background(), "anything"); err == nil {
		t.Fatal("expected an error when embedding fails")
	}
}

func TestSelfQueryPlannerAppliesSourceFilter(t *testing.T) {
	llm := &stubLLM{response: `{"query": "wine", "source": "wine.md"}`}
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"wine": {0, 1, 0}, // nearest unfiltered hit would be greeting.md
	}}
	store := newTestIndex(t)

	r, err := NewRetriever(embedder, store, NewSelfQueryPlanner(llm), 1)
	if err != nil {
		t.Fatalf("NewRetriever failed: %v", err)
	}

	got, err := r.Retrieve(context.Background(), "what does wine.md say about wine?")
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(got))
	}
	if got[0].Source != "wine.md" {
		t.Errorf("source filter ignored, got passage from %s", got[0].Source)
	}
}

func TestSelfQueryPlannerFallsBackOnLLMError(t *testing.T) {
	llm := &stubLLM{err: errors.New("rate limited")}
	planner := NewSelfQueryPlanner(llm)

	q := planner.Plan(context.Background(), "raw question")
	if q.Text != "raw question" || q.Source != "" {
		t.Errorf("expected raw fallback, got %+v", q)
	}
}

func TestSelfQueryPlannerFallsBackOnBadJSON(t *testing.T) {
	llm := &stubLLM{response: "I think you want wine documents"}
	planner := NewSelfQueryPlanner(llm)

	q := planner.Plan(context.Background(), "raw question")
	if q.Text != "raw question" || q.Source != "" {
		t.Errorf("expected raw fallback, got %+v", q)
	}
}

func TestSelfQueryPlannerStripsCodeFence(t *testing.T) {
	llm := &stubLLM{response: "```json\n{\"query\": \"wine\", \"source\": \"\"}\n```"}
	planner := NewSelfQueryPlanner(llm)

	q := planner.Plan(context.Background(), "tell me about wine")
	if q.Text != "wine" {
		t.Errorf("fenced JSON not parsed, got %+v", q)
	}
	if q.Source != "" {
		t.Errorf("expected empty source, got %q", q.Source)
	}
}

func TestSelfQueryPlannerEmptyQueryUsesQuestion(t *testing.T) {
	llm := &stubLLM{response: `{"query": "", "source": "wine.md"}`}
	planner := NewSelfQueryPlanner(llm)

	q := planner.Plan(context.Background(), "original")
	if q.Text != "original" {
		t.Errorf("empty rewritten query should fall back to the question, got %q", q.Text)
	}
	if q.Source != "wine.md" {
		t.Errorf("source filter lost: %+v", q)
	}
}

func TestIndexPassagesBatches(t *testing.T) {
	embedder := &stubEmbedder{}
	store := NewMemoryStore()

	passages := make([]Passage, 5)
	for i := range passages {
		passages[i] = Passage{
			ID:     strings.Repeat("x", i+1),
			Text:   "text",
			Source: "docs/manual.txt",
		}
	}

	opts := IndexOptions{BatchSize: 2}
	if err := IndexPassages(context.Background(), passages, embedder, store, opts); err != nil {
		t.Fatalf("IndexPassages failed: %v", err)
	}
	// 5 passages at batch size 2 means 3 embed calls.
	if embedder.calls != 3 {
		t.Errorf("expected 3 embedding batches, got %d", embedder.calls)
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats["row_count"] != 5 {
		t.Errorf("expected 5 indexed passages, got %v", stats["row_count"])
	}
}

func TestIndexPassagesReplaceSources(t *testing.T) {
	embedder := &stubEmbedder{}
	store := NewMemoryStore()

	original := []Passage{
		{ID: "old-1", Text: "stale", Source: "docs/manual.txt"},
		{ID: "old-2", Text: "stale", Source: "docs/manual.txt"},
		{ID: "keep", Text: "other file", Source: "docs/other.txt"},
	}
	if err := IndexPassages(context.Background(), original, embedder, store, IndexOptions{}); err != nil {
		t.Fatalf("initial index failed: %v", err)
	}

	updated := []Passage{{ID: "new-1", Text: "fresh", Source: "docs/manual.txt"}}
	opts := IndexOptions{ReplaceSources: true}
	if err := IndexPassages(context.Background(), updated, embedder, store, opts); err != nil {
		t.Fatalf("reindex failed: %v", err)
	}

	stats, _ := store.Stats(context.Background())
	if stats["row_count"] != 2 {
		t.Errorf("expected stale passages replaced, row_count = %v", stats["row_count"])
	}
	if err := store.DeleteBySource(context.Background(), "docs/other.txt"); err != nil {
		t.Fatalf("DeleteBySource failed: %v", err)
	}
	stats, _ = store.Stats(context.Background())
	if stats["row_count"] != 1 {
		t.Errorf("unrelated source should have survived the reindex, row_count = %v", stats["row_count"])
	}
}

func TestIndexPassagesEmptyInput(t *testing.T) {
	if err := IndexPassages(context.Background(), nil, &stubEmbedder{}, NewMemoryStore(), IndexOptions{}); err != nil {
		t.Errorf("indexing nothing must be a no-op, got %v", err)
	}
}
