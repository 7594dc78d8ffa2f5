package chat

import (
	"reflect"
	"testing"
)

func TestHistoryRetainsTurnsWithinBudget(t *testing.T) {
	h := NewHistory(20, WordCounter{})

	h.Append("how do I greet guests", "warmly and promptly")
	h.Append("and then", "seat them")

	turns := h.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if h.TokenCount() > h.MaxTokens() {
		t.Errorf("token count %d exceeds budget %d", h.TokenCount(), h.MaxTokens())
	}
}

func TestHistoryEvictsOldestFirst(t *testing.T) {
	// Budget of 10 words. Each turn below costs 4 words, so only two fit.
	h := NewHistory(10, WordCounter{})

	h.Append("question one a", "b")
	h.Append("question two a", "b")
	h.Append("question three a", "b")

	turns := h.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("expected 2 retained turns, got %d", len(turns))
	}
	if turns[0].Question != "question two a" {
		t.Errorf("expected oldest retained turn to be the second, got %q", turns[0].Question)
	}
	if turns[1].Question != "question three a" {
		t.Errorf("expected newest turn last, got %q", turns[1].Question)
	}
	if h.TokenCount() != 8 {
		t.Errorf("expected token count 8, got %d", h.TokenCount())
	}
}

func TestHistoryOversizedTurnEvictsEverything(t *testing.T) {
	h := NewHistory(5, WordCounter{})

	h.Append("short", "turn")
	h.Append("this single answer is far too long to ever fit", "in five words")

	if turns := h.Snapshot(); len(turns) != 0 {
		t.Errorf("expected empty history after oversized turn, got %d turns", len(turns))
	}
	if h.TokenCount() != 0 {
		t.Errorf("expected token count 0, got %d", h.TokenCount())
	}
}

func TestHistoryDefaults(t *testing.T) {
	h := NewHistory(0, nil)
	if h.MaxTokens() != 3097 {
		t.Errorf("expected default budget 3097, got %d", h.MaxTokens())
	}

	h.Append("one two", "three")
	if h.TokenCount() != 3 {
		t.Errorf("expected word-count fallback to report 3, got %d", h.TokenCount())
	}
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(100, WordCounter{})
	h.Append("q", "a")

	snap := h.Snapshot()
	snap[0].Question = "mutated"

	if got := h.Snapshot(); !reflect.DeepEqual(got[0], (Turn{Question: "q", Answer: "a"})) {
		t.Errorf("snapshot mutation leaked into history: %+v", got[0])
	}
}
