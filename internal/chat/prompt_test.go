package chat

import (
	"strings"
	"testing"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

func TestBuildMessagesOrdering(t *testing.T) {
	history := []Turn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	}
	passages := []rag.Passage{{ID: "p", Text: "ctx", Source: "s.md", Score: 1}}

	msgs := BuildMessages("q3", history, passages)

	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("first message must be the system instruction, got role %q", msgs[0].Role)
	}
	want := []struct {
		role    Role
		content string
	}{
		{RoleUser, "q1"}, {RoleAssistant, "a1"},
		{RoleUser, "q2"}, {RoleAssistant, "a2"},
		{RoleUser, "q3"},
	}
	for i, w := range want {
		got := msgs[i+1]
		if got.Role != w.role || got.Content != w.content {
			t.Errorf("message %d: got (%q, %q), want (%q, %q)", i+1, got.Role, got.Content, w.role, w.content)
		}
	}
}

func TestBuildMessagesContextOrderedByScore(t *testing.T) {
	passages := []rag.Passage{
		{ID: "low", Text: "low relevance", Source: "low.md", Score: 0.2},
		{ID: "high", Text: "high relevance", Source: "high.md", Score: 0.9},
	}

	msgs := BuildMessages("q", nil, passages)
	system := msgs[0].Content

	if !strings.Contains(system, "[Document 1] (source: high.md)") {
		t.Errorf("highest scoring passage should be Document 1:\n%s", system)
	}
	if !strings.Contains(system, "[Document 2] (source: low.md)") {
		t.Errorf("lower scoring passage should be Document 2:\n%s", system)
	}
	if strings.Index(system, "high relevance") > strings.Index(system, "low relevance") {
		t.Error("passages rendered out of score order")
	}
}

func TestBuildMessagesEmptyContext(t *testing.T) {
	msgs := BuildMessages("q", nil, nil)
	if !strings.Contains(msgs[0].Content, "No relevant training documents") {
		t.Errorf("empty retrieval should be flagged in the system message:\n%s", msgs[0].Content)
	}
}

func TestWordCounter(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two  three", 3},
		{"tabs\tand\nnewlines count", 4},
	}
	for _, tc := range cases {
		if got := (WordCounter{}).Count(tc.text); got != tc.want {
			t.Errorf("Count(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}
