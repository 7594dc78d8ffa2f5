package rag

import (
	"context"
	"encoding/json"
	"log"
	"strings"
)

// LLM is the minimal language-model capability the self-query planner needs.
type LLM interface {
	// Generate produces text from a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// SelfQueryPlanner asks the language model to split a question into a
// semantic query and a structured source filter, e.g. "what does
// serving_basics.txt say about wine?" becomes a wine query filtered to that
// file. Any rewrite failure falls back to an unfiltered search over the raw
// question.
type SelfQueryPlanner struct {
	llm LLM
}

// NewSelfQueryPlanner creates a planner backed by the given language model.
func NewSelfQueryPlanner(llm LLM) *SelfQueryPlanner {
	return &SelfQueryPlanner{llm: llm}
}

const selfQueryPrompt = `You translate questions about restaurant training documents into search requests.

The documents have one metadata attribute:
- "source" (string): the file path the document was loaded from.

Given the question below, respond with a single JSON object and nothing else:
{"query": "<text to search for>", "source": "<source path, or empty string if the question does not name one>"}

Question: `

type selfQueryResult struct {
	Query  string `json:"query"`
	Source string `json:"source"`
}

// Plan rewrites the question via the language model. Best effort only.
func (p *SelfQueryPlanner) Plan(ctx context.Context, question string) Query {
	fallback := Query{Text: question}
	if p.llm == nil {
		return fallback
	}

	raw, err := p.llm.Generate(ctx, selfQueryPrompt+question)
	if err != nil {
		log.Printf("self-query rewrite failed, using raw question: %v", err)
		return fallback
	}

	var result selfQueryResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &result); err != nil {
		log.Printf("self-query rewrite returned unparseable output, using raw question: %v", err)
		return fallback
	}

	query := Query{
		Text:   strings.TrimSpace(result.Query),
		Source: strings.TrimSpace(result.Source),
	}
	if query.Text == "" {
		query.Text = question
	}
	return query
}

// stripCodeFence removes a surrounding markdown code fence, which chat models
// often wrap JSON output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
