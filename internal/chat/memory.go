package chat

import "sync"

// Turn is one question/answer exchange in a conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// History is an ordered, token-bounded log of conversation turns. When a new
// turn would push the cumulative token count past the budget, the oldest
// turns are evicted first until the bound holds. A single History belongs to
// exactly one conversation session.
type History struct {
	mu        sync.Mutex
	turns     []Turn
	costs     []int
	total     int
	maxTokens int
	counter   TokenCounter
}

// NewHistory creates a History with the given token budget. A non-positive
// budget falls back to 3097, the deployment default. counter may be nil, in
// which case word counting is used.
func NewHistory(maxTokens int, counter TokenCounter) *History {
	if maxTokens <= 0 {
		maxTokens = 3097
	}
	if counter == nil {
		counter = WordCounter{}
	}
	return &History{
		maxTokens: maxTokens,
		counter:   counter,
	}
}

// Append records a completed turn, evicting oldest turns while the token
// budget is exceeded. A turn costing more than the entire budget evicts
// everything, itself included: the invariant that retained turns never exceed
// the budget always wins.
func (h *History) Append(question, answer string) {
	cost := h.counter.Count(question) + h.counter.Count(answer)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, Turn{Question: question, Answer: answer})
	h.costs = append(h.costs, cost)
	h.total += cost

	for h.total > h.maxTokens && len(h.turns) > 0 {
		h.total -= h.costs[0]
		h.turns = h.turns[1:]
		h.costs = h.costs[1:]
	}
}

// Snapshot returns the retained turns oldest-first.
func (h *History) Snapshot() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// TokenCount returns the cumulative token cost of the retained turns.
func (h *History) TokenCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// MaxTokens returns the configured token budget.
func (h *History) MaxTokens() int {
	return h.maxTokens
}
