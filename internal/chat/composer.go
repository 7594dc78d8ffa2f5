package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/internal/rag"
)

// Error taxonomy for a conversation turn. All three surface to the caller as
// structured errors; none are retried inside the core.
var (
	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrRetrievalFailed  = errors.New("passage retrieval failed")
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Retriever fetches passages relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]rag.Passage, error)
}

// ComposerConfig bounds the blocking stages of a turn.
type ComposerConfig struct {
	// RetrievalTimeout caps the retrieve stage (default 5s)
	RetrievalTimeout time.Duration

	// GenerationTimeout caps the generate stage (default 60s)
	GenerationTimeout time.Duration
}

// DefaultComposerConfig returns the recommended stage timeouts.
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		RetrievalTimeout:  5 * time.Second,
		GenerationTimeout: 60 * time.Second,
	}
}

// Composer runs one conversation session's turns: validate, retrieve,
// assemble, generate, then record the turn. Turns within a session are
// strictly sequential; the internal mutex makes concurrent Ask calls queue
// rather than interleave memory mutations.
type Composer struct {
	mu        sync.Mutex
	retriever Retriever
	llm       LLM
	history   *History
	config    ComposerConfig
}

// NewComposer creates a Composer for a single session.
func NewComposer(retriever Retriever, llm LLM, history *History, config ComposerConfig) (*Composer, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever cannot be nil")
	}
	if llm == nil {
		return nil, fmt.Errorf("LLM cannot be nil")
	}
	if history == nil {
		history = NewHistory(0, nil)
	}
	if config.RetrievalTimeout <= 0 {
		config.RetrievalTimeout = DefaultComposerConfig().RetrievalTimeout
	}
	if config.GenerationTimeout <= 0 {
		config.GenerationTimeout = DefaultComposerConfig().GenerationTimeout
	}

	return &Composer{
		retriever: retriever,
		llm:       llm,
		history:   history,
		config:    config,
	}, nil
}

// Ask answers one question. On any failure the turn is aborted: conversation
// memory is left exactly as it was before the call, and the error carries one
// of the package sentinels for the caller to classify.
func (c *Composer) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	retrievalCtx, cancelRetrieval := context.WithTimeout(ctx, c.config.RetrievalTimeout)
	passages, err := c.retriever.Retrieve(retrievalCtx, question)
	cancelRetrieval()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	messages := BuildMessages(question, c.history.Snapshot(), passages)

	generationCtx, cancelGeneration := context.WithTimeout(ctx, c.config.GenerationTimeout)
	answer, err := c.llm.Complete(generationCtx, messages)
	cancelGeneration()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	c.history.Append(question, answer)
	return answer, nil
}

// History exposes the session's conversation memory (read via Snapshot).
func (c *Composer) History() *History {
	return c.history
}
