// Package chat implements the retrieval-augmented conversation core: a
// provider-agnostic chat LLM interface, token-bounded conversation memory,
// prompt assembly, and the answer composer that ties them together.
package chat

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Role identifies who authored a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a chat transcript.
type Message struct {
	Role    Role
	Content string
}

// LLM defines the interface for interacting with chat language models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Complete produces the next assistant message for the given transcript.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier (e.g., "gpt-4o", "gpt-3.5-turbo")
	Model string

	// Temperature controls creativity on a 0-2 scale
	// (0 = deterministic, 2 = very random)
	Temperature float64

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string
}

// DefaultLLMConfig returns the deployment defaults for answer generation.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       "gpt-3.5-turbo",
		Temperature: 1.2,
		MaxTokens:   0,
	}
}
