package chat

import (
	"context"
	"strings"
)

// MockLLM is a deterministic LLM implementation for testing.
// With no fixed Response it echoes the transcript it received, so tests can
// assert that retrieved context actually reached the model.
type MockLLM struct {
	// Response is the fixed text returned by Complete.
	// If empty, the transcript contents are echoed back.
	Response string

	// Error, if set, is returned by Complete instead of a response.
	Error error

	// CallCount is incremented on every Complete or Generate call.
	CallCount int

	// LastMessages stores the most recent transcript passed to Complete.
	LastMessages []Message
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Complete returns the configured response, or echoes the transcript.
func (m *MockLLM) Complete(_ context.Context, messages []Message) (string, error) {
	m.CallCount++
	m.LastMessages = append([]Message(nil), messages...)

	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}

	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Generate produces text from a single prompt.
func (m *MockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return m.Complete(ctx, []Message{{Role: RoleUser, Content: prompt}})
}
