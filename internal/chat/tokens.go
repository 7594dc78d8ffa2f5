package chat

import (
	"log"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports the token cost of a text under a specific model's
// tokenization. Conversation memory depends only on this capability, keeping
// it language-model-agnostic.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the BPE encoding of an OpenAI model.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// WordCounter approximates token cost by whitespace-separated words. Used as
// a fallback when the model's encoding is unavailable, and in tests where
// determinism matters more than fidelity.
type WordCounter struct{}

// Count returns the number of whitespace-separated words in text.
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// NewTokenCounter returns a counter for the given model, falling back to the
// cl100k_base encoding and finally to word counting if the BPE data cannot
// be loaded.
func NewTokenCounter(model string) TokenCounter {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &TiktokenCounter{enc: enc}
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return &TiktokenCounter{enc: enc}
	}
	log.Printf("tiktoken encoding unavailable for %q, falling back to word counting", model)
	return WordCounter{}
}
