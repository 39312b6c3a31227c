// Package context assembles a token-bounded context document from scanned
// files.
package context

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter is the minimal counting surface the builder needs. Tests
// substitute a deterministic fake.
type TokenCounter interface {
	Count(s string) int
	Truncate(s string, maxTokens int) string
}

// Tokenizer wraps a tiktoken encoding. Counting is deterministic for a given
// (text, encoding) pair.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer creates a Tokenizer for a named encoding (e.g. "cl100k_base").
// An unknown encoding is a configuration error and should abort startup.
func NewTokenizer(encoding string) (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: encoding %q: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// NewTokenizerForModel resolves the encoding from a model name.
func NewTokenizerForModel(model string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: model %q: %w", model, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// Count returns the number of tokens in s. Empty input counts zero.
func (t *Tokenizer) Count(s string) int {
	if s == "" {
		return 0
	}
	return len(t.enc.Encode(s, nil, nil))
}

// Truncate returns s cut to at most maxTokens tokens.
func (t *Tokenizer) Truncate(s string, maxTokens int) string {
	tokens := t.enc.Encode(s, nil, nil)
	if len(tokens) <= maxTokens {
		return s
	}
	return t.enc.Decode(tokens[:maxTokens])
}
