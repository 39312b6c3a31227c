package summarize

import (
	"context"
	"fmt"
)

// Provider name constants.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderSimple = "simple"
)

// maxPromptTokens bounds how much of a file is sent to the remote service.
const maxPromptTokens = 3000

// TokenCounter is satisfied by *context.Tokenizer.
type TokenCounter interface {
	Count(s string) int
	Truncate(s string, maxTokens int) string
}

// Remote is a summarization backend. Implementations classify every failure
// as a *Error so callers can apply the retry policy.
type Remote interface {
	Summarize(ctx context.Context, text, relPath string, targetTokens int) (string, error)
}

// NewRemote constructs the backend for the named provider.
//
//   - provider: "openai", "claude", "simple"
//   - model: provider model name ("" = provider default)
//   - apiKey: provider API key (empty = read from env in the backend)
func NewRemote(provider, model, apiKey string, counter TokenCounter) (Remote, error) {
	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(apiKey, model, counter), nil
	case ProviderClaude:
		return NewClaude(apiKey, model, counter), nil
	case ProviderSimple:
		return NewHead(), nil
	default:
		return nil, fmt.Errorf("summarize: unknown provider %q; valid providers: openai, claude, simple", provider)
	}
}

// summaryPrompt is the instruction sent ahead of the (truncated) file text.
func summaryPrompt(relPath string) string {
	return "Summarize the following source file for LLM-assisted understanding:\n" +
		"- File: " + relPath + "\n" +
		"- Focus on key components, classes, functions, and logic\n" +
		"- Format clearly and concisely\n\n"
}
