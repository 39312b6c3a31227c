package summarize

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const openaiDefaultModel = "gpt-4o-mini"

// openaiRemote summarizes through the OpenAI chat completions API.
type openaiRemote struct {
	client  *openai.Client
	model   string
	counter TokenCounter
	timeout time.Duration
}

// NewOpenAI creates an OpenAI backend. If apiKey is empty, OPENAI_API_KEY is
// used.
func NewOpenAI(apiKey, model string, counter TokenCounter) Remote {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = openaiDefaultModel
	}
	return &openaiRemote{
		client:  openai.NewClient(apiKey),
		model:   model,
		counter: counter,
		timeout: 60 * time.Second,
	}
}

func (o *openaiRemote) Summarize(ctx context.Context, text, relPath string, targetTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	input := o.counter.Truncate(text, maxPromptTokens)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: summaryPrompt(relPath) + input,
		}},
		MaxTokens:   targetTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", classifyOpenAI(relPath, err)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindMalformed, Path: relPath, Err: errors.New("no choices in response")}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &Error{Kind: KindMalformed, Path: relPath, Err: errors.New("empty completion")}
	}
	return content, nil
}

// classifyOpenAI maps SDK errors onto the failure taxonomy. A timeout counts
// as a network failure and follows the same retry policy.
func classifyOpenAI(relPath string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return &Error{Kind: KindAuth, Path: relPath, Err: err}
		case isQuota(apiErr):
			return &Error{Kind: KindQuota, Path: relPath, Err: err}
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return &Error{Kind: KindNetwork, Path: relPath, Err: err}
		default:
			return &Error{Kind: KindMalformed, Path: relPath, Err: err}
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: KindNetwork, Path: relPath, Err: err}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Path: relPath, Err: err}
	}
	return &Error{Kind: KindNetwork, Path: relPath, Err: err}
}

func isQuota(apiErr *openai.APIError) bool {
	if apiErr.Type == "insufficient_quota" {
		return true
	}
	if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
		return true
	}
	return apiErr.HTTPStatusCode == 429 &&
		strings.Contains(strings.ToLower(apiErr.Message), "quota")
}
