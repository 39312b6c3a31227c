package summarize

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const claudeDefaultModel = "claude-3-5-haiku-latest"

// claudeRemote summarizes through the Anthropic messages API.
type claudeRemote struct {
	client  *anthropic.Client
	model   string
	counter TokenCounter
	timeout time.Duration
}

// NewClaude creates a Claude backend. If apiKey is empty, ANTHROPIC_API_KEY
// is used.
func NewClaude(apiKey, model string, counter TokenCounter) Remote {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if model == "" {
		model = claudeDefaultModel
	}
	return &claudeRemote{
		client:  anthropic.NewClient(apiKey),
		model:   model,
		counter: counter,
		timeout: 60 * time.Second,
	}
}

func (c *claudeRemote) Summarize(ctx context.Context, text, relPath string, targetTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	input := c.counter.Truncate(text, maxPromptTokens)

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(summaryPrompt(relPath) + input)},
		}},
		MaxTokens: targetTokens,
	})
	if err != nil {
		return "", classifyClaude(relPath, err)
	}

	content := strings.TrimSpace(resp.GetFirstContentText())
	if content == "" {
		return "", &Error{Kind: KindMalformed, Path: relPath, Err: errors.New("empty completion")}
	}
	return content, nil
}

func classifyClaude(relPath string, err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthenticationErr() || apiErr.IsPermissionErr():
			return &Error{Kind: KindAuth, Path: relPath, Err: err}
		case apiErr.IsRateLimitErr() || apiErr.IsOverloadedErr() || apiErr.IsApiErr():
			return &Error{Kind: KindNetwork, Path: relPath, Err: err}
		case strings.Contains(strings.ToLower(apiErr.Message), "credit") ||
			strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return &Error{Kind: KindQuota, Path: relPath, Err: err}
		default:
			return &Error{Kind: KindMalformed, Path: relPath, Err: err}
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return &Error{Kind: KindNetwork, Path: relPath, Err: err}
	}
	return &Error{Kind: KindNetwork, Path: relPath, Err: err}
}
