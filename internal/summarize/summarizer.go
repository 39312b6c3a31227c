package summarize

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Summarizer fronts a Remote with the content-addressed cache and the retry
// policy. It is the component builds hand their oversized files to.
type Summarizer struct {
	remote     Remote
	cache      *Cache
	counter    TokenCounter
	model      string
	maxRetries int
	backoff    time.Duration
}

// New creates a Summarizer. model participates in cache keys so different
// models never share summaries.
func New(remote Remote, cache *Cache, counter TokenCounter, model string) *Summarizer {
	return &Summarizer{
		remote:     remote,
		cache:      cache,
		counter:    counter,
		model:      model,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
}

// Summarize returns a summary of content sized toward targetTokens, and the
// summary's token count. The cache is consulted first: a hit answers without
// any remote call, and a miss stores the fresh summary before returning.
func (s *Summarizer) Summarize(ctx context.Context, content []byte, relPath string, targetTokens int) (string, int, error) {
	digest := Digest(content)
	class := LengthClass(targetTokens)

	if entry, ok := s.cache.Get(digest, s.model, class); ok {
		return entry.Summary, entry.Tokens, nil
	}

	summary, err := s.callWithRetry(ctx, string(content), relPath, targetTokens)
	if err != nil {
		return "", 0, err
	}

	tokens := s.counter.Count(summary)
	if err := s.cache.Put(digest, s.model, class, CacheEntry{Summary: summary, Tokens: tokens}); err != nil {
		// A cache that stopped accepting writes means every unchanged file
		// pays for a remote call again next run. Surface it.
		return "", 0, err
	}
	return summary, tokens, nil
}

// callWithRetry retries transient network failures with exponential backoff.
// Auth and quota failures propagate immediately: they will not succeed on
// retry.
func (s *Summarizer) callWithRetry(ctx context.Context, text, relPath string, targetTokens int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := s.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", &Error{Kind: KindNetwork, Path: relPath, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		summary, err := s.remote.Summarize(ctx, text, relPath, targetTokens)
		if err == nil {
			return summary, nil
		}
		lastErr = err

		var serr *Error
		if !errors.As(err, &serr) || !serr.Retryable() {
			return "", err
		}
	}
	return "", lastErr
}
