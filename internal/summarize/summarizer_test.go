package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeCounter struct{}

func (fakeCounter) Count(s string) int { return len(strings.Fields(s)) }

func (fakeCounter) Truncate(s string, max int) string {
	f := strings.Fields(s)
	if len(f) <= max {
		return s
	}
	return strings.Join(f[:max], " ")
}

// scriptedRemote returns the queued errors in order, then succeeds.
type scriptedRemote struct {
	errs    []error
	summary string
	calls   int
}

func (r *scriptedRemote) Summarize(_ context.Context, _, relPath string, _ int) (string, error) {
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return "", err
	}
	return r.summary, nil
}

func newTestSummarizer(t *testing.T, remote Remote) *Summarizer {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := New(remote, cache, fakeCounter{}, "test-model")
	s.backoff = time.Millisecond
	return s
}

func TestCacheIdempotence(t *testing.T) {
	remote := &scriptedRemote{summary: "short summary text"}
	s := newTestSummarizer(t, remote)

	content := []byte("lots of source code")

	first, tokens, err := s.Summarize(context.Background(), content, "a.go", 500)
	if err != nil {
		t.Fatal(err)
	}
	if tokens != 3 {
		t.Errorf("tokens = %d, want 3", tokens)
	}

	second, tokens2, err := s.Summarize(context.Background(), content, "a.go", 500)
	if err != nil {
		t.Fatal(err)
	}

	if remote.calls != 1 {
		t.Errorf("remote called %d times, want exactly 1 (second served from cache)", remote.calls)
	}
	if first != second || tokens != tokens2 {
		t.Error("cached result differs from original")
	}
}

func TestDuplicateContentSharesCacheAcrossPaths(t *testing.T) {
	remote := &scriptedRemote{summary: "summary"}
	s := newTestSummarizer(t, remote)

	content := []byte("identical bytes in two files")
	if _, _, err := s.Summarize(context.Background(), content, "a/one.go", 500); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.Summarize(context.Background(), content, "b/two.go", 500); err != nil {
		t.Fatal(err)
	}

	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1 (cache is content-addressed, not path-addressed)", remote.calls)
	}
}

func TestNetworkErrorsAreRetried(t *testing.T) {
	remote := &scriptedRemote{
		errs: []error{
			&Error{Kind: KindNetwork, Path: "a.go", Err: errors.New("timeout")},
			&Error{Kind: KindNetwork, Path: "a.go", Err: errors.New("refused")},
		},
		summary: "made it",
	}
	s := newTestSummarizer(t, remote)

	got, _, err := s.Summarize(context.Background(), []byte("x"), "a.go", 500)
	if err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if got != "made it" || remote.calls != 3 {
		t.Errorf("summary=%q calls=%d, want \"made it\"/3", got, remote.calls)
	}
}

func TestRetriesAreBounded(t *testing.T) {
	netErr := &Error{Kind: KindNetwork, Path: "a.go", Err: errors.New("down")}
	remote := &scriptedRemote{
		errs: []error{netErr, netErr, netErr, netErr, netErr, netErr},
	}
	s := newTestSummarizer(t, remote)

	_, _, err := s.Summarize(context.Background(), []byte("x"), "a.go", 500)
	if err == nil {
		t.Fatal("expected failure when the network never recovers")
	}
	if remote.calls != defaultMaxRetries+1 {
		t.Errorf("remote called %d times, want %d", remote.calls, defaultMaxRetries+1)
	}
}

func TestAuthErrorsAreNotRetried(t *testing.T) {
	remote := &scriptedRemote{
		errs: []error{&Error{Kind: KindAuth, Path: "a.go", Err: errors.New("bad key")}},
	}
	s := newTestSummarizer(t, remote)

	_, _, err := s.Summarize(context.Background(), []byte("x"), "a.go", 500)
	if err == nil {
		t.Fatal("expected auth error to propagate")
	}
	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1 (auth will not succeed on retry)", remote.calls)
	}

	var serr *Error
	if !errors.As(err, &serr) || !serr.Fatal() {
		t.Errorf("auth error should classify as fatal: %v", err)
	}
}

func TestQuotaErrorsAreNotRetried(t *testing.T) {
	remote := &scriptedRemote{
		errs: []error{&Error{Kind: KindQuota, Path: "a.go", Err: errors.New("quota exhausted")}},
	}
	s := newTestSummarizer(t, remote)

	_, _, err := s.Summarize(context.Background(), []byte("x"), "a.go", 500)
	if err == nil || remote.calls != 1 {
		t.Fatalf("err=%v calls=%d, want immediate propagation", err, remote.calls)
	}
}

func TestMalformedResponseIsNotRetried(t *testing.T) {
	remote := &scriptedRemote{
		errs:    []error{&Error{Kind: KindMalformed, Path: "a.go", Err: errors.New("empty")}},
		summary: "never reached",
	}
	s := newTestSummarizer(t, remote)

	_, _, err := s.Summarize(context.Background(), []byte("x"), "a.go", 500)
	if err == nil || remote.calls != 1 {
		t.Fatalf("err=%v calls=%d, want no retry for malformed responses", err, remote.calls)
	}

	var serr *Error
	if !errors.As(err, &serr) || serr.Fatal() {
		t.Errorf("malformed response must degrade per-file, not abort runs: %v", err)
	}
}

func TestFailuresAreNotCached(t *testing.T) {
	remote := &scriptedRemote{
		errs:    []error{&Error{Kind: KindMalformed, Path: "a.go", Err: errors.New("empty")}},
		summary: "recovered",
	}
	s := newTestSummarizer(t, remote)

	content := []byte("x")
	if _, _, err := s.Summarize(context.Background(), content, "a.go", 500); err == nil {
		t.Fatal("first call should fail")
	}

	got, _, err := s.Summarize(context.Background(), content, "a.go", 500)
	if err != nil {
		t.Fatalf("second call should reach the recovered remote: %v", err)
	}
	if got != "recovered" {
		t.Errorf("got %q", got)
	}
}

func TestHeadRemote(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, "line")
	}
	text := strings.Join(lines, "\n")

	got, err := NewHead().Summarize(context.Background(), text, "a.go", 500)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(got, "\n") + 1; n != headLines {
		t.Errorf("preview has %d lines, want %d", n, headLines)
	}
}

func TestNewRemoteUnknownProvider(t *testing.T) {
	if _, err := NewRemote("cohere", "", "", fakeCounter{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
