// Package summarize shortens oversized files through a remote LLM, with a
// content-addressed on-disk cache in front of the remote calls.
package summarize

import "fmt"

// ErrKind classifies summarization failures. The kind decides both the retry
// policy and whether the failure can abort a whole build.
type ErrKind string

const (
	KindAuth      ErrKind = "auth"
	KindQuota     ErrKind = "quota"
	KindNetwork   ErrKind = "network"
	KindMalformed ErrKind = "malformed_response"
)

// Error is a classified summarization failure for one file.
type Error struct {
	Kind ErrKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("summarize %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could plausibly succeed.
func (e *Error) Retryable() bool { return e.Kind == KindNetwork }

// Fatal reports whether the failure will keep happening for every file this
// run (bad key, exhausted quota), so the caller should stop instead of
// burning a failed call per file.
func (e *Error) Fatal() bool { return e.Kind == KindAuth || e.Kind == KindQuota }
