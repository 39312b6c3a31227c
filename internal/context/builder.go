package context

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/gptcontext/gptcontext/internal/scanner"
)

// SectionKind tags what happened to one file during the build.
type SectionKind string

const (
	KindFull            SectionKind = "full"
	KindSummary         SectionKind = "summary"
	KindSkippedOversize SectionKind = "skipped-oversize"
	KindSkippedError    SectionKind = "skipped-error"
)

// Skip reasons recorded on sections so operators can tell why output is
// missing a file.
const (
	ReasonFileThreshold = "exceeds per-file token threshold"
	ReasonTokenBudget   = "total token budget reached"
	ReasonReadError     = "read error"
	ReasonSummaryError  = "summarization failed"
)

// Section is the per-file record of a build.
type Section struct {
	RelPath string
	Kind    SectionKind
	Reason  string // set for skipped kinds
	Text    string // rendered text, empty for skipped kinds
	Tokens  int    // tokens contributed to the document, 0 for skipped kinds
}

// RunResult is the outcome of one build call.
type RunResult struct {
	Document     string
	Sections     []Section
	UsedTokens   int
	MaxTokens    int
	FullCount    int
	SummaryCount int
	SkippedCount int // oversize or budget-rejected files
	FailedCount  int // read or summarization failures
	Cancelled    bool
}

// FileSummarizer produces a shortened representation of a file along with its
// token count. Implemented by summarize.Summarizer; stubbed in tests.
type FileSummarizer interface {
	Summarize(ctx context.Context, content []byte, relPath string, targetTokens int) (summary string, tokens int, err error)
}

// BuildOptions are the knobs of one build.
type BuildOptions struct {
	MaxTotalTokens int
	MaxFileTokens  int
	Summarize      bool
	// ContinueOnError keeps the build running past summarizer failures that
	// would otherwise abort it (auth, quota). Per-file degradation to a
	// skipped-error section happens regardless.
	ContinueOnError bool
	// StopAtFirstOverflow ends the loop at the first budget rejection instead
	// of best-effort packing the remaining smaller files.
	StopAtFirstOverflow bool
	Workers             int // bound for the parallel read stage
	// Progress, when set, is called with each file's relative path as the
	// sequential loop reaches it.
	Progress func(relPath string)
}

// Builder turns an ordered candidate list into a context document.
type Builder struct {
	counter    TokenCounter
	summarizer FileSummarizer
	opts       BuildOptions
}

// NewBuilder creates a Builder. summarizer may be nil when opts.Summarize is
// false.
func NewBuilder(counter TokenCounter, summarizer FileSummarizer, opts BuildOptions) *Builder {
	return &Builder{counter: counter, summarizer: summarizer, opts: opts}
}

// loaded pairs a candidate with its content and token count, or a read error.
type loaded struct {
	cand    scanner.Candidate
	content []byte
	tokens  int
	err     error
}

// Build processes candidates in their given (scan) order. Reading and token
// counting run on a worker pool; the accept/reject loop is strictly
// sequential because the budget is shared mutable state and the packing
// result must not depend on timing.
//
// Per-file failures never abort the build. The only mid-build abort is a
// fatal summarizer error (auth/quota) without ContinueOnError, in which case
// the partial result is returned alongside the error. Cancellation via ctx is
// checked between files and returns the partial result with Cancelled set.
func (b *Builder) Build(ctx context.Context, candidates []scanner.Candidate) (*RunResult, error) {
	files := b.loadAll(candidates)

	budget := NewBudget(b.opts.MaxTotalTokens)
	res := &RunResult{MaxTokens: b.opts.MaxTotalTokens}

	defer func() {
		res.Document = AssembleDocument(res.Sections)
		res.UsedTokens = budget.Used()
	}()

	for _, lf := range files {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}

		rel := lf.cand.RelPath
		if b.opts.Progress != nil {
			b.opts.Progress(rel)
		}

		if lf.err != nil {
			res.addSkip(rel, KindSkippedError, fmt.Sprintf("%s: %v", ReasonReadError, lf.err))
			res.FailedCount++
			continue
		}

		var (
			kind SectionKind
			text string
			cost int
		)

		switch {
		case lf.tokens <= b.opts.MaxFileTokens:
			// Inclusive boundary: a file at exactly the threshold is full.
			kind = KindFull
			text = FormatFull(rel, string(lf.content))
			cost = lf.tokens

		case b.opts.Summarize:
			target := b.opts.MaxFileTokens
			if r := budget.Remaining(); r < target {
				target = r
			}
			if target <= 0 {
				res.addSkip(rel, KindSkippedOversize, ReasonTokenBudget)
				res.SkippedCount++
				if b.opts.StopAtFirstOverflow {
					return res, nil
				}
				continue
			}

			summary, stokens, err := b.summarizer.Summarize(ctx, lf.content, rel, target)
			if err != nil {
				res.addSkip(rel, KindSkippedError, fmt.Sprintf("%s: %v", ReasonSummaryError, err))
				res.FailedCount++
				if b.fatal(err) {
					return res, fmt.Errorf("context: summarize %s: %w", rel, err)
				}
				continue
			}
			kind = KindSummary
			text = FormatSummary(rel, summary)
			cost = stokens

		default:
			res.addSkip(rel, KindSkippedOversize, ReasonFileThreshold)
			res.SkippedCount++
			continue
		}

		if !budget.Fits(cost) {
			res.addSkip(rel, KindSkippedOversize, ReasonTokenBudget)
			res.SkippedCount++
			if b.opts.StopAtFirstOverflow {
				return res, nil
			}
			continue
		}
		budget.Spend(cost)

		res.Sections = append(res.Sections, Section{
			RelPath: rel,
			Kind:    kind,
			Text:    text,
			Tokens:  cost,
		})
		if kind == KindFull {
			res.FullCount++
		} else {
			res.SummaryCount++
		}
	}

	return res, nil
}

// fatal reports whether the error should abort the whole run. Summarizer
// errors carry a Fatal method (auth/quota); anything else that bubbles up
// here, such as a cache write failure, is run-level by definition.
func (b *Builder) fatal(err error) bool {
	if b.opts.ContinueOnError {
		return false
	}
	var f interface{ Fatal() bool }
	if errors.As(err, &f) {
		return f.Fatal()
	}
	return true
}

func (r *RunResult) addSkip(rel string, kind SectionKind, reason string) {
	r.Sections = append(r.Sections, Section{RelPath: rel, Kind: kind, Reason: reason})
}

// loadAll reads and counts every candidate on a bounded worker pool. Results
// are indexed, so the output keeps scan order whatever the pool does.
func (b *Builder) loadAll(candidates []scanner.Candidate) []loaded {
	workers := b.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	out := make([]loaded, len(candidates))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c scanner.Candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			data, err := os.ReadFile(c.AbsPath)
			if err != nil {
				out[i] = loaded{cand: c, err: err}
				return
			}
			out[i] = loaded{cand: c, content: data, tokens: b.counter.Count(string(data))}
		}(i, c)
	}
	wg.Wait()

	return out
}
