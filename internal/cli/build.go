package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gptcontext/gptcontext/internal/config"
	ctxpkg "github.com/gptcontext/gptcontext/internal/context"
	"github.com/gptcontext/gptcontext/internal/gitignore"
	"github.com/gptcontext/gptcontext/internal/scanner"
	"github.com/gptcontext/gptcontext/internal/summarize"
)

// buildOptions holds the flag values shared by the root build command and
// `watch`, which re-runs the same pipeline on file changes.
type buildOptions struct {
	base               string
	scanDir            string
	outputDir          string
	configFile         string
	exclude            []string
	include            []string
	maxTokens          int
	fileTokenThreshold int
	summarize          bool
	summarizer         string
	output             string
	generateMessage    bool
	dryRun             bool
	continueOnError    bool
	stopAtOverflow     bool
	verbose            bool
}

var buildFlags buildOptions

func bindBuildFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&buildFlags.base, "base", "b", ".", "project base directory")
	f.StringVarP(&buildFlags.scanDir, "scan-dir", "s", "", "subdirectory of the base to scan (default: the base itself)")
	f.StringVarP(&buildFlags.outputDir, "output-dir", "o", "", "directory for the context file and cache (default: ~/.gptcontext/<scan name>)")
	f.StringVarP(&buildFlags.configFile, "config-file", "c", "", "preset name or YAML file overriding scan settings")
	f.StringArrayVarP(&buildFlags.exclude, "exclude", "x", nil, "extra exclude pattern (repeatable; 'dir/', glob, or literal)")
	f.StringArrayVarP(&buildFlags.include, "include", "i", nil, "extra file extension to include (repeatable)")
	f.IntVar(&buildFlags.maxTokens, "max-tokens", 0, "total token budget for the context file")
	f.IntVar(&buildFlags.fileTokenThreshold, "file-token-threshold", 0, "per-file token threshold above which files are summarized or skipped")
	f.BoolVar(&buildFlags.summarize, "summarize", false, "summarize files over the threshold instead of skipping them")
	f.StringVar(&buildFlags.summarizer, "summarizer", "", "summarization backend: openai, claude, or simple")
	f.StringVar(&buildFlags.output, "output", "", "context file name (default "+config.DefaultContextFilename+")")
	f.BoolVar(&buildFlags.generateMessage, "generate-message", false, "also render the message template around the context")
	f.BoolVar(&buildFlags.dryRun, "dry-run", false, "report what would be included without writing anything")
	f.BoolVar(&buildFlags.continueOnError, "continue-on-error", false, "keep building past fatal summarizer errors (auth, quota)")
	f.BoolVar(&buildFlags.stopAtOverflow, "stop-at-overflow", false, "stop at the first file the budget rejects instead of packing smaller ones")
	f.BoolVarP(&buildFlags.verbose, "verbose", "v", false, "explain per-file skip decisions")
}

// pipeline is one resolved build: settings plus the directories involved.
type pipeline struct {
	settings   config.Settings
	base       string // project root, absolute
	scanRoot   string // directory actually walked, absolute
	scanPrefix string // scanRoot relative to base ("" when equal), POSIX-style
	outputBase string // where the context file and cache live
}

// newPipeline resolves flags and config into a validated pipeline.
func newPipeline() (*pipeline, error) {
	base, err := filepath.Abs(buildFlags.base)
	if err != nil {
		return nil, fmt.Errorf("cli: resolve base: %w", err)
	}

	s, err := config.Load(base, buildFlags.configFile)
	if err != nil {
		return nil, err
	}

	if buildFlags.maxTokens > 0 {
		s.MaxTotalTokens = buildFlags.maxTokens
	}
	if buildFlags.fileTokenThreshold > 0 {
		s.MaxFileTokens = buildFlags.fileTokenThreshold
	}
	if buildFlags.summarize {
		s.Summarize = true
	}
	if buildFlags.summarizer != "" {
		s.Provider = buildFlags.summarizer
	}
	if buildFlags.continueOnError {
		s.ContinueOnError = true
	}
	if buildFlags.stopAtOverflow {
		s.StopAtFirstOverflow = true
	}
	if buildFlags.output != "" {
		s.ContextFilename = buildFlags.output
	}
	for _, ext := range buildFlags.include {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.IncludeExts[ext] = true
	}
	s.ExcludePatterns = append(s.ExcludePatterns, buildFlags.exclude...)

	if err := s.Validate(); err != nil {
		return nil, err
	}

	scanRoot := base
	prefix := ""
	if buildFlags.scanDir != "" {
		scanRoot = filepath.Join(base, buildFlags.scanDir)
		info, err := os.Stat(scanRoot)
		if err != nil {
			return nil, fmt.Errorf("cli: scan dir %s: %w", buildFlags.scanDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("cli: scan dir %s: not a directory", buildFlags.scanDir)
		}
		if rel, err := filepath.Rel(base, scanRoot); err == nil && rel != "." {
			prefix = filepath.ToSlash(rel)
		}
	}

	outputBase := buildFlags.outputDir
	if outputBase == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cli: resolve home dir: %w", err)
		}
		outputBase = filepath.Join(home, ".gptcontext", filepath.Base(scanRoot))
	} else if outputBase, err = filepath.Abs(outputBase); err != nil {
		return nil, fmt.Errorf("cli: resolve output dir: %w", err)
	}

	return &pipeline{
		settings:   s,
		base:       base,
		scanRoot:   scanRoot,
		scanPrefix: prefix,
		outputBase: outputBase,
	}, nil
}

// scan lists the candidate files in deterministic order.
func (p *pipeline) scan() ([]scanner.Candidate, error) {
	s := p.settings

	ign := gitignore.Load(p.base)
	ignoreFn := func(rel string) bool {
		if p.scanPrefix != "" {
			rel = path.Join(p.scanPrefix, rel)
		}
		return ign.Match(rel)
	}

	return scanner.List(p.scanRoot, scanner.Config{
		IncludeExts:  s.IncludeExts,
		ExcludeDirs:  s.ExcludeDirs,
		ExcludeFiles: s.ExcludeFiles,
		SkipNames: map[string]bool{
			s.ContextFilename: true,
			s.MessageFilename: true,
		},
		Matcher:     scanner.NewExcludeMatcher(s.ExcludePatterns, s.UseDefaultExcludes),
		Ignore:      ignoreFn,
		MaxFileSize: s.MaxFileSizeBytes,
		Order:       s.Order,
		Workers:     s.Workers,
	})
}

// build runs the scan and packing stages and returns the result.
func (p *pipeline) build(ctx context.Context) (*ctxpkg.RunResult, error) {
	s := p.settings

	tok, err := ctxpkg.NewTokenizer(s.Encoding)
	if err != nil {
		return nil, err
	}

	candidates, err := p.scan()
	if err != nil {
		return nil, err
	}
	fmt.Printf("Found %d relevant files under %s\n", len(candidates), p.scanRoot)

	// Dry runs never call the summarizer or touch the cache; oversize files
	// are reported as skipped instead.
	summarizeEnabled := s.Summarize && !buildFlags.dryRun

	var fileSum ctxpkg.FileSummarizer
	if summarizeEnabled {
		cache, err := summarize.NewCache(p.cacheDir())
		if err != nil {
			return nil, err
		}
		remote, err := summarize.NewRemote(s.Provider, s.Model, p.apiKey(), tok)
		if err != nil {
			return nil, err
		}
		fileSum = summarize.New(remote, cache, tok, s.Model)
	}

	opts := ctxpkg.BuildOptions{
		MaxTotalTokens:      s.MaxTotalTokens,
		MaxFileTokens:       s.MaxFileTokens,
		Summarize:           summarizeEnabled,
		ContinueOnError:     s.ContinueOnError,
		StopAtFirstOverflow: s.StopAtFirstOverflow,
		Workers:             s.Workers,
	}

	var bar *progressbar.ProgressBar
	if term.IsTerminal(int(os.Stderr.Fd())) && len(candidates) > 0 {
		bar = progressbar.NewOptions(len(candidates),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("packing"),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionShowCount(),
		)
		opts.Progress = func(rel string) {
			_ = bar.Add(1)
		}
	}

	res, err := ctxpkg.NewBuilder(tok, fileSum, opts).Build(ctx, candidates)
	if bar != nil {
		_ = bar.Finish()
	}
	return res, err
}

// cacheDir returns the summary cache directory for this pipeline.
func (p *pipeline) cacheDir() string {
	return filepath.Join(p.outputBase, config.CacheDirName)
}

// apiKey returns the key for the configured provider.
func (p *pipeline) apiKey() string {
	switch p.settings.Provider {
	case summarize.ProviderClaude:
		return p.settings.AnthropicKey
	default:
		return p.settings.OpenAIKey
	}
}

// write persists the context file (and optionally the rendered message)
// atomically under the output base.
func (p *pipeline) write(res *ctxpkg.RunResult) (string, error) {
	if err := os.MkdirAll(p.outputBase, 0o755); err != nil {
		return "", fmt.Errorf("cli: create output dir: %w", err)
	}

	ctxPath := filepath.Join(p.outputBase, p.settings.ContextFilename)
	if err := writeAtomic(ctxPath, []byte(res.Document)); err != nil {
		return "", err
	}

	if buildFlags.generateMessage {
		msg, err := p.renderMessage(res.Document)
		if err != nil {
			return ctxPath, err
		}
		msgPath := filepath.Join(p.outputBase, p.settings.MessageFilename)
		if err := writeAtomic(msgPath, []byte(msg)); err != nil {
			return ctxPath, err
		}
	}
	return ctxPath, nil
}

// defaultMessageTemplate wraps the context when no template file is
// configured. ${context} is replaced by the document.
const defaultMessageTemplate = `Here is the current state of my project for reference:

${context}

Use this context to answer my next question.
`

func (p *pipeline) renderMessage(document string) (string, error) {
	tpl := defaultMessageTemplate
	if file := p.settings.MessageTemplateFile; file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(p.base, file)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("cli: read message template: %w", err)
		}
		tpl = string(data)
	}
	return os.Expand(tpl, func(name string) string {
		if name == "context" {
			return document
		}
		return ""
	}), nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cli: write %s: %w", filepath.Base(path), err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cli: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cli: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cli: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// runBuild is the root command's action.
func runBuild(parent context.Context) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.build(ctx)
	if res != nil {
		printSummary(res)
	}
	if err != nil {
		return err
	}

	if res.Cancelled {
		fmt.Fprintln(os.Stderr, "Interrupted before completion; no output written.")
		os.Exit(130)
	}

	if buildFlags.dryRun {
		fmt.Println("Dry run: no files written.")
		return nil
	}

	ctxPath, err := p.write(res)
	if err != nil {
		return err
	}
	fmt.Printf("Context written to %s\n", ctxPath)
	if buildFlags.generateMessage {
		fmt.Printf("Message written to %s\n", filepath.Join(p.outputBase, p.settings.MessageFilename))
	}

	if res.FailedCount > 0 {
		fmt.Fprintf(os.Stderr, "%d file(s) failed; context is incomplete.\n", res.FailedCount)
		os.Exit(2)
	}
	return nil
}

func printSummary(res *ctxpkg.RunResult) {
	fmt.Printf("Files included in full: %d\n", res.FullCount)
	fmt.Printf("Files included as summary: %d\n", res.SummaryCount)
	fmt.Printf("Files skipped: %d\n", res.SkippedCount)
	if res.FailedCount > 0 {
		fmt.Printf("Files failed: %d\n", res.FailedCount)
	}
	fmt.Printf("Total tokens used: %d / %d\n", res.UsedTokens, res.MaxTokens)

	if buildFlags.verbose {
		for _, sec := range res.Sections {
			if sec.Kind == ctxpkg.KindSkippedOversize || sec.Kind == ctxpkg.KindSkippedError {
				fmt.Printf("  skipped %s: %s\n", sec.RelPath, sec.Reason)
			}
		}
	}
}
