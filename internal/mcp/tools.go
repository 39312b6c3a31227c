package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gptcontext/gptcontext/internal/config"
	ctxpkg "github.com/gptcontext/gptcontext/internal/context"
	"github.com/gptcontext/gptcontext/internal/gitignore"
	"github.com/gptcontext/gptcontext/internal/preset"
	"github.com/gptcontext/gptcontext/internal/scanner"
	"github.com/gptcontext/gptcontext/internal/summarize"
)

func (s *Server) handleBuildContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := config.Load(s.base, req.GetString("preset", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load config: %v", err)), nil
	}
	if v := req.GetInt("max_tokens", 0); v > 0 {
		cfg.MaxTotalTokens = v
	}
	if req.GetBool("summarize", false) {
		cfg.Summarize = true
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	scanRoot := s.base
	if dir := req.GetString("scan_dir", ""); dir != "" {
		scanRoot = filepath.Join(s.base, dir)
		if info, statErr := os.Stat(scanRoot); statErr != nil || !info.IsDir() {
			return mcp.NewToolResultError(fmt.Sprintf("scan_dir %q is not a directory under the project", dir)), nil
		}
	}

	tok, err := ctxpkg.NewTokenizer(cfg.Encoding)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load tokenizer: %v", err)), nil
	}

	ign := gitignore.Load(s.base)
	prefix := ""
	if rel, relErr := filepath.Rel(s.base, scanRoot); relErr == nil && rel != "." {
		prefix = filepath.ToSlash(rel)
	}

	candidates, err := scanner.List(scanRoot, scanner.Config{
		IncludeExts:  cfg.IncludeExts,
		ExcludeDirs:  cfg.ExcludeDirs,
		ExcludeFiles: cfg.ExcludeFiles,
		SkipNames: map[string]bool{
			cfg.ContextFilename: true,
			cfg.MessageFilename: true,
		},
		Matcher: scanner.NewExcludeMatcher(cfg.ExcludePatterns, cfg.UseDefaultExcludes),
		Ignore: func(rel string) bool {
			if prefix != "" {
				rel = prefix + "/" + rel
			}
			return ign.Match(rel)
		},
		MaxFileSize: cfg.MaxFileSizeBytes,
		Order:       cfg.Order,
		Workers:     cfg.Workers,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	var fileSum ctxpkg.FileSummarizer
	if cfg.Summarize {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to resolve cache dir: %v", homeErr)), nil
		}
		cacheDir := filepath.Join(home, ".gptcontext", filepath.Base(scanRoot), config.CacheDirName)
		cache, cacheErr := summarize.NewCache(cacheDir)
		if cacheErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to open cache: %v", cacheErr)), nil
		}
		key := cfg.OpenAIKey
		if cfg.Provider == summarize.ProviderClaude {
			key = cfg.AnthropicKey
		}
		remote, remoteErr := summarize.NewRemote(cfg.Provider, cfg.Model, key, tok)
		if remoteErr != nil {
			return mcp.NewToolResultError(remoteErr.Error()), nil
		}
		fileSum = summarize.New(remote, cache, tok, cfg.Model)
	}

	builder := ctxpkg.NewBuilder(tok, fileSum, ctxpkg.BuildOptions{
		MaxTotalTokens:  cfg.MaxTotalTokens,
		MaxFileTokens:   cfg.MaxFileTokens,
		Summarize:       cfg.Summarize,
		ContinueOnError: true, // an MCP call should return what it can
		Workers:         cfg.Workers,
	})
	res, err := builder.Build(ctx, candidates)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Packed %d files in full and %d as summaries (%d/%d tokens, %d skipped",
		res.FullCount, res.SummaryCount, res.UsedTokens, res.MaxTokens, res.SkippedCount)
	if res.FailedCount > 0 {
		fmt.Fprintf(&sb, ", %d failed", res.FailedCount)
	}
	sb.WriteString(").\n")
	sb.WriteString(res.Document)
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleListPresets(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	presets, err := preset.List(s.base)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list presets: %v", err)), nil
	}

	var sb strings.Builder
	for _, p := range presets {
		desc := p.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Fprintf(&sb, "%s: %s\n", p.Name, desc)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
