package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// setFlags swaps the package-level flag state for one test.
func setFlags(t *testing.T, f buildOptions) {
	t.Helper()
	old := buildFlags
	buildFlags = f
	t.Cleanup(func() { buildFlags = old })
}

func TestNewPipelineDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // isolate from any user-global config
	base := t.TempDir()
	setFlags(t, buildOptions{base: base})

	p, err := newPipeline()
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}

	if p.base != base {
		t.Errorf("base = %q, want %q", p.base, base)
	}
	if p.scanRoot != base {
		t.Errorf("scanRoot = %q, want base", p.scanRoot)
	}
	if p.scanPrefix != "" {
		t.Errorf("scanPrefix = %q, want empty", p.scanPrefix)
	}
	if p.settings.MaxTotalTokens != 12000 {
		t.Errorf("MaxTotalTokens = %d, want default 12000", p.settings.MaxTotalTokens)
	}

	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".gptcontext", filepath.Base(base))
	if p.outputBase != want {
		t.Errorf("outputBase = %q, want %q", p.outputBase, want)
	}
}

func TestNewPipelineFlagOverlay(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	out := t.TempDir()
	setFlags(t, buildOptions{
		base:               base,
		outputDir:          out,
		maxTokens:          500,
		fileTokenThreshold: 100,
		summarize:          true,
		summarizer:         "simple",
		include:            []string{"proto", ".sql"},
		exclude:            []string{"vendor/"},
		output:             "ctx.txt",
	})

	p, err := newPipeline()
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}

	s := p.settings
	if s.MaxTotalTokens != 500 || s.MaxFileTokens != 100 {
		t.Errorf("limits = %d/%d, want 500/100", s.MaxTotalTokens, s.MaxFileTokens)
	}
	if !s.Summarize || s.Provider != "simple" {
		t.Errorf("summarize = %v provider = %q", s.Summarize, s.Provider)
	}
	if !s.IncludeExts[".proto"] || !s.IncludeExts[".sql"] {
		t.Errorf("include extensions not normalized: %v %v", s.IncludeExts[".proto"], s.IncludeExts[".sql"])
	}
	found := false
	for _, pat := range s.ExcludePatterns {
		if pat == "vendor/" {
			found = true
		}
	}
	if !found {
		t.Error("exclude flag not appended to patterns")
	}
	if s.ContextFilename != "ctx.txt" {
		t.Errorf("ContextFilename = %q", s.ContextFilename)
	}
	if p.outputBase != out {
		t.Errorf("outputBase = %q, want flag value %q", p.outputBase, out)
	}
}

func TestNewPipelineRejectsBadProvider(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	setFlags(t, buildOptions{base: t.TempDir(), summarizer: "bard"})

	if _, err := newPipeline(); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestNewPipelineScanDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "src", "api"), 0o755); err != nil {
		t.Fatal(err)
	}
	setFlags(t, buildOptions{base: base, scanDir: filepath.Join("src", "api")})

	p, err := newPipeline()
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}
	if p.scanPrefix != "src/api" {
		t.Errorf("scanPrefix = %q, want src/api", p.scanPrefix)
	}

	setFlags(t, buildOptions{base: base, scanDir: "no-such-dir"})
	if _, err := newPipeline(); err == nil {
		t.Fatal("expected error for missing scan dir")
	}
}

func TestPipelineScanAppliesGitignoreWithPrefix(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base := t.TempDir()
	mustWrite(t, filepath.Join(base, ".gitignore"), "src/generated.go\n")
	mustWrite(t, filepath.Join(base, "src", "main.go"), "package main\n")
	mustWrite(t, filepath.Join(base, "src", "generated.go"), "package main\n")

	setFlags(t, buildOptions{base: base, scanDir: "src"})
	p, err := newPipeline()
	if err != nil {
		t.Fatalf("newPipeline: %v", err)
	}

	cands, err := p.scan()
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	var rels []string
	for _, c := range cands {
		rels = append(rels, c.RelPath)
	}
	if len(rels) != 1 || rels[0] != "main.go" {
		t.Errorf("scan = %v, want [main.go]", rels)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := writeAtomic(path, []byte("first")); err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	if err := writeAtomic(path, []byte("second")); err != nil {
		t.Fatalf("writeAtomic overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}

func TestRenderMessageDefaultTemplate(t *testing.T) {
	p := &pipeline{}
	msg, err := p.renderMessage("THE DOCUMENT")
	if err != nil {
		t.Fatalf("renderMessage: %v", err)
	}
	if !strings.Contains(msg, "THE DOCUMENT") {
		t.Error("document not substituted into default template")
	}
	if strings.Contains(msg, "${context}") {
		t.Error("placeholder left in rendered message")
	}
}

func TestRenderMessageTemplateFile(t *testing.T) {
	base := t.TempDir()
	mustWrite(t, filepath.Join(base, "tpl.txt"), "before ${context} after")

	p := &pipeline{base: base}
	p.settings.MessageTemplateFile = "tpl.txt"

	msg, err := p.renderMessage("DOC")
	if err != nil {
		t.Fatalf("renderMessage: %v", err)
	}
	if msg != "before DOC after" {
		t.Errorf("rendered = %q", msg)
	}
}

func TestRenderMessageMissingTemplateFails(t *testing.T) {
	p := &pipeline{base: t.TempDir()}
	p.settings.MessageTemplateFile = "absent.txt"

	if _, err := p.renderMessage("DOC"); err == nil {
		t.Fatal("expected error for missing template file")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
