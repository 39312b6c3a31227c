// Package config resolves the settings for one run: built-in defaults, the
// user-global TOML file, an optional YAML preset, then CLI flags, merged in
// that order into one immutable snapshot that is validated once and consumed
// read-only by the pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gptcontext/gptcontext/internal/preset"
	"github.com/gptcontext/gptcontext/internal/scanner"
)

// Output artifact names.
const (
	DefaultContextFilename = ".gptcontext.txt"
	DefaultMessageFilename = ".gptcontext_message.txt"
	CacheDirName           = ".gptcontext-cache"
)

// ConfigError reports an invalid or unresolvable setting. It is fatal at
// startup, before any file is processed.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Setting, e.Reason)
}

// Settings is the resolved configuration snapshot for one build.
type Settings struct {
	MaxTotalTokens   int
	MaxFileTokens    int
	MaxFileSizeBytes int64

	IncludeExts  map[string]bool
	ExcludeDirs  map[string]bool
	ExcludeFiles map[string]bool

	// ExcludePatterns feeds the unified pattern matcher (dir-only, glob,
	// literal forms) on top of the name sets above.
	ExcludePatterns    []string
	UseDefaultExcludes bool

	Order string // scanner.OrderPath or scanner.OrderSize

	Model    string
	Encoding string
	Provider string

	Summarize           bool
	ContinueOnError     bool
	StopAtFirstOverflow bool

	ContextFilename     string
	MessageFilename     string
	MessageTemplateFile string

	OpenAIKey    string
	AnthropicKey string

	Workers int
}

// GlobalConfig maps ~/.config/gptcontext/config.toml.
type GlobalConfig struct {
	Model      string       `toml:"model"`
	Encoding   string       `toml:"encoding"`
	Summarizer string       `toml:"summarizer"`
	Keys       KeysConfig   `toml:"keys"`
	Limits     LimitsConfig `toml:"limits"`
	Output     OutputConfig `toml:"output"`
}

type KeysConfig struct {
	OpenAI    string `toml:"openai"`
	Anthropic string `toml:"anthropic"`
}

type LimitsConfig struct {
	MaxTotalTokens int `toml:"max_total_tokens"`
	MaxFileTokens  int `toml:"max_file_tokens"`
	MaxFileSizeMB  int `toml:"max_file_size_mb"`
	Workers        int `toml:"workers"`
}

type OutputConfig struct {
	ContextFilename     string `toml:"context_filename"`
	MessageFilename     string `toml:"message_filename"`
	MessageTemplateFile string `toml:"message_template_file"`
	Order               string `toml:"order"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		MaxTotalTokens:   12000,
		MaxFileTokens:    5000,
		MaxFileSizeBytes: 1 << 20, // 1 MiB

		IncludeExts: toSet([]string{
			".py", ".md", ".js", ".ts", ".jsx", ".tsx", ".json", ".toml",
			".yaml", ".yml", ".html", ".css", ".scss", ".sass", ".less",
			".java", ".go", ".rs", ".cpp", ".c", ".h", ".hpp", ".cs",
			".swift", ".kt", ".m", ".sh", ".bash", ".zsh", ".ps1", ".pl",
			".rb", ".php", ".ini", ".cfg", ".env", ".txt", ".xml",
		}),
		ExcludeDirs: toSet([]string{
			".git", ".svn", ".hg", "node_modules", "__pycache__", "dist",
			"build", ".venv", "env", ".mypy_cache", ".pytest_cache",
			".vscode", ".idea", CacheDirName, "__snapshots__", ".cache",
		}),
		ExcludeFiles: toSet([]string{
			DefaultContextFilename, DefaultMessageFilename, "README.md",
			"CHANGELOG.md", "LICENSE", "CONTRIBUTING.md",
			"CODE_OF_CONDUCT.md", "SECURITY.md",
		}),
		UseDefaultExcludes: true,

		Order: scanner.OrderPath,

		Model:    "gpt-4o-mini",
		Encoding: "cl100k_base",
		Provider: "openai",

		ContextFilename: DefaultContextFilename,
		MessageFilename: DefaultMessageFilename,
	}
}

// GlobalConfigPath returns the path of the user-global config file.
func GlobalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gptcontext", "config.toml"), nil
}

// Load resolves the effective settings: defaults, then the global TOML file,
// then the preset (an explicit ref, or <base>/.gptcontext.yml when present),
// then API keys from the environment. CLI flag overlays happen in the caller,
// which sees the merged snapshot.
func Load(baseDir, presetRef string) (Settings, error) {
	s := Default()

	global, err := loadGlobal()
	if err != nil {
		return s, err
	}
	s = applyGlobal(s, global)

	switch {
	case presetRef != "":
		p, err := preset.Load(presetRef, baseDir)
		if err != nil {
			return s, err
		}
		s = ApplyPreset(s, p)
	case baseDir != "":
		if path := filepath.Join(baseDir, ".gptcontext.yml"); fileExists(path) {
			p, err := preset.Load(path, baseDir)
			if err != nil {
				return s, err
			}
			s = ApplyPreset(s, p)
		}
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		s.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		s.AnthropicKey = v
	}

	return s, nil
}

func loadGlobal() (GlobalConfig, error) {
	var g GlobalConfig

	path, err := GlobalConfigPath()
	if err != nil {
		return g, nil // no home dir: defaults only
	}
	if !fileExists(path) {
		return g, nil
	}
	if _, err := toml.DecodeFile(path, &g); err != nil {
		return g, fmt.Errorf("config: load %s: %w", path, err)
	}
	return g, nil
}

func applyGlobal(s Settings, g GlobalConfig) Settings {
	if g.Model != "" {
		s.Model = g.Model
	}
	if g.Encoding != "" {
		s.Encoding = g.Encoding
	}
	if g.Summarizer != "" {
		s.Provider = g.Summarizer
	}
	if g.Keys.OpenAI != "" {
		s.OpenAIKey = g.Keys.OpenAI
	}
	if g.Keys.Anthropic != "" {
		s.AnthropicKey = g.Keys.Anthropic
	}
	if g.Limits.MaxTotalTokens > 0 {
		s.MaxTotalTokens = g.Limits.MaxTotalTokens
	}
	if g.Limits.MaxFileTokens > 0 {
		s.MaxFileTokens = g.Limits.MaxFileTokens
	}
	if g.Limits.MaxFileSizeMB > 0 {
		s.MaxFileSizeBytes = int64(g.Limits.MaxFileSizeMB) << 20
	}
	if g.Limits.Workers > 0 {
		s.Workers = g.Limits.Workers
	}
	if g.Output.ContextFilename != "" {
		s.ContextFilename = g.Output.ContextFilename
	}
	if g.Output.MessageFilename != "" {
		s.MessageFilename = g.Output.MessageFilename
	}
	if g.Output.MessageTemplateFile != "" {
		s.MessageTemplateFile = g.Output.MessageTemplateFile
	}
	if g.Output.Order != "" {
		s.Order = g.Output.Order
	}
	return s
}

// ApplyPreset overlays a preset onto the settings. A preset's include list
// replaces the default allow-list; its exclude patterns are additive.
func ApplyPreset(s Settings, p preset.Preset) Settings {
	if len(p.IncludeExts) > 0 {
		s.IncludeExts = toSet(p.IncludeExts)
	}
	if len(p.Exclude) > 0 {
		s.ExcludePatterns = append(s.ExcludePatterns, p.Exclude...)
	}
	if p.UseDefaultExcludes != nil {
		s.UseDefaultExcludes = *p.UseDefaultExcludes
	}
	if p.MaxTotalTokens > 0 {
		s.MaxTotalTokens = p.MaxTotalTokens
	}
	if p.MaxFileTokens > 0 {
		s.MaxFileTokens = p.MaxFileTokens
	}
	if p.MaxFileSizeMB > 0 {
		s.MaxFileSizeBytes = int64(p.MaxFileSizeMB) << 20
	}
	return s
}

// Validate checks the snapshot once, before any file is processed. The
// tokenizer performs its own fail-fast check on Encoding at startup.
func (s Settings) Validate() error {
	if s.MaxTotalTokens <= 0 {
		return &ConfigError{Setting: "max_total_tokens", Reason: "must be positive"}
	}
	if s.MaxFileTokens <= 0 {
		return &ConfigError{Setting: "max_file_tokens", Reason: "must be positive"}
	}
	if s.MaxFileSizeBytes <= 0 {
		return &ConfigError{Setting: "max_file_size", Reason: "must be positive"}
	}
	if len(s.IncludeExts) == 0 {
		return &ConfigError{Setting: "include_exts", Reason: "no extensions to include"}
	}
	switch s.Provider {
	case "openai", "claude", "simple":
	default:
		return &ConfigError{Setting: "summarizer", Reason: fmt.Sprintf("unknown provider %q (valid: openai, claude, simple)", s.Provider)}
	}
	switch s.Order {
	case scanner.OrderPath, scanner.OrderSize:
	default:
		return &ConfigError{Setting: "order", Reason: fmt.Sprintf("unknown order %q (valid: path, size)", s.Order)}
	}
	return nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
