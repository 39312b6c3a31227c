// Package preset loads named scan configurations: YAML files describing
// per-project-type include/exclude rules. Built-in presets ship embedded in
// the binary; a project can add its own under <base>/presets/.
package preset

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yml
var builtin embed.FS

// Preset is one named scan configuration. Zero-valued fields leave the
// corresponding setting untouched when applied.
type Preset struct {
	Name               string   `yaml:"-"`
	Description        string   `yaml:"description"`
	IncludeExts        []string `yaml:"include_exts"`
	Exclude            []string `yaml:"exclude"`
	UseDefaultExcludes *bool    `yaml:"use_default_excludes"`
	MaxTotalTokens     int      `yaml:"max_total_tokens"`
	MaxFileTokens      int      `yaml:"max_file_tokens"`
	MaxFileSizeMB      int      `yaml:"max_file_size_mb"`
}

// List returns every available preset: the embedded ones plus any *.yml under
// <baseDir>/presets/. A project preset with the same name as a built-in
// shadows it.
func List(baseDir string) ([]Preset, error) {
	byName := make(map[string]Preset)

	entries, err := builtin.ReadDir("presets")
	if err != nil {
		return nil, fmt.Errorf("preset: read embedded presets: %w", err)
	}
	for _, e := range entries {
		data, err := builtin.ReadFile("presets/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("preset: read %s: %w", e.Name(), err)
		}
		p, err := parse(strings.TrimSuffix(e.Name(), ".yml"), data)
		if err != nil {
			return nil, err
		}
		byName[p.Name] = p
	}

	if baseDir != "" {
		local, _ := filepath.Glob(filepath.Join(baseDir, "presets", "*.yml"))
		for _, path := range local {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(path), ".yml")
			p, err := parse(name, data)
			if err != nil {
				return nil, err
			}
			byName[name] = p
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	presets := make([]Preset, 0, len(names))
	for _, name := range names {
		presets = append(presets, byName[name])
	}
	return presets, nil
}

// Load resolves a preset by explicit path or by name. Resolution order:
// the literal path, <baseDir>/<ref>, <baseDir>/presets/<ref>(.yml), then the
// embedded presets.
func Load(ref, baseDir string) (Preset, error) {
	candidates := []string{ref}
	if baseDir != "" && !filepath.IsAbs(ref) {
		candidates = append(candidates,
			filepath.Join(baseDir, ref),
			filepath.Join(baseDir, "presets", ref),
			filepath.Join(baseDir, "presets", ref+".yml"),
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), ".yml")
		return parse(name, data)
	}

	name := strings.TrimSuffix(ref, ".yml")
	if data, err := builtin.ReadFile("presets/" + name + ".yml"); err == nil {
		return parse(name, data)
	}

	return Preset{}, fmt.Errorf("preset: %q not found (tried %s and built-ins)", ref, strings.Join(candidates, ", "))
}

func parse(name string, data []byte) (Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("preset: parse %s: %w", name, err)
	}
	p.Name = name
	return p, nil
}
