// Package gitignore loads .gitignore rules into a path predicate and keeps
// generated output files listed in the repository's .gitignore.
package gitignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// entryComment precedes entries appended by EnsureEntries.
const entryComment = "# gptcontext outputs and cache"

// Matcher wraps a compiled .gitignore pattern set.
type Matcher struct {
	gi *ignore.GitIgnore
}

// Load compiles <root>/.gitignore. If the file is missing or unreadable the
// returned matcher ignores nothing.
func Load(root string) *Matcher {
	path := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		return &Matcher{}
	}
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return &Matcher{}
	}
	return &Matcher{gi: gi}
}

// Match reports whether the path (relative to the root Load was given) is
// gitignored.
func (m *Matcher) Match(relPath string) bool {
	if m.gi == nil {
		return false
	}
	return m.gi.MatchesPath(relPath)
}

// EnsureEntries appends any of the given patterns that are not already present
// in <root>/.gitignore, each on its own line. A missing .gitignore is created.
func EnsureEntries(root string, entries ...string) error {
	path := filepath.Join(root, ".gitignore")

	var raw string
	if data, err := os.ReadFile(path); err == nil {
		raw = string(data)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("gitignore: read %s: %w", path, err)
	}

	existing := make(map[string]bool)
	for _, line := range strings.Split(raw, "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, e := range entries {
		if !existing[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("gitignore: open %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	if raw != "" && !strings.HasSuffix(raw, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(entryComment + "\n")
	for _, e := range missing {
		sb.WriteString(e + "\n")
	}

	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("gitignore: append %s: %w", path, err)
	}
	return nil
}
