package gitignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileMatchesNothing(t *testing.T) {
	m := Load(t.TempDir())
	if m.Match("anything.go") {
		t.Error("matcher without .gitignore should not match")
	}
}

func TestMatchPatterns(t *testing.T) {
	root := t.TempDir()
	content := "*.log\nbuild/\nsecret.txt\n"
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := Load(root)
	tests := []struct {
		path string
		want bool
	}{
		{"app.log", true},
		{"sub/deep.log", true},
		{"build/out.js", true},
		{"secret.txt", true},
		{"main.go", false},
		{"logs.go", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestEnsureEntriesCreatesFile(t *testing.T) {
	root := t.TempDir()
	if err := EnsureEntries(root, ".gptcontext.txt", ".gptcontext-cache/"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{".gptcontext.txt", ".gptcontext-cache/"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("missing entry %q in created .gitignore", want)
		}
	}
}

func TestEnsureEntriesAppendsOnlyMissing(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".gitignore")
	if err := os.WriteFile(path, []byte("*.log\n.gptcontext.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := EnsureEntries(root, ".gptcontext.txt", ".gptcontext_message.txt"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), ".gptcontext.txt\n"); got != 1 {
		t.Errorf("expected existing entry not duplicated, got %d occurrences:\n%s", got, data)
	}
	if !strings.Contains(string(data), ".gptcontext_message.txt") {
		t.Error("missing appended entry for message file")
	}
}

func TestEnsureEntriesIdempotent(t *testing.T) {
	root := t.TempDir()
	if err := EnsureEntries(root, ".gptcontext.txt"); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(filepath.Join(root, ".gitignore"))

	if err := EnsureEntries(root, ".gptcontext.txt"); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(filepath.Join(root, ".gitignore"))

	if string(first) != string(second) {
		t.Errorf("second EnsureEntries changed the file:\n%s\nvs\n%s", first, second)
	}
}

func TestEnsureEntriesAddsTrailingNewlineFirst(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".gitignore")
	if err := os.WriteFile(path, []byte("*.log"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := EnsureEntries(root, ".gptcontext.txt"); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "*.log#") {
		t.Errorf("comment glued to last line: %q", data)
	}
	if !strings.Contains(string(data), "*.log\n") {
		t.Errorf("existing content lost newline separation: %q", data)
	}
}
