package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"

	"github.com/gptcontext/gptcontext/internal/config"
)

func testPipeline(scanRoot string) *pipeline {
	return &pipeline{settings: config.Default(), scanRoot: scanRoot}
}

func TestSkipWatchEvent(t *testing.T) {
	p := testPipeline(t.TempDir())

	tests := []struct {
		rel  string
		want bool
	}{
		{"main.go", false},
		{"src/app.go", false},
		{"node_modules/pkg/index.js", true},
		{".git/HEAD", true},
		{"__pycache__/mod.pyc", true},
		{config.DefaultContextFilename, true},
		{config.DefaultMessageFilename, true},
	}

	for _, tt := range tests {
		got := skipWatchEvent(tt.rel, p)
		if got != tt.want {
			t.Errorf("skipWatchEvent(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestAddWatchDirsSkipsExcluded(t *testing.T) {
	dir := t.TempDir()

	os.MkdirAll(filepath.Join(dir, "src"), 0o755)
	os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755)
	os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, testPipeline(dir)); err != nil {
		t.Fatalf("addWatchDirs: %v", err)
	}

	watched := make(map[string]bool)
	for _, p := range watcher.WatchList() {
		rel, _ := filepath.Rel(dir, p)
		watched[rel] = true
	}

	if !watched["."] || !watched["src"] {
		t.Errorf("expected root and src to be watched, got %v", watched)
	}
	for rel := range watched {
		if rel == "node_modules" || rel == ".git" {
			t.Errorf("excluded dir %s is being watched", rel)
		}
	}
}
