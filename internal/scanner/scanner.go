// Package scanner enumerates the candidate files for a context build.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
)

// Order constants for Config.Order.
const (
	OrderPath = "path" // lexicographic by relative path (default)
	OrderSize = "size" // ascending byte size, ties broken by path
)

// Candidate is one file that survived every filter.
type Candidate struct {
	RelPath string // POSIX-style, relative to the scan root
	AbsPath string
	Size    int64
}

// Config holds the immutable per-run scan rules.
type Config struct {
	IncludeExts  map[string]bool // ".go", ".md", ... (lowercase, dot-prefixed)
	ExcludeDirs  map[string]bool // directory names pruned before descent
	ExcludeFiles map[string]bool // file names rejected regardless of extension
	SkipNames    map[string]bool // generated outputs of this tool itself
	Matcher      *ExcludeMatcher // optional unified pattern excludes
	Ignore       func(relPath string) bool
	MaxFileSize  int64
	Order        string
	Workers      int // bound for the parallel stat stage; <=0 means NumCPU
}

// List walks root and returns every file that passes the extension allow-list,
// the exclude rules, the ignore predicate, and the size ceiling. The result
// order is deterministic regardless of how many workers ran the stat stage.
// An empty tree yields an empty slice, not an error.
func List(root string, cfg Config) ([]Candidate, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scanner: root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scanner: root %s is not a directory", root)
	}

	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		canonRoot = root
	}
	visited := map[string]bool{canonRoot: true}

	var pending []Candidate
	walk(root, "", cfg, visited, &pending)

	candidates := statStage(pending, cfg)

	switch cfg.Order {
	case OrderSize:
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].Size != candidates[j].Size {
				return candidates[i].Size < candidates[j].Size
			}
			return candidates[i].RelPath < candidates[j].RelPath
		})
	default:
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].RelPath < candidates[j].RelPath
		})
	}
	return candidates, nil
}

// walk recurses through absDir collecting files that pass the name-level
// filters. Excluded directories are pruned here, before any of their contents
// are touched. visited holds canonical directory paths to break symlink
// cycles.
func walk(absDir, relDir string, cfg Config, visited map[string]bool, out *[]Candidate) {
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return // unreadable directory: skipped, per-file errors are not fatal
	}

	for _, e := range entries {
		name := e.Name()
		abs := filepath.Join(absDir, name)
		rel := path.Join(relDir, name)

		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(abs)
			if err != nil {
				continue // broken symlink
			}
			isDir = target.IsDir()
		}

		if isDir {
			if prunedDir(name, rel, cfg) {
				continue
			}
			canon, err := filepath.EvalSymlinks(abs)
			if err != nil || visited[canon] {
				continue // cycle guard
			}
			visited[canon] = true
			walk(abs, rel, cfg, visited, out)
			continue
		}

		if keepFile(name, rel, cfg) {
			*out = append(*out, Candidate{RelPath: rel, AbsPath: abs})
		}
	}
}

func prunedDir(name, rel string, cfg Config) bool {
	if cfg.ExcludeDirs[name] {
		return true
	}
	return cfg.Matcher != nil && cfg.Matcher.Match(rel, true)
}

func keepFile(name, rel string, cfg Config) bool {
	if cfg.SkipNames[name] || cfg.ExcludeFiles[name] {
		return false
	}
	if !cfg.IncludeExts[path.Ext(name)] {
		return false
	}
	if cfg.Matcher != nil && cfg.Matcher.Match(rel, false) {
		return false
	}
	if cfg.Ignore != nil && cfg.Ignore(rel) {
		return false
	}
	return true
}

// statStage fills in sizes on a bounded worker pool and drops files over the
// size ceiling. Indexes keep results aligned with the input order, so the
// degree of concurrency never affects the outcome.
func statStage(pending []Candidate, cfg Config) []Candidate {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	keep := make([]bool, len(pending))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			info, err := os.Stat(pending[i].AbsPath)
			if err != nil {
				return // raced deletion or permission loss: drop
			}
			if cfg.MaxFileSize > 0 && info.Size() > cfg.MaxFileSize {
				return
			}
			pending[i].Size = info.Size()
			keep[i] = true
		}(i)
	}
	wg.Wait()

	candidates := make([]Candidate, 0, len(pending))
	for i, ok := range keep {
		if ok {
			candidates = append(candidates, pending[i])
		}
	}
	return candidates
}
