package scanner

import (
	"path"
	"strings"
)

// DefaultExcludes are applied in addition to configured patterns unless the
// matcher is built with useDefaults=false.
var DefaultExcludes = []string{
	".git/",
	".hg/",
	".svn/",
	"node_modules/",
	"__pycache__/",
	".DS_Store",
	"Thumbs.db",
}

// ExcludeMatcher decides whether paths are excluded based on a unified
// pattern list. Three pattern forms are supported:
//
//	node_modules/   dir-only match on the name
//	*.log           glob matched against the full relative path
//	.DS_Store       literal file or directory name
type ExcludeMatcher struct {
	dirOnly  map[string]bool
	literals map[string]bool
	globs    []string
}

// NewExcludeMatcher sorts the pattern list into the three forms.
func NewExcludeMatcher(patterns []string, useDefaults bool) *ExcludeMatcher {
	if useDefaults {
		patterns = append(append([]string{}, patterns...), DefaultExcludes...)
	}

	m := &ExcludeMatcher{
		dirOnly:  make(map[string]bool),
		literals: make(map[string]bool),
	}
	for _, p := range patterns {
		switch {
		case strings.HasSuffix(p, "/"):
			m.dirOnly[strings.TrimSuffix(p, "/")] = true
		case strings.ContainsAny(p, "*?["):
			m.globs = append(m.globs, p)
		default:
			m.literals[p] = true
		}
	}
	return m
}

// Match reports whether the relative path should be excluded.
func (m *ExcludeMatcher) Match(relPath string, isDir bool) bool {
	return m.Why(relPath, isDir) != ""
}

// Why returns a human-readable reason the path is excluded, or "" if it is
// not. Used by verbose scan diagnostics.
func (m *ExcludeMatcher) Why(relPath string, isDir bool) string {
	name := path.Base(relPath)

	if isDir && m.dirOnly[name] {
		return "dir-only pattern: " + name + "/"
	}
	if m.literals[name] {
		return "literal pattern: " + name
	}
	for _, g := range m.globs {
		if matchGlob(g, relPath, name) {
			return "glob pattern: " + g
		}
	}
	return ""
}

// matchGlob matches one glob against a relative path. The `dir/**` form
// excludes the whole subtree; other globs are tried against the full relative
// path and against the bare name, so `*.log` also excludes nested logs.
func matchGlob(pattern, relPath, name string) bool {
	if sub, ok := strings.CutSuffix(pattern, "/**"); ok {
		return relPath == sub || strings.HasPrefix(relPath, sub+"/")
	}
	if ok, err := path.Match(pattern, relPath); err == nil && ok {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
