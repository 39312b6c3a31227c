package context

import "strings"

// Section framing is a stable output convention: identical input must produce
// byte-identical documents across runs for diffing and golden tests.

// FormatFull renders a verbatim file section.
func FormatFull(relPath, content string) string {
	return "\n# " + relPath + "\n" + content
}

// FormatSummary renders a summarized file section.
func FormatSummary(relPath, summary string) string {
	return "\n# Summary of " + relPath + "\n" + summary
}

// AssembleDocument concatenates the included sections (full and summary kinds)
// in order. Skipped sections contribute nothing.
func AssembleDocument(sections []Section) string {
	var parts []string
	for _, s := range sections {
		if s.Kind == KindFull || s.Kind == KindSummary {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n")
}
