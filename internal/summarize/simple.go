package summarize

import (
	"context"
	"strings"
)

// headLines is how much of a file the offline backend keeps.
const headLines = 20

// headRemote is the offline "simple" backend: the first lines of the file
// stand in for a real summary. Useful for dry runs and tests, and as a
// fallback when no API key is available.
type headRemote struct{}

// NewHead creates the offline preview backend.
func NewHead() Remote {
	return headRemote{}
}

func (headRemote) Summarize(_ context.Context, text, _ string, _ int) (string, error) {
	lines := strings.Split(text, "\n")
	if len(lines) > headLines {
		lines = lines[:headLines]
	}
	return strings.Join(lines, "\n"), nil
}
