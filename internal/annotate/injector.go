// Package annotate writes structural marker comments into source lines.
package annotate

import (
	"strings"

	"github.com/mvp-joe/flowmark/internal/markers"
	"github.com/mvp-joe/flowmark/internal/pyline"
)

// Injector rewrites source lines using a marker table. It never modifies its
// input; each call returns a fresh line slice.
type Injector struct {
	skipExisting bool
}

// Option configures an Injector.
type Option func(*Injector)

// WithSkipExisting makes re-annotation idempotent: a begin tag already present
// on its line outside string literals is not inserted again, and neither is
// the matching end tag.
func WithSkipExisting(enabled bool) Option {
	return func(in *Injector) {
		in.skipExisting = enabled
	}
}

// New creates an Injector.
func New(opts ...Option) *Injector {
	in := &Injector{}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Inject returns the annotated lines. Begin markers are appended to their
// opening line; each end marker becomes a new line after the closing line,
// written at the opening line's indentation, innermost block first.
func (in *Injector) Inject(lines []string, table *markers.Table) []string {
	out := make([]string, 0, len(lines)+table.Len())
	// skipped[openLine][beginTag] marks blocks annotated by an earlier pass.
	skipped := make(map[int]map[string]bool)

	for i, line := range lines {
		tags := table.BeginsAt(i)
		if in.skipExisting && len(tags) > 0 {
			tags = in.dropPresent(i, line, tags, skipped)
		}
		out = append(out, mergeBegins(line, tags))

		for _, end := range table.EndsAt(i) {
			if skipped[end.OpenLine][end.BeginTag] {
				continue
			}
			out = append(out, end.Indent+end.Tag)
		}
	}
	return out
}

func (in *Injector) dropPresent(lineIdx int, line string, tags []string, skipped map[int]map[string]bool) []string {
	kept := make([]string, 0, len(tags))
	for _, tag := range tags {
		if containsOutsideQuotes(line, tag, true) {
			if skipped[lineIdx] == nil {
				skipped[lineIdx] = make(map[string]bool)
			}
			skipped[lineIdx][tag] = true
			continue
		}
		kept = append(kept, tag)
	}
	return kept
}

// mergeBegins attaches the joined begin tags to line. When the line already
// carries a trailing comment and one of the tags appears outside string
// literals, the tags go in front of that comment; otherwise at line end.
func mergeBegins(line string, tags []string) string {
	if len(tags) == 0 {
		return line
	}
	joined := strings.Join(tags, " ")

	code, comment := pyline.Split(line)
	if code != "" && comment != "" {
		for _, tag := range tags {
			if containsOutsideQuotes(line, tag, false) {
				return code + " " + joined + " " + comment
			}
		}
	}
	return line + " " + joined
}
