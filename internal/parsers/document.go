package parsers

import (
	"strings"
	"unicode"
)

// Document is one source text split into lines with stable 0-based indexes.
// It is never modified after construction.
type Document struct {
	Name   string
	source []byte
	lines  []string
}

// NewDocument splits content into lines. A trailing newline does not produce
// an extra empty line, and a "\r" before each "\n" is dropped.
func NewDocument(name string, content []byte) *Document {
	return &Document{
		Name:   name,
		source: content,
		lines:  SplitLines(string(content)),
	}
}

// Source returns the raw bytes the document was built from.
func (d *Document) Source() []byte { return d.source }

// Lines returns the document lines. Callers must not modify the slice.
func (d *Document) Lines() []string { return d.lines }

// Len returns the number of lines.
func (d *Document) Len() int { return len(d.lines) }

// Line returns line i, or "" when i is out of range.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// Indent returns the leading whitespace of line i.
func (d *Document) Indent(i int) string {
	return LeadingWhitespace(d.Line(i))
}

// SplitLines splits text on "\n" the way the syntax tree counts rows.
func SplitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// LeadingWhitespace returns the indentation prefix of line.
func LeadingWhitespace(line string) string {
	return line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
}
