// Package vfc turns annotated Python source into a flow-construct
// transcript for the flow-chart renderer.
package vfc

import (
	"strings"

	"github.com/mvp-joe/flowmark/internal/markers"
	"github.com/mvp-joe/flowmark/internal/pyline"
)

// ClassifiedLine is one annotated source line with its statement type.
type ClassifiedLine struct {
	// Code is the code portion with surrounding whitespace removed.
	Code string
	// Comment is the raw trailing comment including its leading '#'.
	Comment string
	Type    markers.StatementType
	// Marker is the structural marker word leading the comment, or "".
	Marker string
}

// Blank reports whether the line has neither code nor comment.
func (c ClassifiedLine) Blank() bool {
	return c.Code == "" && c.Comment == ""
}

// CommentOnly reports whether the line is a bare comment.
func (c ClassifiedLine) CommentOnly() bool {
	return c.Code == "" && c.Comment != ""
}

var eventKeywords = map[string]bool{
	"import": true,
	"from":   true,
}

var pathKeywords = map[string]bool{
	"elif":    true,
	"else":    true,
	"except":  true,
	"finally": true,
}

// Classify splits line and assigns its statement type.
func Classify(line string) ClassifiedLine {
	code, comment := pyline.Split(line)
	code = strings.TrimSpace(code)
	marker := markers.MarkerWord(comment)
	return ClassifiedLine{
		Code:    code,
		Comment: comment,
		Type:    statementType(code, marker),
		Marker:  marker,
	}
}

// statementType applies the classification precedence. Event and path
// keywords win over markers so that an elif/else/except line carrying a
// begin marker still reads as a path arm.
func statementType(code, marker string) markers.StatementType {
	token := pyline.FirstToken(code)

	if eventKeywords[token] {
		return markers.Event
	}
	if pathKeywords[strings.TrimRight(token, " :*")] {
		return markers.Path
	}
	if marker != "" {
		if t, ok := markers.TypeOf(marker); ok {
			return t
		}
	}

	switch strings.TrimSuffix(token, ":") {
	case "def", "class":
		return markers.Input
	case "if", "try", "with":
		return markers.Branch
	case "for", "while":
		return markers.Loop
	}
	return markers.Set
}
