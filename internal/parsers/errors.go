package parsers

import (
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ParseError reports source that is not well-formed Python. Line and Column
// are 1-based.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("syntax error")
	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	fmt.Fprintf(&b, " at line %d, column %d: %s", e.Line, e.Column, e.Reason)
	if e.Snippet != "" {
		fmt.Fprintf(&b, "\n    %s", e.Snippet)
	}
	return b.String()
}

// Python 2 statements the grammar still accepts.
var legacyStatements = map[string]string{
	"print_statement": "Missing parentheses in call to 'print'",
	"exec_statement":  "Missing parentheses in call to 'exec'",
}

// findSyntaxProblem returns the earliest problem in the document, or nil
// when the source is well-formed.
//
// The grammar recovers from several inputs the language rejects: empty
// suites, Python 2 statements and dedents that match no open block. Those
// are reported here too.
func findSyntaxProblem(doc *Document, root *sitter.Node) *ParseError {
	structural := findMalformedNode(doc, root)
	indent := checkIndentation(doc, logicalLineRows(doc, root))
	if indent != nil && (structural == nil || indent.Line <= structural.Line) {
		return indent
	}
	return structural
}

// findMalformedNode returns a ParseError for the first malformed node under
// root in document order.
func findMalformedNode(doc *Document, root *sitter.Node) *ParseError {
	var found *ParseError
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		switch {
		case n.IsMissing():
			found = newParseError(doc, n, fmt.Sprintf("missing %q", n.Kind()))
		case n.IsError():
			found = newParseError(doc, n, "invalid syntax")
		case legacyStatements[n.Kind()] != "":
			found = newParseError(doc, n, legacyStatements[n.Kind()])
		case n.Kind() == "block" && isEmptySuite(n):
			// The empty block sits at the end of the header line; report the header.
			found = newParseError(doc, n, "expected an indented block")
		}
		return found == nil
	})
	return found
}

// isEmptySuite reports whether a block holds no statements at all.
func isEmptySuite(block *sitter.Node) bool {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		if child := block.NamedChild(uint(i)); child != nil && child.Kind() != "comment" {
			return false
		}
	}
	return true
}

func newParseError(doc *Document, n *sitter.Node, reason string) *ParseError {
	pos := n.StartPosition()
	row := int(pos.Row)
	if row >= doc.Len() && doc.Len() > 0 {
		row = doc.Len() - 1
	}
	return &ParseError{
		Path:    doc.Name,
		Line:    row + 1,
		Column:  int(pos.Column) + 1,
		Reason:  reason,
		Snippet: strings.TrimSpace(doc.Line(row)),
	}
}

// statementParents hold statements as their direct named children.
var statementParents = map[string]bool{
	"module":               true,
	"block":                true,
	"decorated_definition": true,
}

// clauseKinds open a logical line inside a compound statement.
var clauseKinds = map[string]bool{
	"elif_clause":         true,
	"else_clause":         true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"case_clause":         true,
}

// logicalLineRows returns, in order, the rows on which a statement or
// clause is the first token. Comment-only lines and continuation lines are
// not logical lines and carry no indentation meaning.
func logicalLineRows(doc *Document, root *sitter.Node) []int {
	seen := make(map[int]bool)
	walkTree(root, func(n *sitter.Node) bool {
		holdsStatements := statementParents[n.Kind()]
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(uint(i))
			if child == nil || child.Kind() == "comment" {
				continue
			}
			if !holdsStatements && !clauseKinds[child.Kind()] {
				continue
			}
			pos := child.StartPosition()
			row := int(pos.Row)
			if row < doc.Len() && int(pos.Column) == len(doc.Indent(row)) {
				seen[row] = true
			}
		}
		return true
	})

	rows := make([]int, 0, len(seen))
	for row := range seen {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// indentLevel is an indentation width measured with tabs to the next
// multiple of 8 (col) and with tabs as one column (alt). Two lines agree on
// their indentation only if both measures agree.
type indentLevel struct {
	col, alt int
}

func measureIndent(ws string) indentLevel {
	var lvl indentLevel
	for _, r := range ws {
		switch r {
		case ' ':
			lvl.col++
			lvl.alt++
		case '\t':
			lvl.col = (lvl.col/8 + 1) * 8
			lvl.alt++
		case '\f':
			lvl = indentLevel{}
		}
	}
	return lvl
}

// checkIndentation replays the tokenizer's indentation stack over rows.
func checkIndentation(doc *Document, rows []int) *ParseError {
	stack := []indentLevel{{}}
	for _, row := range rows {
		cur := measureIndent(doc.Indent(row))
		top := stack[len(stack)-1]

		switch {
		case cur.col == top.col:
			if cur.alt != top.alt {
				return indentError(doc, row, "inconsistent use of tabs and spaces in indentation")
			}
		case cur.col > top.col:
			if cur.alt <= top.alt {
				return indentError(doc, row, "inconsistent use of tabs and spaces in indentation")
			}
			stack = append(stack, cur)
		default:
			for len(stack) > 1 && cur.col < stack[len(stack)-1].col {
				stack = stack[:len(stack)-1]
			}
			top = stack[len(stack)-1]
			if cur.col != top.col {
				return indentError(doc, row, "unindent does not match any outer indentation level")
			}
			if cur.alt != top.alt {
				return indentError(doc, row, "inconsistent use of tabs and spaces in indentation")
			}
		}
	}
	return nil
}

func indentError(doc *Document, row int, reason string) *ParseError {
	return &ParseError{
		Path:    doc.Name,
		Line:    row + 1,
		Column:  len(doc.Indent(row)) + 1,
		Reason:  reason,
		Snippet: strings.TrimSpace(doc.Line(row)),
	}
}
