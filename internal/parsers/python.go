package parsers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mvp-joe/flowmark/internal/markers"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// emphasisPattern matches markdown-style *identifier* emphasis that sometimes
// survives copy/paste into source files.
var emphasisPattern = regexp.MustCompile(`\*([a-zA-Z0-9_]+)\*`)

// Extractor parses Python source and records a marker pair for every
// function, method, class, conditional, loop, with and try block.
type Extractor struct {
	language          *sitter.Language
	normalizeEmphasis bool
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithEmphasisNormalization makes the extractor retry a failed parse with
// *identifier* emphasis stripped. Line numbering is unaffected.
func WithEmphasisNormalization(enabled bool) ExtractorOption {
	return func(e *Extractor) {
		e.normalizeEmphasis = enabled
	}
}

// NewExtractor creates a new Python structure extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		language: sitter.NewLanguage(python.Language()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses doc and returns its marker table. Malformed source yields a
// *ParseError and no table.
func (e *Extractor) Extract(ctx context.Context, doc *Document) (*markers.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(e.language); err != nil {
		return nil, fmt.Errorf("failed to load python grammar: %w", err)
	}

	table, err := e.extract(parser, doc, doc.Source())
	var perr *ParseError
	if err != nil && e.normalizeEmphasis && errors.As(err, &perr) {
		cleaned := emphasisPattern.ReplaceAll(doc.Source(), []byte("$1"))
		if len(cleaned) != len(doc.Source()) {
			if retried, retryErr := e.extract(parser, doc, cleaned); retryErr == nil {
				return retried, nil
			}
		}
	}
	return table, err
}

func (e *Extractor) extract(parser *sitter.Parser, doc *Document, source []byte) (*markers.Table, error) {
	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse python file: %s", doc.Name)
	}
	defer tree.Close()

	root := tree.RootNode()
	if perr := findSyntaxProblem(doc, root); perr != nil {
		return nil, perr
	}

	w := &blockWalker{
		doc:     doc,
		parents: buildParentMap(root),
		table:   markers.NewTable(),
		blockOf: make(map[uintptr]int),
	}
	walkTree(root, w.visit)
	return w.table, nil
}

// blockWalker carries the per-document state of one extraction.
type blockWalker struct {
	doc     *Document
	parents parentMap
	table   *markers.Table
	blockOf map[uintptr]int
}

func (w *blockWalker) visit(n *sitter.Node) bool {
	var kind markers.BlockKind
	endNode := n

	switch n.Kind() {
	case "function_definition":
		kind = markers.Function
		if parent := w.structuralParent(n); parent != nil && parent.Kind() == "class_definition" {
			kind = markers.Method
		}
	case "class_definition":
		kind = markers.Class
	case "if_statement":
		kind = w.conditionalKind(n)
	case "elif_clause":
		kind = w.conditionalKind(n)
		// An elif is the nested conditional of its chain's else-branch and
		// therefore runs to the end of the whole chain.
		if chain := w.parents.parentOf(n); chain != nil && chain.Kind() == "if_statement" {
			endNode = chain
		}
	case "for_statement":
		kind = markers.For
	case "while_statement":
		kind = markers.While
	case "with_statement":
		kind = markers.With
	case "try_statement":
		kind = markers.Try
	default:
		return true
	}

	w.record(n, endNode, kind)
	return true
}

// record adds the block for n, silently skipping nodes without a usable position.
func (w *blockWalker) record(n, endNode *sitter.Node, kind markers.BlockKind) {
	if n.IsMissing() {
		return
	}
	start := int(n.StartPosition().Row)
	end := int(lastTokenRow(endNode))
	if start >= w.doc.Len() || end >= w.doc.Len() || end < start {
		return
	}

	idx := w.table.Record(markers.Block{
		Kind:      kind,
		StartLine: start,
		EndLine:   end,
		Indent:    w.doc.Indent(start),
		Parent:    w.enclosingBlock(n),
	})
	w.blockOf[n.Id()] = idx
}

// structuralParent skips the wrapper nodes the grammar places between a
// definition and its owner (bodies and decorator lists).
func (w *blockWalker) structuralParent(n *sitter.Node) *sitter.Node {
	p := w.parents.parentOf(n)
	for p != nil && (p.Kind() == "block" || p.Kind() == "decorated_definition") {
		p = w.parents.parentOf(p)
	}
	return p
}

// enclosingBlock returns the table index of the nearest recorded ancestor.
func (w *blockWalker) enclosingBlock(n *sitter.Node) int {
	for p := w.parents.parentOf(n); p != nil; p = w.parents.parentOf(p) {
		if idx, ok := w.blockOf[p.Id()]; ok {
			return idx
		}
	}
	return -1
}

// conditionalKind tells If from Elif by the text of the opening line.
func (w *blockWalker) conditionalKind(n *sitter.Node) markers.BlockKind {
	line := strings.TrimSpace(w.doc.Line(int(n.StartPosition().Row)))
	if startsWithKeyword(line, "elif") {
		return markers.Elif
	}
	return markers.If
}

// startsWithKeyword reports whether line begins with kw as a whole word.
func startsWithKeyword(line, kw string) bool {
	if !strings.HasPrefix(line, kw) {
		return false
	}
	if len(line) == len(kw) {
		return true
	}
	c := line[len(kw)]
	return !(c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9')
}
