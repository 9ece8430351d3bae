// Package outline renders the block nesting recorded in a marker table.
package outline

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/flowmark/internal/markers"
)

// rootID is the synthetic vertex every top-level block hangs off.
const rootID = -1

// Node is one vertex of the outline graph.
type Node struct {
	ID    int
	Block markers.Block
}

// Entry is a flattened outline row. Lines are 1-based.
type Entry struct {
	Kind      string `json:"kind"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Depth     int    `json:"depth"`
}

// Outline is the nesting tree of a document's blocks.
type Outline struct {
	g graph.Graph[int, Node]
}

// Build creates the outline graph with an edge from each block's parent to
// the block.
func Build(table *markers.Table) (*Outline, error) {
	g := graph.New(func(n Node) int { return n.ID }, graph.Directed(), graph.Tree())

	if err := g.AddVertex(Node{ID: rootID}); err != nil {
		return nil, err
	}

	blocks := table.Blocks()
	for i, b := range blocks {
		if err := g.AddVertex(Node{ID: i, Block: b}); err != nil {
			return nil, fmt.Errorf("failed to add block %d: %w", i, err)
		}
	}
	for i, b := range blocks {
		parent := b.Parent
		if parent < 0 || parent >= len(blocks) {
			parent = rootID
		}
		if err := g.AddEdge(parent, i); err != nil {
			return nil, fmt.Errorf("failed to link block %d to %d: %w", i, parent, err)
		}
	}

	return &Outline{g: g}, nil
}

// Walk visits blocks depth first, siblings in source order.
func (o *Outline) Walk(fn func(b markers.Block, depth int)) error {
	adj, err := o.g.AdjacencyMap()
	if err != nil {
		return err
	}

	var visit func(id, depth int) error
	visit = func(id, depth int) error {
		children := make([]Node, 0, len(adj[id]))
		for child := range adj[id] {
			n, err := o.g.Vertex(child)
			if err != nil {
				return err
			}
			children = append(children, n)
		}
		sort.Slice(children, func(i, j int) bool {
			if children[i].Block.StartLine != children[j].Block.StartLine {
				return children[i].Block.StartLine < children[j].Block.StartLine
			}
			return children[i].ID < children[j].ID
		})

		for _, c := range children {
			fn(c.Block, depth)
			if err := visit(c.ID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(rootID, 0)
}

// Entries flattens the outline in walk order.
func (o *Outline) Entries() ([]Entry, error) {
	entries := []Entry{}
	err := o.Walk(func(b markers.Block, depth int) {
		entries = append(entries, Entry{
			Kind:      b.Kind.String(),
			StartLine: b.StartLine + 1,
			EndLine:   b.EndLine + 1,
			Depth:     depth,
		})
	})
	return entries, err
}

// Render writes one "<indent><kind> L<start>-L<end>" line per block.
func (o *Outline) Render(w io.Writer) error {
	entries, err := o.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s%s L%d-L%d\n", strings.Repeat("  ", e.Depth), e.Kind, e.StartLine, e.EndLine); err != nil {
			return err
		}
	}
	return nil
}
