package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// walkTree recursively walks a tree-sitter tree in document order and calls
// the visitor for each node. Returning false skips the node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

// parentMap records each node's parent by node identity. Nodes themselves
// carry no back-pointer.
type parentMap map[uintptr]*sitter.Node

// buildParentMap indexes every child→parent relation under root.
func buildParentMap(root *sitter.Node) parentMap {
	parents := make(parentMap)
	walkTree(root, func(n *sitter.Node) bool {
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(uint(i)); child != nil {
				parents[child.Id()] = n
			}
		}
		return true
	})
	return parents
}

// parentOf returns the recorded parent of node, or nil for the root.
func (pm parentMap) parentOf(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	return pm[node.Id()]
}

// lastTokenRow returns the row of the last non-comment token under node.
// Trailing comments and the newline that terminates a statement do not
// count toward a block's extent.
func lastTokenRow(node *sitter.Node) uint {
	for i := int(node.ChildCount()) - 1; i >= 0; i-- {
		child := node.Child(uint(i))
		if child == nil || child.Kind() == "comment" || child.StartByte() == child.EndByte() {
			continue
		}
		if child.ChildCount() == 0 {
			return endRow(child)
		}
		return lastTokenRow(child)
	}
	return endRow(node)
}

// endRow is the node's end row, pulled back one line when the node ends
// exactly at the start of a line.
func endRow(node *sitter.Node) uint {
	start, end := node.StartPosition(), node.EndPosition()
	if end.Column == 0 && end.Row > start.Row {
		return end.Row - 1
	}
	return end.Row
}
