package model

// OutlineNode is one bookmark / table-of-contents entry.
//
// A node either references a crawled page through its anchor, or is a
// placeholder inserted by the URL-path hierarchy policy for a path
// segment that was never fetched.
type OutlineNode struct {
	// Label is the human-readable bookmark text.
	Label string `json:"label"`

	// Anchor is the in-document anchor this node points at.
	// Empty for placeholder nodes.
	Anchor string `json:"anchor,omitempty"`

	// Placeholder marks a node without content of its own.
	Placeholder bool `json:"placeholder,omitempty"`

	// Children are the child nodes in display order.
	Children []*OutlineNode `json:"children,omitempty"`
}

// Walk visits the node and all descendants in depth-first order.
// The walk stops early if fn returns false.
func (n *OutlineNode) Walk(fn func(*OutlineNode, int) bool) {
	n.walk(0, fn)
}

func (n *OutlineNode) walk(depth int, fn func(*OutlineNode, int) bool) bool {
	if !fn(n, depth) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(depth+1, fn) {
			return false
		}
	}
	return true
}

// CountNodes returns the total number of nodes in the forest, including
// placeholders.
func CountNodes(forest []*OutlineNode) int {
	n := 0
	for _, root := range forest {
		root.Walk(func(*OutlineNode, int) bool {
			n++
			return true
		})
	}
	return n
}
