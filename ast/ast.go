// Package ast defines the arena-based syntax tree model shared by the
// optimizer, the dictionary builder, and the codec, together with the
// textual dump format used to move trees between tool invocations.
package ast

import (
	"errors"
	"math"
)

// ErrMalformedInput reports a tree or dump that violates the structural
// invariants of the model (unknown kind, bad arity, wrong payload class,
// shared or unreachable nodes).
var ErrMalformedInput = errors.New("malformed input")

// NodeID addresses a node within its tree's arena.
type NodeID uint32

// Node is one tree node. Exactly one of the payload fields is meaningful,
// selected by the kind's payload class; the others stay at their zero
// values. Lazy is valid only on function kinds.
type Node struct {
	Kind     Kind
	Str      string
	Num      float64
	Bool     bool
	Lazy     bool
	Children []NodeID
}

// Tree is an arena of nodes. Children reference other arena slots by
// index; every node except Root has exactly one parent.
type Tree struct {
	Nodes []Node
	Root  NodeID
}

// NewTree returns an empty tree. Root is meaningful only once at least
// one node has been added.
func NewTree() *Tree {
	return &Tree{}
}

// Add appends a node to the arena and returns its id.
func (t *Tree) Add(n Node) NodeID {
	t.Nodes = append(t.Nodes, n)
	return NodeID(len(t.Nodes) - 1)
}

// Node returns the node at id. The id must be in range.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.Nodes)
}

// ---------------------------------------------------------------------------
// Traversal helpers
// ---------------------------------------------------------------------------

// Walk visits the subtree rooted at id in pre-order, calling fn for each
// node. Walk assumes the tree has already been validated; it does not
// guard against cycles.
func (t *Tree) Walk(id NodeID, fn func(NodeID)) {
	fn(id)
	for _, c := range t.Nodes[id].Children {
		t.Walk(c, fn)
	}
}

// SubtreeSizes returns, for every arena slot, the number of nodes in the
// subtree rooted there (including the root of that subtree). Computed in
// a single pass over a validated tree.
func SubtreeSizes(t *Tree) []int {
	sizes := make([]int, len(t.Nodes))
	var fill func(id NodeID) int
	fill = func(id NodeID) int {
		n := 1
		for _, c := range t.Nodes[id].Children {
			n += fill(c)
		}
		sizes[id] = n
		return n
	}
	if len(t.Nodes) > 0 {
		fill(t.Root)
	}
	return sizes
}

// SubtreeHasLazy returns, for every arena slot, whether the subtree rooted
// there contains a lazy-marked node (including itself).
func SubtreeHasLazy(t *Tree) []bool {
	lazy := make([]bool, len(t.Nodes))
	var fill func(id NodeID) bool
	fill = func(id NodeID) bool {
		has := t.Nodes[id].Lazy
		for _, c := range t.Nodes[id].Children {
			if fill(c) {
				has = true
			}
		}
		lazy[id] = has
		return has
	}
	if len(t.Nodes) > 0 {
		fill(t.Root)
	}
	return lazy
}

// ---------------------------------------------------------------------------
// Structural equality
// ---------------------------------------------------------------------------

// Equal reports whether two trees are structurally identical: same kinds,
// payloads, lazy flags, and child order throughout. Arena numbering is
// ignored, so trees built in different orders still compare equal.
func Equal(a, b *Tree) bool {
	if len(a.Nodes) == 0 || len(b.Nodes) == 0 {
		return len(a.Nodes) == len(b.Nodes)
	}
	return equalSubtree(a, a.Root, b, b.Root)
}

func equalSubtree(a *Tree, ai NodeID, b *Tree, bi NodeID) bool {
	an, bn := &a.Nodes[ai], &b.Nodes[bi]
	if an.Kind != bn.Kind || an.Lazy != bn.Lazy {
		return false
	}
	// Numbers compare by bit pattern so NaN payloads stay equal to
	// themselves across a codec round trip.
	if an.Str != bn.Str || math.Float64bits(an.Num) != math.Float64bits(bn.Num) || an.Bool != bn.Bool {
		return false
	}
	if len(an.Children) != len(bn.Children) {
		return false
	}
	for i := range an.Children {
		if !equalSubtree(a, an.Children[i], b, bn.Children[i]) {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Convenience constructors used heavily in tests and tree assembly.
// ---------------------------------------------------------------------------

// AddKind appends a payload-free node with the given children.
func (t *Tree) AddKind(k Kind, children ...NodeID) NodeID {
	return t.Add(Node{Kind: k, Children: children})
}

// AddStr appends a string-payload node with the given children.
func (t *Tree) AddStr(k Kind, s string, children ...NodeID) NodeID {
	return t.Add(Node{Kind: k, Str: s, Children: children})
}

// AddNum appends a number-payload leaf.
func (t *Tree) AddNum(v float64) NodeID {
	return t.Add(Node{Kind: KindNumberLit, Num: v})
}

// AddBool appends a bool-payload leaf.
func (t *Tree) AddBool(v bool) NodeID {
	return t.Add(Node{Kind: KindBoolLit, Bool: v})
}
