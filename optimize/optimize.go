// Package optimize canonicalizes trees ahead of dictionary training and
// encoding. The passes are deliberately boring: prune empty statements,
// rename locals to position-derived names, mark big functions for
// deferred encoding, and rebuild the arena in pre-order. Applying the
// optimizer twice with the same config is the identity.
package optimize

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/binast/ast"
)

var log = commonlog.GetLogger("binast.optimize")

// Config controls the optimizer passes.
type Config struct {
	// LazyThreshold marks functions whose subtree spans at least this
	// many nodes for deferred encoding. Zero disables lazy marking.
	LazyThreshold int
}

// Stats reports what one run changed.
type Stats struct {
	PrunedEmpty   int // EmptyStmt nodes removed
	RenamedRefs   int // identifier occurrences rewritten
	LazyFunctions int // functions newly marked lazy
}

// Optimize returns a canonicalized copy of t. The input tree is never
// modified. Fails only on trees that do not validate.
func Optimize(t *ast.Tree, cfg Config) (*ast.Tree, Stats, error) {
	var stats Stats
	if err := ast.Validate(t); err != nil {
		return nil, stats, fmt.Errorf("optimize: %w", err)
	}

	work := cloneTree(t)
	stats.PrunedEmpty = pruneEmptyStatements(work)
	stats.RenamedRefs = renameLocals(work)
	if cfg.LazyThreshold > 0 {
		stats.LazyFunctions = markLazy(work, cfg.LazyThreshold)
		log.Infof("lazified %d functions", stats.LazyFunctions)
	}
	return relayout(work), stats, nil
}

func cloneTree(t *ast.Tree) *ast.Tree {
	out := &ast.Tree{
		Nodes: make([]ast.Node, len(t.Nodes)),
		Root:  t.Root,
	}
	copy(out.Nodes, t.Nodes)
	for i := range out.Nodes {
		if len(t.Nodes[i].Children) > 0 {
			out.Nodes[i].Children = append([]ast.NodeID(nil), t.Nodes[i].Children...)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Empty-statement pruning
// ---------------------------------------------------------------------------

// pruneEmptyStatements drops EmptyStmt children from the two contexts
// whose grammar lets statements disappear. Fixed-arity slots (ForStmt
// clauses and the like) keep theirs. Unlinked nodes fall out of the
// arena during relayout.
func pruneEmptyStatements(t *ast.Tree) int {
	pruned := 0
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.Kind != ast.KindProgram && n.Kind != ast.KindBlock {
			continue
		}
		kept := n.Children[:0]
		for _, c := range n.Children {
			if t.Nodes[c].Kind == ast.KindEmptyStmt {
				pruned++
				continue
			}
			kept = append(kept, c)
		}
		n.Children = kept
	}
	return pruned
}

// ---------------------------------------------------------------------------
// Canonical local renaming
//
// Function scopes are numbered in pre-order starting at 1; the top level
// is scope 0 and its names are never rewritten. Within a scope, slots
// number the declarations: parameters first, then var declarator names
// and nested function-declaration names in pre-order. Every identifier
// that resolves to a function scope becomes v<scope>_<slot>. The scheme
// is absolute, so no two scopes can collide and a second application
// changes nothing.
// ---------------------------------------------------------------------------

// scope tracks the declarations of one function nesting level.
type scope struct {
	id    int            // 0 is the top level, functions count up in pre-order
	slots map[string]int // declared name → slot index
}

// renamer holds state for the renaming walk.
type renamer struct {
	t       *ast.Tree
	scopes  []scope // scope stack: [0]=top level, innermost last
	nextID  int
	renamed int
}

func renameLocals(t *ast.Tree) int {
	r := &renamer{t: t, nextID: 1}
	// The top-level scope stays empty: names declared there resolve to
	// nothing and keep their spelling.
	r.scopes = []scope{{id: 0, slots: map[string]int{}}}
	r.walk(t.Root)
	return r.renamed
}

func (r *renamer) walk(id ast.NodeID) {
	n := &r.t.Nodes[id]
	switch n.Kind {
	case ast.KindFunctionDecl:
		// The name is declared in the enclosing scope.
		r.renameRef(n.Children[0])
		r.enterFunction(n.Children[1], n.Children[2])
	case ast.KindFunctionExpr:
		r.enterFunction(n.Children[0], n.Children[1])
	case ast.KindIdentifier:
		r.renameRef(id)
	default:
		for _, c := range n.Children {
			r.walk(c)
		}
	}
}

// enterFunction pushes a scope, pre-collects its declarations so hoisted
// references resolve, walks params and body, and pops.
func (r *renamer) enterFunction(params, body ast.NodeID) {
	sc := scope{id: r.nextID, slots: map[string]int{}}
	r.nextID++

	for _, p := range r.t.Nodes[params].Children {
		r.declare(&sc, r.t.Nodes[p].Str)
	}
	r.collectVars(&sc, body)

	r.scopes = append(r.scopes, sc)
	r.walk(params)
	r.walk(body)
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// collectVars registers var declarator names and nested function-declaration
// names, in pre-order, without descending into nested function bodies:
// those declare into their own scopes.
func (r *renamer) collectVars(sc *scope, id ast.NodeID) {
	n := &r.t.Nodes[id]
	switch n.Kind {
	case ast.KindVarDeclarator:
		r.declare(sc, r.t.Nodes[n.Children[0]].Str)
		for _, c := range n.Children[1:] {
			r.collectVars(sc, c)
		}
	case ast.KindFunctionDecl:
		r.declare(sc, r.t.Nodes[n.Children[0]].Str)
	case ast.KindFunctionExpr:
		// own scope
	default:
		for _, c := range n.Children {
			r.collectVars(sc, c)
		}
	}
}

func (r *renamer) declare(sc *scope, name string) {
	if _, ok := sc.slots[name]; ok {
		return // the first declaration owns the slot
	}
	sc.slots[name] = len(sc.slots)
}

// renameRef rewrites one identifier occurrence if its name resolves to a
// function scope, searching innermost to outermost.
func (r *renamer) renameRef(id ast.NodeID) {
	n := &r.t.Nodes[id]
	for i := len(r.scopes) - 1; i >= 1; i-- {
		slot, ok := r.scopes[i].slots[n.Str]
		if !ok {
			continue
		}
		name := fmt.Sprintf("v%d_%d", r.scopes[i].id, slot)
		if n.Str != name {
			n.Str = name
			r.renamed++
		}
		return
	}
}

// ---------------------------------------------------------------------------
// Lazy marking
// ---------------------------------------------------------------------------

// markLazy flags every function whose subtree spans at least threshold
// nodes. Nested functions are measured and marked independently, and
// flags already present are kept.
func markLazy(t *ast.Tree, threshold int) int {
	sizes := ast.SubtreeSizes(t)
	marked := 0
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !n.Kind.CanBeLazy() || sizes[i] < threshold {
			continue
		}
		if !n.Lazy {
			n.Lazy = true
			marked++
		}
	}
	return marked
}

// ---------------------------------------------------------------------------
// Canonical layout
// ---------------------------------------------------------------------------

// relayout rebuilds the arena in pre-order with the root at index 0,
// dropping slots no longer reachable.
func relayout(t *ast.Tree) *ast.Tree {
	out := ast.NewTree()
	var copyNode func(id ast.NodeID) ast.NodeID
	copyNode = func(id ast.NodeID) ast.NodeID {
		n := &t.Nodes[id]
		nid := out.Add(ast.Node{Kind: n.Kind, Str: n.Str, Num: n.Num, Bool: n.Bool, Lazy: n.Lazy})
		if len(n.Children) > 0 {
			children := make([]ast.NodeID, len(n.Children))
			for i, c := range n.Children {
				children[i] = copyNode(c)
			}
			out.Nodes[nid].Children = children
		}
		return nid
	}
	out.Root = copyNode(t.Root)
	return out
}
