package optimize

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/binast/ast"
)

// renameFixture builds the tree for
//
//	var g = 0;
//	function f(a, b) { var c = a; return b + c + g; }
//	f(g);
//
// With renamed set, the locals carry their canonical names.
func renameFixture(renamed bool) *ast.Tree {
	a, b, c := "a", "b", "c"
	if renamed {
		a, b, c = "v1_0", "v1_1", "v1_2"
	}
	t := ast.NewTree()
	t.Root = t.AddKind(ast.KindProgram,
		t.AddStr(ast.KindVarDecl, "var",
			t.AddKind(ast.KindVarDeclarator,
				t.AddStr(ast.KindIdentifier, "g"),
				t.AddNum(0))),
		t.AddKind(ast.KindFunctionDecl,
			t.AddStr(ast.KindIdentifier, "f"),
			t.AddKind(ast.KindParamList,
				t.AddStr(ast.KindIdentifier, a),
				t.AddStr(ast.KindIdentifier, b)),
			t.AddKind(ast.KindBlock,
				t.AddStr(ast.KindVarDecl, "var",
					t.AddKind(ast.KindVarDeclarator,
						t.AddStr(ast.KindIdentifier, c),
						t.AddStr(ast.KindIdentifier, a))),
				t.AddKind(ast.KindReturnStmt,
					t.AddStr(ast.KindBinaryExpr, "+",
						t.AddStr(ast.KindBinaryExpr, "+",
							t.AddStr(ast.KindIdentifier, b),
							t.AddStr(ast.KindIdentifier, c)),
						t.AddStr(ast.KindIdentifier, "g"))))),
		t.AddKind(ast.KindExprStmt,
			t.AddKind(ast.KindCallExpr,
				t.AddStr(ast.KindIdentifier, "f"),
				t.AddStr(ast.KindIdentifier, "g"))))
	return t
}

// shadowFixture builds the tree for
//
//	function f(x) {
//		g();
//		function g(x) { return x; }
//		return x;
//	}
//
// The call to g precedes its declaration, and the inner x shadows the
// outer one.
func shadowFixture(renamed bool) *ast.Tree {
	outerX, innerX, g := "x", "x", "g"
	if renamed {
		outerX, innerX, g = "v1_0", "v2_0", "v1_1"
	}
	t := ast.NewTree()
	t.Root = t.AddKind(ast.KindProgram,
		t.AddKind(ast.KindFunctionDecl,
			t.AddStr(ast.KindIdentifier, "f"),
			t.AddKind(ast.KindParamList,
				t.AddStr(ast.KindIdentifier, outerX)),
			t.AddKind(ast.KindBlock,
				t.AddKind(ast.KindExprStmt,
					t.AddKind(ast.KindCallExpr,
						t.AddStr(ast.KindIdentifier, g))),
				t.AddKind(ast.KindFunctionDecl,
					t.AddStr(ast.KindIdentifier, g),
					t.AddKind(ast.KindParamList,
						t.AddStr(ast.KindIdentifier, innerX)),
					t.AddKind(ast.KindBlock,
						t.AddKind(ast.KindReturnStmt,
							t.AddStr(ast.KindIdentifier, innerX)))),
				t.AddKind(ast.KindReturnStmt,
					t.AddStr(ast.KindIdentifier, outerX)))))
	return t
}

func mustOptimize(t *testing.T, tree *ast.Tree, cfg Config) (*ast.Tree, Stats) {
	t.Helper()
	out, stats, err := Optimize(tree, cfg)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	return out, stats
}

func TestOptimize_RenamesLocals(t *testing.T) {
	got, stats := mustOptimize(t, renameFixture(false), Config{})
	if want := renameFixture(true); !ast.Equal(got, want) {
		t.Errorf("renamed tree does not match expected shape")
	}
	if stats.RenamedRefs != 6 {
		t.Errorf("RenamedRefs = %d, want 6", stats.RenamedRefs)
	}
}

func TestOptimize_ShadowingAndHoisting(t *testing.T) {
	got, stats := mustOptimize(t, shadowFixture(false), Config{})
	if want := shadowFixture(true); !ast.Equal(got, want) {
		t.Errorf("renamed tree does not match expected shape")
	}
	if stats.RenamedRefs != 6 {
		t.Errorf("RenamedRefs = %d, want 6", stats.RenamedRefs)
	}
}

func TestOptimize_FunctionExprScope(t *testing.T) {
	build := func(x string) *ast.Tree {
		tr := ast.NewTree()
		tr.Root = tr.AddKind(ast.KindProgram,
			tr.AddStr(ast.KindVarDecl, "var",
				tr.AddKind(ast.KindVarDeclarator,
					tr.AddStr(ast.KindIdentifier, "h"),
					tr.AddKind(ast.KindFunctionExpr,
						tr.AddKind(ast.KindParamList,
							tr.AddStr(ast.KindIdentifier, x)),
						tr.AddKind(ast.KindBlock,
							tr.AddKind(ast.KindReturnStmt,
								tr.AddStr(ast.KindIdentifier, x)))))))
		return tr
	}
	got, stats := mustOptimize(t, build("x"), Config{})
	if want := build("v1_0"); !ast.Equal(got, want) {
		t.Errorf("renamed tree does not match expected shape")
	}
	if stats.RenamedRefs != 2 {
		t.Errorf("RenamedRefs = %d, want 2", stats.RenamedRefs)
	}
}

func TestOptimize_PrunesEmptyStatements(t *testing.T) {
	build := func(withEmpty bool) *ast.Tree {
		tr := ast.NewTree()
		var stmts []ast.NodeID
		if withEmpty {
			stmts = append(stmts, tr.AddKind(ast.KindEmptyStmt))
		}
		stmts = append(stmts,
			tr.AddKind(ast.KindExprStmt,
				tr.AddKind(ast.KindCallExpr,
					tr.AddStr(ast.KindIdentifier, "f"))))
		blockKids := []ast.NodeID(nil)
		if withEmpty {
			blockKids = append(blockKids,
				tr.AddKind(ast.KindEmptyStmt),
				tr.AddKind(ast.KindEmptyStmt))
		}
		stmts = append(stmts, tr.AddKind(ast.KindBlock, blockKids...))
		// The for clauses are fixed slots, so their EmptyStmt survives.
		stmts = append(stmts, tr.AddKind(ast.KindForStmt,
			tr.AddKind(ast.KindEmptyStmt),
			tr.AddBool(true),
			tr.AddKind(ast.KindEmptyStmt),
			tr.AddKind(ast.KindBlock)))
		tr.Root = tr.AddKind(ast.KindProgram, stmts...)
		return tr
	}

	input := build(true)
	got, stats := mustOptimize(t, input, Config{})
	if stats.PrunedEmpty != 3 {
		t.Errorf("PrunedEmpty = %d, want 3", stats.PrunedEmpty)
	}
	if want := build(false); !ast.Equal(got, want) {
		t.Errorf("pruned tree does not match expected shape")
	}
	if got.Len() != input.Len()-3 {
		t.Errorf("arena has %d nodes, want %d", got.Len(), input.Len()-3)
	}
}

// lazyFixture builds two top-level functions: big spans 13 nodes, tiny 4.
func lazyFixture() *ast.Tree {
	t := ast.NewTree()
	t.Root = t.AddKind(ast.KindProgram,
		t.AddKind(ast.KindFunctionDecl,
			t.AddStr(ast.KindIdentifier, "big"),
			t.AddKind(ast.KindParamList,
				t.AddStr(ast.KindIdentifier, "a")),
			t.AddKind(ast.KindBlock,
				t.AddStr(ast.KindVarDecl, "var",
					t.AddKind(ast.KindVarDeclarator,
						t.AddStr(ast.KindIdentifier, "b"),
						t.AddStr(ast.KindIdentifier, "a"))),
				t.AddKind(ast.KindReturnStmt,
					t.AddStr(ast.KindBinaryExpr, "+",
						t.AddStr(ast.KindIdentifier, "a"),
						t.AddStr(ast.KindIdentifier, "b"))))),
		t.AddKind(ast.KindFunctionDecl,
			t.AddStr(ast.KindIdentifier, "tiny"),
			t.AddKind(ast.KindParamList),
			t.AddKind(ast.KindBlock)))
	return t
}

// findFunction returns the FunctionDecl node whose name payload matches.
// Top-level names survive optimization, so lookups stay by source name.
func findFunction(t *testing.T, tree *ast.Tree, name string) *ast.Node {
	t.Helper()
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		if n.Kind == ast.KindFunctionDecl && tree.Nodes[n.Children[0]].Str == name {
			return n
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

func TestOptimize_MarksLazy(t *testing.T) {
	tests := []struct {
		threshold  int
		wantMarked int
		wantBig    bool
		wantTiny   bool
	}{
		{0, 0, false, false},
		{4, 2, true, true},
		{5, 1, true, false},
		{100, 0, false, false},
	}
	for _, tt := range tests {
		got, stats := mustOptimize(t, lazyFixture(), Config{LazyThreshold: tt.threshold})
		if stats.LazyFunctions != tt.wantMarked {
			t.Errorf("threshold %d: LazyFunctions = %d, want %d",
				tt.threshold, stats.LazyFunctions, tt.wantMarked)
		}
		if lazy := findFunction(t, got, "big").Lazy; lazy != tt.wantBig {
			t.Errorf("threshold %d: big.Lazy = %t, want %t", tt.threshold, lazy, tt.wantBig)
		}
		if lazy := findFunction(t, got, "tiny").Lazy; lazy != tt.wantTiny {
			t.Errorf("threshold %d: tiny.Lazy = %t, want %t", tt.threshold, lazy, tt.wantTiny)
		}
	}
}

func TestOptimize_KeepsExistingLazyFlags(t *testing.T) {
	input := lazyFixture()
	findFunction(t, input, "big").Lazy = true

	got, stats := mustOptimize(t, input, Config{LazyThreshold: 5})
	if stats.LazyFunctions != 0 {
		t.Errorf("LazyFunctions = %d, want 0 for an already-marked function", stats.LazyFunctions)
	}
	if !findFunction(t, got, "big").Lazy {
		t.Errorf("existing lazy flag was dropped")
	}

	// Even with marking disabled the flag is preserved.
	got, _ = mustOptimize(t, input, Config{})
	if !findFunction(t, got, "big").Lazy {
		t.Errorf("lazy flag dropped when marking is disabled")
	}
}

func TestOptimize_Idempotent(t *testing.T) {
	cfg := Config{LazyThreshold: 4}
	first, _ := mustOptimize(t, shadowFixture(false), cfg)
	second, stats := mustOptimize(t, first, cfg)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run changed the tree (-first +second):\n%s", diff)
	}
	if stats != (Stats{}) {
		t.Errorf("second run reported work: %+v", stats)
	}
}

func TestOptimize_InputUnchanged(t *testing.T) {
	input := renameFixture(false)
	pristine := renameFixture(false)

	mustOptimize(t, input, Config{LazyThreshold: 2})
	if diff := cmp.Diff(pristine, input); diff != "" {
		t.Errorf("input tree was modified (-want +got):\n%s", diff)
	}
}

func TestOptimize_CanonicalLayout(t *testing.T) {
	// The rename fixture's arena is built bottom-up, so the input root is
	// the last slot. The output must be pre-order with the root at 0.
	got, _ := mustOptimize(t, renameFixture(false), Config{})
	if got.Root != 0 {
		t.Fatalf("Root = %d, want 0", got.Root)
	}
	for id, n := range got.Nodes {
		for _, c := range n.Children {
			if int(c) <= id {
				t.Errorf("node %d has child %d out of pre-order", id, c)
			}
		}
	}
}

func TestOptimize_RejectsMalformed(t *testing.T) {
	bad := ast.NewTree()
	bad.Root = bad.AddKind(ast.KindExprStmt) // needs exactly one child
	if _, _, err := Optimize(bad, Config{}); !errors.Is(err, ast.ErrMalformedInput) {
		t.Errorf("got %v, want ErrMalformedInput", err)
	}
}
