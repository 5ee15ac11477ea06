package ast

import "fmt"

// ---------------------------------------------------------------------------
// Frozen kind tags for the tree grammar.
//
// IMPORTANT: These values are FROZEN. Once assigned, a kind tag must never
// change meaning: it appears in encoded blobs and trained dictionaries.
// Adding new kinds is fine; renumbering existing ones breaks every artifact
// ever written.
// ---------------------------------------------------------------------------

// Kind identifies a node's grammatical role. Zero is reserved as invalid.
type Kind uint8

const (
	KindInvalid Kind = 0x00 // reserved

	// Structure
	KindProgram      Kind = 0x01
	KindFunctionDecl Kind = 0x02
	KindFunctionExpr Kind = 0x03
	KindParamList    Kind = 0x04
	KindBlock        Kind = 0x05

	// Declarations
	KindVarDecl       Kind = 0x06
	KindVarDeclarator Kind = 0x07

	// Statements
	KindExprStmt     Kind = 0x08
	KindEmptyStmt    Kind = 0x09
	KindIfStmt       Kind = 0x0A
	KindWhileStmt    Kind = 0x0B
	KindForStmt      Kind = 0x0C
	KindReturnStmt   Kind = 0x0D
	KindBreakStmt    Kind = 0x0E
	KindContinueStmt Kind = 0x0F

	// Expressions
	KindCallExpr   Kind = 0x10
	KindMemberExpr Kind = 0x11
	KindIndexExpr  Kind = 0x12
	KindBinaryExpr Kind = 0x13
	KindUnaryExpr  Kind = 0x14
	KindAssignExpr Kind = 0x15
	KindIdentifier Kind = 0x16

	// Literals
	KindStringLit Kind = 0x17
	KindNumberLit Kind = 0x18
	KindBoolLit   Kind = 0x19
	KindNullLit   Kind = 0x1A
	KindArrayLit  Kind = 0x1B
	KindObjectLit Kind = 0x1C
	KindProperty  Kind = 0x1D
)

// PayloadClass selects which payload field of Node a kind uses.
type PayloadClass uint8

const (
	PayloadNone PayloadClass = iota
	PayloadString
	PayloadNumber
	PayloadBool
)

// maxChildrenUnbounded marks kinds with no upper arity limit.
const maxChildrenUnbounded = -1

type kindInfo struct {
	name        string
	payload     PayloadClass
	minChildren int
	maxChildren int // maxChildrenUnbounded for open-ended kinds
	lazyOK      bool
}

var kindTable = map[Kind]kindInfo{
	KindProgram:      {"Program", PayloadNone, 0, maxChildrenUnbounded, false},
	KindFunctionDecl: {"FunctionDecl", PayloadNone, 3, 3, true},
	KindFunctionExpr: {"FunctionExpr", PayloadNone, 2, 2, true},
	KindParamList:    {"ParamList", PayloadNone, 0, maxChildrenUnbounded, false},
	KindBlock:        {"Block", PayloadNone, 0, maxChildrenUnbounded, false},

	KindVarDecl:       {"VarDecl", PayloadString, 1, maxChildrenUnbounded, false},
	KindVarDeclarator: {"VarDeclarator", PayloadNone, 1, 2, false},

	KindExprStmt:     {"ExprStmt", PayloadNone, 1, 1, false},
	KindEmptyStmt:    {"EmptyStmt", PayloadNone, 0, 0, false},
	KindIfStmt:       {"IfStmt", PayloadNone, 2, 3, false},
	KindWhileStmt:    {"WhileStmt", PayloadNone, 2, 2, false},
	KindForStmt:      {"ForStmt", PayloadNone, 4, 4, false},
	KindReturnStmt:   {"ReturnStmt", PayloadNone, 0, 1, false},
	KindBreakStmt:    {"BreakStmt", PayloadNone, 0, 0, false},
	KindContinueStmt: {"ContinueStmt", PayloadNone, 0, 0, false},

	KindCallExpr:   {"CallExpr", PayloadNone, 1, maxChildrenUnbounded, false},
	KindMemberExpr: {"MemberExpr", PayloadString, 1, 1, false},
	KindIndexExpr:  {"IndexExpr", PayloadNone, 2, 2, false},
	KindBinaryExpr: {"BinaryExpr", PayloadString, 2, 2, false},
	KindUnaryExpr:  {"UnaryExpr", PayloadString, 1, 1, false},
	KindAssignExpr: {"AssignExpr", PayloadString, 2, 2, false},
	KindIdentifier: {"Identifier", PayloadString, 0, 0, false},

	KindStringLit: {"StringLit", PayloadString, 0, 0, false},
	KindNumberLit: {"NumberLit", PayloadNumber, 0, 0, false},
	KindBoolLit:   {"BoolLit", PayloadBool, 0, 0, false},
	KindNullLit:   {"NullLit", PayloadNone, 0, 0, false},
	KindArrayLit:  {"ArrayLit", PayloadNone, 0, maxChildrenUnbounded, false},
	KindObjectLit: {"ObjectLit", PayloadNone, 0, maxChildrenUnbounded, false},
	KindProperty:  {"Property", PayloadString, 1, 1, false},
}

// kindByName resolves dump "type" fields; built once from kindTable.
var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTable))
	for k, info := range kindTable {
		m[info.name] = k
	}
	return m
}()

// Known reports whether k is a defined kind.
func (k Kind) Known() bool {
	_, ok := kindTable[k]
	return ok
}

// String returns the kind's dump name, or a hex placeholder for unknown
// values.
func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return fmt.Sprintf("Kind(0x%02X)", uint8(k))
}

// KindFromName resolves a dump "type" string to its kind.
func KindFromName(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// Payload returns the payload class of k. Unknown kinds report PayloadNone.
func (k Kind) Payload() PayloadClass {
	return kindTable[k].payload
}

// VariableArity reports whether k's child count is a range rather than a
// single fixed value. The codec emits an explicit count only for these.
func (k Kind) VariableArity() bool {
	info := kindTable[k]
	return info.minChildren != info.maxChildren
}

// ArityOK reports whether n children satisfy k's grammar.
func (k Kind) ArityOK(n int) bool {
	info, ok := kindTable[k]
	if !ok {
		return false
	}
	if n < info.minChildren {
		return false
	}
	return info.maxChildren == maxChildrenUnbounded || n <= info.maxChildren
}

// FixedArity returns the exact child count for fixed-arity kinds. Call
// only when !VariableArity().
func (k Kind) FixedArity() int {
	return kindTable[k].minChildren
}

// CanBeLazy reports whether k may carry the lazy flag.
func (k Kind) CanBeLazy() bool {
	return kindTable[k].lazyOK
}

// AllKinds returns every defined kind in tag order. Used by tests and the
// dump schema consistency check.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(kindTable))
	for k := Kind(1); k < Kind(255); k++ {
		if k.Known() {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks t against the model invariants: known kinds, arity and
// payload class per the grammar, lazy flags only on function kinds, child
// indices in range, and exactly-one-parent tree shape with no unreachable
// arena slots. All failures wrap ErrMalformedInput.
func Validate(t *Tree) error {
	if t == nil || len(t.Nodes) == 0 {
		return fmt.Errorf("%w: empty tree", ErrMalformedInput)
	}
	if int(t.Root) >= len(t.Nodes) {
		return fmt.Errorf("%w: root %d out of range", ErrMalformedInput, t.Root)
	}

	seen := make([]bool, len(t.Nodes))
	stack := []NodeID{t.Root}
	seen[t.Root] = true
	reached := 1

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.Nodes[id]

		info, ok := kindTable[n.Kind]
		if !ok {
			return fmt.Errorf("%w: node %d has unknown kind 0x%02X", ErrMalformedInput, id, uint8(n.Kind))
		}
		if !n.Kind.ArityOK(len(n.Children)) {
			return fmt.Errorf("%w: %s node %d has %d children", ErrMalformedInput, info.name, id, len(n.Children))
		}
		if n.Lazy && !info.lazyOK {
			return fmt.Errorf("%w: %s node %d marked lazy", ErrMalformedInput, info.name, id)
		}
		if err := checkPayload(n, info); err != nil {
			return fmt.Errorf("%w: %s node %d: %v", ErrMalformedInput, info.name, id, err)
		}

		for _, c := range n.Children {
			if int(c) >= len(t.Nodes) {
				return fmt.Errorf("%w: node %d references child %d out of range", ErrMalformedInput, id, c)
			}
			if seen[c] {
				return fmt.Errorf("%w: node %d has more than one parent", ErrMalformedInput, c)
			}
			seen[c] = true
			reached++
			stack = append(stack, c)
		}
	}

	if reached != len(t.Nodes) {
		return fmt.Errorf("%w: %d arena nodes unreachable from root", ErrMalformedInput, len(t.Nodes)-reached)
	}
	return nil
}

// checkPayload rejects payload values set on fields the kind does not use.
// The live field itself is unconstrained (any string, float, or bool is a
// valid payload of its class).
func checkPayload(n *Node, info kindInfo) error {
	if info.payload != PayloadString && n.Str != "" {
		return fmt.Errorf("unexpected string payload %q", n.Str)
	}
	if info.payload != PayloadNumber && n.Num != 0 {
		return fmt.Errorf("unexpected number payload %v", n.Num)
	}
	if info.payload != PayloadBool && n.Bool {
		return fmt.Errorf("unexpected bool payload")
	}
	return nil
}
