package codec

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/andybalholm/brotli"

	"github.com/chazu/binast/ast"
)

// Encode serializes a validated tree into a blob. The dictionary may be
// nil, in which case every node is spelled out literally and all strings
// go through the local table. Encoding never fails on a well-formed tree;
// the only error is a wrapped ast.ErrMalformedInput from validation.
func Encode(t *ast.Tree, d Dictionary, opts Options) ([]byte, error) {
	if err := ast.Validate(t); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	e := &encoder{
		t:     t,
		dict:  d,
		sizes: ast.SubtreeSizes(t),
		lazy:  ast.SubtreeHasLazy(t),
	}
	if d != nil {
		e.maxMatch = d.MaxSubtreeNodes()
	}
	e.collectLocals()

	payload := e.appendStringTable(nil)
	payload = e.appendPiece(payload, t.Root)

	out := make([]byte, 0, blobHeaderSize+len(payload))
	out = append(out, BlobMagic[:]...)
	out = appendUint32(out, BlobVersion)

	var flags uint32
	if opts.Compress {
		flags |= FlagCompressed
	}
	out = appendUint32(out, flags)

	if !opts.Compress {
		return append(out, payload...), nil
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = brotli.DefaultCompression
	}
	var compressed bytes.Buffer
	w := brotli.NewWriterLevel(&compressed, quality)
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("encode: compressing payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode: compressing payload: %w", err)
	}
	return append(out, compressed.Bytes()...), nil
}

// EncodeSubtree serializes the subtree rooted at id in plain mode: literal
// tokens only, strings inline. This is the pattern form stored in
// dictionaries. Lazy-marked nodes have no plain representation.
func EncodeSubtree(t *ast.Tree, id ast.NodeID) ([]byte, error) {
	if int(id) >= len(t.Nodes) {
		return nil, fmt.Errorf("encode subtree: node %d out of range", id)
	}
	hasLazy := false
	t.Walk(id, func(n ast.NodeID) {
		if t.Nodes[n].Lazy {
			hasLazy = true
		}
	})
	if hasLazy {
		return nil, fmt.Errorf("encode subtree: node %d contains a lazy function", id)
	}
	e := &encoder{t: t}
	return e.appendSubtreePlain(nil, id), nil
}

type encoder struct {
	t        *ast.Tree
	dict     Dictionary
	sizes    []int
	lazy     []bool
	maxMatch int

	locals   []string
	localIdx map[string]int
	scratch  []byte
}

// collectLocals gathers every payload string the dictionary does not
// cover, sorted and deduplicated. The whole tree contributes, matching
// the rule the decoder needs: any literal string token resolves through
// locals first, dictionary strings after.
func (e *encoder) collectLocals() {
	seen := make(map[string]bool)
	for i := range e.t.Nodes {
		n := &e.t.Nodes[i]
		if n.Kind.Payload() != ast.PayloadString {
			continue
		}
		if e.dict != nil {
			if _, ok := e.dict.LookupString(n.Str); ok {
				continue
			}
		}
		seen[n.Str] = true
	}
	e.locals = make([]string, 0, len(seen))
	for s := range seen {
		e.locals = append(e.locals, s)
	}
	sort.Strings(e.locals)
	e.localIdx = make(map[string]int, len(e.locals))
	for i, s := range e.locals {
		e.localIdx[s] = i
	}
}

func (e *encoder) appendStringTable(buf []byte) []byte {
	buf = appendUvarint(buf, uint64(len(e.locals)))
	for _, s := range e.locals {
		buf = appendWireString(buf, s)
	}
	return buf
}

// stringRef maps a payload string into the combined table: locals first,
// then dictionary strings in code order.
func (e *encoder) stringRef(s string) uint64 {
	if e.dict != nil {
		if rank, ok := e.dict.LookupString(s); ok {
			return uint64(len(e.locals) + rank)
		}
	}
	return uint64(e.localIdx[s])
}

// appendPiece emits one subtree followed by its lazy parts. Bodies are
// rendered as nested pieces in the order their lazy tokens appeared.
func (e *encoder) appendPiece(buf []byte, root ast.NodeID) []byte {
	var bodies []ast.NodeID
	buf = e.appendSubtree(buf, root, &bodies)
	buf = appendUvarint(buf, uint64(len(bodies)))
	if len(bodies) == 0 {
		return buf
	}
	parts := make([][]byte, len(bodies))
	for i, body := range bodies {
		parts[i] = e.appendPiece(nil, body)
	}
	for _, p := range parts {
		buf = appendUvarint(buf, uint64(len(p)))
	}
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

func (e *encoder) appendSubtree(buf []byte, id ast.NodeID, bodies *[]ast.NodeID) []byte {
	n := &e.t.Nodes[id]

	if e.maxMatch > 0 && e.sizes[id] <= e.maxMatch && !e.lazy[id] {
		e.scratch = e.appendSubtreePlain(e.scratch[:0], id)
		if code, ok := e.dict.LookupSubtree(e.scratch); ok {
			buf = append(buf, tagDictRef)
			return appendUvarint(buf, uint64(code))
		}
	}

	if n.Lazy {
		buf = append(buf, tagLazy)
		buf = append(buf, byte(n.Kind))
		buf = e.appendPayload(buf, n, false)
		buf = appendUvarint(buf, uint64(len(n.Children)))
		last := len(n.Children) - 1
		for _, c := range n.Children[:last] {
			buf = e.appendSubtree(buf, c, bodies)
		}
		*bodies = append(*bodies, n.Children[last])
		return buf
	}

	buf = append(buf, tagLiteral)
	buf = append(buf, byte(n.Kind))
	buf = e.appendPayload(buf, n, false)
	if n.Kind.VariableArity() {
		buf = appendUvarint(buf, uint64(len(n.Children)))
	}
	for _, c := range n.Children {
		buf = e.appendSubtree(buf, c, bodies)
	}
	return buf
}

// appendSubtreePlain emits the dictionary-pattern form: no references, no
// laziness, strings inline. Callers guarantee the subtree is lazy-free.
func (e *encoder) appendSubtreePlain(buf []byte, id ast.NodeID) []byte {
	n := &e.t.Nodes[id]
	buf = append(buf, tagLiteral)
	buf = append(buf, byte(n.Kind))
	buf = e.appendPayload(buf, n, true)
	if n.Kind.VariableArity() {
		buf = appendUvarint(buf, uint64(len(n.Children)))
	}
	for _, c := range n.Children {
		buf = e.appendSubtreePlain(buf, c)
	}
	return buf
}

func (e *encoder) appendPayload(buf []byte, n *ast.Node, plain bool) []byte {
	switch n.Kind.Payload() {
	case ast.PayloadString:
		if plain {
			return appendWireString(buf, n.Str)
		}
		return appendUvarint(buf, e.stringRef(n.Str))
	case ast.PayloadNumber:
		return appendFloat64(buf, n.Num)
	case ast.PayloadBool:
		if n.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	}
	return buf
}
