package codec

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/andybalholm/brotli"

	"github.com/chazu/binast/ast"
)

// Decode parses a blob back into a tree. The dictionary must cover every
// code and string index the stream references; a nil dictionary decodes
// only streams that carry no references. The returned tree is in
// pre-order with the root at slot 0.
func Decode(data []byte, dict Dictionary) (*ast.Tree, error) {
	_, payload, err := splitPayload(data)
	if err != nil {
		return nil, err
	}

	d := &decoder{t: ast.NewTree(), dict: dict}
	pr := newReader(payload)
	if err := d.readStringTable(pr); err != nil {
		return nil, err
	}
	root, err := d.decodePiece(pr)
	if err != nil {
		return nil, err
	}
	if n := pr.remaining(); n > 0 {
		return nil, fmt.Errorf("decode: %w: %d trailing bytes", ErrCorruptStream, n)
	}

	d.t.Root = root
	if err := ast.Validate(d.t); err != nil {
		return nil, fmt.Errorf("decode: %w: %v", ErrCorruptStream, err)
	}
	return d.t, nil
}

// splitPayload checks the container header and returns the flags word and
// the decompressed payload.
func splitPayload(data []byte) (uint32, []byte, error) {
	r := newReader(data)

	magic, err := r.readBytes(4)
	if err != nil {
		return 0, nil, fmt.Errorf("decode: magic: %w", err)
	}
	if !bytes.Equal(magic, BlobMagic[:]) {
		return 0, nil, fmt.Errorf("decode: %w: got %q", ErrInvalidMagic, magic)
	}
	version, err := r.readUint32()
	if err != nil {
		return 0, nil, fmt.Errorf("decode: version: %w", err)
	}
	if version != BlobVersion {
		return 0, nil, fmt.Errorf("decode: %w: got %d, want %d", ErrUnsupportedVersion, version, BlobVersion)
	}
	flags, err := r.readUint32()
	if err != nil {
		return 0, nil, fmt.Errorf("decode: flags: %w", err)
	}
	if flags&^knownFlags != 0 {
		return 0, nil, fmt.Errorf("decode: %w: unknown flags 0x%08X", ErrUnsupportedVersion, flags)
	}

	payload := data[r.off:]
	if flags&FlagCompressed != 0 {
		// A cut-off brotli stream surfaces here, so decompression
		// failures count as truncation.
		raw, derr := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
		if derr != nil {
			return 0, nil, fmt.Errorf("decode: decompressing payload: %w: %v", ErrTruncatedStream, derr)
		}
		payload = raw
	}
	return flags, payload, nil
}

// DecodeSubtree parses plain-mode pattern bytes into a standalone tree.
// This is the inverse of EncodeSubtree and is what dictionary entries
// expand through.
func DecodeSubtree(pattern []byte) (*ast.Tree, error) {
	d := &decoder{t: ast.NewTree()}
	r := newReader(pattern)
	root, err := d.decodePlainSubtree(r)
	if err != nil {
		return nil, err
	}
	if n := r.remaining(); n > 0 {
		return nil, fmt.Errorf("decode: %w: %d trailing bytes after subtree", ErrCorruptStream, n)
	}
	d.t.Root = root
	if err := ast.Validate(d.t); err != nil {
		return nil, fmt.Errorf("decode: %w: %v", ErrCorruptStream, err)
	}
	return d.t, nil
}

type decoder struct {
	t      *ast.Tree
	dict   Dictionary
	locals []string
}

func (d *decoder) readStringTable(r *reader) error {
	count, err := r.readCount()
	if err != nil {
		return fmt.Errorf("decode: string table: %w", err)
	}
	d.locals = make([]string, count)
	for i := range d.locals {
		s, err := r.readWireString()
		if err != nil {
			return fmt.Errorf("decode: string table entry %d: %w", i, err)
		}
		d.locals[i] = s
	}
	return nil
}

// decodePiece reads one subtree and then its lazy parts, attaching each
// part as the final child of the lazy node it belongs to. Parts are
// pieces themselves, so deferral nests.
func (d *decoder) decodePiece(r *reader) (ast.NodeID, error) {
	var pending []ast.NodeID
	root, err := d.decodeSubtree(r, &pending)
	if err != nil {
		return 0, err
	}

	count, err := r.readCount()
	if err != nil {
		return 0, fmt.Errorf("decode: lazy part count: %w", err)
	}
	if count != len(pending) {
		return 0, fmt.Errorf("decode: %w: piece declares %d lazy parts, stream has %d lazy tokens",
			ErrCorruptStream, count, len(pending))
	}
	if count == 0 {
		return root, nil
	}

	lens := make([]int, count)
	for i := range lens {
		n, err := r.readCount()
		if err != nil {
			return 0, fmt.Errorf("decode: lazy part %d length: %w", i, err)
		}
		lens[i] = n
	}
	for i, n := range lens {
		pr, err := r.sub(n)
		if err != nil {
			return 0, fmt.Errorf("decode: lazy part %d: %w", i, err)
		}
		body, err := d.decodePiece(pr)
		if err != nil {
			return 0, err
		}
		if left := pr.remaining(); left > 0 {
			return 0, fmt.Errorf("decode: %w: lazy part %d has %d trailing bytes", ErrCorruptStream, i, left)
		}
		id := pending[i]
		d.t.Nodes[id].Children = append(d.t.Nodes[id].Children, body)
	}
	return root, nil
}

func (d *decoder) decodeSubtree(r *reader, pending *[]ast.NodeID) (ast.NodeID, error) {
	tag, err := r.readByte()
	if err != nil {
		return 0, fmt.Errorf("decode: token: %w", err)
	}
	switch tag {
	case tagLiteral:
		return d.decodeNode(r, pending, false, false)
	case tagLazy:
		return d.decodeNode(r, pending, true, false)
	case tagDictRef:
		code, err := r.readUvarint()
		if err != nil {
			return 0, fmt.Errorf("decode: dictionary code: %w", err)
		}
		return d.expandDictRef(code)
	default:
		return 0, fmt.Errorf("decode: %w: tag 0x%02X", ErrCorruptStream, tag)
	}
}

func (d *decoder) expandDictRef(code uint64) (ast.NodeID, error) {
	if d.dict == nil || code > math.MaxUint32 {
		return 0, fmt.Errorf("decode: %w: subtree code %d", ErrUnknownCode, code)
	}
	pattern, ok := d.dict.SubtreePattern(uint32(code))
	if !ok {
		return 0, fmt.Errorf("decode: %w: subtree code %d", ErrUnknownCode, code)
	}
	pr := newReader(pattern)
	id, err := d.decodePlainSubtree(pr)
	if err != nil {
		return 0, fmt.Errorf("decode: expanding dictionary entry %d: %w", code, err)
	}
	if left := pr.remaining(); left > 0 {
		return 0, fmt.Errorf("decode: %w: dictionary entry %d has %d trailing bytes", ErrCorruptStream, code, left)
	}
	return id, nil
}

// decodePlainSubtree reads the pattern form: literal tokens only.
func (d *decoder) decodePlainSubtree(r *reader) (ast.NodeID, error) {
	tag, err := r.readByte()
	if err != nil {
		return 0, fmt.Errorf("decode: token: %w", err)
	}
	if tag != tagLiteral {
		return 0, fmt.Errorf("decode: %w: tag 0x%02X in plain subtree", ErrCorruptStream, tag)
	}
	return d.decodeNode(r, nil, false, true)
}

func (d *decoder) decodeNode(r *reader, pending *[]ast.NodeID, lazy, plain bool) (ast.NodeID, error) {
	kb, err := r.readByte()
	if err != nil {
		return 0, fmt.Errorf("decode: kind: %w", err)
	}
	kind := ast.Kind(kb)
	if !kind.Known() {
		return 0, fmt.Errorf("decode: %w: kind 0x%02X", ErrCorruptStream, kb)
	}
	if lazy && !kind.CanBeLazy() {
		return 0, fmt.Errorf("decode: %w: lazy %s", ErrCorruptStream, kind)
	}

	n := ast.Node{Kind: kind, Lazy: lazy}
	switch kind.Payload() {
	case ast.PayloadString:
		if plain {
			s, err := r.readWireString()
			if err != nil {
				return 0, fmt.Errorf("decode: %s payload: %w", kind, err)
			}
			n.Str = s
		} else {
			ref, err := r.readUvarint()
			if err != nil {
				return 0, fmt.Errorf("decode: %s payload: %w", kind, err)
			}
			s, err := d.resolveString(ref)
			if err != nil {
				return 0, err
			}
			n.Str = s
		}
	case ast.PayloadNumber:
		f, err := r.readFloat64()
		if err != nil {
			return 0, fmt.Errorf("decode: %s payload: %w", kind, err)
		}
		n.Num = f
	case ast.PayloadBool:
		b, err := r.readByte()
		if err != nil {
			return 0, fmt.Errorf("decode: %s payload: %w", kind, err)
		}
		if b > 1 {
			return 0, fmt.Errorf("decode: %w: bool byte 0x%02X", ErrCorruptStream, b)
		}
		n.Bool = b == 1
	}

	var inline int
	switch {
	case lazy:
		// Lazy tokens always carry the full child count; the last
		// child lives in the piece's part list.
		count, err := r.readCount()
		if err != nil {
			return 0, fmt.Errorf("decode: %s child count: %w", kind, err)
		}
		if count < 1 || !kind.ArityOK(count) {
			return 0, fmt.Errorf("decode: %w: lazy %s with %d children", ErrCorruptStream, kind, count)
		}
		inline = count - 1
	case kind.VariableArity():
		count, err := r.readCount()
		if err != nil {
			return 0, fmt.Errorf("decode: %s child count: %w", kind, err)
		}
		if !kind.ArityOK(count) {
			return 0, fmt.Errorf("decode: %w: %s with %d children", ErrCorruptStream, kind, count)
		}
		inline = count
	default:
		inline = kind.FixedArity()
	}

	id := d.t.Add(n)
	if inline > 0 {
		children := make([]ast.NodeID, 0, inline)
		for i := 0; i < inline; i++ {
			var child ast.NodeID
			var err error
			if plain {
				child, err = d.decodePlainSubtree(r)
			} else {
				child, err = d.decodeSubtree(r, pending)
			}
			if err != nil {
				return 0, err
			}
			children = append(children, child)
		}
		d.t.Nodes[id].Children = children
	}
	if lazy {
		*pending = append(*pending, id)
	}
	return id, nil
}

// resolveString maps a wire index into the combined table: locals first,
// then dictionary strings in code order.
func (d *decoder) resolveString(ref uint64) (string, error) {
	if ref < uint64(len(d.locals)) {
		return d.locals[ref], nil
	}
	if d.dict != nil {
		rank := ref - uint64(len(d.locals))
		if rank < uint64(d.dict.NumStrings()) {
			if s, ok := d.dict.StringAt(int(rank)); ok {
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("decode: %w: string index %d", ErrUnknownCode, ref)
}
