package codec

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/binast/ast"
)

// Disassemble renders a blob as a commented token listing. The token
// stream is self-delimiting, so the dictionary is optional: when present
// it fills in referenced strings and pattern summaries, when nil the raw
// codes are printed bare. Offsets are into the decompressed payload.
func Disassemble(data []byte, dict Dictionary) (string, error) {
	flags, payload, err := splitPayload(data)
	if err != nil {
		return "", err
	}

	d := &disassembler{r: newReader(payload), dict: dict}

	d.sb.WriteString(fmt.Sprintf("; BinAST blob v%d\n", BlobVersion))
	d.sb.WriteString(fmt.Sprintf("; Flags: 0x%08X", flags))
	if flags&FlagCompressed != 0 {
		d.sb.WriteString(" [COMPRESSED]")
	}
	d.sb.WriteString("\n")
	d.sb.WriteString(fmt.Sprintf("; Payload: %d bytes\n", len(payload)))

	if err := d.stringTable(); err != nil {
		return "", err
	}
	d.sb.WriteString("\n; Tokens:\n")
	if err := d.piece(0); err != nil {
		return "", err
	}
	if n := d.r.remaining(); n > 0 {
		d.sb.WriteString(fmt.Sprintf("; WARNING: %d trailing bytes\n", n))
	}
	return d.sb.String(), nil
}

type disassembler struct {
	sb     strings.Builder
	r      *reader
	dict   Dictionary
	locals []string
}

func (d *disassembler) line(off, depth int, text string) {
	d.sb.WriteString(fmt.Sprintf("%04X  %s%s\n", off, strings.Repeat("  ", depth), text))
}

func (d *disassembler) stringTable() error {
	count, err := d.r.readCount()
	if err != nil {
		return fmt.Errorf("disasm: string table: %w", err)
	}
	d.locals = make([]string, count)
	if count == 0 {
		return nil
	}
	d.sb.WriteString(fmt.Sprintf("; Local strings (%d):\n", count))
	for i := range d.locals {
		s, err := d.r.readWireString()
		if err != nil {
			return fmt.Errorf("disasm: string table entry %d: %w", i, err)
		}
		d.locals[i] = s
		d.sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, truncate(s, 40)))
	}
	return nil
}

func (d *disassembler) piece(depth int) error {
	if err := d.subtree(depth); err != nil {
		return err
	}
	off := d.r.off
	count, err := d.r.readCount()
	if err != nil {
		return fmt.Errorf("disasm: lazy part count: %w", err)
	}
	if count == 0 {
		return nil
	}
	lens := make([]int, count)
	for i := range lens {
		lens[i], err = d.r.readCount()
		if err != nil {
			return fmt.Errorf("disasm: lazy part %d length: %w", i, err)
		}
	}
	d.line(off, depth, fmt.Sprintf("; %d deferred parts, lengths %v", count, lens))
	for i := range lens {
		d.line(d.r.off, depth, fmt.Sprintf("; part %d:", i))
		if err := d.piece(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

func (d *disassembler) subtree(depth int) error {
	off := d.r.off
	tag, err := d.r.readByte()
	if err != nil {
		return fmt.Errorf("disasm: token: %w", err)
	}
	switch tag {
	case tagLiteral, tagLazy:
		return d.node(off, depth, tag)
	case tagDictRef:
		code, err := d.r.readUvarint()
		if err != nil {
			return fmt.Errorf("disasm: dictionary code: %w", err)
		}
		d.line(off, depth, "REF "+d.refNote(code))
		return nil
	default:
		return fmt.Errorf("disasm: %w: tag 0x%02X", ErrCorruptStream, tag)
	}
}

func (d *disassembler) refNote(code uint64) string {
	if d.dict == nil || code > math.MaxUint32 {
		return fmt.Sprintf("%d", code)
	}
	pattern, ok := d.dict.SubtreePattern(uint32(code))
	if !ok {
		return fmt.Sprintf("%d ; <unknown code>", code)
	}
	t, err := DecodeSubtree(pattern)
	if err != nil {
		return fmt.Sprintf("%d ; <bad pattern>", code)
	}
	return fmt.Sprintf("%d ; %s, %d nodes", code, t.Nodes[t.Root].Kind, t.Len())
}

func (d *disassembler) node(off, depth int, tag byte) error {
	kb, err := d.r.readByte()
	if err != nil {
		return fmt.Errorf("disasm: kind: %w", err)
	}
	kind := ast.Kind(kb)
	if !kind.Known() {
		return fmt.Errorf("disasm: %w: kind 0x%02X", ErrCorruptStream, kb)
	}

	name := "LITERAL"
	if tag == tagLazy {
		name = "LAZY"
	}
	text := fmt.Sprintf("%-7s %s", name, kind)

	var note string
	switch kind.Payload() {
	case ast.PayloadString:
		ref, err := d.r.readUvarint()
		if err != nil {
			return fmt.Errorf("disasm: %s payload: %w", kind, err)
		}
		text += fmt.Sprintf(" str=%d", ref)
		if s, ok := d.payloadString(ref); ok {
			note = fmt.Sprintf("%q", truncate(s, 20))
		}
	case ast.PayloadNumber:
		f, err := d.r.readFloat64()
		if err != nil {
			return fmt.Errorf("disasm: %s payload: %w", kind, err)
		}
		text += fmt.Sprintf(" num=%v", f)
	case ast.PayloadBool:
		b, err := d.r.readByte()
		if err != nil {
			return fmt.Errorf("disasm: %s payload: %w", kind, err)
		}
		text += fmt.Sprintf(" %t", b == 1)
	}

	inline := kind.FixedArity()
	if tag == tagLazy || kind.VariableArity() {
		count, err := d.r.readCount()
		if err != nil {
			return fmt.Errorf("disasm: %s child count: %w", kind, err)
		}
		text += fmt.Sprintf(" n=%d", count)
		inline = count
		if tag == tagLazy {
			if count < 1 {
				return fmt.Errorf("disasm: %w: lazy %s with no children", ErrCorruptStream, kind)
			}
			inline = count - 1
		}
	}
	if note != "" {
		text += " ; " + note
	}
	d.line(off, depth, text)

	for i := 0; i < inline; i++ {
		if err := d.subtree(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

func (d *disassembler) payloadString(ref uint64) (string, bool) {
	if ref < uint64(len(d.locals)) {
		return d.locals[ref], true
	}
	if d.dict != nil {
		rank := ref - uint64(len(d.locals))
		if rank < uint64(d.dict.NumStrings()) {
			return d.dict.StringAt(int(rank))
		}
	}
	return "", false
}

// truncate shortens long strings for listing readability.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}
