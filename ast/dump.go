package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Dump container identity. Version bumps accompany any change to the dump
// shape; readers reject versions they do not know.
const (
	DumpFormat  = "binast-ast"
	DumpVersion = 1
)

// dumpFile is the top-level JSON shape of a .dump file.
type dumpFile struct {
	Format  string   `json:"format"`
	Version int      `json:"version"`
	Root    dumpNode `json:"root"`
}

// dumpNode is the JSON shape of one node. Value carries the payload for
// kinds that have one: string, number, or bool. A nil Value means no
// payload; false and "" are real payloads and are kept.
type dumpNode struct {
	Type     string     `json:"type"`
	Value    any        `json:"value,omitempty"`
	Children []dumpNode `json:"children,omitempty"`
	Lazy     bool       `json:"lazy,omitempty"`
}

// ParseDump parses a textual dump into a validated tree. The arena is laid
// out in pre-order with the root at index 0. All failures wrap
// ErrMalformedInput.
func ParseDump(data []byte) (*Tree, error) {
	var f dumpFile
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if f.Format != DumpFormat {
		return nil, fmt.Errorf("%w: format %q, want %q", ErrMalformedInput, f.Format, DumpFormat)
	}
	if f.Version != DumpVersion {
		return nil, fmt.Errorf("%w: dump version %d, want %d", ErrMalformedInput, f.Version, DumpVersion)
	}

	t := NewTree()
	root, err := addDumpNode(t, &f.Root)
	if err != nil {
		return nil, err
	}
	t.Root = root
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func addDumpNode(t *Tree, d *dumpNode) (NodeID, error) {
	kind, ok := KindFromName(d.Type)
	if !ok {
		return 0, fmt.Errorf("%w: unknown node type %q", ErrMalformedInput, d.Type)
	}

	n := Node{Kind: kind, Lazy: d.Lazy}
	switch kind.Payload() {
	case PayloadNone:
		if d.Value != nil {
			return 0, fmt.Errorf("%w: %s carries a value", ErrMalformedInput, d.Type)
		}
	case PayloadString:
		s, ok := d.Value.(string)
		if !ok {
			return 0, fmt.Errorf("%w: %s value %v is not a string", ErrMalformedInput, d.Type, d.Value)
		}
		n.Str = s
	case PayloadNumber:
		v, ok := d.Value.(float64)
		if !ok {
			return 0, fmt.Errorf("%w: %s value %v is not a number", ErrMalformedInput, d.Type, d.Value)
		}
		n.Num = v
	case PayloadBool:
		b, ok := d.Value.(bool)
		if !ok {
			return 0, fmt.Errorf("%w: %s value %v is not a bool", ErrMalformedInput, d.Type, d.Value)
		}
		n.Bool = b
	}

	id := t.Add(n)
	kids := make([]NodeID, 0, len(d.Children))
	for i := range d.Children {
		cid, err := addDumpNode(t, &d.Children[i])
		if err != nil {
			return 0, err
		}
		kids = append(kids, cid)
	}
	if len(kids) > 0 {
		t.Nodes[id].Children = kids
	}
	return id, nil
}

// FormatDump renders a validated tree as a dump file: two-space indented
// JSON plus a trailing newline. Output is deterministic, and formatting a
// freshly parsed dump reproduces the canonical form of that dump.
func FormatDump(t *Tree) ([]byte, error) {
	if err := Validate(t); err != nil {
		return nil, err
	}
	f := dumpFile{
		Format:  DumpFormat,
		Version: DumpVersion,
		Root:    buildDumpNode(t, t.Root),
	}
	out, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("formatting dump: %w", err)
	}
	return append(out, '\n'), nil
}

func buildDumpNode(t *Tree, id NodeID) dumpNode {
	n := &t.Nodes[id]
	d := dumpNode{Type: n.Kind.String(), Lazy: n.Lazy}
	switch n.Kind.Payload() {
	case PayloadString:
		d.Value = n.Str
	case PayloadNumber:
		d.Value = n.Num
	case PayloadBool:
		d.Value = n.Bool
	}
	if len(n.Children) > 0 {
		d.Children = make([]dumpNode, len(n.Children))
		for i, c := range n.Children {
			d.Children[i] = buildDumpNode(t, c)
		}
	}
	return d
}
