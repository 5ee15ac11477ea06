// Package dict trains and persists the shared dictionaries the codec
// references. A dictionary is a dense code space over two entry classes,
// serialized subtree patterns and literal strings. Codes are assigned at
// build time by descending frequency so hot entries get the shortest
// varints, and the pattern-to-code mapping is bijective. A blob encoded
// against a dictionary is meaningless without it.
package dict

import (
	"fmt"

	"github.com/chazu/binast/codec"
)

// EntryKind distinguishes the two entry classes.
type EntryKind uint8

const (
	EntrySubtree EntryKind = 1
	EntryString  EntryKind = 2
)

func (k EntryKind) String() string {
	switch k {
	case EntrySubtree:
		return "subtree"
	case EntryString:
		return "string"
	default:
		return fmt.Sprintf("EntryKind(%d)", uint8(k))
	}
}

// Entry is one dictionary slot. Pattern holds plain-mode token bytes for
// subtree entries and raw UTF-8 for string entries.
type Entry struct {
	Kind    EntryKind `cbor:"1,keyasint"`
	Pattern []byte    `cbor:"2,keyasint"`
}

// Dictionary maps patterns to dense codes. Codes index the full entry
// list; string references rank only the string-class entries, in code
// order. Immutable once built or loaded, so it is safe for any number of
// concurrent readers.
type Dictionary struct {
	maxSubtreeNodes int
	entries         []Entry

	bySubtree map[string]uint32
	byString  map[string]int
	strings   []string // string-class entries in code order
}

var _ codec.Dictionary = (*Dictionary)(nil)

// newDictionary indexes entries in code order. Duplicate patterns within
// a class break the bijection and are rejected.
func newDictionary(entries []Entry, maxSubtreeNodes int) (*Dictionary, error) {
	d := &Dictionary{
		maxSubtreeNodes: maxSubtreeNodes,
		entries:         entries,
		bySubtree:       make(map[string]uint32),
		byString:        make(map[string]int),
	}
	for code, e := range entries {
		switch e.Kind {
		case EntrySubtree:
			key := string(e.Pattern)
			if _, dup := d.bySubtree[key]; dup {
				return nil, fmt.Errorf("dict: duplicate subtree pattern at code %d", code)
			}
			d.bySubtree[key] = uint32(code)
		case EntryString:
			s := string(e.Pattern)
			if _, dup := d.byString[s]; dup {
				return nil, fmt.Errorf("dict: duplicate string %q at code %d", s, code)
			}
			d.byString[s] = len(d.strings)
			d.strings = append(d.strings, s)
		default:
			return nil, fmt.Errorf("dict: entry %d has unknown kind %d", code, e.Kind)
		}
	}
	return d, nil
}

// Len returns the number of entries across both classes.
func (d *Dictionary) Len() int { return len(d.entries) }

// Entry returns the entry at code.
func (d *Dictionary) Entry(code uint32) (Entry, bool) {
	if int(code) >= len(d.entries) {
		return Entry{}, false
	}
	return d.entries[code], true
}

// LookupSubtree resolves plain-mode pattern bytes to a subtree code.
func (d *Dictionary) LookupSubtree(pattern []byte) (uint32, bool) {
	code, ok := d.bySubtree[string(pattern)]
	return code, ok
}

// SubtreePattern returns the pattern bytes of the subtree entry at code.
func (d *Dictionary) SubtreePattern(code uint32) ([]byte, bool) {
	if int(code) >= len(d.entries) || d.entries[code].Kind != EntrySubtree {
		return nil, false
	}
	return d.entries[code].Pattern, true
}

// LookupString resolves a payload string to its string-class rank.
func (d *Dictionary) LookupString(s string) (int, bool) {
	rank, ok := d.byString[s]
	return rank, ok
}

// StringAt returns the string-class entry at rank.
func (d *Dictionary) StringAt(rank int) (string, bool) {
	if rank < 0 || rank >= len(d.strings) {
		return "", false
	}
	return d.strings[rank], true
}

// NumStrings returns the number of string-class entries.
func (d *Dictionary) NumStrings() int { return len(d.strings) }

// MaxSubtreeNodes returns the subtree size bound the dictionary was
// built with. Encoders skip matching above it.
func (d *Dictionary) MaxSubtreeNodes() int { return d.maxSubtreeNodes }
