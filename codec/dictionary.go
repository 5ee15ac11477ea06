package codec

// Dictionary is the read side of a trained dictionary. Implementations
// must be immutable once handed to Encode or Decode; the codec may call
// these methods in any order and keeps no state between calls.
//
// Codes address the entry list; string ranks address the string-class
// entries alone, in code order. A nil Dictionary is valid and behaves as
// an empty one.
type Dictionary interface {
	// LookupSubtree resolves plain-mode pattern bytes to the code of a
	// subtree-class entry.
	LookupSubtree(pattern []byte) (code uint32, ok bool)

	// SubtreePattern returns the pattern bytes of the subtree-class
	// entry at code. ok is false for out-of-range codes and for entries
	// of any other class.
	SubtreePattern(code uint32) ([]byte, bool)

	// LookupString resolves a payload string to its rank among the
	// string-class entries.
	LookupString(s string) (rank int, ok bool)

	// StringAt returns the string-class entry at rank.
	StringAt(rank int) (string, bool)

	// NumStrings returns the number of string-class entries.
	NumStrings() int

	// MaxSubtreeNodes returns the builder's subtree size bound. The
	// encoder skips matching at nodes whose subtree exceeds it.
	MaxSubtreeNodes() int
}

// Options controls Encode's container layer.
type Options struct {
	// Compress brotli-compresses the payload and sets FlagCompressed.
	Compress bool

	// Quality is the brotli quality (0-11) when compressing. Zero or
	// negative selects the library default.
	Quality int
}
