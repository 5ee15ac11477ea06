// Package codec serializes syntax trees to the binary blob format and
// back, substituting dictionary codes for recurring substructures. The
// token grammar is flat and self-delimiting: a blob is a header, a local
// string table, and one root piece of pre-order tokens plus nested lazy
// pieces.
package codec

// ---------------------------------------------------------------------------
// Frozen wire constants.
//
// IMPORTANT: Tag bytes and the container layout are FROZEN. Once assigned,
// a value must never change meaning; every encoded blob and every trained
// dictionary depends on them. Add new tags, never renumber.
// ---------------------------------------------------------------------------

// BlobMagic identifies a binast blob. First four bytes of every blob.
var BlobMagic = [4]byte{'B', 'A', 'S', 'T'}

// BlobVersion is the current blob format version.
//
// Version history:
//
//	1 - initial format: local string table, dict-ref/literal/lazy tokens,
//	    optional brotli payload compression
const BlobVersion uint32 = 1

// Container flag bits.
const (
	// FlagCompressed marks a brotli-compressed payload.
	FlagCompressed uint32 = 1 << 0

	// knownFlags is the mask of all defined flag bits; anything outside
	// it makes the blob unreadable by this version.
	knownFlags = FlagCompressed
)

// blobHeaderSize is magic + version + flags.
const blobHeaderSize = 4 + 4 + 4

// Token tags. Each token starts with one of these.
const (
	tagReservedZero byte = 0x00 // reserved

	// tagLiteral introduces a node spelled out in full: kind tag, payload
	// per the kind's class, then an explicit child count for
	// variable-arity kinds.
	tagLiteral byte = 0x01

	// tagDictRef substitutes a whole subtree: a varint dictionary code
	// whose entry's pattern is expanded in plain mode.
	tagDictRef byte = 0x02

	// tagLazy is a literal function node whose last child (the body) is
	// deferred to the enclosing piece's lazy parts. Carries an explicit
	// varint child count; count-1 children follow inline.
	tagLazy byte = 0x03
)

// allTokenTags lists every defined tag for uniqueness verification in
// tests.
var allTokenTags = []byte{
	tagReservedZero,
	tagLiteral,
	tagDictRef,
	tagLazy,
}
