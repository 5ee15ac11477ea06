package codec

import "errors"

// Decode failure taxonomy. Callers match with errors.Is; every failure
// returned by Decode wraps exactly one of these.
var (
	// ErrInvalidMagic reports data that does not start with BlobMagic.
	ErrInvalidMagic = errors.New("invalid magic: expected BAST")

	// ErrUnsupportedVersion reports a blob version this build cannot
	// read, or flag bits it does not know.
	ErrUnsupportedVersion = errors.New("unsupported blob version")

	// ErrTruncatedStream reports input that ends before the token
	// grammar allows: short header, cut varint, a length or count larger
	// than the bytes remaining, or a payload that fails to decompress.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrUnknownCode reports a dictionary reference the supplied
	// dictionary cannot satisfy: a code out of range, a string index out
	// of range, or a reference to an entry of the wrong class. A blob
	// decoded with the wrong dictionary surfaces here.
	ErrUnknownCode = errors.New("unknown dictionary code")

	// ErrCorruptStream reports structurally impossible data that is
	// neither truncation nor a bad code: an undefined tag, an undefined
	// kind, a child count outside the kind's grammar, mismatched lazy
	// accounting, or trailing bytes.
	ErrCorruptStream = errors.New("corrupt token stream")
)
