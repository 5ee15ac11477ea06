package dict

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/binast/codec"
)

// FormatVersion is the dictionary file format version.
const FormatVersion = 1

// cborEncMode is the canonical CBOR encoding mode. Canonical mode makes
// repeated saves of the same dictionary byte-identical.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dict: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type fileFormat struct {
	Version         int     `cbor:"1,keyasint"`
	MaxSubtreeNodes int     `cbor:"2,keyasint"`
	Entries         []Entry `cbor:"3,keyasint"`
}

// MarshalDictionary serializes a Dictionary to canonical CBOR bytes.
func MarshalDictionary(d *Dictionary) ([]byte, error) {
	return cborEncMode.Marshal(fileFormat{
		Version:         FormatVersion,
		MaxSubtreeNodes: d.maxSubtreeNodes,
		Entries:         d.entries,
	})
}

// UnmarshalDictionary deserializes and indexes a dictionary file. It
// checks the format version, rejects duplicate patterns, and verifies
// that every subtree pattern decodes as a plain-mode token stream, so a
// corrupt dictionary fails here rather than mid-encode.
func UnmarshalDictionary(data []byte) (*Dictionary, error) {
	var f fileFormat
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("dict: unmarshal dictionary: %w", err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("dict: unsupported dictionary version %d, want %d", f.Version, FormatVersion)
	}
	d, err := newDictionary(f.Entries, f.MaxSubtreeNodes)
	if err != nil {
		return nil, err
	}
	for code, e := range f.Entries {
		if e.Kind != EntrySubtree {
			continue
		}
		if _, err := codec.DecodeSubtree(e.Pattern); err != nil {
			return nil, fmt.Errorf("dict: entry %d: bad subtree pattern: %w", code, err)
		}
	}
	return d, nil
}
