package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Append-style writers. Varints are unsigned, 7 bits per byte, high bit
// as continuation flag, least-significant group first.
// ---------------------------------------------------------------------------

func appendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// appendWireString writes a varint length prefix followed by raw bytes.
func appendWireString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendFloat64(buf []byte, f float64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(f))
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// ---------------------------------------------------------------------------
// Bounds-checked reader over a byte slice. Every read past the end is
// ErrTruncatedStream; the caller adds context.
// ---------------------------------------------------------------------------

type reader struct {
	data []byte
	off  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) readByte() (byte, error) {
	if r.off >= len(r.data) {
		return 0, ErrTruncatedStream
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n > r.remaining() {
		return nil, ErrTruncatedStream
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) readUvarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		if shift >= 64 {
			return 0, fmt.Errorf("%w: varint overflow", ErrCorruptStream)
		}
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
	}
}

// readCount reads a varint that counts items still to come, each of which
// occupies at least one byte. A claim larger than the remaining input can
// never be satisfied, so it is truncation; rejecting it here also keeps
// allocations bounded by input size.
func (r *reader) readCount() (int, error) {
	v, err := r.readUvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(r.remaining()) {
		return 0, fmt.Errorf("%w: count %d exceeds %d remaining bytes", ErrTruncatedStream, v, r.remaining())
	}
	return int(v), nil
}

// readWireString reads a varint length prefix followed by raw bytes.
func (r *reader) readWireString() (string, error) {
	n, err := r.readCount()
	if err != nil {
		return "", err
	}
	b, err := r.readBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) readFloat64() (float64, error) {
	b, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

func (r *reader) readUint32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// sub splits off the next n bytes as an independent reader.
func (r *reader) sub(n int) (*reader, error) {
	b, err := r.readBytes(n)
	if err != nil {
		return nil, err
	}
	return newReader(b), nil
}
