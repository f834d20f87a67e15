// Package buf contains helpers for bounds-checked big-endian decoding.
// Flattened device tree blobs store every integer big-endian.
package buf

import "encoding/binary"

// U32BE reads a big-endian uint32 from b. Returns 0 when b is too short.
func U32BE(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// U64BE reads a big-endian uint64 from b. Returns 0 when b is too short.
func U64BE(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// ReadU32BE reads the big-endian uint32 at off, reporting whether it fits.
func ReadU32BE(b []byte, off int) (uint32, bool) {
	s, ok := Slice(b, off, 4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(s), true
}

// ReadU64BE reads the big-endian uint64 at off, reporting whether it fits.
func ReadU64BE(b []byte, off int) (uint64, bool) {
	s, ok := Slice(b, off, 8)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint64(s), true
}

// AppendU32BE appends v to b in big-endian order.
func AppendU32BE(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

// AppendU64BE appends v to b in big-endian order.
func AppendU64BE(b []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(b, v)
}
