package ast

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Kind tags the on-wire encoding of a property value. The set is closed:
// every value decoded from a blob or parsed from text carries exactly one.
type Kind uint8

const (
	KindEmpty   Kind = iota // zero-length marker property
	KindCells               // array of 32-bit big-endian cells
	KindString              // single NUL-terminated string
	KindStrings             // list of NUL-terminated strings
	KindBytes               // raw byte array
	KindMixed               // concatenation of the above, see Segments
)

// String implements the Stringer interface for Kind.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindCells:
		return "cells"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindBytes:
		return "bytes"
	case KindMixed:
		return "mixed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// CellSize is the size in bytes of one cell.
const CellSize = 4

// Segment is one typed run inside a mixed value. Off and Len index Data.
type Segment struct {
	Kind Kind
	Off  int
	Len  int
}

// Ref records that the cell at byte offset Offset was written in text as a
// reference. Target is a label ("clk") or an absolute path ("/clocks/clk").
// The cell itself still holds the resolved phandle.
type Ref struct {
	Offset int
	Target string
}

// Value is a property value. Data always holds the exact bytes the property
// has in a blob; Kind says how to interpret and render them.
type Value struct {
	Kind     Kind
	Data     []byte
	Segments []Segment // KindMixed only
	Refs     []Ref     // cells written as references in text
}

// Empty returns a zero-length marker value.
func Empty() Value {
	return Value{Kind: KindEmpty}
}

// Cells returns a cell-array value.
func Cells(cells ...uint32) Value {
	data := make([]byte, len(cells)*CellSize)
	for i, c := range cells {
		binary.BigEndian.PutUint32(data[i*CellSize:], c)
	}
	return Value{Kind: KindCells, Data: data}
}

// String returns a single-string value.
func String(s string) Value {
	return Value{Kind: KindString, Data: append([]byte(s), 0)}
}

// Strings returns a string-list value. A single element yields KindString.
func Strings(ss ...string) Value {
	if len(ss) == 1 {
		return String(ss[0])
	}
	var b bytes.Buffer
	for _, s := range ss {
		b.WriteString(s)
		b.WriteByte(0)
	}
	return Value{Kind: KindStrings, Data: b.Bytes()}
}

// Bytes returns a byte-array value. The slice is copied.
func Bytes(b []byte) Value {
	return Value{Kind: KindBytes, Data: append([]byte(nil), b...)}
}

// Mixed concatenates parts into one mixed value. Nested mixed parts are
// flattened; a single part is returned unchanged.
func Mixed(parts ...Value) Value {
	if len(parts) == 1 {
		return parts[0].Clone()
	}
	var out Value
	out.Kind = KindMixed
	for _, p := range parts {
		base := len(out.Data)
		for _, r := range p.Refs {
			out.Refs = append(out.Refs, Ref{Offset: base + r.Offset, Target: r.Target})
		}
		if p.Kind == KindMixed {
			for _, s := range p.Segments {
				out.Segments = append(out.Segments, Segment{Kind: s.Kind, Off: base + s.Off, Len: s.Len})
			}
		} else if p.Kind != KindEmpty {
			out.Segments = append(out.Segments, Segment{Kind: p.Kind, Off: base, Len: len(p.Data)})
		}
		out.Data = append(out.Data, p.Data...)
	}
	return out
}

// Len returns the encoded size in bytes.
func (v Value) Len() int { return len(v.Data) }

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind}
	if v.Data != nil {
		out.Data = append([]byte(nil), v.Data...)
	}
	if v.Segments != nil {
		out.Segments = append([]Segment(nil), v.Segments...)
	}
	if v.Refs != nil {
		out.Refs = append([]Ref(nil), v.Refs...)
	}
	return out
}

// Equal reports whether v and o have the same kind, bytes and layout.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || !bytes.Equal(v.Data, o.Data) {
		return false
	}
	if len(v.Segments) != len(o.Segments) || len(v.Refs) != len(o.Refs) {
		return false
	}
	for i := range v.Segments {
		if v.Segments[i] != o.Segments[i] {
			return false
		}
	}
	for i := range v.Refs {
		if v.Refs[i] != o.Refs[i] {
			return false
		}
	}
	return true
}

// CellCount returns the number of whole cells in Data, and false when the
// length is not a multiple of CellSize.
func (v Value) CellCount() (int, bool) {
	if len(v.Data)%CellSize != 0 {
		return 0, false
	}
	return len(v.Data) / CellSize, true
}

// AsCells interprets Data as a cell array regardless of Kind. Raw cell
// arrays and phandle lists are indistinguishable by type alone, so
// reference scanning relies on the property name and this reinterpretation.
func (v Value) AsCells() ([]uint32, bool) {
	n, ok := v.CellCount()
	if !ok {
		return nil, false
	}
	cells := make([]uint32, n)
	for i := range cells {
		cells[i] = binary.BigEndian.Uint32(v.Data[i*CellSize:])
	}
	return cells, true
}

// Cell returns the i-th cell.
func (v Value) Cell(i int) (uint32, bool) {
	off := i * CellSize
	if i < 0 || off+CellSize > len(v.Data) {
		return 0, false
	}
	return binary.BigEndian.Uint32(v.Data[off:]), true
}

// SetCell overwrites the i-th cell in place. It returns false when i is out
// of range.
func (v Value) SetCell(i int, c uint32) bool {
	off := i * CellSize
	if i < 0 || off+CellSize > len(v.Data) {
		return false
	}
	binary.BigEndian.PutUint32(v.Data[off:], c)
	return true
}

// U32 returns the value of a single-cell property.
func (v Value) U32() (uint32, bool) {
	if len(v.Data) != CellSize {
		return 0, false
	}
	return binary.BigEndian.Uint32(v.Data), true
}

// RefAt returns the textual reference recorded for the cell at byte offset off.
func (v Value) RefAt(off int) (string, bool) {
	for _, r := range v.Refs {
		if r.Offset == off {
			return r.Target, true
		}
	}
	return "", false
}

// AsStrings splits Data into its NUL-terminated strings.
func (v Value) AsStrings() ([]string, bool) {
	if len(v.Data) == 0 || v.Data[len(v.Data)-1] != 0 {
		return nil, false
	}
	return strings.Split(string(v.Data[:len(v.Data)-1]), "\x00"), true
}

// AsString returns the first string of a string or string-list value.
func (v Value) AsString() (string, bool) {
	ss, ok := v.AsStrings()
	if !ok {
		return "", false
	}
	return ss[0], true
}
