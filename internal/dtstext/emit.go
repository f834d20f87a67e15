package dtstext

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/joshuapare/fdtkit/pkg/ast"
)

// emitter renders nodes in dtc's output style.
type emitter struct {
	buf  bytes.Buffer
	tree *ast.Tree
}

func (e *emitter) header() {
	e.buf.WriteString(VersionTag + Terminator + LF + LF)
	for _, r := range e.tree.MemReserve {
		fmt.Fprintf(&e.buf, "%s "+AddressFormat+" "+AddressFormat+Terminator+LF, MemReserveTag, r.Address, r.Size)
	}
	if len(e.tree.MemReserve) > 0 {
		e.buf.WriteString(LF)
	}
}

func (e *emitter) node(n *ast.Node, depth int) {
	indent := strings.Repeat(Indent, depth)
	e.buf.WriteString(indent)
	for _, l := range n.Labels {
		e.buf.WriteString(l + LabelSuffix + " ")
	}
	name := n.Name
	if n.Parent == nil && depth == 0 {
		name = RootPath
	}
	e.buf.WriteString(name + " " + NodeOpen + LF)

	for _, p := range n.Properties {
		e.buf.WriteString(indent + Indent)
		e.property(p)
	}
	for _, c := range n.Children {
		e.buf.WriteString(LF)
		e.node(c, depth+1)
	}
	e.buf.WriteString(indent + NodeClose + Terminator + LF)
}

func (e *emitter) property(p *ast.Property) {
	e.buf.WriteString(p.Name)
	if p.Value.Kind == ast.KindEmpty || p.Value.Len() == 0 {
		e.buf.WriteString(Terminator + LF)
		return
	}
	e.buf.WriteString(" " + Assignment + " ")
	e.value(p.Value)
	e.buf.WriteString(Terminator + LF)
}

func (e *emitter) value(v ast.Value) {
	if v.Kind != ast.KindMixed {
		e.segment(v, ast.Segment{Kind: v.Kind, Off: 0, Len: v.Len()})
		return
	}
	for i, s := range v.Segments {
		if i > 0 {
			e.buf.WriteString(PropertySep)
		}
		e.segment(v, s)
	}
}

func (e *emitter) segment(v ast.Value, s ast.Segment) {
	data := v.Data[s.Off : s.Off+s.Len]
	switch s.Kind {
	case ast.KindCells:
		if len(data)%ast.CellSize != 0 {
			e.bytes(data)
			return
		}
		e.buf.WriteString(CellsOpen)
		for i := 0; i < len(data); i += ast.CellSize {
			if i > 0 {
				e.buf.WriteByte(' ')
			}
			cell := binary.BigEndian.Uint32(data[i:])
			if ref, ok := e.reference(v, s.Off+i, cell); ok {
				e.buf.WriteString(ref)
				continue
			}
			fmt.Fprintf(&e.buf, CellFormat, cell)
		}
		e.buf.WriteString(CellsClose)
	case ast.KindString, ast.KindStrings:
		ss, ok := ast.Value{Data: data}.AsStrings()
		if !ok {
			e.bytes(data)
			return
		}
		for i, str := range ss {
			if i > 0 {
				e.buf.WriteString(PropertySep)
			}
			e.buf.WriteString(quote(str))
		}
	default:
		e.bytes(data)
	}
}

func (e *emitter) bytes(data []byte) {
	e.buf.WriteString(BytesOpen)
	for i, b := range data {
		if i > 0 {
			e.buf.WriteByte(' ')
		}
		fmt.Fprintf(&e.buf, ByteFormat, b)
	}
	e.buf.WriteString(BytesClose)
}

// reference returns the textual form of a recorded reference, but only
// while its target still resolves in the rendered tree to the phandle the
// cell holds. Anything else prints as a number.
func (e *emitter) reference(v ast.Value, off int, cell uint32) (string, bool) {
	target, ok := v.RefAt(off)
	if !ok || e.tree == nil {
		return "", false
	}
	var n *ast.Node
	if strings.HasPrefix(target, RootPath) {
		n = e.tree.FindNode(target)
	} else {
		n = e.tree.NodeByLabel(target)
	}
	if n == nil || n.Phandle() != cell {
		return "", false
	}
	if strings.HasPrefix(target, RootPath) {
		return PathRefOpen + target + PathRefClose, true
	}
	return RefPrefix + target, true
}

// quote renders s as a DTS string literal.
func quote(s string) string {
	var b strings.Builder
	b.WriteString(Quote)
	for i := range len(s) {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, `\x%02x`, c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteString(Quote)
	return b.String()
}
