// Package writer encodes ast trees into flattened device tree blobs and
// exposes sinks for the encoded or rendered output.
package writer

import (
	"fmt"
	"strings"

	"github.com/joshuapare/fdtkit/internal/buf"
	"github.com/joshuapare/fdtkit/internal/format"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Encode serializes t as a version 17 blob:
//
//	header | reservation map | structure block | strings block
//
// Property names are deduplicated in the strings block. Value bytes are
// written exactly as stored; the Kind does not survive in the blob.
func Encode(t *ast.Tree) ([]byte, error) {
	e := &encoder{names: make(map[string]uint32)}
	if err := e.node(t.Root, true); err != nil {
		return nil, types.Codec("encode blob", err)
	}
	e.structs = buf.AppendU32BE(e.structs, uint32(format.TokenEnd))

	offRsv := format.Align8(format.HeaderSize)
	rsv := make([]byte, 0, (len(t.MemReserve)+1)*format.ReserveEntrySize)
	for _, r := range t.MemReserve {
		rsv = buf.AppendU64BE(rsv, r.Address)
		rsv = buf.AppendU64BE(rsv, r.Size)
	}
	rsv = buf.AppendU64BE(rsv, 0)
	rsv = buf.AppendU64BE(rsv, 0)

	offStruct := offRsv + len(rsv)
	offStrings := offStruct + len(e.structs)
	total := offStrings + len(e.strs)

	h := format.Header{
		TotalSize:   uint32(total),
		OffStruct:   uint32(offStruct),
		OffStrings:  uint32(offStrings),
		OffMemRsv:   uint32(offRsv),
		Version:     format.Version,
		LastComp:    format.LastCompatibleVersion,
		BootCPU:     t.BootCPU,
		SizeStrings: uint32(len(e.strs)),
		SizeStruct:  uint32(len(e.structs)),
	}
	out := make([]byte, 0, total)
	out = format.AppendHeader(out, h)
	for len(out) < offRsv {
		out = append(out, 0)
	}
	out = append(out, rsv...)
	out = append(out, e.structs...)
	out = append(out, e.strs...)
	return out, nil
}

type encoder struct {
	structs []byte
	strs    []byte
	names   map[string]uint32
}

func (e *encoder) node(n *ast.Node, root bool) error {
	name := n.Name
	if root {
		name = ""
	} else if name == "" || strings.ContainsAny(name, "\x00/") {
		return fmt.Errorf("invalid node name %q under %s", name, parentPath(n))
	}
	e.structs = buf.AppendU32BE(e.structs, uint32(format.TokenBeginNode))
	e.structs = append(e.structs, name...)
	e.structs = append(e.structs, 0)
	e.pad()

	for _, p := range n.Properties {
		if p.Name == "" || strings.IndexByte(p.Name, 0) >= 0 {
			return fmt.Errorf("invalid property name %q on %s", p.Name, n.Path())
		}
		e.structs = buf.AppendU32BE(e.structs, uint32(format.TokenProp))
		e.structs = buf.AppendU32BE(e.structs, uint32(len(p.Value.Data)))
		e.structs = buf.AppendU32BE(e.structs, e.nameOffset(p.Name))
		e.structs = append(e.structs, p.Value.Data...)
		e.pad()
	}
	for _, c := range n.Children {
		if err := e.node(c, false); err != nil {
			return err
		}
	}
	e.structs = buf.AppendU32BE(e.structs, uint32(format.TokenEndNode))
	return nil
}

func (e *encoder) pad() {
	for len(e.structs) != format.Align4(len(e.structs)) {
		e.structs = append(e.structs, 0)
	}
}

func (e *encoder) nameOffset(name string) uint32 {
	if off, ok := e.names[name]; ok {
		return off
	}
	off := uint32(len(e.strs))
	e.strs = append(e.strs, name...)
	e.strs = append(e.strs, 0)
	e.names[name] = off
	return off
}

func parentPath(n *ast.Node) string {
	if n.Parent == nil {
		return ast.PathSeparator
	}
	return n.Parent.Path()
}
