// Package reader decodes flattened device tree blobs into ast trees. It is
// the only place where blob property bytes receive their value Kind.
package reader

import (
	"errors"
	"fmt"

	"github.com/joshuapare/fdtkit/internal/buf"
	"github.com/joshuapare/fdtkit/internal/format"
	"github.com/joshuapare/fdtkit/internal/mmfile"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// DecodeOptions controls value typing and label recovery.
type DecodeOptions struct {
	// CellHints forces the named properties to KindCells whenever their
	// length allows it. Nil selects DefaultCellHints.
	CellHints func(name string) bool

	// SkipSymbols disables restoring labels from /__symbols__.
	SkipSymbols bool
}

// Open maps the blob at path and decodes it. The mapping is released
// before Open returns; the tree owns copies of every value.
func Open(path string, opts DecodeOptions) (*ast.Tree, error) {
	data, unmap, err := mmfile.Map(path)
	if err != nil {
		return nil, types.Codec("open blob "+path, err)
	}
	defer func() { _ = unmap() }()
	return Decode(data, opts)
}

// Decode parses a complete blob.
func Decode(b []byte, opts DecodeOptions) (*ast.Tree, error) {
	hints := opts.CellHints
	if hints == nil {
		hints = DefaultCellHints
	}

	head, err := format.DecodeHeader(b)
	if err != nil {
		return nil, wrapFormatErr(err)
	}
	b = b[:head.TotalSize]

	tree := ast.NewTree()
	tree.BootCPU = head.BootCPU
	if tree.MemReserve, err = decodeReserveMap(b, int(head.OffMemRsv)); err != nil {
		return nil, wrapFormatErr(err)
	}

	strs := b[head.OffStrings : head.OffStrings+head.SizeStrings]
	structBlock := b[head.OffStruct : head.OffStruct+head.SizeStruct]
	d := &decoder{structs: structBlock, strs: strs, hints: hints}
	if tree.Root, err = d.decodeStruct(); err != nil {
		return nil, wrapFormatErr(err)
	}

	if !opts.SkipSymbols {
		restoreLabels(tree)
	}
	if err := tree.Reindex(); err != nil {
		return nil, types.Codec("decode blob", err)
	}
	return tree, nil
}

func decodeReserveMap(b []byte, off int) ([]ast.Reservation, error) {
	var out []ast.Reservation
	for {
		addr, ok1 := buf.ReadU64BE(b, off)
		size, ok2 := buf.ReadU64BE(b, off+8)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("reservation map: %w", format.ErrTruncated)
		}
		if addr == 0 && size == 0 {
			return out, nil
		}
		out = append(out, ast.Reservation{Address: addr, Size: size})
		off += format.ReserveEntrySize
	}
}

type decoder struct {
	structs []byte
	strs    []byte
	hints   func(string) bool
	off     int
}

func (d *decoder) token() (format.Token, error) {
	for {
		v, ok := buf.ReadU32BE(d.structs, d.off)
		if !ok {
			return 0, fmt.Errorf("struct block at %#x: %w", d.off, format.ErrTruncated)
		}
		d.off += format.TokenSize
		if format.Token(v) != format.TokenNop {
			return format.Token(v), nil
		}
	}
}

func (d *decoder) decodeStruct() (*ast.Node, error) {
	tok, err := d.token()
	if err != nil {
		return nil, err
	}
	if tok != format.TokenBeginNode {
		return nil, fmt.Errorf("struct block starts with %s: %w", tok, format.ErrToken)
	}
	root, err := d.decodeNode(0)
	if err != nil {
		return nil, err
	}
	root.Name = ""
	if tok, err = d.token(); err != nil {
		return nil, err
	}
	if tok != format.TokenEnd {
		return nil, fmt.Errorf("%s after root node: %w", tok, format.ErrToken)
	}
	return root, nil
}

// decodeNode decodes a node whose FDT_BEGIN_NODE token was just consumed.
func (d *decoder) decodeNode(depth int) (*ast.Node, error) {
	if depth > format.MaxDepth {
		return nil, fmt.Errorf("nesting deeper than %d: %w", format.MaxDepth, format.ErrLayout)
	}
	name, next, ok := buf.CString(d.structs, d.off)
	if !ok {
		return nil, fmt.Errorf("node name at %#x: %w", d.off, format.ErrTruncated)
	}
	d.off = format.Align4(next)
	node := ast.NewNode(name)

	for {
		tok, err := d.token()
		if err != nil {
			return nil, err
		}
		switch tok {
		case format.TokenProp:
			if len(node.Children) > 0 {
				return nil, fmt.Errorf("property after subnode in %q: %w", name, format.ErrToken)
			}
			prop, err := d.decodeProp()
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", name, err)
			}
			node.Properties = append(node.Properties, prop)
		case format.TokenBeginNode:
			child, err := d.decodeNode(depth + 1)
			if err != nil {
				return nil, err
			}
			if !node.AttachChild(child) {
				return nil, fmt.Errorf("duplicate node %q under %q: %w", child.Name, name, format.ErrLayout)
			}
		case format.TokenEndNode:
			return node, nil
		default:
			return nil, fmt.Errorf("%s inside node %q: %w", tok, name, format.ErrToken)
		}
	}
}

func (d *decoder) decodeProp() (*ast.Property, error) {
	size, ok1 := buf.ReadU32BE(d.structs, d.off)
	nameOff, ok2 := buf.ReadU32BE(d.structs, d.off+4)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("property header: %w", format.ErrTruncated)
	}
	d.off += format.PropHeaderSize
	data, ok := buf.Slice(d.structs, d.off, int(size))
	if !ok {
		return nil, fmt.Errorf("property value of %d bytes: %w", size, format.ErrTruncated)
	}
	d.off = format.Align4(d.off + int(size))

	name, _, ok := buf.CString(d.strs, int(nameOff))
	if !ok {
		return nil, fmt.Errorf("property name offset %d: %w", nameOff, format.ErrLayout)
	}
	return &ast.Property{Name: name, Value: typeValue(name, data, d.hints)}, nil
}

func wrapFormatErr(err error) error {
	switch {
	case errors.Is(err, format.ErrBadMagic):
		return types.Codec("not a device tree blob", err)
	case errors.Is(err, format.ErrTruncated):
		return types.Codec("device tree blob truncated", err)
	default:
		return types.Codec("corrupt device tree blob", err)
	}
}
