// Package dtstext converts between device tree source text and ast trees.
package dtstext

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Parse parses DTS source. A UTF-8 or UTF-16 byte order mark selects the
// input encoding; text without one is read as UTF-8.
//
// Syntax and reference errors are returned as CodecError values wrapping a
// *ParseError with the line and column.
func Parse(text []byte) (*ast.Tree, error) {
	src, err := decodeInput(text)
	if err != nil {
		return nil, types.Codec("decode dts text", err)
	}
	t, err := parse(src)
	if err != nil {
		return nil, types.Codec("parse dts", err)
	}
	return t, nil
}

// Render emits the whole tree as DTS text.
func Render(t *ast.Tree) []byte {
	e := &emitter{tree: t}
	e.header()
	e.node(t.Root, 0)
	return e.buf.Bytes()
}

// RenderNode emits one node and its subtree. References are printed
// symbolically when they resolve in t; t may be nil.
func RenderNode(t *ast.Tree, n *ast.Node) []byte {
	e := &emitter{tree: t}
	e.node(n, 0)
	return e.buf.Bytes()
}

// decodeInput strips a byte order mark, converting UTF-16 input to UTF-8.
func decodeInput(text []byte) ([]byte, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, text)
	if err != nil {
		return nil, err
	}
	return out, nil
}
