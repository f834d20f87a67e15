package fdt

import (
	"bytes"
	"fmt"
	"os"

	"github.com/joshuapare/fdtkit/internal/buf"
	"github.com/joshuapare/fdtkit/internal/dtstext"
	"github.com/joshuapare/fdtkit/internal/format"
	"github.com/joshuapare/fdtkit/internal/reader"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// emptyTemplate is the template used when none is given.
const emptyTemplate = "/dts-v1/;\n\n/ {\n};\n"

// LoadBlob maps and decodes a .dtb file.
//
// Example:
//
//	tree, err := fdt.LoadBlob("board.dtb")
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadBlob(path string) (*Tree, error) {
	return reader.Open(path, reader.DecodeOptions{})
}

// DecodeBlob decodes blob bytes already in memory.
func DecodeBlob(b []byte) (*Tree, error) {
	return reader.Decode(b, reader.DecodeOptions{})
}

// ParseDTS parses device tree source text.
func ParseDTS(text []byte) (*Tree, error) {
	return dtstext.Parse(text)
}

// LoadDTS reads and parses a .dts file.
func LoadDTS(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Codec("read "+path, err)
	}
	tree, err := dtstext.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// LoadFile loads a blob or source file, choosing the codec by content:
// files starting with the FDT magic are blobs, everything else is text.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Codec("read "+path, err)
	}
	tree, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// Load decodes blob or source bytes, choosing the codec by content.
func Load(data []byte) (*Tree, error) {
	if IsBlob(data) {
		return DecodeBlob(data)
	}
	return ParseDTS(data)
}

// IsBlob reports whether data starts with the FDT magic.
func IsBlob(data []byte) bool {
	magic, ok := buf.ReadU32BE(data, format.HeaderMagicOffset)
	return ok && magic == format.Magic
}

// LoadTemplate loads a template tree. An empty path yields a tree holding
// only an empty root node.
func LoadTemplate(path string) (*Tree, error) {
	if path == "" {
		return dtstext.Parse([]byte(emptyTemplate))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.Codec("read template "+path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ast.NewTree(), nil
	}
	tree, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return tree, nil
}
