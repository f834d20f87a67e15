package fdt

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joshuapare/fdtkit/internal/dtstext"
	"github.com/joshuapare/fdtkit/internal/writer"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Format selects the output encoding.
type Format int

const (
	// FormatAuto picks the format from the output file extension: ".dtb"
	// and ".dtbo" are blobs, anything else is source text.
	FormatAuto Format = iota
	FormatDTS
	FormatDTB
)

// ParseFormat parses a format name: "dts", "dtb" or "" for FormatAuto.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "auto":
		return FormatAuto, nil
	case "dts":
		return FormatDTS, nil
	case "dtb":
		return FormatDTB, nil
	default:
		return FormatAuto, types.Config("unknown output format %q (want dts or dtb)", name)
	}
}

func (f Format) String() string {
	switch f {
	case FormatDTS:
		return "dts"
	case FormatDTB:
		return "dtb"
	default:
		return "auto"
	}
}

// Resolve returns the concrete format for path.
func (f Format) Resolve(path string) Format {
	if f != FormatAuto {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dtb", ".dtbo":
		return FormatDTB
	default:
		return FormatDTS
	}
}

// RenderDTS renders t as device tree source.
func RenderDTS(t *Tree) []byte {
	return dtstext.Render(t)
}

// RenderNodeDTS renders the subtree at n as a source fragment.
func RenderNodeDTS(t *Tree, n *Node) []byte {
	return dtstext.RenderNode(t, n)
}

// EncodeBlob encodes t as a version 17 blob.
func EncodeBlob(t *Tree) ([]byte, error) {
	return writer.Encode(t)
}

// Encode renders t in format f. FormatAuto renders text.
func Encode(t *Tree, f Format) ([]byte, error) {
	if f == FormatDTB {
		return EncodeBlob(t)
	}
	return RenderDTS(t), nil
}

// WriteFile encodes t and writes it to path atomically.
//
// Example:
//
//	err := fdt.WriteFile(res.Tree, "passthrough.dtb", fdt.FormatAuto)
func WriteFile(t *Tree, path string, f Format) error {
	data, err := Encode(t, f.Resolve(path))
	if err != nil {
		return err
	}
	w := &writer.FileWriter{Path: path}
	if err := w.WriteAll(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FindNode resolves path in t, accepting "&label" anchors.
func FindNode(t *Tree, path string) (*Node, error) {
	return ast.Resolve(t, path)
}
