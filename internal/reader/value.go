package reader

import "github.com/joshuapare/fdtkit/pkg/ast"

// defaultCellNames are properties whose bytes are cells even when they
// happen to look printable.
var defaultCellNames = map[string]bool{
	ast.PropPhandle:       true,
	ast.PropLinuxPhandle:  true,
	ast.PropAddressCells:  true,
	ast.PropSizeCells:     true,
	ast.PropReg:           true,
	"ranges":              true,
	"dma-ranges":          true,
	"interrupts":          true,
	"interrupt-parent":    true,
	"interrupts-extended": true,
	"clocks":              true,
	"clock-frequency":     true,
	"#clock-cells":        true,
	"#interrupt-cells":    true,
	"#gpio-cells":         true,
	"memory-region":       true,
	"xen,reg":             true,
}

// DefaultCellHints reports whether name is a well-known cell property.
func DefaultCellHints(name string) bool {
	return defaultCellNames[name]
}

// typeValue assigns the value Kind the way a decompiler would: printable
// NUL-terminated text is a string (list), word-sized data is cells, anything
// else is bytes. The data is copied out of the blob buffer.
func typeValue(name string, data []byte, hints func(string) bool) ast.Value {
	if len(data) == 0 {
		return ast.Empty()
	}
	owned := append([]byte(nil), data...)
	if len(data)%ast.CellSize == 0 && hints(name) {
		return ast.Value{Kind: ast.KindCells, Data: owned}
	}
	if n, ok := stringCount(data); ok {
		if n == 1 {
			return ast.Value{Kind: ast.KindString, Data: owned}
		}
		return ast.Value{Kind: ast.KindStrings, Data: owned}
	}
	if len(data)%ast.CellSize == 0 {
		return ast.Value{Kind: ast.KindCells, Data: owned}
	}
	return ast.Value{Kind: ast.KindBytes, Data: owned}
}

// stringCount reports how many NUL-terminated printable strings data holds.
// Empty strings disqualify the value.
func stringCount(data []byte) (int, bool) {
	if data[len(data)-1] != 0 {
		return 0, false
	}
	n := 0
	start := 0
	for i, c := range data {
		if c == 0 {
			if i == start {
				return 0, false
			}
			n++
			start = i + 1
			continue
		}
		if !printable(c) {
			return 0, false
		}
	}
	return n, true
}

func printable(c byte) bool {
	return (c >= 0x20 && c < 0x7f) || c == '\t' || c == '\n' || c == '\r'
}
