package passthrough

import (
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// region is one decoded reg entry.
type region struct {
	addr uint64
	size uint64
}

// regions decodes the reg property of n using its parent's cell widths.
func regions(n *ast.Node) ([]region, error) {
	p := n.Property(ast.PropReg)
	if p == nil {
		return nil, nil
	}
	ac, sc := n.Parent.CellWidths()
	cells, ok := p.Value.AsCells()
	if !ok {
		return nil, types.MalformedProperty(n.Path(), p.Name, "length %d is not a multiple of 4", p.Value.Len())
	}
	stride := ac + sc
	if stride == 0 || len(cells)%stride != 0 {
		return nil, types.MalformedProperty(n.Path(), p.Name,
			"%d cells do not divide into entries of %d address and %d size cells", len(cells), ac, sc)
	}
	if ac > 2 || sc > 2 {
		return nil, types.MalformedProperty(n.Path(), p.Name,
			"entries of %d address and %d size cells exceed 64 bits", ac, sc)
	}
	out := make([]region, 0, len(cells)/stride)
	for i := 0; i < len(cells); i += stride {
		out = append(out, region{
			addr: joinCells(cells[i : i+ac]),
			size: joinCells(cells[i+ac : i+stride]),
		})
	}
	return out, nil
}

func joinCells(cells []uint32) uint64 {
	var v uint64
	for _, c := range cells {
		v = v<<32 | uint64(c)
	}
	return v
}

// appendCells encodes v as n big-endian cells and reports whether it fit.
func appendCells(dst []uint32, v uint64, n int) ([]uint32, bool) {
	if n == 0 {
		return dst, v == 0
	}
	if n == 1 && v>>32 != 0 {
		return dst, false
	}
	if n == 2 {
		dst = append(dst, uint32(v>>32))
	}
	return append(dst, uint32(v)), true
}

// xenReg computes the xen,reg value for source node n in the cell widths of
// its source bus.
func xenReg(src *ast.Tree, n *ast.Node, pageSize uint64) (ast.Value, bool, error) {
	ac, sc := n.Parent.CellWidths()
	return xenRegIn(src, n, pageSize, ac, sc)
}

// xenRegIn computes the xen,reg value for source node n: its own reg entries
// followed by those of its memory-region targets, each rounded out to whole
// pages and written as <addr size addr> in ac address and sc size cells. It
// returns false when sc is 0 or no regions exist.
func xenRegIn(src *ast.Tree, n *ast.Node, pageSize uint64, ac, sc int) (ast.Value, bool, error) {
	if sc == 0 {
		return ast.Value{}, false, nil
	}

	regs, err := regions(n)
	if err != nil {
		return ast.Value{}, false, err
	}
	if mr := n.Property(memoryRegionProperty); mr != nil {
		phandles, ok := mr.Value.AsCells()
		if !ok {
			return ast.Value{}, false, types.MalformedProperty(n.Path(), mr.Name, "length %d is not a multiple of 4", mr.Value.Len())
		}
		for _, ph := range phandles {
			target := src.NodeByPhandle(ph)
			if target == nil {
				return ast.Value{}, false, types.DanglingReference(n.Path(), mr.Name, ph)
			}
			more, err := regions(target)
			if err != nil {
				return ast.Value{}, false, err
			}
			regs = append(regs, more...)
		}
	}
	if len(regs) == 0 {
		return ast.Value{}, false, nil
	}

	mask := pageSize - 1
	var cells []uint32
	for _, r := range regs {
		start := r.addr &^ mask
		end := (r.addr + r.size + mask) &^ mask
		var ok1, ok2, ok3 bool
		cells, ok1 = appendCells(cells, start, ac)
		cells, ok2 = appendCells(cells, end-start, sc)
		cells, ok3 = appendCells(cells, start, ac)
		if !ok1 || !ok2 || !ok3 {
			return ast.Value{}, false, types.MalformedProperty(n.Path(), xenRegProperty,
				"region 0x%x+0x%x does not fit in %d address and %d size cells", r.addr, r.size, ac, sc)
		}
	}
	return ast.Cells(cells...), true, nil
}

// fitReg re-encodes every donor-copied reg whose output bus declares other
// cell widths than the source bus. Template-kept reg values are untouched.
// The value is always rebuilt from the source, so running it twice is a
// no-op.
func fitReg(pl *Placement) error {
	for _, cp := range pl.Merge.Copied {
		if cp.Name != ast.PropReg || cp.Source.Parent == nil || cp.Target.Parent == nil {
			continue
		}
		ac, sc := cp.Target.Parent.CellWidths()
		sac, ssc := cp.Source.Parent.CellWidths()
		if ac == sac && sc == ssc {
			continue
		}
		regs, err := regions(cp.Source)
		if err != nil {
			return err
		}
		var cells []uint32
		for _, r := range regs {
			var okAddr, okSize bool
			cells, okAddr = appendCells(cells, r.addr, ac)
			cells, okSize = appendCells(cells, r.size, sc)
			if !okAddr || !okSize {
				return types.MalformedProperty(cp.Target.Path(), ast.PropReg,
					"region 0x%x+0x%x from %s does not fit in %d address and %d size cells of %s",
					r.addr, r.size, cp.Source.Path(), ac, sc, cp.Target.Parent.Path())
			}
		}
		cp.Target.SetProperty(ast.PropReg, ast.Cells(cells...))
	}
	return nil
}
