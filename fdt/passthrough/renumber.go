package passthrough

import (
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// renumber gives every grafted node a phandle that is unique in the output
// and rewrites donor-origin reference cells to match.
//
// A grafted node keeps its source phandle unless a template node already
// owns that value, in which case it receives MaxPhandle()+1. When the
// landing node came from the template with its own phandle, references are
// redirected to that phandle instead.
func renumber(out, src *ast.Tree, pl *Placement, c *compiled) error {
	mapping := make(map[uint32]uint32)
	for _, g := range pl.Grafts {
		err := walkGraft(g, func(s *ast.Node) error {
			ps := s.Phandle()
			o := pl.Merge.Nodes[s]
			if ps == 0 || o == nil {
				return nil
			}
			po := o.Phandle()
			if po == ps {
				if owner := pl.Reserved[ps]; owner != nil && owner != o {
					po = out.MaxPhandle() + 1
					o.SetPhandle(po)
					c.Logger.Debug("passthrough: renumbered phandle",
						"path", o.Path(), "from", ps, "to", po, "template_owner", owner.Path())
				}
			}
			mapping[ps] = po
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := out.Reindex(); err != nil {
		return err
	}

	s := c.scanner(src)
	for _, cp := range pl.Merge.Copied {
		sp := cp.Source.Property(cp.Name)
		op := cp.Target.Property(cp.Name)
		if sp == nil || op == nil {
			continue
		}
		refs, err := s.ScanProperty(cp.Source, sp)
		if err != nil {
			return err
		}
		for _, r := range refs {
			if r.Target == nil {
				continue
			}
			np, ok := mapping[r.Phandle]
			if !ok {
				return types.DanglingReference(cp.Target.Path(), cp.Name, r.Phandle)
			}
			op.Value.SetCell(r.Index, np)
		}
	}
	pl.Phandles = mapping
	return nil
}

// walkGraft visits the source nodes a graft copied.
func walkGraft(g Graft, fn func(*ast.Node) error) error {
	if g.Shallow {
		return fn(g.Source)
	}
	return g.Source.Walk(fn)
}

// validate checks that every reference in the output resolves, either to an
// output node or to an external phandle.
func validate(out *ast.Tree, c *compiled) error {
	if err := out.Reindex(); err != nil {
		return err
	}
	s := c.scanner(out)
	s.Skip = nil
	_, err := s.ScanSubtree(out.Root)
	return err
}
