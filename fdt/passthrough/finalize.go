package passthrough

import (
	"strings"

	"github.com/joshuapare/fdtkit/fdt/merge"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Graft records one donor subtree placed into the output.
type Graft struct {
	Source  *ast.Node // node in the source tree
	Target  *ast.Node // node it landed on in the output
	Shallow bool      // properties only; children were not copied
}

// Placement describes what the merge stage put where. Finalize reads it and
// records the phandle translation it applied.
type Placement struct {
	// Path is the absolute source path of the grafted root.
	Path string

	// Grafts lists the grafted root first, then each pulled-in node in
	// discovery order.
	Grafts []Graft

	// Merge holds the combined provenance of every graft.
	Merge *merge.Result

	// Reserved maps the phandles the template already used to their nodes,
	// captured before any graft.
	Reserved map[uint32]*ast.Node

	// Phandles maps source phandles to their output values. Filled in by
	// Finalize.
	Phandles map[uint32]uint32
}

// Root returns the grafted root.
func (pl *Placement) Root() Graft {
	return pl.Grafts[0]
}

// Finalize makes the output self-consistent after all grafts settle: cell
// declarations on ancestors, reg re-encoded where the output bus widths
// differ from the source, markers, xen,reg, phandle translation and a final
// reference check over the whole output. It only inserts properties
// and rewrites reference cells, and running it twice changes nothing.
func Finalize(out, src *ast.Tree, pl *Placement, opts Options) error {
	c, err := opts.compile()
	if err != nil {
		return err
	}
	if len(pl.Grafts) == 0 {
		return types.Config("placement has no grafted root")
	}

	for _, g := range pl.Grafts {
		ensureCells(src, g)
	}
	if err := fitReg(pl); err != nil {
		return err
	}
	addMarkers(pl, c)
	if c.XenReg {
		if err := addXenReg(src, pl, c); err != nil {
			return err
		}
	}
	if err := renumber(out, src, pl, c); err != nil {
		return err
	}
	return validate(out, c)
}

// ensureCells copies #address-cells and #size-cells from the source
// counterpart of each output ancestor of g when the output lacks them. The
// direct parents always correspond, even when the source parent is the
// root, as do the two roots; intermediate ancestors pair level by level
// while both sides have depth left.
func ensureCells(src *ast.Tree, g Graft) {
	sp := g.Source.Parent
	for a := g.Target.Parent; a != nil; a = a.Parent {
		switch {
		case a == g.Target.Parent && sp != nil:
			copyCells(a, sp)
		case a.Parent == nil:
			copyCells(a, src.Root)
		case sp != nil && sp.Parent != nil:
			copyCells(a, sp)
		}
		if sp != nil {
			sp = sp.Parent
		}
	}
}

func copyCells(dst, src *ast.Node) {
	for _, name := range []string{ast.PropAddressCells, ast.PropSizeCells} {
		if p := src.Property(name); p != nil {
			dst.EnsureProperty(name, p.Value.Clone())
		}
	}
}

func addMarkers(pl *Placement, c *compiled) {
	root := pl.Root().Target
	for _, m := range c.RootMarkers {
		root.EnsureProperty(m.Name, expandMarker(m.Value, pl.Path))
	}
	if root.Parent == nil {
		return
	}
	for _, m := range c.ContainerMarkers {
		root.Parent.EnsureProperty(m.Name, expandMarker(m.Value, pl.Path))
	}
}

// expandMarker substitutes PathPlaceholder in string values.
func expandMarker(v ast.Value, path string) ast.Value {
	if v.Kind != ast.KindString && v.Kind != ast.KindStrings {
		return v.Clone()
	}
	ss, ok := v.AsStrings()
	if !ok {
		return v.Clone()
	}
	for i, s := range ss {
		ss[i] = strings.ReplaceAll(s, PathPlaceholder, path)
	}
	return ast.Strings(ss...)
}

// addXenReg writes xen,reg on the grafted root and every node of its
// subtree that yields regions.
func addXenReg(src *ast.Tree, pl *Placement, c *compiled) error {
	root := pl.Root()
	return root.Source.Walk(func(s *ast.Node) error {
		o := pl.Merge.Nodes[s]
		if o == nil {
			return nil
		}
		ac, sc := o.Parent.CellWidths()
		v, ok, err := xenRegIn(src, s, c.PageSize, ac, sc)
		if err != nil || !ok {
			return err
		}
		o.EnsureProperty(xenRegProperty, v)
		return nil
	})
}
