package refs

import (
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Reference is one phandle occurrence inside a property.
type Reference struct {
	Node     *ast.Node // node holding the property
	Property string
	Index    int // cell index of the phandle within the value
	Phandle  uint32
	Target   *ast.Node // nil for an external phandle
}

// Scanner resolves references against one tree.
type Scanner struct {
	Tree  *ast.Tree
	Table *Table

	// External lists phandles provided outside the tree, mapped to the
	// number of argument cells their specifiers carry. They resolve to a
	// nil Target instead of failing.
	External map[uint32]int

	// Skip reports properties to ignore. Nil scans everything.
	Skip func(n *ast.Node, name string) bool
}

// NewScanner returns a scanner over t with the default table.
func NewScanner(t *ast.Tree) *Scanner {
	return &Scanner{Tree: t, Table: DefaultTable()}
}

// Scan returns every reference held by n's own properties, in property order.
func (s *Scanner) Scan(n *ast.Node) ([]Reference, error) {
	var out []Reference
	for _, p := range n.Properties {
		if s.Skip != nil && s.Skip(n, p.Name) {
			continue
		}
		refs, err := s.ScanProperty(n, p)
		if err != nil {
			return nil, err
		}
		out = append(out, refs...)
	}
	return out, nil
}

// ScanSubtree scans n and all of its descendants in pre-order.
func (s *Scanner) ScanSubtree(n *ast.Node) ([]Reference, error) {
	var out []Reference
	err := n.Walk(func(cur *ast.Node) error {
		refs, err := s.Scan(cur)
		if err != nil {
			return err
		}
		out = append(out, refs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ScanProperty decodes the references in one property. Properties missing
// from the table yield nothing.
func (s *Scanner) ScanProperty(n *ast.Node, p *ast.Property) ([]Reference, error) {
	table := s.Table
	if table == nil {
		table = DefaultTable()
	}
	cellsName, ok := table.Lookup(p.Name)
	if !ok {
		return nil, nil
	}
	cells, ok := p.Value.AsCells()
	if !ok {
		return nil, types.MalformedProperty(n.Path(), p.Name, "length %d is not a multiple of 4", p.Value.Len())
	}

	var out []Reference
	for i := 0; i < len(cells); {
		ph := cells[i]
		if ph == 0 {
			i++
			continue
		}
		ref := Reference{Node: n, Property: p.Name, Index: i, Phandle: ph}
		target, args, err := s.resolve(n, p.Name, ph, cellsName)
		if err != nil {
			return nil, err
		}
		if i+1+args > len(cells) {
			return nil, types.MalformedProperty(n.Path(), p.Name,
				"specifier at cell %d needs %d argument cells, %d left", i, args, len(cells)-i-1)
		}
		ref.Target = target
		out = append(out, ref)
		i += 1 + args
	}
	return out, nil
}

// resolve finds the target of phandle ph and the number of argument cells
// that follow it.
func (s *Scanner) resolve(n *ast.Node, prop string, ph uint32, cellsName string) (*ast.Node, int, error) {
	target := s.Tree.NodeByPhandle(ph)
	if target == nil {
		args, ok := s.External[ph]
		if !ok {
			return nil, 0, types.DanglingReference(n.Path(), prop, ph)
		}
		if cellsName == "" {
			args = 0
		}
		return nil, args, nil
	}
	if cellsName == "" {
		return target, 0, nil
	}
	args, ok := target.U32Property(cellsName)
	if !ok {
		return nil, 0, types.MalformedProperty(n.Path(), prop,
			"target %s of phandle 0x%x has no %s", target.Path(), ph, cellsName)
	}
	return target, int(args), nil
}

// Dedup collapses references to one per (node, property, target), keeping
// the first occurrence. External references collapse by phandle.
func Dedup(refs []Reference) []Reference {
	type key struct {
		node    *ast.Node
		prop    string
		target  *ast.Node
		phandle uint32
	}
	seen := make(map[key]bool, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, r := range refs {
		k := key{node: r.Node, prop: r.Property, target: r.Target}
		if r.Target == nil {
			k.phandle = r.Phandle
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
