package fdt

import (
	"github.com/joshuapare/fdtkit/fdt/refs"
)

// Reference is one phandle occurrence inside a property.
type Reference = refs.Reference

// ReferenceTable returns the default reference table extended with the
// additions in opts.
func ReferenceTable(opts Options) *refs.Table {
	table := refs.DefaultTable()
	for name, cells := range opts.References {
		table.Add(name, cells)
	}
	return table
}

func scanner(t *Tree, opts Options) *refs.Scanner {
	return &refs.Scanner{Tree: t, Table: ReferenceTable(opts), External: opts.External}
}

// References returns every reference held by n and its descendants.
func References(t *Tree, n *Node, opts Options) ([]Reference, error) {
	if err := t.Reindex(); err != nil {
		return nil, err
	}
	return scanner(t, opts).ScanSubtree(n)
}

// DedupReferences keeps the first reference per (node, property, target).
func DedupReferences(found []Reference) []Reference {
	return refs.Dedup(found)
}

// Closure returns the nodes outside n that n's subtree references,
// transitively, in discovery order.
func Closure(t *Tree, n *Node, opts Options) ([]*Node, error) {
	if err := t.Reindex(); err != nil {
		return nil, err
	}
	return refs.Close(scanner(t, opts), []*Node{n})
}
