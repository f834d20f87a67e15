package reader

import "github.com/joshuapare/fdtkit/pkg/ast"

// restoreLabels attaches the labels listed in /__symbols__ to the nodes
// they name. Entries pointing at missing nodes are ignored.
func restoreLabels(t *ast.Tree) {
	syms := t.Root.Child(ast.SymbolsNode)
	if syms == nil {
		return
	}
	for _, p := range syms.Properties {
		path, ok := p.Value.AsString()
		if !ok {
			continue
		}
		if n := t.FindNode(path); n != nil {
			n.AddLabel(p.Name)
		}
	}
}
