package refs

import (
	"github.com/joshuapare/fdtkit/internal/logger"
	"github.com/joshuapare/fdtkit/pkg/ast"
)

// Close returns every node transitively referenced from the subtrees of
// roots, excluding the roots and their descendants. Order is discovery
// order; each node appears once even when references form cycles.
func Close(s *Scanner, roots []*ast.Node) ([]*ast.Node, error) {
	var seeds []Reference
	for _, r := range roots {
		refs, err := s.ScanSubtree(r)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, refs...)
	}
	return CloseFrom(s, seeds, roots)
}

// CloseFrom expands an explicit seed set. Each newly reached node has its
// whole subtree scanned, except a node that is an ancestor of an excluded
// root: only its own properties count, so siblings of the root are not
// pulled in through it.
func CloseFrom(s *Scanner, seeds []Reference, exclude []*ast.Node) ([]*ast.Node, error) {
	visited := make(map[*ast.Node]bool)
	var out []*ast.Node
	queue := append([]Reference(nil), seeds...)

	for len(queue) > 0 {
		ref := queue[0]
		queue = queue[1:]

		t := ref.Target
		if t == nil || visited[t] || excluded(t, exclude) {
			continue
		}
		visited[t] = true
		out = append(out, t)
		logger.Debug("refs: pulled node", "path", t.Path(), "phandle", ref.Phandle,
			"from", ref.Node.Path(), "property", ref.Property)

		var more []Reference
		var err error
		if containsAny(t, exclude) {
			more, err = s.Scan(t)
		} else {
			more, err = s.ScanSubtree(t)
		}
		if err != nil {
			return nil, err
		}
		queue = append(queue, more...)
	}
	return out, nil
}

func excluded(n *ast.Node, roots []*ast.Node) bool {
	for _, r := range roots {
		if r.Contains(n) {
			return true
		}
	}
	return false
}

// containsAny reports whether n is a strict ancestor of one of roots.
func containsAny(n *ast.Node, roots []*ast.Node) bool {
	for _, r := range roots {
		if n.IsAncestorOf(r) {
			return true
		}
	}
	return false
}
