package passthrough

import (
	"fmt"

	"github.com/joshuapare/fdtkit/fdt/merge"
	"github.com/joshuapare/fdtkit/fdt/refs"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Result is the outcome of a successful Run.
type Result struct {
	// Tree is the output: a modified deep copy of the template.
	Tree *ast.Tree

	// Root is the grafted passthrough node in Tree.
	Root *ast.Node

	// Pulled lists the source nodes pulled in by reference, in discovery order.
	Pulled []*ast.Node

	// Placement describes every graft and the applied phandle translation.
	Placement *Placement

	// Stage is the last completed stage.
	Stage types.Stage
}

// Grafted returns the output nodes the pulled-in source nodes landed on,
// in discovery order. Pulled nodes nested in another graft map to their
// copy inside it.
func (r *Result) Grafted() []*ast.Node {
	out := make([]*ast.Node, 0, len(r.Pulled))
	for _, p := range r.Pulled {
		if n := r.Placement.Merge.Nodes[p]; n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Run extracts the node at nodePath from src, grafts it and everything it
// references into a copy of template, and finalizes the copy. Neither input
// tree is modified. A failure is a *types.StageError naming the stage.
func Run(src, template *ast.Tree, nodePath string, opts Options) (*Result, error) {
	r := &runner{src: src, nodePath: nodePath}
	out, err := r.run(template, opts)
	if err != nil {
		return nil, &types.StageError{Stage: r.stage, Err: err}
	}
	return out, nil
}

type runner struct {
	src      *ast.Tree
	nodePath string
	stage    types.Stage
	c        *compiled
}

func (r *runner) run(template *ast.Tree, opts Options) (*Result, error) {
	// Loaded
	r.stage = types.StageLoaded
	if r.src == nil || template == nil {
		return nil, types.Config("source and template trees are required")
	}
	c, err := opts.compile()
	if err != nil {
		return nil, err
	}
	r.c = c
	if err := r.src.Reindex(); err != nil {
		return nil, fmt.Errorf("source tree: %w", err)
	}
	out := template.Clone()
	if err := out.Reindex(); err != nil {
		return nil, fmt.Errorf("template tree: %w", err)
	}
	reserved := phandleOwners(out)

	// Resolved
	r.stage = types.StageResolved
	root, err := ast.Resolve(r.src, r.nodePath)
	if err != nil {
		return nil, err
	}
	if root.Parent == nil {
		return nil, types.Config("the root node cannot be passed through")
	}
	c.Logger.Debug("passthrough: resolved", "path", root.Path())

	// Merged
	r.stage = types.StageMerged
	pl := &Placement{Path: root.Path(), Reserved: reserved, Merge: &merge.Result{Nodes: map[*ast.Node]*ast.Node{}}}
	g, err := r.graft(out, root, false, pl)
	if err != nil {
		return nil, err
	}
	pl.Grafts = append(pl.Grafts, g)
	c.Logger.Debug("passthrough: merged", "path", g.Target.Path(),
		"created", pl.Merge.Created, "copied", pl.Merge.PropertiesCopied, "kept", pl.Merge.PropertiesKept)

	// ClosureComputed
	r.stage = types.StageClosureComputed
	pulled, err := r.closure(pl)
	if err != nil {
		return nil, err
	}
	landed := make(map[*ast.Node]*ast.Node)
	for _, p := range pulled {
		if nested(p, pulled, root) {
			continue
		}
		shallow := p.IsAncestorOf(root)
		g, err := r.graft(out, p, shallow, pl)
		if err != nil {
			return nil, err
		}
		if prev, dup := landed[g.Target]; dup {
			return nil, types.Config("pulled nodes %s and %s both land on %s; use an empty container to mirror source paths",
				prev.Path(), p.Path(), g.Target.Path())
		}
		landed[g.Target] = p
		pl.Grafts = append(pl.Grafts, g)
		c.Logger.Debug("passthrough: pulled", "path", p.Path(), "to", g.Target.Path(), "shallow", shallow)
	}

	// Finalized
	r.stage = types.StageFinalized
	if err := Finalize(out, r.src, pl, opts); err != nil {
		return nil, err
	}
	c.Logger.Debug("passthrough: finalized", "phandles", len(pl.Phandles))

	return &Result{
		Tree:      out,
		Root:      pl.Grafts[0].Target,
		Pulled:    pulled,
		Placement: pl,
		Stage:     types.StageFinalized,
	}, nil
}

// graft merges src node n into out at its placement and folds the merge
// provenance into pl.
func (r *runner) graft(out *ast.Tree, n *ast.Node, shallow bool, pl *Placement) (Graft, error) {
	parent := r.parentFor(out, n)
	res, err := merge.Merge(n, parent, n.Name, merge.Options{
		SkipProperty: r.c.stripped,
		Shallow:      shallow,
		Logger:       r.c.Logger,
	})
	if err != nil {
		return Graft{}, err
	}
	pl.Merge.Combine(res)
	return Graft{Source: n, Target: res.Root, Shallow: shallow}, nil
}

// parentFor returns the output node that receives n: the container, or
// the mirrored source parent when no container is configured.
func (r *runner) parentFor(out *ast.Tree, n *ast.Node) *ast.Node {
	if r.c.Container != "" {
		return ast.EnsurePath(out, r.c.Container)
	}
	return ast.EnsurePath(out, n.Parent.Path())
}

// closure computes the nodes referenced by donor-origin properties of the
// grafted root, transitively through the source tree.
func (r *runner) closure(pl *Placement) ([]*ast.Node, error) {
	root := pl.Root().Source
	s := r.c.scanner(r.src)
	var seeds []refs.Reference
	for _, cp := range pl.Merge.Copied {
		p := cp.Source.Property(cp.Name)
		if p == nil {
			continue
		}
		found, err := s.ScanProperty(cp.Source, p)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, found...)
	}
	return refs.CloseFrom(s, refs.Dedup(seeds), []*ast.Node{root})
}

// nested reports whether n is copied as part of another pulled node's deep
// graft. Pulled ancestors of the root are grafted shallow and cover nothing.
func nested(n *ast.Node, pulled []*ast.Node, root *ast.Node) bool {
	for _, q := range pulled {
		if q != n && q.IsAncestorOf(n) && !q.IsAncestorOf(root) {
			return true
		}
	}
	return false
}

func phandleOwners(t *ast.Tree) map[uint32]*ast.Node {
	owners := make(map[uint32]*ast.Node)
	_ = t.Root.Walk(func(n *ast.Node) error {
		if p := n.Phandle(); p != 0 {
			owners[p] = n
		}
		return nil
	})
	return owners
}
