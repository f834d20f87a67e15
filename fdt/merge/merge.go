package merge

import (
	"errors"
	"log/slog"

	"github.com/joshuapare/fdtkit/internal/logger"
	"github.com/joshuapare/fdtkit/pkg/ast"
)

// CopiedProperty records one property that was copied from the donor.
type CopiedProperty struct {
	Source *ast.Node // donor node the value came from
	Target *ast.Node // destination node that received it
	Name   string
}

// Result summarizes one or more merges.
type Result struct {
	// Root is the destination node of the last Merge call.
	Root *ast.Node

	// Copied lists donor-origin properties in copy order.
	Copied []CopiedProperty

	// Nodes maps each donor node to the destination node it landed on.
	Nodes map[*ast.Node]*ast.Node

	Created           int // nodes created in the destination
	PropertiesCopied  int // donor properties added
	PropertiesKept    int // destination properties that won over a donor value
	PropertiesSkipped int // donor properties refused by SkipProperty
}

// Combine folds o into r. Root follows o.
func (r *Result) Combine(o *Result) {
	if o == nil {
		return
	}
	if r.Nodes == nil {
		r.Nodes = make(map[*ast.Node]*ast.Node, len(o.Nodes))
	}
	for k, v := range o.Nodes {
		r.Nodes[k] = v
	}
	r.Root = o.Root
	r.Copied = append(r.Copied, o.Copied...)
	r.Created += o.Created
	r.PropertiesCopied += o.PropertiesCopied
	r.PropertiesKept += o.PropertiesKept
	r.PropertiesSkipped += o.PropertiesSkipped
}

// IsCopied reports whether the named property on target came from the donor.
func (r *Result) IsCopied(target *ast.Node, name string) bool {
	for _, c := range r.Copied {
		if c.Target == target && c.Name == name {
			return true
		}
	}
	return false
}

var (
	// ErrNilNode is returned when the donor or destination parent is nil.
	ErrNilNode = errors.New("merge: nil node")

	// ErrEmptyName is returned for an empty target name.
	ErrEmptyName = errors.New("merge: empty target name")

	// ErrSelfMerge is returned when the destination lies inside the donor.
	ErrSelfMerge = errors.New("merge: destination inside donor")
)

// merger carries the options and accumulated result of one Merge call.
type merger struct {
	opts Options
	log  *slog.Logger
	res  *Result
}

// Merge grafts donor into parent under targetName. The donor is only read;
// every copied value is a deep copy.
func Merge(donor, parent *ast.Node, targetName string, opts Options) (*Result, error) {
	if donor == nil || parent == nil {
		return nil, ErrNilNode
	}
	if targetName == "" {
		return nil, ErrEmptyName
	}
	if donor.Contains(parent) {
		return nil, ErrSelfMerge
	}

	m := &merger{
		opts: opts,
		log:  opts.Logger,
		res:  &Result{Nodes: make(map[*ast.Node]*ast.Node)},
	}
	if m.log == nil {
		m.log = logger.L
	}

	m.res.Root = m.into(donor, parent, targetName, !opts.Shallow)
	return m.res, nil
}

// into merges donor into the child of parent named name and returns that child.
func (m *merger) into(donor, parent *ast.Node, name string, deep bool) *ast.Node {
	target := parent.Child(name)
	if target == nil {
		target = parent.AddChild(name)
		m.res.Created++
		m.log.Debug("merge: created node", "path", target.Path(), "from", donor.Path())
	}
	m.res.Nodes[donor] = target

	for _, p := range donor.Properties {
		if m.opts.skip(donor, p.Name) {
			m.res.PropertiesSkipped++
			continue
		}
		if !target.EnsureProperty(p.Name, p.Value.Clone()) {
			m.res.PropertiesKept++
			continue
		}
		m.res.PropertiesCopied++
		m.res.Copied = append(m.res.Copied, CopiedProperty{Source: donor, Target: target, Name: p.Name})
	}

	if !deep {
		return target
	}
	for _, c := range donor.Children {
		m.into(c, target, c.Name, true)
	}
	return target
}
