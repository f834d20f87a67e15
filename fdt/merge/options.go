package merge

import (
	"log/slog"

	"github.com/joshuapare/fdtkit/pkg/ast"
)

// Options configures merge behavior.
//
// Use DefaultOptions() for a full additive merge.
type Options struct {
	// SkipProperty reports donor properties that must never be copied.
	// The node argument is the donor node. Nil copies everything.
	SkipProperty func(node *ast.Node, name string) bool

	// Shallow copies the donor's own properties and leaves its children
	// out. Used when the donor is an ancestor of content grafted elsewhere.
	Shallow bool

	// Logger receives debug records for created nodes. Nil uses the
	// process logger.
	Logger *slog.Logger
}

// DefaultOptions returns options for a deep merge that copies every property.
func DefaultOptions() Options {
	return Options{}
}

func (o Options) skip(n *ast.Node, name string) bool {
	return o.SkipProperty != nil && o.SkipProperty(n, name)
}
