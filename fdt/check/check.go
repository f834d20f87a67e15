// Package check validates a whole device tree and reports every issue it
// finds instead of stopping at the first one. It backs the validate
// command and is safe to run on trees that passthrough would reject.
package check

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/fdtkit/fdt/refs"
	"github.com/joshuapare/fdtkit/pkg/ast"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Options configures a check.
type Options struct {
	// Limits bounds names and structure. The zero value disables every
	// limit; use ast.DefaultLimits() for the usual bounds.
	Limits ast.Limits

	// Table selects reference-bearing properties; nil uses refs.DefaultTable.
	Table *refs.Table

	// External phandles resolve without a node, as in passthrough options.
	External map[uint32]int

	// Source names the checked input in the report.
	Source string
}

// DefaultOptions returns the default limits and reference table.
func DefaultOptions() Options {
	return Options{Limits: ast.DefaultLimits()}
}

// checker encapsulates the state for one full check.
type checker struct {
	tree     *ast.Tree
	opts     Options
	report   *types.DiagnosticReport
	phandles map[uint32]*ast.Node
	warned   map[*ast.Node]bool
	badIndex bool
}

// Check runs every check over t and returns the finalized report. t is not
// modified.
func Check(t *ast.Tree, opts Options) *types.DiagnosticReport {
	c := &checker{
		tree:     t,
		opts:     opts,
		report:   types.NewDiagnosticReport(),
		phandles: make(map[uint32]*ast.Node),
		warned:   make(map[*ast.Node]bool),
	}
	c.report.Source = opts.Source

	// Phase 1: tree-wide limits
	c.checkTreeLimits()

	// Phase 2: per-node structure and phandles
	_ = t.Root.Walk(func(n *ast.Node) error {
		c.report.Nodes++
		c.checkNodeLimits(n)
		c.checkPhandle(n)
		c.checkReg(n)
		return nil
	})

	// Phase 3: references, against a private copy so t keeps its index
	c.checkReferences()

	c.report.Finalize()
	return c.report
}

func (c *checker) add(sev types.Severity, cat types.DiagCategory, n *ast.Node, prop, format string, args ...any) {
	c.report.Add(types.Diagnostic{
		Severity: sev,
		Category: cat,
		Path:     n.Path(),
		Property: prop,
		Issue:    fmt.Sprintf(format, args...),
	})
}

func (c *checker) checkTreeLimits() {
	if depth, err := c.tree.ValidateTreeDepth(c.opts.Limits); err != nil {
		c.report.Add(types.Diagnostic{
			Severity: types.SevError,
			Category: types.DiagLimits,
			Path:     ast.PathSeparator,
			Issue:    "tree is nested too deeply",
			Expected: c.opts.Limits.MaxTreeDepth,
			Actual:   depth,
		})
	}
	if size, err := c.tree.ValidateTreeSize(c.opts.Limits); err != nil {
		c.report.Add(types.Diagnostic{
			Severity: types.SevError,
			Category: types.DiagLimits,
			Path:     ast.PathSeparator,
			Issue:    "encoded tree is too large",
			Expected: c.opts.Limits.MaxTotalSize,
			Actual:   size,
		})
	}
}

// checkNodeLimits reports every limit n breaks. Name lengths are warnings;
// vendor trees exceed them routinely.
func (c *checker) checkNodeLimits(n *ast.Node) {
	l := c.opts.Limits
	nameOnly := ast.Limits{MaxNodeNameLen: l.MaxNodeNameLen}
	if err := (&ast.Node{Name: n.Name}).ValidateNode(nameOnly); err != nil {
		c.limit(types.SevWarning, n, err)
	}
	counts := ast.Limits{MaxChildren: l.MaxChildren, MaxProperties: l.MaxProperties}
	if err := (&ast.Node{Children: n.Children, Properties: n.Properties}).ValidateNode(counts); err != nil {
		c.limit(types.SevError, n, err)
	}
	for _, p := range n.Properties {
		if err := p.ValidateProperty(ast.Limits{MaxPropertyNameLen: l.MaxPropertyNameLen}); err != nil {
			c.limit(types.SevWarning, n, err)
		}
		if err := p.ValidateProperty(ast.Limits{MaxValueSize: l.MaxValueSize}); err != nil {
			c.limit(types.SevError, n, err)
		}
	}
}

func (c *checker) limit(sev types.Severity, n *ast.Node, err error) {
	var ve *ast.ValidationError
	if !errors.As(err, &ve) {
		c.add(sev, types.DiagLimits, n, "", "%v", err)
		return
	}
	c.report.Add(types.Diagnostic{
		Severity: sev,
		Category: types.DiagLimits,
		Path:     n.Path(),
		Property: ve.Property,
		Issue:    ve.Limit + " exceeded",
		Expected: ve.Maximum,
		Actual:   ve.Current,
	})
}

func (c *checker) checkPhandle(n *ast.Node) {
	for _, name := range []string{ast.PropPhandle, ast.PropLinuxPhandle} {
		p := n.Property(name)
		if p == nil {
			continue
		}
		v, ok := p.Value.U32()
		if !ok || v == 0 || v == ast.InvalidPhandle {
			c.badIndex = true
			c.add(types.SevError, types.DiagReference, n, name, "phandle must be one cell in 1..0xfffffffe")
			return
		}
		if name == ast.PropLinuxPhandle {
			if ph, ok := n.U32Property(ast.PropPhandle); ok {
				if ph != v {
					c.badIndex = true
					c.add(types.SevError, types.DiagReference, n, name, "linux,phandle 0x%x disagrees with phandle 0x%x", v, ph)
				}
				return
			}
		}
		if other, dup := c.phandles[v]; dup {
			c.badIndex = true
			c.add(types.SevError, types.DiagReference, n, name, "phandle 0x%x already used by %s", v, other.Path())
			continue
		}
		c.phandles[v] = n
	}
}

// checkReg validates reg against the parent's cell declarations and the
// node's unit address.
func (c *checker) checkReg(n *ast.Node) {
	if n.Parent == nil {
		return
	}
	_, unit, hasUnit := strings.Cut(n.Name, "@")
	reg := n.Property(ast.PropReg)
	if reg == nil {
		if hasUnit && !n.HasProperty("ranges") {
			c.add(types.SevWarning, types.DiagStructure, n, "", "node has a unit address but no reg or ranges property")
		}
		return
	}

	if n.Parent.Parent != nil && !c.warned[n.Parent] &&
		(!n.Parent.HasProperty(ast.PropAddressCells) || !n.Parent.HasProperty(ast.PropSizeCells)) {
		c.warned[n.Parent] = true
		c.add(types.SevWarning, types.DiagStructure, n.Parent, "",
			"parent of a node with reg should declare #address-cells and #size-cells; consumers assume %d and %d",
			ast.DefaultAddressCells, ast.DefaultSizeCells)
	}

	ac, sc := n.Parent.CellWidths()
	cells, ok := reg.Value.AsCells()
	stride := ac + sc
	switch {
	case !ok:
		c.add(types.SevError, types.DiagStructure, n, ast.PropReg, "length %d is not a multiple of 4", reg.Value.Len())
		return
	case stride == 0 || len(cells)%stride != 0 || len(cells) == 0:
		c.report.Add(types.Diagnostic{
			Severity: types.SevError,
			Category: types.DiagStructure,
			Path:     n.Path(),
			Property: ast.PropReg,
			Issue:    fmt.Sprintf("cells do not divide into entries of %d address and %d size cells", ac, sc),
			Expected: fmt.Sprintf("multiple of %d", stride),
			Actual:   len(cells),
		})
		return
	}

	if !hasUnit {
		c.add(types.SevWarning, types.DiagStructure, n, "", "node has a reg property but no unit address")
		return
	}
	if ac == 0 || ac > 2 {
		return
	}
	var addr uint64
	for _, cell := range cells[:ac] {
		addr = addr<<32 | uint64(cell)
	}
	want := strconv.FormatUint(addr, 16)
	if got := strings.ToLower(strings.TrimPrefix(unit, "0x")); !unitMatches(got, want) {
		c.report.Add(types.Diagnostic{
			Severity: types.SevWarning,
			Category: types.DiagStructure,
			Path:     n.Path(),
			Issue:    "unit address does not match the first reg address",
			Expected: want,
			Actual:   unit,
		})
	}
}

// unitMatches compares the leading number of a unit address with the reg
// address. Unit addresses like "1,2" are compared on their first element.
func unitMatches(unit, want string) bool {
	first, _, _ := strings.Cut(unit, ",")
	first = strings.TrimLeft(first, "0")
	if first == "" {
		first = "0"
	}
	return first == want
}

func (c *checker) checkReferences() {
	if c.badIndex {
		c.report.Add(types.Diagnostic{
			Severity: types.SevInfo,
			Category: types.DiagReference,
			Path:     ast.PathSeparator,
			Issue:    "reference checks skipped until phandle errors are fixed",
		})
		return
	}
	s := &refs.Scanner{Tree: &ast.Tree{Root: c.tree.Root}, Table: c.opts.Table, External: c.opts.External}
	_ = c.tree.Root.Walk(func(n *ast.Node) error {
		for _, p := range n.Properties {
			if _, err := s.ScanProperty(n, p); err != nil {
				c.reference(n, p.Name, err)
			}
		}
		return nil
	})
}

func (c *checker) reference(n *ast.Node, prop string, err error) {
	var te *types.Error
	if !errors.As(err, &te) {
		c.add(types.SevError, types.DiagReference, n, prop, "%v", err)
		return
	}
	d := types.Diagnostic{
		Severity: types.SevError,
		Category: types.DiagReference,
		Path:     n.Path(),
		Property: prop,
		Issue:    te.Msg,
	}
	if te.Kind == types.ErrKindDanglingReference {
		d.Actual = fmt.Sprintf("0x%x", te.Phandle)
	}
	c.report.Add(d)
}
