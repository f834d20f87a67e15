// Package refs finds phandle references in device tree properties and
// computes the set of nodes a subtree transitively depends on.
//
// Which properties carry references is fixed by a Table. Plain phandle
// lists (interrupt-parent, memory-region, ...) hold one phandle per cell.
// Specifier lists (clocks, resets, gpios, ...) interleave each phandle with
// argument cells whose count the referenced node declares in a #<x>-cells
// property, so the stride can only be known after resolving the phandle.
//
// A phandle cell of zero is a null entry and is skipped.
//
//	s := refs.NewScanner(tree)
//	pulled, err := refs.Close(s, []*ast.Node{root})
package refs
