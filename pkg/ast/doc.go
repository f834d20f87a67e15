// Package ast provides the in-memory representation of a device tree.
//
// A Tree holds a root Node; nodes carry ordered properties and ordered,
// exclusively owned children. Cross-references between nodes are phandles:
// plain integers stored in cell arrays, looked up through an index that the
// tree builds on demand. Nodes never hold pointers to the nodes they
// reference, so deep copies and grafts never create ownership cycles.
//
// # Core Types
//
// Tree represents a complete device tree plus its reservation map. Node is
// one device or bus. Property values are a closed tagged variant (Value):
// the Kind says whether the bytes are cells, strings, raw bytes or a mixed
// concatenation, and is assigned once at the codec boundary.
//
// # Paths
//
// Resolve maps a slash-delimited path to a node with exact, case-sensitive
// segment matching and reports the first segment that failed:
//
//	node, err := ast.Resolve(tree, "/soc/ethernet@4033c000")
//	if err != nil {
//		return err // *types.Error with Segment and Position
//	}
//
// # Phandles
//
//	if err := tree.Reindex(); err != nil {
//		return err // duplicate or malformed phandle
//	}
//	clk := tree.NodeByPhandle(0x1)
//
// Call Reindex after structural edits; NodeByPhandle serves from the cache.
package ast
