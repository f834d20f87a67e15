package ast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshuapare/fdtkit/internal/format"
	"github.com/joshuapare/fdtkit/pkg/types"
)

// Limits defines structural bounds for a device tree. They reject malformed
// or runaway trees before they are encoded or handed to a consumer.
type Limits struct {
	// MaxNodeNameLen is the maximum node name length, unit address excluded.
	// The Devicetree Specification allows 31 characters.
	MaxNodeNameLen int

	// MaxPropertyNameLen is the maximum property name length.
	// The Devicetree Specification allows 31 characters.
	MaxPropertyNameLen int

	// MaxChildren is the maximum number of children a node can have.
	MaxChildren int

	// MaxProperties is the maximum number of properties a node can have.
	MaxProperties int

	// MaxValueSize is the maximum size of one property value in bytes.
	MaxValueSize int

	// MaxTreeDepth is the maximum nesting depth; the root is depth 1.
	MaxTreeDepth int

	// MaxTotalSize is the maximum encoded blob size in bytes.
	MaxTotalSize int64
}

// DefaultLimits returns the Devicetree Specification name limits and
// practical structural bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxNodeNameLen:     types.DTMaxNodeNameLen,
		MaxPropertyNameLen: types.DTMaxPropertyNameLen,
		MaxChildren:        types.DTMaxChildrenDefault,
		MaxProperties:      types.DTMaxPropertiesDefault,
		MaxValueSize:       types.DTMaxValueSize1MB,
		MaxTreeDepth:       types.DTMaxTreeDepthPractical,
		MaxTotalSize:       types.DTMaxBlobSize16MB,
	}
}

// RelaxedLimits keeps the structural bounds but does not enforce name
// lengths. Vendor trees routinely carry longer property names.
func RelaxedLimits() Limits {
	l := DefaultLimits()
	l.MaxNodeNameLen = 0
	l.MaxPropertyNameLen = 0
	return l
}

// StrictLimits returns conservative limits for constrained consumers such
// as boot firmware.
func StrictLimits() Limits {
	return Limits{
		MaxNodeNameLen:     types.DTMaxNodeNameLen,
		MaxPropertyNameLen: types.DTMaxPropertyNameLen,
		MaxChildren:        types.DTMaxChildrenDefault / 16,
		MaxProperties:      types.DTMaxPropertiesDefault / 16,
		MaxValueSize:       types.DTMaxValueSize64KB,
		MaxTreeDepth:       types.DTMaxTreeDepthShallow,
		MaxTotalSize:       types.DTMaxBlobSize2MB,
	}
}

// ValidationError represents a limit validation failure.
type ValidationError struct {
	Limit    string // Name of the limit that was exceeded
	Current  int64  // Current value
	Maximum  int64  // Maximum allowed value
	NodePath string // Path to the node (if applicable)
	Property string // Offending property (if applicable)
}

func (e *ValidationError) Error() string {
	switch {
	case e.Property != "":
		return fmt.Sprintf("limit exceeded at '%s' property %s: %s is %d (max %d)",
			e.NodePath, e.Property, e.Limit, e.Current, e.Maximum)
	case e.NodePath != "":
		return fmt.Sprintf("limit exceeded at '%s': %s is %d (max %d)",
			e.NodePath, e.Limit, e.Current, e.Maximum)
	default:
		return fmt.Sprintf("limit exceeded: %s is %d (max %d)",
			e.Limit, e.Current, e.Maximum)
	}
}

// exceeds reports whether v breaks a limit. Zero disables the limit.
func exceeds(v, limit int) bool {
	return limit > 0 && v > limit
}

// ValidateNode checks n's own name, properties and child count against
// limits. The returned error does not carry a node path.
func (n *Node) ValidateNode(limits Limits) error {
	base, _, _ := strings.Cut(n.Name, "@")
	if exceeds(len(base), limits.MaxNodeNameLen) {
		return &ValidationError{
			Limit:   "MaxNodeNameLen",
			Current: int64(len(base)),
			Maximum: int64(limits.MaxNodeNameLen),
		}
	}

	if exceeds(len(n.Children), limits.MaxChildren) {
		return &ValidationError{
			Limit:   "MaxChildren",
			Current: int64(len(n.Children)),
			Maximum: int64(limits.MaxChildren),
		}
	}

	if exceeds(len(n.Properties), limits.MaxProperties) {
		return &ValidationError{
			Limit:   "MaxProperties",
			Current: int64(len(n.Properties)),
			Maximum: int64(limits.MaxProperties),
		}
	}

	for _, p := range n.Properties {
		if err := p.ValidateProperty(limits); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProperty checks one property's name and value size.
func (p *Property) ValidateProperty(limits Limits) error {
	if exceeds(len(p.Name), limits.MaxPropertyNameLen) {
		return &ValidationError{
			Limit:    "MaxPropertyNameLen",
			Current:  int64(len(p.Name)),
			Maximum:  int64(limits.MaxPropertyNameLen),
			Property: p.Name,
		}
	}
	if exceeds(p.Value.Len(), limits.MaxValueSize) {
		return &ValidationError{
			Limit:    "MaxValueSize",
			Current:  int64(p.Value.Len()),
			Maximum:  int64(limits.MaxValueSize),
			Property: p.Name,
		}
	}
	return nil
}

// ValidateTreeDepth validates that the tree depth doesn't exceed the limit.
// Returns the depth of the tree and any validation error.
func (t *Tree) ValidateTreeDepth(limits Limits) (int, error) {
	depth := t.Root.measureDepth()
	if exceeds(depth, limits.MaxTreeDepth) {
		return depth, &ValidationError{
			Limit:   "MaxTreeDepth",
			Current: int64(depth),
			Maximum: int64(limits.MaxTreeDepth),
		}
	}
	return depth, nil
}

func (n *Node) measureDepth() int {
	deepest := 0
	for _, child := range n.Children {
		if d := child.measureDepth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// EncodedSize returns the exact size of t as a version 17 blob.
func (t *Tree) EncodedSize() int64 {
	names := make(map[string]bool)
	var strs int64
	structs := t.Root.encodedSize(true, names, &strs) + format.TokenSize
	rsv := int64(len(t.MemReserve)+1) * format.ReserveEntrySize
	return int64(format.Align8(format.HeaderSize)) + rsv + structs + strs
}

func (n *Node) encodedSize(root bool, names map[string]bool, strs *int64) int64 {
	name := n.Name
	if root {
		name = ""
	}
	size := int64(format.TokenSize + format.Align4(len(name)+1))
	for _, p := range n.Properties {
		size += int64(format.TokenSize + format.PropHeaderSize + format.Align4(p.Value.Len()))
		if !names[p.Name] {
			names[p.Name] = true
			*strs += int64(len(p.Name) + 1)
		}
	}
	for _, c := range n.Children {
		size += c.encodedSize(false, names, strs)
	}
	return size + format.TokenSize
}

// ValidateTreeSize computes the encoded size of the tree and validates it
// against MaxTotalSize.
func (t *Tree) ValidateTreeSize(limits Limits) (int64, error) {
	size := t.EncodedSize()
	if limits.MaxTotalSize > 0 && size > limits.MaxTotalSize {
		return size, &ValidationError{
			Limit:   "MaxTotalSize",
			Current: size,
			Maximum: limits.MaxTotalSize,
		}
	}
	return size, nil
}

// ValidateTree checks every limit over the whole tree and returns the first
// violation found.
func (t *Tree) ValidateTree(limits Limits) error {
	if _, err := t.ValidateTreeDepth(limits); err != nil {
		return err
	}
	if _, err := t.ValidateTreeSize(limits); err != nil {
		return err
	}
	return t.Root.Walk(func(n *Node) error {
		if err := n.ValidateNode(limits); err != nil {
			ve := &ValidationError{}
			if errors.As(err, &ve) {
				ve.NodePath = n.Path()
				return ve
			}
			return err
		}
		return nil
	})
}

// LimitViolation wraps a limit violation as a MalformedProperty error, or
// returns err unchanged.
func LimitViolation(err error) error {
	ve := &ValidationError{}
	if errors.As(err, &ve) {
		return &types.Error{
			Kind: types.ErrKindMalformedProperty,
			Msg:  "structural limit",
			Err:  ve,
		}
	}
	return err
}
