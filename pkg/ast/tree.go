package ast

import (
	"strings"

	"github.com/joshuapare/fdtkit/pkg/types"
)

// Tree represents a complete device tree: the root node plus the blob
// header fields that are not part of the node structure.
//
// The phandle index is derived state. It is built on first lookup and must
// be refreshed with Reindex after structural edits.
type Tree struct {
	Root       *Node
	MemReserve []Reservation
	BootCPU    uint32

	phandles map[uint32]*Node
}

// Reservation is one /memreserve/ entry.
type Reservation struct {
	Address uint64
	Size    uint64
}

// Node represents one device tree node.
type Node struct {
	// Identity
	Name   string   // node name including unit address ("" for root)
	Labels []string // text labels, or restored from __symbols__

	// Tree structure
	Parent     *Node
	Properties []*Property
	Children   []*Node
}

// Property is a named, typed value on a node.
type Property struct {
	Name  string
	Value Value
}

// NewTree creates a tree with an empty root node.
func NewTree() *Tree {
	return &Tree{Root: NewNode("")}
}

// NewNode creates a detached node.
func NewNode(name string) *Node {
	return &Node{
		Name:       name,
		Properties: make([]*Property, 0),
		Children:   make([]*Node, 0),
	}
}

// Clone deep-copies the tree. The copy shares nothing with t.
func (t *Tree) Clone() *Tree {
	out := &Tree{
		Root:    t.Root.Clone(),
		BootCPU: t.BootCPU,
	}
	if t.MemReserve != nil {
		out.MemReserve = append([]Reservation(nil), t.MemReserve...)
	}
	return out
}

// Reindex rebuilds the phandle index. Two nodes claiming the same phandle,
// or a phandle property that is not a single valid cell, is an error.
func (t *Tree) Reindex() error {
	idx := make(map[uint32]*Node)
	err := t.Root.Walk(func(n *Node) error {
		p := n.phandleProperty()
		if p == nil {
			return nil
		}
		v, ok := p.Value.U32()
		if !ok || v == 0 || v == InvalidPhandle {
			return types.MalformedProperty(n.Path(), p.Name, "phandle must be one cell in 1..0xfffffffe")
		}
		if other, dup := idx[v]; dup {
			return types.MalformedProperty(n.Path(), p.Name, "phandle 0x%x already used by %s", v, other.Path())
		}
		idx[v] = n
		return nil
	})
	if err != nil {
		t.phandles = nil
		return err
	}
	t.phandles = idx
	return nil
}

// NodeByPhandle returns the node owning phandle p, or nil.
func (t *Tree) NodeByPhandle(p uint32) *Node {
	if t.phandles == nil {
		if err := t.Reindex(); err != nil {
			return nil
		}
	}
	return t.phandles[p]
}

// MaxPhandle returns the largest phandle in use, 0 when there is none.
func (t *Tree) MaxPhandle() uint32 {
	var highest uint32
	_ = t.Root.Walk(func(n *Node) error {
		if p := n.Phandle(); p > highest && p != InvalidPhandle {
			highest = p
		}
		return nil
	})
	return highest
}

// AllocPhandle assigns the next free phandle to n and returns it. A node
// that already has a phandle keeps it.
func (t *Tree) AllocPhandle(n *Node) uint32 {
	if p := n.Phandle(); p != 0 {
		return p
	}
	p := t.MaxPhandle() + 1
	n.SetPhandle(p)
	if t.phandles != nil {
		t.phandles[p] = n
	}
	return p
}

// NodeByLabel returns the first node carrying label, or nil.
func (t *Tree) NodeByLabel(label string) *Node {
	var found *Node
	_ = t.Root.Walk(func(n *Node) error {
		for _, l := range n.Labels {
			if l == label {
				found = n
				return errStopWalk
			}
		}
		return nil
	})
	return found
}

// Clone deep-copies n and its subtree. The copy is detached (Parent nil).
func (n *Node) Clone() *Node {
	out := &Node{
		Name:       n.Name,
		Properties: make([]*Property, len(n.Properties)),
		Children:   make([]*Node, len(n.Children)),
	}
	if n.Labels != nil {
		out.Labels = append([]string(nil), n.Labels...)
	}
	for i, p := range n.Properties {
		out.Properties[i] = &Property{Name: p.Name, Value: p.Value.Clone()}
	}
	for i, c := range n.Children {
		cc := c.Clone()
		cc.Parent = out
		out.Children[i] = cc
	}
	return out
}

// Walk visits n and its descendants in pre-order. Returning an error aborts
// the walk and is returned, except errStopWalk which ends it quietly.
func (n *Node) Walk(fn func(*Node) error) error {
	err := n.walk(fn)
	if err == errStopWalk {
		return nil
	}
	return err
}

func (n *Node) walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the absolute path of n ("/" for the root).
func (n *Node) Path() string {
	if n.Parent == nil {
		return PathSeparator
	}
	var segs []string
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		segs = append(segs, cur.Name)
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		b.WriteString(PathSeparator)
		b.WriteString(segs[i])
	}
	return b.String()
}

// IsAncestorOf reports whether n is a strict ancestor of m.
func (n *Node) IsAncestorOf(m *Node) bool {
	for cur := m.Parent; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Contains reports whether m is n or one of its descendants.
func (n *Node) Contains(m *Node) bool {
	return n == m || n.IsAncestorOf(m)
}

// Property returns the named property, or nil.
func (n *Node) Property(name string) *Property {
	for _, p := range n.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// HasProperty reports whether the named property exists.
func (n *Node) HasProperty(name string) bool {
	return n.Property(name) != nil
}

// SetProperty adds or replaces a property.
func (n *Node) SetProperty(name string, v Value) {
	if p := n.Property(name); p != nil {
		p.Value = v
		return
	}
	n.Properties = append(n.Properties, &Property{Name: name, Value: v})
}

// EnsureProperty adds the property only when it is absent and reports
// whether it was added. Existing values are never touched.
func (n *Node) EnsureProperty(name string, v Value) bool {
	if n.HasProperty(name) {
		return false
	}
	n.Properties = append(n.Properties, &Property{Name: name, Value: v})
	return true
}

// RemoveProperty removes a property by name.
func (n *Node) RemoveProperty(name string) bool {
	for i, p := range n.Properties {
		if p.Name == name {
			n.Properties = append(n.Properties[:i], n.Properties[i+1:]...)
			return true
		}
	}
	return false
}

// U32Property returns the value of a single-cell property.
func (n *Node) U32Property(name string) (uint32, bool) {
	p := n.Property(name)
	if p == nil {
		return 0, false
	}
	return p.Value.U32()
}

// Child returns the direct child with exactly this name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddChild returns the child named name, creating it when absent.
func (n *Node) AddChild(name string) *Node {
	if c := n.Child(name); c != nil {
		return c
	}
	child := NewNode(name)
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

// AttachChild appends a detached node. It returns false when a child with
// the same name already exists.
func (n *Node) AttachChild(child *Node) bool {
	if n.Child(child.Name) != nil {
		return false
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	return true
}

// RemoveChild removes a child node by name.
func (n *Node) RemoveChild(name string) bool {
	for i, child := range n.Children {
		if child.Name == name {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// AddLabel attaches a label unless n already has it.
func (n *Node) AddLabel(label string) {
	for _, l := range n.Labels {
		if l == label {
			return
		}
	}
	n.Labels = append(n.Labels, label)
}

// Phandle returns the node's phandle, 0 when it has none.
func (n *Node) Phandle() uint32 {
	p := n.phandleProperty()
	if p == nil {
		return 0
	}
	v, _ := p.Value.U32()
	return v
}

// SetPhandle writes the phandle property, keeping a legacy linux,phandle in
// step when the node carries one.
func (n *Node) SetPhandle(v uint32) {
	n.SetProperty(PropPhandle, Cells(v))
	if n.HasProperty(PropLinuxPhandle) {
		n.SetProperty(PropLinuxPhandle, Cells(v))
	}
}

func (n *Node) phandleProperty() *Property {
	if p := n.Property(PropPhandle); p != nil {
		return p
	}
	return n.Property(PropLinuxPhandle)
}

// CellWidths returns the #address-cells and #size-cells that govern the reg
// of n's children, searching upward from n and falling back to the
// defaults.
func (n *Node) CellWidths() (addr, size int) {
	addr, size = -1, -1
	for cur := n; cur != nil && (addr < 0 || size < 0); cur = cur.Parent {
		if v, ok := cur.U32Property(PropAddressCells); ok && addr < 0 {
			addr = int(v)
		}
		if v, ok := cur.U32Property(PropSizeCells); ok && size < 0 {
			size = int(v)
		}
	}
	if addr < 0 {
		addr = DefaultAddressCells
	}
	if size < 0 {
		size = DefaultSizeCells
	}
	return addr, size
}
