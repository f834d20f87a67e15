package dtstext

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/joshuapare/fdtkit/pkg/ast"
)

// part is one comma-separated component of a property value before
// references are resolved. A non-empty pathRef marks a bare &label value
// that becomes the target's path string.
type part struct {
	value   ast.Value
	pathRef string
	line    int
	col     int
}

type parser struct {
	s       *scanner
	tree    *ast.Tree
	pending map[*ast.Property][]part // values holding path references
	refPos  map[string][2]int        // first source position of each reference target
}

// parse builds a tree from decoded source text.
func parse(src []byte) (*ast.Tree, error) {
	p := &parser{
		s:       newScanner(src),
		tree:    ast.NewTree(),
		pending: make(map[*ast.Property][]part),
		refPos:  make(map[string][2]int),
	}
	if err := p.file(); err != nil {
		return nil, err
	}
	if err := p.resolve(); err != nil {
		return nil, err
	}
	return p.tree, nil
}

func (p *parser) file() error {
	if err := p.s.expect(VersionTag); err != nil {
		return err
	}
	if err := p.s.expect(Terminator); err != nil {
		return err
	}
	if ok, err := p.s.accept(PluginTag); err != nil {
		return err
	} else if ok {
		if err := p.s.expect(Terminator); err != nil {
			return err
		}
	}

	for {
		if err := p.s.skipSpace(); err != nil {
			return err
		}
		if p.s.eof() {
			return nil
		}
		if err := p.topLevel(); err != nil {
			return err
		}
	}
}

func (p *parser) topLevel() error {
	s := p.s
	switch {
	case s.hasPrefix(MemReserveTag):
		return p.memReserve()
	case s.hasPrefix(DeleteNodeTag):
		return p.deleteLabelled()
	case s.hasPrefix(IncludeTag):
		return s.errorf("%s is not supported; preprocess the source first", IncludeTag)
	case s.hasPrefix(RootPath):
		s.next()
		return p.nodeBody(p.tree.Root)
	case s.hasPrefix(RefPrefix):
		line, col := s.line, s.col
		target, err := p.reference()
		if err != nil {
			return err
		}
		node := p.lookup(target)
		if node == nil {
			return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("reference to undefined node %q", target)}
		}
		return p.nodeBody(node)
	default:
		// Labels may precede /memreserve/.
		if isLabelChar(s.peek()) {
			save := *s
			lbl := s.label()
			if ok, _ := s.accept(LabelSuffix); ok && lbl != "" {
				return p.topLevel()
			}
			*s = save
		}
		return s.errorf("unexpected %s at top level", s.describe())
	}
}

func (p *parser) memReserve() error {
	s := p.s
	if err := s.expect(MemReserveTag); err != nil {
		return err
	}
	addr, err := p.unary()
	if err != nil {
		return err
	}
	size, err := p.unary()
	if err != nil {
		return err
	}
	p.tree.MemReserve = append(p.tree.MemReserve, ast.Reservation{Address: addr, Size: size})
	return s.expect(Terminator)
}

// deleteLabelled handles a top-level "/delete-node/ &label;".
func (p *parser) deleteLabelled() error {
	s := p.s
	if err := s.expect(DeleteNodeTag); err != nil {
		return err
	}
	if err := s.skipSpace(); err != nil {
		return err
	}
	line, col := s.line, s.col
	target, err := p.reference()
	if err != nil {
		return err
	}
	node := p.lookup(target)
	if node == nil {
		return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("cannot delete undefined node %q", target)}
	}
	if node.Parent == nil {
		return &ParseError{Line: line, Col: col, Msg: "cannot delete the root node"}
	}
	node.Parent.RemoveChild(node.Name)
	return s.expect(Terminator)
}

// reference reads "&label" or "&{/path}" and returns the label or path.
func (p *parser) reference() (string, error) {
	s := p.s
	if err := s.skipSpace(); err != nil {
		return "", err
	}
	line, col := s.line, s.col
	if s.hasPrefix(PathRefOpen) {
		s.next()
		s.next()
		start := s.pos
		for !s.eof() && s.peek() != '}' {
			s.next()
		}
		if s.eof() {
			return "", &ParseError{Line: line, Col: col, Msg: "unterminated path reference"}
		}
		path := string(s.src[start:s.pos])
		s.next()
		if !strings.HasPrefix(path, RootPath) {
			return "", &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("path reference %q is not absolute", path)}
		}
		p.notePos(path, line, col)
		return path, nil
	}
	if err := s.expect(RefPrefix); err != nil {
		return "", err
	}
	lbl := s.label()
	if lbl == "" {
		return "", s.errorf("expected label after %q", RefPrefix)
	}
	p.notePos(lbl, line, col)
	return lbl, nil
}

func (p *parser) notePos(target string, line, col int) {
	if _, seen := p.refPos[target]; !seen {
		p.refPos[target] = [2]int{line, col}
	}
}

// lookup resolves a label or absolute path against the tree built so far.
func (p *parser) lookup(target string) *ast.Node {
	if strings.HasPrefix(target, RootPath) {
		return p.tree.FindNode(target)
	}
	return p.tree.NodeByLabel(target)
}

// nodeBody parses "{ ... };" into n. Repeated definitions extend n:
// properties are replaced and child nodes merged.
func (p *parser) nodeBody(n *ast.Node) error {
	s := p.s
	if err := s.expect(NodeOpen); err != nil {
		return err
	}
	for {
		if err := s.skipSpace(); err != nil {
			return err
		}
		if s.eof() {
			return s.errorf("unexpected end of input inside node %s", n.Path())
		}
		if s.hasPrefix(NodeClose) {
			s.next()
			return s.expect(Terminator)
		}
		if err := p.item(n); err != nil {
			return err
		}
	}
}

func (p *parser) item(n *ast.Node) error {
	s := p.s
	switch {
	case s.hasPrefix(DeleteNodeTag):
		s.pos, s.col = s.pos+len(DeleteNodeTag), s.col+len(DeleteNodeTag)
		if err := s.skipSpace(); err != nil {
			return err
		}
		if s.hasPrefix(RefPrefix) {
			return s.errorf("%s with a reference is only valid at top level", DeleteNodeTag)
		}
		name := s.word()
		if name == "" {
			return s.errorf("expected node name after %s", DeleteNodeTag)
		}
		n.RemoveChild(name)
		return s.expect(Terminator)
	case s.hasPrefix(DeletePropertyTag):
		s.pos, s.col = s.pos+len(DeletePropertyTag), s.col+len(DeletePropertyTag)
		if err := s.skipSpace(); err != nil {
			return err
		}
		name := s.word()
		if name == "" {
			return s.errorf("expected property name after %s", DeletePropertyTag)
		}
		n.RemoveProperty(name)
		return s.expect(Terminator)
	}

	var labels []string
	for {
		line, col := s.line, s.col
		name := s.word()
		if name == "" {
			return s.errorf("expected property or node name, found %s", s.describe())
		}
		if s.peek() == LabelSuffix[0] {
			if !isLabel(name) {
				return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("invalid label %q", name)}
			}
			s.next()
			labels = append(labels, name)
			if err := s.skipSpace(); err != nil {
				return err
			}
			continue
		}
		return p.member(n, name, labels, line, col)
	}
}

// member parses what follows a name: a child node, an assignment or a bare
// boolean property.
func (p *parser) member(n *ast.Node, name string, labels []string, line, col int) error {
	s := p.s
	if err := s.skipSpace(); err != nil {
		return err
	}
	switch {
	case s.hasPrefix(NodeOpen):
		child := n.AddChild(name)
		for _, l := range labels {
			if other := p.tree.NodeByLabel(l); other != nil && other != child {
				return &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("label %q already defined on %s", l, other.Path())}
			}
			child.AddLabel(l)
		}
		return p.nodeBody(child)
	case s.hasPrefix(Assignment):
		s.next()
		parts, err := p.values()
		if err != nil {
			return err
		}
		p.setProperty(n, name, parts)
		return s.expect(Terminator)
	case s.hasPrefix(Terminator):
		s.next()
		n.SetProperty(name, ast.Empty())
		delete(p.pending, n.Property(name))
		return nil
	default:
		return s.errorf("expected '{', '=' or ';' after %q, found %s", name, s.describe())
	}
}

func (p *parser) setProperty(n *ast.Node, name string, parts []part) {
	var hasPath bool
	for _, pt := range parts {
		if pt.pathRef != "" {
			hasPath = true
		}
	}
	n.SetProperty(name, joinParts(parts))
	prop := n.Property(name)
	if hasPath {
		p.pending[prop] = parts
	} else {
		delete(p.pending, prop)
	}
}

// values parses a comma-separated value list.
func (p *parser) values() ([]part, error) {
	var parts []part
	for {
		pt, err := p.value()
		if err != nil {
			return nil, err
		}
		parts = append(parts, pt)
		ok, err := p.s.accept(ValueSep)
		if err != nil {
			return nil, err
		}
		if !ok {
			return parts, nil
		}
	}
}

func (p *parser) value() (part, error) {
	s := p.s
	if err := s.skipSpace(); err != nil {
		return part{}, err
	}
	line, col := s.line, s.col
	pt := part{line: line, col: col}
	switch {
	case s.peek() == Quote[0]:
		str, err := s.quoted()
		if err != nil {
			return part{}, err
		}
		pt.value = ast.String(str)
	case s.hasPrefix(CellsOpen):
		s.next()
		v, err := p.cells(32)
		if err != nil {
			return part{}, err
		}
		pt.value = v
	case s.hasPrefix(BitsTag):
		s.pos, s.col = s.pos+len(BitsTag), s.col+len(BitsTag)
		width, err := p.unary()
		if err != nil {
			return part{}, err
		}
		if width != 8 && width != 16 && width != 32 && width != 64 {
			return part{}, &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("%s width must be 8, 16, 32 or 64, got %d", BitsTag, width)}
		}
		if err := s.expect(CellsOpen); err != nil {
			return part{}, err
		}
		v, err := p.cells(int(width))
		if err != nil {
			return part{}, err
		}
		pt.value = v
	case s.hasPrefix(BytesOpen):
		s.next()
		v, err := p.bytes()
		if err != nil {
			return part{}, err
		}
		pt.value = v
	case s.hasPrefix(RefPrefix):
		target, err := p.reference()
		if err != nil {
			return part{}, err
		}
		pt.pathRef = target
		pt.value = ast.String(target)
	default:
		return part{}, s.errorf("expected property value, found %s", s.describe())
	}
	return pt, nil
}

// cells parses the body of "<...>" with elements of width bits. The opening
// bracket has been consumed.
func (p *parser) cells(width int) (ast.Value, error) {
	s := p.s
	size := width / 8
	var data []byte
	var refs []ast.Ref
	for {
		if err := s.skipSpace(); err != nil {
			return ast.Value{}, err
		}
		switch {
		case s.eof():
			return ast.Value{}, s.errorf("unterminated cell list")
		case s.hasPrefix(CellsClose):
			s.next()
			v := ast.Value{Kind: ast.KindCells, Data: data, Refs: refs}
			if width != 32 && width != 64 {
				v.Kind = ast.KindBytes
			}
			if len(data) == 0 {
				v.Data = []byte{}
			}
			return v, nil
		case s.hasPrefix(RefPrefix):
			if width != 32 {
				return ast.Value{}, s.errorf("phandle references need 32-bit cells")
			}
			target, err := p.reference()
			if err != nil {
				return ast.Value{}, err
			}
			refs = append(refs, ast.Ref{Offset: len(data), Target: target})
			data = binary.BigEndian.AppendUint32(data, 0)
		default:
			line, col := s.line, s.col
			v, err := p.unary()
			if err != nil {
				return ast.Value{}, err
			}
			if !fits(v, width) {
				return ast.Value{}, &ParseError{Line: line, Col: col, Msg: fmt.Sprintf("value 0x%x does not fit in %d bits", v, width)}
			}
			switch size {
			case 1:
				data = append(data, byte(v))
			case 2:
				data = binary.BigEndian.AppendUint16(data, uint16(v))
			case 4:
				data = binary.BigEndian.AppendUint32(data, uint32(v))
			default:
				data = binary.BigEndian.AppendUint64(data, v)
			}
		}
	}
}

// bytes parses the body of "[...]". Hex digit pairs may be separated by
// whitespace or written back to back.
func (p *parser) bytes() (ast.Value, error) {
	s := p.s
	data := []byte{}
	for {
		if err := s.skipSpace(); err != nil {
			return ast.Value{}, err
		}
		switch {
		case s.eof():
			return ast.Value{}, s.errorf("unterminated byte string")
		case s.hasPrefix(BytesClose):
			s.next()
			return ast.Value{Kind: ast.KindBytes, Data: data}, nil
		case isHexDigit(s.peek()) && isHexDigit(s.peekAt(1)):
			hi := hexVal(s.next())
			lo := hexVal(s.next())
			data = append(data, byte(hi<<4|lo))
		default:
			return ast.Value{}, s.errorf("expected hex byte, found %s", s.describe())
		}
	}
}

// joinParts builds the property value. All-cells lists collapse into one
// cell array and all-string lists into a string list; anything else is
// mixed.
func joinParts(parts []part) ast.Value {
	allCells, allStrings := true, true
	for _, pt := range parts {
		allCells = allCells && pt.value.Kind == ast.KindCells
		allStrings = allStrings && pt.value.Kind == ast.KindString
	}
	values := make([]ast.Value, len(parts))
	for i, pt := range parts {
		values[i] = pt.value
	}
	switch {
	case len(values) == 1:
		return values[0]
	case allStrings:
		ss := make([]string, len(values))
		for i, v := range values {
			ss[i], _ = v.AsString()
		}
		return ast.Strings(ss...)
	case allCells:
		out := ast.Mixed(values...)
		out.Kind = ast.KindCells
		out.Segments = nil
		return out
	default:
		return ast.Mixed(values...)
	}
}

// resolve fills in every reference once the whole document is known: cell
// references receive the target's phandle, allocating one when needed, and
// path references are replaced by the target's full path.
func (p *parser) resolve() error {
	live := make(map[*ast.Property]bool)
	_ = p.tree.Root.Walk(func(n *ast.Node) error {
		for _, prop := range n.Properties {
			live[prop] = true
		}
		return nil
	})

	for prop, pending := range p.pending {
		if !live[prop] {
			continue
		}
		parts := append([]part(nil), pending...)
		for i, pt := range parts {
			if pt.pathRef == "" {
				continue
			}
			target := p.lookup(pt.pathRef)
			if target == nil {
				return &ParseError{Line: pt.line, Col: pt.col, Msg: fmt.Sprintf("reference to undefined node %q", pt.pathRef)}
			}
			parts[i].value = ast.String(target.Path())
		}
		prop.Value = joinParts(parts)
	}

	if err := p.tree.Reindex(); err != nil {
		return err
	}
	return p.tree.Root.Walk(func(n *ast.Node) error {
		for _, prop := range n.Properties {
			for _, r := range prop.Value.Refs {
				target := p.lookup(r.Target)
				if target == nil {
					pos := p.refPos[r.Target]
					return &ParseError{Line: pos[0], Col: pos[1], Msg: fmt.Sprintf("reference to undefined node %q in %s/%s", r.Target, n.Path(), prop.Name)}
				}
				binary.BigEndian.PutUint32(prop.Value.Data[r.Offset:], p.tree.AllocPhandle(target))
			}
		}
		return nil
	})
}

func isLabel(s string) bool {
	if s == "" || isDigit(s[0]) {
		return false
	}
	for i := range len(s) {
		if !isLabelChar(s[i]) {
			return false
		}
	}
	return true
}

// fits reports whether v is representable in width bits, either as an
// unsigned value or as a sign-extended negative one.
func fits(v uint64, width int) bool {
	if width == 64 {
		return true
	}
	if v>>width == 0 {
		return true
	}
	return v>>(width-1) == ^uint64(0)>>(width-1)
}
