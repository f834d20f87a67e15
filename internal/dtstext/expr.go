package dtstext

// Integer expressions follow C precedence. They appear in cell lists inside
// parentheses and as /memreserve/ operands.

type binop struct {
	tok  string
	prec int
	eval func(a, b uint64) (uint64, bool)
}

// Longer tokens first so "<<" is not read as "<".
var binops = []binop{
	{"||", 1, func(a, b uint64) (uint64, bool) { return boolVal(a != 0 || b != 0), true }},
	{"&&", 2, func(a, b uint64) (uint64, bool) { return boolVal(a != 0 && b != 0), true }},
	{"==", 6, func(a, b uint64) (uint64, bool) { return boolVal(a == b), true }},
	{"!=", 6, func(a, b uint64) (uint64, bool) { return boolVal(a != b), true }},
	{"<=", 7, func(a, b uint64) (uint64, bool) { return boolVal(a <= b), true }},
	{">=", 7, func(a, b uint64) (uint64, bool) { return boolVal(a >= b), true }},
	{"<<", 8, func(a, b uint64) (uint64, bool) { return a << (b & 63), true }},
	{">>", 8, func(a, b uint64) (uint64, bool) { return a >> (b & 63), true }},
	{"|", 3, func(a, b uint64) (uint64, bool) { return a | b, true }},
	{"^", 4, func(a, b uint64) (uint64, bool) { return a ^ b, true }},
	{"&", 5, func(a, b uint64) (uint64, bool) { return a & b, true }},
	{"<", 7, func(a, b uint64) (uint64, bool) { return boolVal(a < b), true }},
	{">", 7, func(a, b uint64) (uint64, bool) { return boolVal(a > b), true }},
	{"+", 9, func(a, b uint64) (uint64, bool) { return a + b, true }},
	{"-", 9, func(a, b uint64) (uint64, bool) { return a - b, true }},
	{"*", 10, func(a, b uint64) (uint64, bool) { return a * b, true }},
	{"/", 10, func(a, b uint64) (uint64, bool) {
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}},
	{"%", 10, func(a, b uint64) (uint64, bool) {
		if b == 0 {
			return 0, false
		}
		return a % b, true
	}},
}

func boolVal(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// expr parses a full expression including the ternary operator.
func (p *parser) expr() (uint64, error) {
	cond, err := p.binary(1)
	if err != nil {
		return 0, err
	}
	ok, err := p.s.accept("?")
	if err != nil || !ok {
		return cond, err
	}
	a, err := p.expr()
	if err != nil {
		return 0, err
	}
	if err := p.s.expect(":"); err != nil {
		return 0, err
	}
	b, err := p.expr()
	if err != nil {
		return 0, err
	}
	if cond != 0 {
		return a, nil
	}
	return b, nil
}

func (p *parser) binary(minPrec int) (uint64, error) {
	lhs, err := p.unary()
	if err != nil {
		return 0, err
	}
	for {
		if err := p.s.skipSpace(); err != nil {
			return 0, err
		}
		op := p.peekOp()
		if op == nil || op.prec < minPrec {
			return lhs, nil
		}
		line, col := p.s.line, p.s.col
		for range len(op.tok) {
			p.s.next()
		}
		rhs, err := p.binary(op.prec + 1)
		if err != nil {
			return 0, err
		}
		v, ok := op.eval(lhs, rhs)
		if !ok {
			return 0, &ParseError{Line: line, Col: col, Msg: "division by zero"}
		}
		lhs = v
	}
}

func (p *parser) peekOp() *binop {
	for i := range binops {
		if p.s.hasPrefix(binops[i].tok) {
			return &binops[i]
		}
	}
	return nil
}

func (p *parser) unary() (uint64, error) {
	if err := p.s.skipSpace(); err != nil {
		return 0, err
	}
	switch c := p.s.peek(); {
	case c == '-':
		p.s.next()
		v, err := p.unary()
		return -v, err
	case c == '~':
		p.s.next()
		v, err := p.unary()
		return ^v, err
	case c == '!':
		p.s.next()
		v, err := p.unary()
		return boolVal(v == 0), err
	case c == '(':
		p.s.next()
		v, err := p.expr()
		if err != nil {
			return 0, err
		}
		return v, p.s.expect(")")
	case c == '\'':
		return p.s.charLiteral()
	case isDigit(c):
		return p.s.integer()
	default:
		return 0, p.s.errorf("expected integer, found %s", p.s.describe())
	}
}
