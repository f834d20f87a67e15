package dtstext

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a syntax or semantic error at a source position.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}

// scanner walks the source byte by byte, tracking line and column.
type scanner struct {
	src  []byte
	pos  int
	line int
	col  int
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src, line: 1, col: 1}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) next() byte {
	if s.eof() {
		return 0
	}
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(string(s.src[s.pos:min(len(s.src), s.pos+len(p))]), p)
}

func (s *scanner) errorf(format string, args ...any) *ParseError {
	return &ParseError{Line: s.line, Col: s.col, Msg: fmt.Sprintf(format, args...)}
}

// skipSpace consumes whitespace and comments. C preprocessor line markers
// ("# 1 "file"") emitted by cpp are skipped like comments.
func (s *scanner) skipSpace() error {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			s.next()
		case s.hasPrefix(LineComment):
			for !s.eof() && s.peek() != '\n' {
				s.next()
			}
		case s.hasPrefix(BlockComment):
			line, col := s.line, s.col
			s.next()
			s.next()
			for !s.hasPrefix(BlockCommentE) {
				if s.eof() {
					return &ParseError{Line: line, Col: col, Msg: "unterminated comment"}
				}
				s.next()
			}
			s.next()
			s.next()
		case c == '#' && s.col == 1 && (s.peekAt(1) == ' ' || isDigit(s.peekAt(1))):
			for !s.eof() && s.peek() != '\n' {
				s.next()
			}
		default:
			return nil
		}
	}
	return nil
}

// accept consumes tok after optional whitespace when it is next.
func (s *scanner) accept(tok string) (bool, error) {
	if err := s.skipSpace(); err != nil {
		return false, err
	}
	if !s.hasPrefix(tok) {
		return false, nil
	}
	for range len(tok) {
		s.next()
	}
	return true, nil
}

func (s *scanner) expect(tok string) error {
	ok, err := s.accept(tok)
	if err != nil {
		return err
	}
	if !ok {
		return s.errorf("expected %q, found %s", tok, s.describe())
	}
	return nil
}

// describe names the next input for error messages.
func (s *scanner) describe() string {
	if s.eof() {
		return "end of input"
	}
	end := s.pos
	for end < len(s.src) && end-s.pos < 16 && !isSpace(s.src[end]) {
		end++
	}
	if end == s.pos {
		end++
	}
	return strconv.Quote(string(s.src[s.pos:end]))
}

// word reads a run of node/property name characters.
func (s *scanner) word() string {
	start := s.pos
	for !s.eof() && isNameChar(s.peek()) {
		s.next()
	}
	return string(s.src[start:s.pos])
}

// label reads a reference target: a label name or a braced path.
func (s *scanner) label() string {
	start := s.pos
	for !s.eof() && isLabelChar(s.peek()) {
		s.next()
	}
	return string(s.src[start:s.pos])
}

// quoted reads a double-quoted string with C escapes; the opening quote is
// the next byte.
func (s *scanner) quoted() (string, error) {
	line, col := s.line, s.col
	s.next()
	var b strings.Builder
	for {
		if s.eof() || s.peek() == '\n' {
			return "", &ParseError{Line: line, Col: col, Msg: "unterminated string"}
		}
		c := s.next()
		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			r, err := s.escape()
			if err != nil {
				return "", err
			}
			b.WriteByte(r)
		default:
			b.WriteByte(c)
		}
	}
}

// charLiteral reads 'c' with C escapes.
func (s *scanner) charLiteral() (uint64, error) {
	s.next()
	c := s.next()
	var v byte
	if c == '\\' {
		r, err := s.escape()
		if err != nil {
			return 0, err
		}
		v = r
	} else {
		v = c
	}
	if s.next() != '\'' {
		return 0, s.errorf("unterminated character literal")
	}
	return uint64(v), nil
}

// escape decodes the escape sequence following a backslash.
func (s *scanner) escape() (byte, error) {
	c := s.next()
	switch c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case 'a':
		return '\a', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'v':
		return '\v', nil
	case '\\', '"', '\'':
		return c, nil
	case 'x':
		v := 0
		n := 0
		for n < 2 && isHexDigit(s.peek()) {
			v = v*16 + hexVal(s.next())
			n++
		}
		if n == 0 {
			return 0, s.errorf("\\x escape without hex digits")
		}
		return byte(v), nil
	default:
		if c >= '0' && c <= '7' {
			v := int(c - '0')
			for n := 1; n < 3 && s.peek() >= '0' && s.peek() <= '7'; n++ {
				v = v*8 + int(s.next()-'0')
			}
			if v > 0xff {
				return 0, s.errorf("octal escape out of range")
			}
			return byte(v), nil
		}
		return 0, s.errorf("unknown escape \\%c", c)
	}
}

// integer reads a C integer literal with optional U/L suffixes.
func (s *scanner) integer() (uint64, error) {
	start := s.pos
	for !s.eof() && (isHexDigit(s.peek()) || s.peek() == 'x' || s.peek() == 'X') {
		s.next()
	}
	lit := string(s.src[start:s.pos])
	for s.peek() == 'U' || s.peek() == 'u' || s.peek() == 'L' || s.peek() == 'l' {
		s.next()
	}
	base := 10
	digits := lit
	switch {
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		base, digits = 16, lit[2:]
	case len(lit) > 1 && lit[0] == '0':
		base, digits = 8, lit[1:]
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, s.errorf("invalid integer literal %q", lit)
	}
	return v, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) int {
	switch {
	case isDigit(c):
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func isLabelChar(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isNameChar(c byte) bool {
	if isLabelChar(c) {
		return true
	}
	switch c {
	case ',', '.', '+', '*', '#', '?', '@', '-':
		return true
	}
	return false
}
