package mdx

import (
	"fmt"
	"strings"

	"github.com/starford/fuma/internal/apperr"
)

// ParseTag reads one opening or self-closing JSX tag at the start of src and
// returns it together with the number of bytes consumed. Closing tags,
// fragments and spread attributes are rejected with apperr.ErrMalformedTag.
func ParseTag(src []byte) (*Element, int, error) {
	s := &scanner{src: src}
	if !s.consume('<') {
		return nil, 0, s.fail("expected '<'")
	}
	name := s.ident(isNameStart, isNameChar)
	if name == "" {
		return nil, 0, s.fail("expected tag name")
	}
	el := &Element{Name: name}

	for {
		spaced := s.skipSpace()
		if s.eof() {
			return nil, 0, s.fail("unterminated tag")
		}
		switch s.peek() {
		case '/':
			s.pos++
			if !s.consume('>') {
				return nil, 0, s.fail("expected '>' after '/'")
			}
			el.SelfClosing = true
			return el, s.pos, nil
		case '>':
			s.pos++
			return el, s.pos, nil
		case '{':
			return nil, 0, s.fail("spread attributes are not supported")
		}
		if !spaced {
			return nil, 0, s.fail("expected whitespace before attribute")
		}
		attr, err := s.attribute()
		if err != nil {
			return nil, 0, err
		}
		el.Attributes = append(el.Attributes, attr)
	}
}

type scanner struct {
	src []byte
	pos int
}

func (s *scanner) eof() bool  { return s.pos >= len(s.src) }
func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) consume(c byte) bool {
	if !s.eof() && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) fail(msg string) error {
	return fmt.Errorf("%w: %s at offset %d", apperr.ErrMalformedTag, msg, s.pos)
}

func (s *scanner) skipSpace() bool {
	start := s.pos
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
	return s.pos > start
}

func (s *scanner) ident(first, rest func(byte) bool) string {
	start := s.pos
	if s.eof() || !first(s.src[s.pos]) {
		return ""
	}
	s.pos++
	for !s.eof() && rest(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

func (s *scanner) attribute() (Attribute, error) {
	name := s.ident(isAttrStart, isNameChar)
	if name == "" {
		return Attribute{}, s.fail("expected attribute name")
	}
	mark := s.pos
	s.skipSpace()
	if !s.consume('=') {
		s.pos = mark
		return Attribute{Name: name, Kind: AttrBool}, nil
	}
	s.skipSpace()
	if s.eof() {
		return Attribute{}, s.fail("expected attribute value")
	}
	switch q := s.peek(); q {
	case '"', '\'':
		s.pos++
		end := strings.IndexByte(string(s.src[s.pos:]), q)
		if end < 0 {
			return Attribute{}, s.fail("unterminated string attribute")
		}
		v := string(s.src[s.pos : s.pos+end])
		s.pos += end + 1
		return Attribute{Name: name, Kind: AttrString, Value: v}, nil
	case '{':
		v, err := s.expression()
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Name: name, Kind: AttrExpr, Value: v}, nil
	}
	return Attribute{}, s.fail("attribute value must be quoted or an expression")
}

// expression reads a balanced {...} container, skipping over string literals.
func (s *scanner) expression() (string, error) {
	s.pos++ // '{'
	start := s.pos
	depth := 1
	for !s.eof() {
		c := s.src[s.pos]
		switch c {
		case '"', '\'', '`':
			if err := s.skipString(c); err != nil {
				return "", err
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				v := strings.TrimSpace(string(s.src[start:s.pos]))
				s.pos++
				return v, nil
			}
		}
		s.pos++
	}
	return "", s.fail("unterminated expression")
}

func (s *scanner) skipString(q byte) error {
	s.pos++
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case q:
			s.pos++
			return nil
		}
		s.pos++
	}
	return s.fail("unterminated string in expression")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAttrStart(c byte) bool {
	return isNameStart(c) || c == ':'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9') || c == '-' || c == '.' || c == ':'
}
