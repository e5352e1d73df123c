package parser

import (
	"fmt"
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of file"
	case tokIdent:
		return "identifier"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokString:
		return "string"
	}
	return "punctuation"
}

type token struct {
	kind tokenKind
	text string
	pos  wdl.Pos
	end  wdl.Pos
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) describe() string {
	if t.kind == tokEOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.text)
}

// lexer produces tokens on demand so that the parser can switch to raw
// scanning for command sections.
type lexer struct {
	src  string
	off  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) pos() wdl.Pos { return wdl.Pos{Line: l.line, Column: l.col} }

func (l *lexer) peekByte(ahead int) byte {
	if l.off+ahead < len(l.src) {
		return l.src[l.off+ahead]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.off < len(l.src); i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

func (l *lexer) skipSpace() {
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance(1)
		case c == '#':
			for l.off < len(l.src) && l.src[l.off] != '\n' {
				l.advance(1)
			}
		default:
			return
		}
	}
}

var punctuation = []string{
	"==", "!=", "<=", ">=", "&&", "||",
	"{", "}", "[", "]", "(", ")", ",", ":", "=", ".", "?", "+", "-", "*", "/", "%", "<", ">", "!",
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos()
	if l.off >= len(l.src) {
		return token{kind: tokEOF, pos: start, end: start}, nil
	}
	begin := l.off
	c := l.src[l.off]
	var kind tokenKind

	switch {
	case isIdentStart(c):
		for l.off < len(l.src) && isIdentPart(l.src[l.off]) {
			l.advance(1)
		}
		kind = tokIdent

	case isDigit(c):
		kind = l.number()

	case c == '"' || c == '\'':
		if err := l.str(); err != nil {
			return token{}, err
		}
		kind = tokString

	default:
		for _, p := range punctuation {
			if strings.HasPrefix(l.src[l.off:], p) {
				l.advance(len(p))
				kind = tokPunct
				break
			}
		}
		if kind != tokPunct {
			return token{}, &SyntaxError{Line: start.Line, Column: start.Column, Message: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	return token{kind: kind, text: l.src[begin:l.off], pos: start, end: l.pos()}, nil
}

func (l *lexer) number() tokenKind {
	kind := tokInt
	for isDigit(l.peekByte(0)) {
		l.advance(1)
	}
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		kind = tokFloat
		l.advance(1)
		for isDigit(l.peekByte(0)) {
			l.advance(1)
		}
	}
	if e := l.peekByte(0); e == 'e' || e == 'E' {
		n := 1
		if s := l.peekByte(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peekByte(n)) {
			kind = tokFloat
			l.advance(n)
			for isDigit(l.peekByte(0)) {
				l.advance(1)
			}
		}
	}
	return kind
}

// str scans a quoted string including any ~{...} or ${...} placeholders.
func (l *lexer) str() error {
	start := l.pos()
	quote := l.src[l.off]
	l.advance(1)
	for l.off < len(l.src) {
		c := l.src[l.off]
		switch {
		case c == '\\':
			l.advance(2)
		case c == quote:
			l.advance(1)
			return nil
		case c == '\n':
			return &SyntaxError{Line: start.Line, Column: start.Column, Message: "unterminated string"}
		case (c == '~' || c == '$') && l.peekByte(1) == '{':
			l.advance(2)
			if err := l.placeholder(start); err != nil {
				return err
			}
		default:
			l.advance(1)
		}
	}
	return &SyntaxError{Line: start.Line, Column: start.Column, Message: "unterminated string"}
}

// placeholder skips to the brace closing a placeholder, stepping over nested
// strings.
func (l *lexer) placeholder(start wdl.Pos) error {
	depth := 1
	for l.off < len(l.src) {
		switch c := l.src[l.off]; c {
		case '"', '\'':
			if err := l.str(); err != nil {
				return err
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.advance(1)
				return nil
			}
		}
		l.advance(1)
	}
	return &SyntaxError{Line: start.Line, Column: start.Column, Message: "unterminated placeholder"}
}

// restOfLine returns the remainder of the current line, trimmed, and moves
// past it.
func (l *lexer) restOfLine() string {
	begin := l.off
	for l.off < len(l.src) && l.src[l.off] != '\n' && l.src[l.off] != '#' {
		l.advance(1)
	}
	return strings.TrimSpace(l.src[begin:l.off])
}

// skipCommand moves past a command body written as <<< ... >>> or { ... }.
func (l *lexer) skipCommand() error {
	l.skipSpace()
	start := l.pos()
	if strings.HasPrefix(l.src[l.off:], "<<<") {
		end := strings.Index(l.src[l.off+3:], ">>>")
		if end < 0 {
			return &SyntaxError{Line: start.Line, Column: start.Column, Message: "unterminated command section"}
		}
		l.advance(3 + end + 3)
		return nil
	}
	if l.peekByte(0) != '{' {
		return &SyntaxError{Line: start.Line, Column: start.Column, Message: "expected <<< or { after command"}
	}
	depth := 0
	for l.off < len(l.src) {
		switch l.src[l.off] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.advance(1)
				return nil
			}
		}
		l.advance(1)
	}
	return &SyntaxError{Line: start.Line, Column: start.Column, Message: "unterminated command section"}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
