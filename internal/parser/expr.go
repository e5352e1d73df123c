package parser

import (
	"strconv"
	"unicode"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

func (s *syntax) expr() *wdl.Expr {
	return s.binary(1)
}

func (s *syntax) binary(minPrec int) *wdl.Expr {
	left := s.unary()
	for {
		prec, ok := binaryPrecedence[s.tok.text]
		if !ok || s.tok.kind != tokPunct || prec < minPrec {
			return left
		}
		op := s.tok.text
		s.next()
		right := s.binary(prec + 1)
		left = &wdl.Expr{
			Kind:  wdl.ExprBinary,
			Value: op,
			Args:  []*wdl.Expr{left, right},
			Span:  wdl.Span{Start: left.Span.Start, End: right.Span.End},
		}
	}
}

func (s *syntax) unary() *wdl.Expr {
	if s.atPunct("!") || s.atPunct("-") || s.atPunct("+") {
		start := s.tok.pos
		op := s.tok.text
		s.next()
		operand := s.unary()
		return &wdl.Expr{Kind: wdl.ExprUnary, Value: op, Args: []*wdl.Expr{operand}, Span: s.span(start)}
	}
	return s.postfix(s.primary())
}

func (s *syntax) postfix(e *wdl.Expr) *wdl.Expr {
	for {
		switch {
		case s.atPunct("."):
			s.next()
			name := s.ident("member name")
			e = &wdl.Expr{Kind: wdl.ExprMember, Value: name, Args: []*wdl.Expr{e}, Span: s.span(e.Span.Start)}
		case s.atPunct("["):
			s.next()
			index := s.expr()
			s.expect("]")
			e = &wdl.Expr{Kind: wdl.ExprIndex, Args: []*wdl.Expr{e, index}, Span: s.span(e.Span.Start)}
		default:
			return e
		}
	}
}

func (s *syntax) primary() *wdl.Expr {
	start := s.tok.pos
	tok := s.tok

	switch tok.kind {
	case tokInt, tokFloat:
		s.next()
		return &wdl.Expr{Kind: wdl.ExprLiteral, Value: tok.text, Span: s.span(start)}
	case tokString:
		s.next()
		return &wdl.Expr{Kind: wdl.ExprString, Value: tok.text, Span: s.span(start)}
	case tokIdent:
		return s.identExpr()
	}

	switch {
	case s.atPunct("("):
		s.next()
		first := s.expr()
		if s.accept(",") {
			second := s.expr()
			s.expect(")")
			return &wdl.Expr{Kind: wdl.ExprPair, Args: []*wdl.Expr{first, second}, Span: s.span(start)}
		}
		s.expect(")")
		// The parentheses belong to the expression's source text.
		first.Span = s.span(start)
		return first

	case s.atPunct("["):
		s.next()
		e := &wdl.Expr{Kind: wdl.ExprArray}
		for !s.atPunct("]") && s.tok.kind != tokEOF {
			e.Args = append(e.Args, s.expr())
			if !s.accept(",") {
				break
			}
		}
		s.expect("]")
		e.Span = s.span(start)
		return e

	case s.atPunct("{"):
		s.next()
		e := &wdl.Expr{Kind: wdl.ExprMap}
		for !s.atPunct("}") && s.tok.kind != tokEOF {
			key := s.expr()
			s.expect(":")
			e.Entries = append(e.Entries, wdl.Entry{Key: key, Value: s.expr()})
			if !s.accept(",") {
				break
			}
		}
		s.expect("}")
		e.Span = s.span(start)
		return e
	}

	s.fail(start, "expected expression but found %s", tok.describe())
	return &wdl.Expr{Kind: wdl.ExprLiteral, Span: wdl.Span{Start: start, End: start}}
}

func (s *syntax) identExpr() *wdl.Expr {
	start := s.tok.pos
	name := s.tok.text
	s.next()

	switch name {
	case "true", "false", "None", "null":
		return &wdl.Expr{Kind: wdl.ExprLiteral, Value: name, Span: s.span(start)}
	case "if":
		cond := s.expr()
		s.expectKeyword("then")
		then := s.expr()
		s.expectKeyword("else")
		els := s.expr()
		return &wdl.Expr{Kind: wdl.ExprIf, Args: []*wdl.Expr{cond, then, els}, Span: s.span(start)}
	}

	if s.atPunct("(") {
		s.next()
		e := &wdl.Expr{Kind: wdl.ExprApply, Value: name}
		for !s.atPunct(")") && s.tok.kind != tokEOF {
			e.Args = append(e.Args, s.expr())
			if !s.accept(",") {
				break
			}
		}
		s.expect(")")
		e.Span = s.span(start)
		return e
	}

	// object { ... } or a struct literal Name { ... }
	if s.atPunct("{") && (name == "object" || unicode.IsUpper(rune(name[0]))) {
		s.next()
		e := &wdl.Expr{Kind: wdl.ExprObject, Value: name}
		for !s.atPunct("}") && s.tok.kind != tokEOF {
			field := s.ident("member name")
			s.expect(":")
			e.Entries = append(e.Entries, wdl.Entry{Field: field, Value: s.expr()})
			if !s.accept(",") {
				break
			}
		}
		s.expect("}")
		e.Span = s.span(start)
		return e
	}

	return &wdl.Expr{Kind: wdl.ExprIdent, Value: name, Span: s.span(start)}
}

var primitiveKinds = map[string]wdl.Kind{
	"Boolean":   wdl.Boolean,
	"Int":       wdl.Int,
	"Float":     wdl.Float,
	"String":    wdl.String,
	"File":      wdl.File,
	"Directory": wdl.Directory,
	"Object":    wdl.Object,
}

// typ parses a type and returns it with its source span, quantifiers
// included.
func (s *syntax) typ() (*wdl.Type, wdl.Span) {
	start := s.tok.pos
	t := s.baseType()
	if t.Kind == wdl.Array && s.accept("+") {
		t.Nonempty = true
	}
	if s.accept("?") {
		t.Optional = true
	}
	return t, s.span(start)
}

func (s *syntax) baseType() *wdl.Type {
	name := s.ident("type")
	if s.failed() {
		return wdl.Primitive(wdl.String)
	}
	if k, ok := primitiveKinds[name]; ok {
		return wdl.Primitive(k)
	}
	switch name {
	case "Array":
		s.expect("[")
		item, _ := s.typ()
		s.expect("]")
		return wdl.ArrayOf(item, false)
	case "Pair":
		s.expect("[")
		left, _ := s.typ()
		s.expect(",")
		right, _ := s.typ()
		s.expect("]")
		return wdl.PairOf(left, right)
	case "Map":
		s.expect("[")
		key, _ := s.typ()
		s.expect(",")
		value, _ := s.typ()
		s.expect("]")
		return wdl.MapOf(key, value)
	}
	return wdl.Struct(name)
}

// metaBlock parses a meta, parameter_meta or output_meta section.
func (s *syntax) metaBlock() wdl.Meta {
	m := make(wdl.Meta)
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		key := s.ident("meta key")
		s.expect(":")
		m[key] = s.metaValue()
		s.accept(",")
	}
	s.expect("}")
	return m
}

func (s *syntax) metaValue() any {
	tok := s.tok
	switch tok.kind {
	case tokString:
		s.next()
		return unquote(tok.text)
	case tokInt:
		s.next()
		n, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			s.fail(tok.pos, "invalid integer %s", tok.text)
		}
		return n
	case tokFloat:
		s.next()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			s.fail(tok.pos, "invalid float %s", tok.text)
		}
		return f
	case tokIdent:
		s.next()
		switch tok.text {
		case "true":
			return true
		case "false":
			return false
		case "null":
			return nil
		}
		s.fail(tok.pos, "expected meta value but found %s", tok.describe())
		return nil
	}

	switch {
	case s.atPunct("-"):
		s.next()
		switch v := s.metaValue().(type) {
		case int64:
			return -v
		case float64:
			return -v
		}
		s.fail(tok.pos, "expected number after -")
		return nil

	case s.atPunct("["):
		s.next()
		list := []any{}
		for !s.atPunct("]") && s.tok.kind != tokEOF {
			list = append(list, s.metaValue())
			if !s.accept(",") {
				break
			}
		}
		s.expect("]")
		return list

	case s.atPunct("{"):
		s.next()
		obj := map[string]any{}
		for !s.atPunct("}") && s.tok.kind != tokEOF {
			var key string
			if s.tok.kind == tokString {
				key = unquote(s.tok.text)
				s.next()
			} else {
				key = s.ident("meta key")
			}
			s.expect(":")
			obj[key] = s.metaValue()
			if !s.accept(",") {
				break
			}
		}
		s.expect("}")
		return obj
	}

	s.fail(tok.pos, "expected meta value but found %s", tok.describe())
	return nil
}
