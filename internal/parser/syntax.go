package parser

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

// syntax is a recursive-descent parser over one document. The first error is
// sticky: once set, the current token becomes EOF so every loop unwinds.
type syntax struct {
	lx   *lexer
	tok  token
	prev token
	err  *SyntaxError
}

func (s *syntax) next() {
	if s.err != nil {
		s.tok = token{kind: tokEOF, pos: s.tok.pos, end: s.tok.pos}
		return
	}
	s.prev = s.tok
	tok, err := s.lx.next()
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			s.err = se
		} else {
			s.err = &SyntaxError{Line: s.tok.end.Line, Column: s.tok.end.Column, Message: err.Error()}
		}
		s.tok = token{kind: tokEOF, pos: s.tok.end, end: s.tok.end}
		return
	}
	s.tok = tok
}

func (s *syntax) fail(at wdl.Pos, format string, args ...any) {
	if s.err == nil {
		s.err = &SyntaxError{Line: at.Line, Column: at.Column, Message: fmt.Sprintf(format, args...)}
	}
	s.tok = token{kind: tokEOF, pos: s.tok.pos, end: s.tok.pos}
}

func (s *syntax) failed() bool { return s.err != nil }

func (s *syntax) atPunct(text string) bool { return s.tok.is(tokPunct, text) }

func (s *syntax) atKeyword(text string) bool { return s.tok.is(tokIdent, text) }

// accept consumes the punctuation if present.
func (s *syntax) accept(text string) bool {
	if s.atPunct(text) {
		s.next()
		return true
	}
	return false
}

func (s *syntax) expect(text string) token {
	if !s.atPunct(text) {
		s.fail(s.tok.pos, "expected %q but found %s", text, s.tok.describe())
		return s.tok
	}
	s.next()
	return s.prev
}

func (s *syntax) expectKeyword(text string) {
	if !s.atKeyword(text) {
		s.fail(s.tok.pos, "expected %q but found %s", text, s.tok.describe())
		return
	}
	s.next()
}

func (s *syntax) ident(what string) string {
	if s.tok.kind != tokIdent {
		s.fail(s.tok.pos, "expected %s but found %s", what, s.tok.describe())
		return ""
	}
	s.next()
	return s.prev.text
}

func (s *syntax) span(start wdl.Pos) wdl.Span {
	return wdl.Span{Start: start, End: s.prev.end}
}

func parseDocument(file, src string) (*wdl.Document, *SyntaxError) {
	doc := &wdl.Document{Path: file, Source: src, Version: "draft-2"}
	s := &syntax{lx: newLexer(src)}
	s.next()

	if s.atKeyword("version") {
		at := s.tok.pos
		doc.Version = s.lx.restOfLine()
		if doc.Version == "" {
			s.fail(at, "missing version number")
		}
		s.next()
	}

	for s.tok.kind != tokEOF {
		switch {
		case s.atKeyword("import"):
			doc.Imports = append(doc.Imports, s.importStmt())
		case s.atKeyword("struct"):
			doc.Structs = append(doc.Structs, s.structDef())
		case s.atKeyword("task"):
			doc.Tasks = append(doc.Tasks, s.task())
		case s.atKeyword("workflow"):
			at := s.tok.pos
			wf := s.workflow()
			if doc.Workflow != nil && !s.failed() {
				s.fail(at, "document has more than one workflow")
			}
			doc.Workflow = wf
		case s.atKeyword("version"):
			s.fail(s.tok.pos, "version must be the first statement")
		default:
			s.fail(s.tok.pos, "expected import, struct, task or workflow but found %s", s.tok.describe())
		}
	}
	if s.err != nil {
		s.err.Path = file
		return nil, s.err
	}
	return doc, nil
}

func (s *syntax) importStmt() *wdl.Import {
	start := s.tok.pos
	s.next()
	if s.tok.kind != tokString {
		s.fail(s.tok.pos, "expected import URI but found %s", s.tok.describe())
		return &wdl.Import{}
	}
	imp := &wdl.Import{URI: unquote(s.tok.text)}
	s.next()
	imp.Namespace = strings.TrimSuffix(path.Base(imp.URI), ".wdl")
	if s.atKeyword("as") {
		s.next()
		imp.Namespace = s.ident("namespace")
	}
	for s.atKeyword("alias") {
		s.next()
		from := s.ident("struct name")
		s.expectKeyword("as")
		to := s.ident("struct alias")
		if imp.Aliases == nil {
			imp.Aliases = make(map[string]string)
		}
		imp.Aliases[from] = to
	}
	imp.Span = s.span(start)
	return imp
}

func (s *syntax) structDef() *wdl.StructTypeDef {
	start := s.tok.pos
	s.next()
	def := &wdl.StructTypeDef{Name: s.ident("struct name")}
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		if s.atKeyword("meta") || s.atKeyword("parameter_meta") {
			s.next()
			s.metaBlock()
			continue
		}
		t, _ := s.typ()
		name := s.ident("member name")
		def.Members = append(def.Members, wdl.Member{Name: name, Type: t})
	}
	s.expect("}")
	def.Span = s.span(start)
	return def
}

func (s *syntax) task() *wdl.Task {
	start := s.tok.pos
	s.next()
	t := &wdl.Task{Name: s.ident("task name")}
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		switch {
		case s.atKeyword("input"):
			s.next()
			t.Inputs = append(t.Inputs, s.declBlock(false)...)
		case s.atKeyword("output"):
			s.next()
			t.Outputs = append(t.Outputs, s.declBlock(true)...)
		case s.atKeyword("command"):
			s.next()
			s.command()
		case s.atKeyword("meta"):
			s.next()
			t.Meta = s.metaBlock()
		case s.atKeyword("parameter_meta"):
			s.next()
			t.ParameterMeta = s.metaBlock()
		case s.atKeyword("runtime"), s.atKeyword("requirements"), s.atKeyword("hints"):
			s.next()
			s.attributeBlock()
		default:
			t.Private = append(t.Private, s.decl(false))
		}
	}
	s.expect("}")
	t.Span = s.span(start)
	return t
}

// command skips the command body. The lexer has already read the token
// after the keyword, so rewind to the end of the keyword first.
func (s *syntax) command() {
	if s.failed() {
		return
	}
	kw := s.prev
	s.lx.off, s.lx.line, s.lx.col = offsetOf(s.lx.src, kw.end), kw.end.Line, kw.end.Column
	if err := s.lx.skipCommand(); err != nil {
		var se *SyntaxError
		errors.As(err, &se)
		s.err = se
		s.tok = token{kind: tokEOF, pos: kw.end, end: kw.end}
		return
	}
	s.next()
}

func (s *syntax) workflow() *wdl.Workflow {
	start := s.tok.pos
	s.next()
	wf := &wdl.Workflow{Name: s.ident("workflow name")}
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		switch {
		case s.atKeyword("input"):
			s.next()
			wf.Inputs = append(wf.Inputs, s.declBlock(false)...)
		case s.atKeyword("output"):
			s.next()
			wf.Outputs = append(wf.Outputs, s.declBlock(true)...)
		case s.atKeyword("meta"):
			s.next()
			wf.Meta = s.metaBlock()
		case s.atKeyword("parameter_meta"):
			s.next()
			wf.ParameterMeta = s.metaBlock()
		case s.atKeyword("output_meta"):
			s.next()
			wf.OutputMeta = s.metaBlock()
		case s.atKeyword("hints"):
			s.next()
			s.attributeBlock()
		default:
			wf.Body = append(wf.Body, s.element())
		}
	}
	wf.Close = s.tok.pos
	s.expect("}")
	wf.Span = s.span(start)
	return wf
}

func (s *syntax) element() wdl.Element {
	switch {
	case s.atKeyword("call"):
		return s.call()
	case s.atKeyword("scatter"):
		start := s.tok.pos
		s.next()
		s.expect("(")
		sec := &wdl.Section{Kind: wdl.Scatter, Variable: s.ident("scatter variable")}
		s.expectKeyword("in")
		sec.Expr = s.expr()
		s.expect(")")
		sec.Body = s.body()
		sec.Span = s.span(start)
		return sec
	case s.atKeyword("if"):
		start := s.tok.pos
		s.next()
		s.expect("(")
		sec := &wdl.Section{Kind: wdl.Conditional, Expr: s.expr()}
		s.expect(")")
		sec.Body = s.body()
		sec.Span = s.span(start)
		return sec
	}
	return s.decl(false)
}

func (s *syntax) body() []wdl.Element {
	var out []wdl.Element
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		out = append(out, s.element())
	}
	s.expect("}")
	return out
}

func (s *syntax) call() *wdl.Call {
	start := s.tok.pos
	s.next()
	c := &wdl.Call{Callee: s.ident("call target")}
	for s.atPunct(".") {
		s.next()
		c.Callee += "." + s.ident("call target")
	}
	if s.atKeyword("as") {
		s.next()
		c.Alias = s.ident("call alias")
	}
	for s.atKeyword("after") {
		s.next()
		c.After = append(c.After, s.ident("call name"))
	}
	if s.accept("{") {
		if s.atKeyword("input") {
			s.next()
			s.expect(":")
		}
		for !s.atPunct("}") && s.tok.kind != tokEOF {
			in := wdl.CallInput{Name: s.ident("input name")}
			if s.accept("=") {
				in.Expr = s.expr()
			}
			c.Inputs = append(c.Inputs, in)
			if !s.accept(",") {
				break
			}
		}
		s.expect("}")
	}
	c.Span = s.span(start)
	return c
}

// declBlock parses an input or output section.
func (s *syntax) declBlock(bound bool) []*wdl.Decl {
	var out []*wdl.Decl
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		out = append(out, s.decl(bound))
	}
	s.expect("}")
	return out
}

func (s *syntax) decl(bound bool) *wdl.Decl {
	start := s.tok.pos
	t, typeSpan := s.typ()
	d := &wdl.Decl{Type: t, TypeSpan: typeSpan}
	nameStart := s.tok.pos
	d.Name = s.ident("declaration name")
	d.NameSpan = s.span(nameStart)
	if s.accept("=") {
		d.Expr = s.expr()
	} else if bound && !s.failed() {
		s.fail(s.tok.pos, "declaration %s must be bound to an expression", d.Name)
	}
	d.Span = s.span(start)
	return d
}

// attributeBlock parses runtime, requirements and hints sections, whose
// values are not needed.
func (s *syntax) attributeBlock() {
	s.expect("{")
	for !s.atPunct("}") && s.tok.kind != tokEOF {
		s.ident("attribute name")
		s.expect(":")
		s.expr()
		s.accept(",")
	}
	s.expect("}")
}

// offsetOf converts a position to a byte offset in src.
func offsetOf(src string, p wdl.Pos) int {
	off := 0
	for line := 1; line < p.Line; line++ {
		i := strings.IndexByte(src[off:], '\n')
		if i < 0 {
			return len(src)
		}
		off += i + 1
	}
	return min(off+p.Column-1, len(src))
}

// unquote strips the quotes of a string token and resolves simple escapes.
// Placeholders are kept as written.
func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	body := lit[1 : len(lit)-1]
	if !strings.ContainsRune(body, '\\') {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		default:
			sb.WriteByte(body[i])
		}
	}
	return sb.String()
}
