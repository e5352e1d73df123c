// Package parser loads WDL documents and their imports into the typed model
// of pkg/wdl, keeping the source positions the converter rewrites against.
package parser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

// Parser converts WDL source into typed documents.
type Parser struct {
	logger    *slog.Logger
	validator *Validator
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{
		logger:    logger.With("component", "parser"),
		validator: NewValidator(logger),
	}
}

// Load reads the document at path and every document it imports, relative
// imports being resolved against the importing document. Problems in the
// source are reported together as an *AggregateParseError.
func (p *Parser) Load(path string) (*wdl.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.load(path, abs, string(src))
}

// Parse parses src as if it had been read from path. Imports are resolved
// against the directory of path.
func (p *Parser) Parse(path string, src []byte) (*wdl.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return p.load(path, abs, string(src))
}

func (p *Parser) load(display, abs, src string) (*wdl.Document, error) {
	l := &loader{p: p, docs: make(map[string]*wdl.Document), active: make(map[string]bool)}
	doc := l.parse(abs, src)

	if len(l.errs) > 0 {
		for i := range l.errs {
			if l.errs[i].Path == abs {
				l.errs[i].Path = display
			}
		}
		return nil, &AggregateParseError{Path: display, Errors: l.errs}
	}
	p.logger.Debug("document loaded", "path", abs, "version", doc.Version, "documents", len(l.docs))
	return doc, nil
}

// loader tracks the documents loaded for one root so that shared imports are
// parsed once and cycles are reported.
type loader struct {
	p      *Parser
	docs   map[string]*wdl.Document
	active map[string]bool
	errs   []SyntaxError
}

func (l *loader) parse(abs, src string) *wdl.Document {
	doc, serr := parseDocument(abs, src)
	if serr != nil {
		l.errs = append(l.errs, *serr)
		return nil
	}
	if doc.Version == "draft-2" {
		promoteUnboundDecls(doc)
	}
	l.docs[abs] = doc

	l.active[abs] = true
	failed := false
	for _, imp := range doc.Imports {
		if !l.resolve(doc, imp) {
			failed = true
		}
	}
	delete(l.active, abs)

	// Checking a document with a broken import would only repeat the problem.
	if !failed {
		l.errs = append(l.errs, l.p.validator.Validate(doc)...)
	}
	return doc
}

func (l *loader) resolve(doc *wdl.Document, imp *wdl.Import) bool {
	fail := func(format string, args ...any) bool {
		l.errs = append(l.errs, SyntaxError{
			Path:    doc.Path,
			Line:    imp.Span.Start.Line,
			Column:  imp.Span.Start.Column,
			Message: fmt.Sprintf(format, args...),
		})
		return false
	}

	if strings.Contains(imp.URI, "://") {
		return fail("cannot import %s: only local files can be imported", imp.URI)
	}
	target := imp.URI
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(doc.Path), target)
	}
	target = filepath.Clean(target)

	if l.active[target] {
		return fail("import cycle through %s", imp.URI)
	}
	if loaded, ok := l.docs[target]; ok {
		imp.Doc = loaded
		return true
	}

	src, err := os.ReadFile(target)
	if err != nil {
		return fail("cannot read import %s: %v", imp.URI, err)
	}
	l.p.logger.Debug("loading import", "uri", imp.URI, "path", target)
	imp.Doc = l.parse(target, string(src))
	return imp.Doc != nil
}

// promoteUnboundDecls treats unbound declarations outside input sections as
// inputs, as pre-1.0 documents have no input sections.
func promoteUnboundDecls(doc *wdl.Document) {
	for _, t := range doc.Tasks {
		var private []*wdl.Decl
		for _, d := range t.Private {
			if d.Expr == nil {
				t.Inputs = append(t.Inputs, d)
			} else {
				private = append(private, d)
			}
		}
		t.Private = private
	}
	if wf := doc.Workflow; wf != nil {
		var body []wdl.Element
		for _, el := range wf.Body {
			if d, ok := el.(*wdl.Decl); ok && d.Expr == nil {
				wf.Inputs = append(wf.Inputs, d)
				continue
			}
			body = append(body, el)
		}
		wf.Body = body
	}
}
