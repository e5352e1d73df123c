package parser

import (
	"fmt"
	"log/slog"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

// Validator performs structural checks on a loaded document: duplicate
// names, unknown struct types, unresolvable calls and call cycles.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{logger: logger.With("component", "validator")}
}

// Validate checks a document whose imports have been loaded. Returns nil if
// the document is valid.
func (v *Validator) Validate(doc *wdl.Document) []SyntaxError {
	c := &checker{doc: doc, known: make(map[string]bool)}
	for _, s := range doc.AllStructs() {
		c.known[s.Name] = true
	}

	c.validateStructs()
	for _, t := range doc.Tasks {
		c.validateTask(t)
	}
	if doc.Workflow != nil {
		c.validateWorkflow(doc.Workflow)
	}

	if len(c.errs) > 0 {
		v.logger.Debug("validation failed", "path", doc.Path, "errors", len(c.errs))
	}
	return c.errs
}

type checker struct {
	doc   *wdl.Document
	known map[string]bool
	errs  []SyntaxError
}

func (c *checker) errorf(at wdl.Pos, format string, args ...any) {
	c.errs = append(c.errs, SyntaxError{
		Path:    c.doc.Path,
		Line:    at.Line,
		Column:  at.Column,
		Message: fmt.Sprintf(format, args...),
	})
}

// names reports the second and later uses of a name within one scope.
type names map[string]bool

func (c *checker) declare(scope names, name string, at wdl.Pos) {
	if scope[name] {
		c.errorf(at, "duplicate name %s", name)
		return
	}
	scope[name] = true
}

func (c *checker) checkType(t *wdl.Type, at wdl.Pos) {
	t.Walk(func(n *wdl.Type) {
		if n.Kind == wdl.StructInstance && !c.known[n.Name] {
			c.errorf(at, "unknown type %s", n.Name)
		}
	})
}

func (c *checker) checkDecls(scope names, decls []*wdl.Decl) {
	for _, d := range decls {
		c.declare(scope, d.Name, d.NameSpan.Start)
		c.checkType(d.Type, d.TypeSpan.Start)
	}
}

func (c *checker) validateStructs() {
	seen := make(names)
	for _, s := range c.doc.Structs {
		c.declare(seen, s.Name, s.Span.Start)
		members := make(names)
		for _, m := range s.Members {
			c.declare(members, m.Name, s.Span.Start)
			c.checkType(m.Type, s.Span.Start)
		}
	}
}

func (c *checker) validateTask(t *wdl.Task) {
	scope := make(names)
	c.checkDecls(scope, t.Inputs)
	c.checkDecls(scope, t.Private)
	c.checkDecls(make(names), t.Outputs)
}

func (c *checker) validateWorkflow(wf *wdl.Workflow) {
	if c.doc.Task(wf.Name) != nil {
		c.errorf(wf.Span.Start, "workflow %s has the same name as a task", wf.Name)
	}
	scope := make(names)
	c.checkDecls(scope, wf.Inputs)
	c.validateBody(scope, wf.Body)
	c.checkDecls(make(names), wf.Outputs)

	if _, err := BuildCallGraph(wf); err != nil {
		c.errorf(wf.Span.Start, "%v", err)
	}
}

func (c *checker) validateBody(scope names, body []wdl.Element) {
	for _, el := range body {
		switch el := el.(type) {
		case *wdl.Decl:
			c.checkDecls(scope, []*wdl.Decl{el})
		case *wdl.Call:
			c.validateCall(scope, el)
		case *wdl.Section:
			c.validateBody(scope, el.Body)
		}
	}
}

func (c *checker) validateCall(scope names, call *wdl.Call) {
	c.declare(scope, call.Name(), call.Span.Start)
	callee, ok := c.doc.ResolveCallee(call.Callee)
	if !ok {
		c.errorf(call.Span.Start, "no task or workflow named %s", call.Callee)
		return
	}
	inputs := make(names)
	for _, d := range callee.Inputs() {
		inputs[d.Name] = true
	}
	for _, in := range call.Inputs {
		if !inputs[in.Name] {
			c.errorf(call.Span.Start, "call %s has no input named %s", call.Name(), in.Name)
		}
	}
}
