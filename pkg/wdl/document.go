// Package wdl defines the parsed form of a WDL document: the type grammar,
// declarations with their source positions, and the task/workflow structure
// the Vidarr converter consumes.
package wdl

import "strings"

// Document is a parsed WDL document together with its transitively loaded
// imports.
type Document struct {
	Path    string // absolute path on disk
	Source  string // raw source text, byte-for-byte
	Version string // "1.0", "1.1", ... or "draft-2" when no version statement is present

	Imports  []*Import
	Structs  []*StructTypeDef
	Tasks    []*Task
	Workflow *Workflow
}

// Lines splits the source into lines. Joining the result with "\n" yields
// Source again.
func (d *Document) Lines() []string {
	return strings.Split(d.Source, "\n")
}

// Task returns the task with the given name, or nil.
func (d *Document) Task(name string) *Task {
	for _, t := range d.Tasks {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Import returns the import bound to the given namespace, or nil.
func (d *Document) Import(namespace string) *Import {
	for _, imp := range d.Imports {
		if imp.Namespace == namespace {
			return imp
		}
	}
	return nil
}

// AllStructs returns the structs declared in this document and every
// transitively imported one, with import aliases applied. The first
// definition of a name wins.
func (d *Document) AllStructs() []*StructTypeDef {
	var out []*StructTypeDef
	seen := make(map[string]bool)
	var visit func(doc *Document, renames map[string]string)
	visit = func(doc *Document, renames map[string]string) {
		for _, s := range doc.Structs {
			r := s.Rename(renames)
			if seen[r.Name] {
				continue
			}
			seen[r.Name] = true
			out = append(out, r)
		}
		for _, imp := range doc.Imports {
			if imp.Doc == nil {
				continue
			}
			visit(imp.Doc, ComposeRenames(imp.Aliases, renames))
		}
	}
	visit(d, nil)
	return out
}

// ComposeRenames applies outer on top of inner: a name renamed by the import
// alias is then subject to the renames of the importing document.
func ComposeRenames(inner, outer map[string]string) map[string]string {
	if len(inner) == 0 && len(outer) == 0 {
		return nil
	}
	out := make(map[string]string, len(inner)+len(outer))
	for k, v := range outer {
		out[k] = v
	}
	for k, v := range inner {
		if o, ok := outer[v]; ok {
			v = o
		}
		out[k] = v
	}
	return out
}

// Callee is the target of a call: either a task or a sub-workflow.
type Callee struct {
	Task     *Task
	Workflow *Workflow
	Doc      *Document
}

// Inputs returns the input declarations of the callee.
func (c Callee) Inputs() []*Decl {
	if c.Task != nil {
		return c.Task.Inputs
	}
	if c.Workflow != nil {
		return c.Workflow.Inputs
	}
	return nil
}

// ResolveCallee looks up a call target written as "task" or "namespace.name".
func (d *Document) ResolveCallee(name string) (Callee, bool) {
	ns, local, found := strings.Cut(name, ".")
	if !found {
		if t := d.Task(name); t != nil {
			return Callee{Task: t, Doc: d}, true
		}
		return Callee{}, false
	}
	imp := d.Import(ns)
	if imp == nil || imp.Doc == nil {
		return Callee{}, false
	}
	if strings.Contains(local, ".") {
		return imp.Doc.ResolveCallee(local)
	}
	if t := imp.Doc.Task(local); t != nil {
		return Callee{Task: t, Doc: imp.Doc}, true
	}
	if wf := imp.Doc.Workflow; wf != nil && wf.Name == local {
		return Callee{Workflow: wf, Doc: imp.Doc}, true
	}
	return Callee{}, false
}

// Import is an import statement and the document it loaded.
type Import struct {
	URI       string
	Namespace string
	Aliases   map[string]string // struct name in the imported document -> local name
	Span      Span
	Doc       *Document
}

// StructTypeDef is a user-defined record type. Members keep declaration
// order.
type StructTypeDef struct {
	Name    string
	Members []Member
	Span    Span
}

// Member is a named struct field.
type Member struct {
	Name string
	Type *Type
}

// Member returns the type of the named member, or nil.
func (s *StructTypeDef) Member(name string) *Type {
	for _, m := range s.Members {
		if m.Name == name {
			return m.Type
		}
	}
	return nil
}

// Rename returns a copy of s with struct names replaced according to renames.
func (s *StructTypeDef) Rename(renames map[string]string) *StructTypeDef {
	if len(renames) == 0 {
		return s
	}
	c := &StructTypeDef{Name: s.Name, Span: s.Span}
	if n, ok := renames[s.Name]; ok {
		c.Name = n
	}
	for _, m := range s.Members {
		c.Members = append(c.Members, Member{Name: m.Name, Type: m.Type.Rename(renames)})
	}
	return c
}

// Decl is a typed declaration, optionally bound to an expression.
type Decl struct {
	Name     string
	Type     *Type
	Expr     *Expr // nil when unbound
	Span     Span  // whole declaration
	TypeSpan Span
	NameSpan Span
}

// Meta is a meta or parameter_meta block. Values are string, int64, float64,
// bool, nil, []any or map[string]any.
type Meta map[string]any

// Task is a task definition. Only the parts relevant to conversion are kept.
type Task struct {
	Name          string
	Inputs        []*Decl
	Private       []*Decl
	Outputs       []*Decl
	Meta          Meta
	ParameterMeta Meta
	Span          Span
}

// Workflow is the workflow definition of a document.
type Workflow struct {
	Name          string
	Inputs        []*Decl
	Body          []Element
	Outputs       []*Decl
	Meta          Meta
	ParameterMeta Meta
	OutputMeta    Meta
	Span          Span
	Close         Pos // position of the closing brace
}

// Element is a workflow body element: *Decl, *Call or *Section.
type Element interface {
	ElementSpan() Span
}

func (d *Decl) ElementSpan() Span    { return d.Span }
func (c *Call) ElementSpan() Span    { return c.Span }
func (s *Section) ElementSpan() Span { return s.Span }

// Call invokes a task or sub-workflow.
type Call struct {
	Callee string // as written, e.g. "align" or "lib.align"
	Alias  string
	After  []string
	Inputs []CallInput
	Span   Span
}

// Name is the name the call is bound to in the workflow namespace.
func (c *Call) Name() string {
	if c.Alias != "" {
		return c.Alias
	}
	if i := strings.LastIndex(c.Callee, "."); i >= 0 {
		return c.Callee[i+1:]
	}
	return c.Callee
}

// Supplies reports whether the call binds the named input.
func (c *Call) Supplies(input string) bool {
	for _, in := range c.Inputs {
		if in.Name == input {
			return true
		}
	}
	return false
}

// CallInput binds one callee input. Expr is nil for the shorthand form
// where the input takes the value of the same-named identifier.
type CallInput struct {
	Name string
	Expr *Expr
}

// SectionKind distinguishes scatter and conditional sections.
type SectionKind int

const (
	Scatter SectionKind = iota
	Conditional
)

// Section is a scatter or conditional block in a workflow body.
type Section struct {
	Kind     SectionKind
	Variable string // scatter variable
	Expr     *Expr  // collection or condition
	Body     []Element
	Span     Span
}
