// Package bundle assembles the Vidarr workflow bundle for a WDL document:
// parameters, output categories, the label-rewritten workflow source and the
// imported documents it needs.
package bundle

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/me/wdl2vidarr/internal/meta"
	"github.com/me/wdl2vidarr/internal/outputs"
	"github.com/me/wdl2vidarr/internal/parser"
	"github.com/me/wdl2vidarr/internal/rewrite"
	"github.com/me/wdl2vidarr/internal/typemap"
	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
)

// ErrNoWorkflow is returned for a document that only defines tasks or
// structs.
var ErrNoWorkflow = errors.New("document has no workflow")

// Assembler converts WDL documents into Vidarr bundles. It holds no state
// between conversions.
type Assembler struct {
	logger *slog.Logger
	parser *parser.Parser
}

// New creates an Assembler with the given logger.
func New(logger *slog.Logger) *Assembler {
	return &Assembler{
		logger: logger.With("component", "bundle"),
		parser: parser.New(logger),
	}
}

// Convert loads the document at path with its imports and assembles it.
func (a *Assembler) Convert(path string) (*vidarr.Workflow, error) {
	doc, err := a.parser.Load(path)
	if err != nil {
		return nil, err
	}
	return a.Assemble(doc)
}

// Assemble builds the bundle for a loaded document. Any failure aborts the
// conversion.
func (a *Assembler) Assemble(doc *wdl.Document) (*vidarr.Workflow, error) {
	wf := doc.Workflow
	if wf == nil {
		return nil, ErrNoWorkflow
	}

	structs := doc.AllStructs()
	table, err := typemap.Resolve(structs)
	if err != nil {
		return nil, fmt.Errorf("resolve structs: %w", err)
	}

	params, err := a.parameters(doc, table)
	if err != nil {
		return nil, err
	}

	lines := doc.Lines()
	classifier := outputs.New(a.logger, structs, table, lines)
	outs := make(map[string]*vidarr.OutputType, len(wf.Outputs))
	var edits []rewrite.Edit
	sentinel := false
	for _, out := range wf.Outputs {
		ann, err := meta.ForOutput(wf, out.Name)
		if err != nil {
			return nil, err
		}
		res, err := classifier.Classify(out, ann)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", out.Name, err)
		}
		outs[wf.Name+"."+out.Name] = res.Type
		edits = append(edits, res.Edits...)
		sentinel = sentinel || res.NeedsSentinel
	}

	source := doc.Source
	if len(edits) > 0 {
		if sentinel {
			edits = append(edits, rewrite.Sentinel(wf.Close, lines[wf.Close.Line-1]))
		}
		rewritten, err := rewrite.Apply(lines, edits)
		if err != nil {
			return nil, fmt.Errorf("rewrite workflow source: %w", err)
		}
		source = strings.Join(rewritten, "\n")
		a.logger.Debug("workflow source rewritten", "edits", len(edits), "sentinel", sentinel)
	}

	bundle := &vidarr.Workflow{
		AccessoryFiles: accessoryFiles(doc),
		Language:       vidarr.Language(doc.Version),
		Outputs:        outs,
		Parameters:     params,
		Workflow:       source,
	}
	a.logger.Info("workflow converted",
		"workflow", wf.Name,
		"parameters", len(params),
		"outputs", len(outs),
		"accessory_files", len(bundle.AccessoryFiles))
	return bundle, nil
}

func (a *Assembler) parameters(doc *wdl.Document, table typemap.Table) (map[string]*vidarr.Type, error) {
	wf := doc.Workflow
	inputs, err := availableInputs(doc, wf, "", nil)
	if err != nil {
		return nil, err
	}
	params := make(map[string]*vidarr.Type, len(inputs))
	for _, in := range inputs {
		ann, err := meta.ForInput(wf, in.Name)
		if err != nil {
			return nil, err
		}
		t, err := describe(in, ann, table)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in.Name, err)
		}
		params[wf.Name+"."+in.Name] = t
	}
	return params, nil
}

// describe builds the parameter descriptor of one input. Retry applies to
// the value itself, so it sits inside any optional wrapper.
func describe(in Input, ann meta.Annotation, table typemap.Table) (*vidarr.Type, error) {
	var t *vidarr.Type
	if ann.HasType {
		t = vidarr.Verbatim(ann.Type)
	} else {
		base := in.Type.WithOptional(false)
		mapped, err := typemap.Map(base, table)
		if err != nil {
			return nil, err
		}
		t = mapped
	}
	if ann.Retry {
		t = vidarr.Retry(t)
	}
	if !ann.HasType && in.Type.Optional {
		t = vidarr.Optional(t)
	}
	if in.HasDefault {
		t = vidarr.Optional(t)
	}
	return t, nil
}

// accessoryFiles collects the source of every imported document. Direct
// imports are keyed by their import URI, indirect ones by their path
// relative to the root document.
func accessoryFiles(doc *wdl.Document) map[string]string {
	files := make(map[string]string)
	seen := map[string]bool{doc.Path: true}
	root := filepath.Dir(doc.Path)

	for _, imp := range doc.Imports {
		if imp.Doc == nil || seen[imp.Doc.Path] {
			continue
		}
		seen[imp.Doc.Path] = true
		files[imp.URI] = imp.Doc.Source
	}

	var walk func(d *wdl.Document)
	walk = func(d *wdl.Document) {
		for _, imp := range d.Imports {
			if imp.Doc == nil {
				continue
			}
			if !seen[imp.Doc.Path] {
				seen[imp.Doc.Path] = true
				key, err := filepath.Rel(root, imp.Doc.Path)
				if err != nil {
					key = imp.Doc.Path
				}
				files[filepath.ToSlash(key)] = imp.Doc.Source
			}
			walk(imp.Doc)
		}
	}
	walk(doc)
	return files
}
