// Package outputs classifies workflow outputs into Vidarr output categories
// and computes the source edits that attach labels to files.
package outputs

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/me/wdl2vidarr/internal/meta"
	"github.com/me/wdl2vidarr/internal/rewrite"
	"github.com/me/wdl2vidarr/internal/typemap"
	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
)

// UnsupportedOutputTypeError is returned for an output whose type matches no
// Vidarr category.
type UnsupportedOutputTypeError struct {
	Output string
	Type   string
}

func (e *UnsupportedOutputTypeError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("vidarr cannot process output type %s", e.Type)
	}
	return fmt.Sprintf("vidarr cannot process output type %s in output %s", e.Type, e.Output)
}

// UnsupportedLabelUsageError is returned when a label is attached to an
// output that cannot carry one.
type UnsupportedLabelUsageError struct {
	Output string
	Type   string
	Reason string
}

func (e *UnsupportedLabelUsageError) Error() string {
	return fmt.Sprintf("output %s of type %s cannot be labelled: %s", e.Output, e.Type, e.Reason)
}

// Result is the classification of one output.
type Result struct {
	Type *vidarr.OutputType

	// Edits rewrite the output declaration to carry its label.
	Edits []rewrite.Edit

	// NeedsSentinel is set when Edits refer to the sentinel declaration.
	NeedsSentinel bool
}

// Classifier classifies the outputs of one document.
type Classifier struct {
	logger  *slog.Logger
	structs map[string]*wdl.StructTypeDef
	table   typemap.Table
	source  []string
}

// New creates a Classifier. structs and table describe every struct visible
// to the workflow; source is the workflow document split into lines.
func New(logger *slog.Logger, structs []*wdl.StructTypeDef, table typemap.Table, source []string) *Classifier {
	byName := make(map[string]*wdl.StructTypeDef, len(structs))
	for _, s := range structs {
		byName[s.Name] = s
	}
	return &Classifier{
		logger:  logger.With("component", "outputs"),
		structs: byName,
		table:   table,
		source:  source,
	}
}

// Classify determines the Vidarr category of an output declaration.
func (c *Classifier) Classify(out *wdl.Decl, ann meta.Annotation) (Result, error) {
	if ann.HasType {
		if ann.HasLabel {
			c.logger.Warn("label superseded by explicit type", "output", out.Name, "label", ann.Label)
		}
		return Result{Type: vidarr.VerbatimOutput(ann.Type)}, nil
	}

	if ann.HasLabel {
		return c.labelled(out, ann.Label)
	}

	t, err := c.classify(out.Type, true)
	if err != nil {
		var unsupported *UnsupportedOutputTypeError
		if errors.As(err, &unsupported) && unsupported.Output == "" {
			unsupported.Output = out.Name
		}
		return Result{}, err
	}
	return Result{Type: t}, nil
}

func (c *Classifier) labelled(out *wdl.Decl, label string) (Result, error) {
	fail := func(reason string) (Result, error) {
		return Result{}, &UnsupportedLabelUsageError{Output: out.Name, Type: out.Type.String(), Reason: reason}
	}
	if out.Expr == nil {
		return fail("output has no expression")
	}

	switch {
	case out.Type.Equal(fileType):
		return Result{
			Type:  vidarr.Output(vidarr.FileWithLabels),
			Edits: rewrite.LabelFile(out, label),
		}, nil

	case out.Type.Equal(wdl.Opt(fileType)):
		exprText := rewrite.SourceText(c.source, out.Expr.Span)
		return Result{
			Type:          vidarr.Output(vidarr.OptionalFileWithLabels),
			Edits:         rewrite.LabelOptionalFile(out, exprText, label),
			NeedsSentinel: true,
		}, nil
	}

	cat, ok := matchCanonical(out.Type)
	if !ok || !cat.carriesLabels() {
		return fail("labels can only be attached to File, File? or an output that already has labels")
	}
	edits, ok := labelMaps(out.Expr, label)
	if !ok {
		return fail("the expression must be a literal pair whose right side is a map literal")
	}
	return Result{Type: vidarr.Output(cat.Category), Edits: edits}, nil
}

// labelMaps adds the label to the map literal of a labelled pair, or of every
// labelled pair in an array literal.
func labelMaps(e *wdl.Expr, label string) ([]rewrite.Edit, bool) {
	if e.IsLabelledPair() {
		return []rewrite.Edit{rewrite.AppendLabel(e.Args[1], label)}, true
	}
	if e.Kind != wdl.ExprArray || len(e.Args) == 0 {
		return nil, false
	}
	var edits []rewrite.Edit
	for _, el := range e.Args {
		if !el.IsLabelledPair() {
			return nil, false
		}
		edits = append(edits, rewrite.AppendLabel(el.Args[1], label))
	}
	return edits, true
}

// classify matches t against the canonical shapes. At the top level an array
// of structs is provisioned as a list keyed by the struct's Int and String
// members; allowList is false for the members themselves.
func (c *Classifier) classify(t *wdl.Type, allowList bool) (*vidarr.OutputType, error) {
	if cat, ok := matchCanonical(t); ok {
		return vidarr.Output(cat.Category), nil
	}
	if allowList && t.Kind == wdl.Array && t.Item.Kind == wdl.StructInstance {
		return c.structList(t.Item.Name)
	}
	return nil, &UnsupportedOutputTypeError{Type: t.String()}
}

func (c *Classifier) structList(name string) (*vidarr.OutputType, error) {
	def, ok := c.structs[name]
	if !ok {
		return nil, &UnsupportedOutputTypeError{Type: name}
	}
	if _, err := typemap.Map(wdl.Struct(name), c.table); err != nil {
		return nil, fmt.Errorf("struct %s: %w", name, err)
	}

	keys := make(map[string]vidarr.KeyType)
	outputs := make(map[string]*vidarr.OutputType)
	for _, m := range def.Members {
		switch {
		case m.Type.Equal(intType):
			keys[m.Name] = vidarr.KeyInteger
		case m.Type.Equal(stringType):
			keys[m.Name] = vidarr.KeyString
		default:
			o, err := c.classify(m.Type, false)
			if err != nil {
				return nil, fmt.Errorf("struct %s member %s: %w", name, m.Name, err)
			}
			outputs[m.Name] = o
		}
	}
	c.logger.Debug("struct list output", "struct", name, "keys", len(keys), "outputs", len(outputs))
	return vidarr.ListOf(keys, outputs), nil
}
