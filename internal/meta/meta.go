// Package meta decodes the Vidarr annotations attached to workflow inputs and
// outputs through parameter_meta and output_meta blocks.
package meta

import (
	"fmt"

	"github.com/me/wdl2vidarr/pkg/wdl"
	"github.com/spf13/cast"
)

// Recognized annotation keys.
const (
	KeyType  = "vidarr_type"
	KeyRetry = "vidarr_retry"
	KeyLabel = "vidarr_label"
)

// Annotation is the decoded Vidarr metadata for one declaration.
type Annotation struct {
	Type     any // explicit override, emitted as-is
	HasType  bool
	Retry    bool
	Label    string
	HasLabel bool
}

// Decode reads the annotation from a metadata value. Values that are not
// objects carry no Vidarr metadata and decode to the zero Annotation.
func Decode(v any) (Annotation, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Annotation{}, nil
	}
	var a Annotation
	if t, ok := m[KeyType]; ok {
		a.Type, a.HasType = t, true
	}
	if r, ok := m[KeyRetry]; ok {
		retry, err := cast.ToBoolE(r)
		if err != nil {
			return Annotation{}, fmt.Errorf("%s: %w", KeyRetry, err)
		}
		a.Retry = retry
	}
	if l, ok := m[KeyLabel]; ok {
		label, err := cast.ToStringE(l)
		if err != nil {
			return Annotation{}, fmt.Errorf("%s: %w", KeyLabel, err)
		}
		a.Label, a.HasLabel = label, true
	}
	return a, nil
}

// ForInput returns the annotation of a workflow input.
func ForInput(wf *wdl.Workflow, name string) (Annotation, error) {
	a, err := Decode(wf.ParameterMeta[name])
	if err != nil {
		return Annotation{}, fmt.Errorf("parameter_meta %s: %w", name, err)
	}
	return a, nil
}

// ForOutput returns the annotation of a workflow output. Output metadata is
// read from the output_meta object inside the workflow's meta block, or from
// a top-level output_meta block.
func ForOutput(wf *wdl.Workflow, name string) (Annotation, error) {
	var v any
	if om, ok := wf.Meta["output_meta"].(map[string]any); ok {
		v = om[name]
	}
	if v == nil {
		v = wf.OutputMeta[name]
	}
	a, err := Decode(v)
	if err != nil {
		return Annotation{}, fmt.Errorf("output_meta %s: %w", name, err)
	}
	return a, nil
}
