package bundle

import (
	"fmt"
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

// Input is an input a submission may supply, named relative to the root
// workflow: "x" for a workflow input, "align.x" for an input of call align.
type Input struct {
	Name       string
	Type       *wdl.Type // struct names as seen from the root document
	HasDefault bool
}

// availableInputs lists the inputs of wf followed by every call input the
// workflow body leaves unbound, descending into sections and sub-workflows.
// renames maps struct names of doc to their names in the root document.
func availableInputs(doc *wdl.Document, wf *wdl.Workflow, prefix string, renames map[string]string) ([]Input, error) {
	var out []Input
	for _, d := range wf.Inputs {
		out = append(out, Input{Name: prefix + d.Name, Type: d.Type.Rename(renames), HasDefault: d.Expr != nil})
	}
	calls, err := callInputs(doc, wf.Body, prefix, renames)
	if err != nil {
		return nil, err
	}
	return append(out, calls...), nil
}

func callInputs(doc *wdl.Document, body []wdl.Element, prefix string, renames map[string]string) ([]Input, error) {
	var out []Input
	for _, el := range body {
		switch el := el.(type) {
		case *wdl.Section:
			nested, err := callInputs(doc, el.Body, prefix, renames)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)

		case *wdl.Call:
			callee, calleeRenames, ok := resolveCallee(doc, el.Callee, renames)
			if !ok {
				return nil, fmt.Errorf("call %s: no task or workflow named %s", el.Name(), el.Callee)
			}
			callPrefix := prefix + el.Name() + "."

			if callee.Workflow != nil {
				nested, err := availableInputs(callee.Doc, callee.Workflow, callPrefix, calleeRenames)
				if err != nil {
					return nil, err
				}
				for _, in := range nested {
					if el.Supplies(strings.TrimPrefix(in.Name, callPrefix)) {
						continue
					}
					out = append(out, in)
				}
				continue
			}

			for _, d := range callee.Inputs() {
				if el.Supplies(d.Name) {
					continue
				}
				out = append(out, Input{Name: callPrefix + d.Name, Type: d.Type.Rename(calleeRenames), HasDefault: d.Expr != nil})
			}
		}
	}
	return out, nil
}

// resolveCallee finds the target of a call and the struct renames that
// apply to its declarations, following the import chain named by the call.
func resolveCallee(doc *wdl.Document, name string, renames map[string]string) (wdl.Callee, map[string]string, bool) {
	for {
		ns, rest, found := strings.Cut(name, ".")
		if !found {
			callee, ok := doc.ResolveCallee(name)
			return callee, renames, ok
		}
		imp := doc.Import(ns)
		if imp == nil || imp.Doc == nil {
			return wdl.Callee{}, nil, false
		}
		renames = wdl.ComposeRenames(imp.Aliases, renames)
		if !strings.Contains(rest, ".") {
			if t := imp.Doc.Task(rest); t != nil {
				return wdl.Callee{Task: t, Doc: imp.Doc}, renames, true
			}
			if sub := imp.Doc.Workflow; sub != nil && sub.Name == rest {
				return wdl.Callee{Workflow: sub, Doc: imp.Doc}, renames, true
			}
			return wdl.Callee{}, nil, false
		}
		doc, name = imp.Doc, rest
	}
}
