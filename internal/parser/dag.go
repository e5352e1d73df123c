package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

// CallGraph holds the dependencies between the calls of a workflow.
type CallGraph struct {
	// Edges maps each call name to the call names it depends on (upstream).
	Edges map[string][]string
	// Order is a topological sort of the calls.
	Order []string
}

// BuildCallGraph constructs the call dependency graph of a workflow using
// Kahn's algorithm.
//
// A call depends on another when it names it in an after clause, or when one
// of its input expressions refers to it, directly ("align.bam") or through
// a workflow declaration bound to such an expression.
//
// Returns an error naming the calls involved if the graph has a cycle.
func BuildCallGraph(wf *wdl.Workflow) (*CallGraph, error) {
	calls := make(map[string]*wdl.Call)
	decls := make(map[string]*wdl.Decl)
	collectElements(wf.Body, calls, decls)

	r := &refResolver{calls: calls, decls: decls, memo: make(map[string][]string)}

	forward := make(map[string][]string, len(calls))
	deps := make(map[string][]string, len(calls))
	inDegree := make(map[string]int, len(calls))
	for name := range calls {
		inDegree[name] = 0
	}

	for name, c := range calls {
		seen := make(map[string]bool)
		var upstream []string
		upstream = append(upstream, c.After...)
		for _, in := range c.Inputs {
			if in.Expr == nil {
				upstream = append(upstream, r.refs(&wdl.Expr{Kind: wdl.ExprIdent, Value: in.Name})...)
				continue
			}
			upstream = append(upstream, r.refs(in.Expr)...)
		}
		for _, dep := range upstream {
			if dep == name {
				return nil, fmt.Errorf("workflow contains a cycle involving calls: %s", name)
			}
			if _, ok := calls[dep]; !ok || seen[dep] {
				continue
			}
			seen[dep] = true
			forward[dep] = append(forward[dep], name)
			deps[name] = append(deps[name], dep)
			inDegree[name]++
		}
	}

	for name := range deps {
		sort.Strings(deps[name])
	}

	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		successors := forward[node]
		sort.Strings(successors)
		for _, succ := range successors {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(calls) {
		var cycle []string
		for name, deg := range inDegree {
			if deg > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("workflow contains a cycle involving calls: %s", strings.Join(cycle, ", "))
	}

	return &CallGraph{Edges: deps, Order: order}, nil
}

func collectElements(body []wdl.Element, calls map[string]*wdl.Call, decls map[string]*wdl.Decl) {
	for _, el := range body {
		switch el := el.(type) {
		case *wdl.Call:
			calls[el.Name()] = el
		case *wdl.Decl:
			decls[el.Name] = el
		case *wdl.Section:
			collectElements(el.Body, calls, decls)
		}
	}
}

// refResolver finds the calls an expression depends on, following workflow
// declarations.
type refResolver struct {
	calls map[string]*wdl.Call
	decls map[string]*wdl.Decl
	memo  map[string][]string
}

func (r *refResolver) refs(e *wdl.Expr) []string {
	if e == nil {
		return nil
	}
	if e.Kind == wdl.ExprIdent {
		if _, ok := r.calls[e.Value]; ok {
			return []string{e.Value}
		}
		return r.declRefs(e.Value)
	}
	var out []string
	for _, a := range e.Args {
		out = append(out, r.refs(a)...)
	}
	for _, en := range e.Entries {
		out = append(out, r.refs(en.Key)...)
		out = append(out, r.refs(en.Value)...)
	}
	return out
}

func (r *refResolver) declRefs(name string) []string {
	if deps, ok := r.memo[name]; ok {
		return deps
	}
	d, ok := r.decls[name]
	if !ok {
		return nil
	}
	// Self-referencing declarations terminate here.
	r.memo[name] = nil
	deps := r.refs(d.Expr)
	r.memo[name] = deps
	return deps
}
