package typemap

import (
	"errors"
	"sort"

	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
)

// resolution is the state of one Resolve call. The table only grows while
// passes run and is handed out read-only afterwards.
type resolution struct {
	table   Table
	pending []*wdl.StructTypeDef
	cause   error
}

// Resolve maps every member of every struct. Structs may refer to each other
// in any order; each pass resolves the structs whose references are already
// in the table. A pass that resolves nothing means the remaining structs are
// cyclic or use an unsupported type.
func Resolve(defs []*wdl.StructTypeDef) (Table, error) {
	r := &resolution{
		table:   make(Table, len(defs)),
		pending: append([]*wdl.StructTypeDef(nil), defs...),
	}
	for len(r.pending) > 0 {
		before := len(r.pending)
		r.pass()
		if len(r.pending) == before {
			names := make([]string, 0, len(r.pending))
			for _, s := range r.pending {
				names = append(names, s.Name)
			}
			sort.Strings(names)
			return nil, &UnresolvableStructGraphError{Structs: names, Cause: r.cause}
		}
	}
	return r.table, nil
}

func (r *resolution) pass() {
	var deferred []*wdl.StructTypeDef
	for _, s := range r.pending {
		fields, err := r.mapMembers(s)
		if err != nil {
			var unresolved *UnresolvedStructError
			if !errors.As(err, &unresolved) && r.cause == nil {
				r.cause = err
			}
			deferred = append(deferred, s)
			continue
		}
		r.table[s.Name] = fields
	}
	r.pending = deferred
}

func (r *resolution) mapMembers(s *wdl.StructTypeDef) (map[string]*vidarr.Type, error) {
	fields := make(map[string]*vidarr.Type, len(s.Members))
	for _, m := range s.Members {
		t, err := Map(m.Type, r.table)
		if err != nil {
			return nil, err
		}
		fields[m.Name] = t
	}
	return fields, nil
}
