// Package typemap translates WDL types into Vidarr parameter types and
// resolves struct definitions into the field table those translations use.
package typemap

import (
	"fmt"
	"strings"

	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
)

// Table maps a struct name to the Vidarr types of its fields.
type Table map[string]map[string]*vidarr.Type

// UnsupportedTypeError is returned for a WDL type that has no Vidarr
// equivalent.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no conversion for %s", e.Type)
}

// UnresolvedStructError is returned when a struct instance refers to a struct
// that is not (yet) in the table.
type UnresolvedStructError struct {
	Name string
}

func (e *UnresolvedStructError) Error() string {
	return fmt.Sprintf("struct %s is not resolved", e.Name)
}

// UnresolvableStructGraphError is returned when struct resolution stops
// making progress.
type UnresolvableStructGraphError struct {
	Structs []string
	Cause   error // first non-reference failure, if any
}

func (e *UnresolvableStructGraphError) Error() string {
	msg := fmt.Sprintf("cannot resolve structs %s: definitions are cyclic or reference missing types", strings.Join(e.Structs, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UnresolvableStructGraphError) Unwrap() error { return e.Cause }

var atomic = map[wdl.Kind]vidarr.Is{
	wdl.Boolean:   vidarr.IsBoolean,
	wdl.Directory: vidarr.IsDirectory,
	wdl.File:      vidarr.IsFile,
	wdl.Float:     vidarr.IsFloating,
	wdl.Int:       vidarr.IsInteger,
	wdl.String:    vidarr.IsString,
}

// Map converts a WDL type to a Vidarr type. Optional types become an explicit
// optional wrapper around the mapping of the non-optional type.
func Map(t *wdl.Type, table Table) (*vidarr.Type, error) {
	if t.Optional {
		inner, err := Map(t.WithOptional(false), table)
		if err != nil {
			return nil, err
		}
		return vidarr.Optional(inner), nil
	}

	switch t.Kind {
	case wdl.Array:
		inner, err := Map(t.Item, table)
		if err != nil {
			return nil, err
		}
		return vidarr.List(inner), nil

	case wdl.Pair:
		left, err := Map(t.Left, table)
		if err != nil {
			return nil, err
		}
		right, err := Map(t.Right, table)
		if err != nil {
			return nil, err
		}
		return vidarr.PairOf(left, right), nil

	case wdl.Map:
		key, err := Map(t.Key, table)
		if err != nil {
			return nil, err
		}
		value, err := Map(t.Value, table)
		if err != nil {
			return nil, err
		}
		return vidarr.Dictionary(key, value), nil

	case wdl.StructInstance:
		fields, ok := table[t.Name]
		if !ok {
			return nil, &UnresolvedStructError{Name: t.Name}
		}
		return vidarr.ObjectOf(fields), nil
	}

	if is, ok := atomic[t.Kind]; ok {
		return vidarr.Atomic(is), nil
	}
	return nil, &UnsupportedTypeError{Type: t.String()}
}
