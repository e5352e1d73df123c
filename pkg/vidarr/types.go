// Package vidarr models the Vidarr workflow vocabulary: input parameter
// types, output categories and the workflow bundle that is registered with a
// Vidarr server.
package vidarr

import "encoding/json"

// Is is the discriminator of a parameter type. Atomic types are encoded as
// the bare tag; composite types as an object with an "is" field.
type Is string

const (
	IsBoolean   Is = "boolean"
	IsDirectory Is = "directory"
	IsFile      Is = "file"
	IsFloating  Is = "floating"
	IsInteger   Is = "integer"
	IsString    Is = "string"

	IsOptional   Is = "optional"
	IsList       Is = "list"
	IsPair       Is = "pair"
	IsDictionary Is = "dictionary"
	IsObject     Is = "object"
	IsRetry      Is = "retry"
)

// Atomic reports whether the tag denotes a type without nested types.
func (i Is) Atomic() bool {
	switch i {
	case IsBoolean, IsDirectory, IsFile, IsFloating, IsInteger, IsString:
		return true
	}
	return false
}

// Type is a Vidarr parameter type. A Type built by Verbatim carries an
// explicit override from workflow metadata and is encoded unchanged.
type Type struct {
	Is     Is
	Inner  *Type
	Left   *Type
	Right  *Type
	Key    *Type
	Value  *Type
	Fields map[string]*Type

	verbatim any
	explicit bool
}

// Atomic returns the atomic type with the given tag.
func Atomic(is Is) *Type { return &Type{Is: is} }

// Optional wraps inner as an optional value.
func Optional(inner *Type) *Type { return &Type{Is: IsOptional, Inner: inner} }

// Retry wraps inner as a value that may change between retried attempts.
func Retry(inner *Type) *Type { return &Type{Is: IsRetry, Inner: inner} }

// List returns a list of inner.
func List(inner *Type) *Type { return &Type{Is: IsList, Inner: inner} }

// PairOf returns a pair of left and right.
func PairOf(left, right *Type) *Type { return &Type{Is: IsPair, Left: left, Right: right} }

// Dictionary returns a dictionary from key to value.
func Dictionary(key, value *Type) *Type { return &Type{Is: IsDictionary, Key: key, Value: value} }

// ObjectOf returns an object type with the given fields.
func ObjectOf(fields map[string]*Type) *Type { return &Type{Is: IsObject, Fields: fields} }

// Verbatim returns a type that encodes v unchanged.
func Verbatim(v any) *Type { return &Type{verbatim: v, explicit: true} }

// IsVerbatim reports whether the type is an explicit override.
func (t *Type) IsVerbatim() bool { return t.explicit }

// MarshalJSON implements json.Marshaler.
func (t *Type) MarshalJSON() ([]byte, error) {
	if t.explicit {
		return json.Marshal(t.verbatim)
	}
	if t.Is.Atomic() {
		return json.Marshal(string(t.Is))
	}
	m := map[string]any{"is": t.Is}
	switch t.Is {
	case IsOptional, IsList, IsRetry:
		m["inner"] = t.Inner
	case IsPair:
		m["left"] = t.Left
		m["right"] = t.Right
	case IsDictionary:
		m["key"] = t.Key
		m["value"] = t.Value
	case IsObject:
		fields := t.Fields
		if fields == nil {
			fields = map[string]*Type{}
		}
		m["fields"] = fields
	}
	return json.Marshal(m)
}
