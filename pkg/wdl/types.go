package wdl

import "strings"

// Kind identifies a variant of the WDL type grammar.
type Kind int

const (
	Boolean Kind = iota
	Int
	Float
	String
	File
	Directory
	Array
	Pair
	Map
	StructInstance
	Object

	// NumKinds is the number of type kinds. Keep it last.
	NumKinds
)

var kindNames = [...]string{
	Boolean:        "Boolean",
	Int:            "Int",
	Float:          "Float",
	String:         "String",
	File:           "File",
	Directory:      "Directory",
	Array:          "Array",
	Pair:           "Pair",
	Map:            "Map",
	StructInstance: "StructInstance",
	Object:         "Object",
}

func (k Kind) String() string {
	if k >= 0 && k < NumKinds {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Type is a node of a WDL type tree. Only the fields relevant to Kind are set:
// Item (and Nonempty) for Array, Left/Right for Pair, Key/Value for Map and
// Name for StructInstance.
type Type struct {
	Kind     Kind
	Optional bool
	Nonempty bool

	Item        *Type
	Left, Right *Type
	Key, Value  *Type
	Name        string
}

// Primitive returns a non-optional type of the given primitive kind.
func Primitive(k Kind) *Type { return &Type{Kind: k} }

// ArrayOf returns Array[item], or Array[item]+ when nonempty is set.
func ArrayOf(item *Type, nonempty bool) *Type {
	return &Type{Kind: Array, Item: item, Nonempty: nonempty}
}

// PairOf returns Pair[left, right].
func PairOf(left, right *Type) *Type {
	return &Type{Kind: Pair, Left: left, Right: right}
}

// MapOf returns Map[key, value].
func MapOf(key, value *Type) *Type {
	return &Type{Kind: Map, Key: key, Value: value}
}

// Struct returns an instance type of the named struct.
func Struct(name string) *Type {
	return &Type{Kind: StructInstance, Name: name}
}

// Opt returns a shallow copy of t with Optional set.
func Opt(t *Type) *Type {
	return t.WithOptional(true)
}

// WithOptional returns a shallow copy of t with the optional flag replaced.
func (t *Type) WithOptional(optional bool) *Type {
	c := *t
	c.Optional = optional
	return &c
}

// IsPrimitive reports whether the type is one of the atomic kinds.
func (t *Type) IsPrimitive() bool {
	switch t.Kind {
	case Boolean, Int, Float, String, File, Directory:
		return true
	}
	return false
}

// Equal reports exact structural equality, including the optional and
// nonempty flags at every level.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Optional != o.Optional {
		return false
	}
	switch t.Kind {
	case Array:
		return t.Nonempty == o.Nonempty && t.Item.Equal(o.Item)
	case Pair:
		return t.Left.Equal(o.Left) && t.Right.Equal(o.Right)
	case Map:
		return t.Key.Equal(o.Key) && t.Value.Equal(o.Value)
	case StructInstance:
		return t.Name == o.Name
	}
	return true
}

// String renders the type in WDL syntax, e.g. "Array[Pair[File,Int]]+?".
func (t *Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Type) write(sb *strings.Builder) {
	if t == nil {
		sb.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case Array:
		sb.WriteString("Array[")
		t.Item.write(sb)
		sb.WriteString("]")
		if t.Nonempty {
			sb.WriteString("+")
		}
	case Pair:
		sb.WriteString("Pair[")
		t.Left.write(sb)
		sb.WriteString(",")
		t.Right.write(sb)
		sb.WriteString("]")
	case Map:
		sb.WriteString("Map[")
		t.Key.write(sb)
		sb.WriteString(",")
		t.Value.write(sb)
		sb.WriteString("]")
	case StructInstance:
		sb.WriteString(t.Name)
	default:
		sb.WriteString(t.Kind.String())
	}
	if t.Optional {
		sb.WriteString("?")
	}
}

// Walk calls fn for t and every nested type, parents first.
func (t *Type) Walk(fn func(*Type)) {
	if t == nil {
		return
	}
	fn(t)
	switch t.Kind {
	case Array:
		t.Item.Walk(fn)
	case Pair:
		t.Left.Walk(fn)
		t.Right.Walk(fn)
	case Map:
		t.Key.Walk(fn)
		t.Value.Walk(fn)
	}
}

// Rename returns a copy of t where struct instance names found in renames are
// replaced. t itself is not modified.
func (t *Type) Rename(renames map[string]string) *Type {
	if t == nil || len(renames) == 0 {
		return t
	}
	c := *t
	switch t.Kind {
	case Array:
		c.Item = t.Item.Rename(renames)
	case Pair:
		c.Left = t.Left.Rename(renames)
		c.Right = t.Right.Rename(renames)
	case Map:
		c.Key = t.Key.Rename(renames)
		c.Value = t.Value.Rename(renames)
	case StructInstance:
		if n, ok := renames[t.Name]; ok {
			c.Name = n
		}
	}
	return &c
}
