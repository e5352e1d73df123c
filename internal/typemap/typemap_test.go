package typemap

import (
	"errors"
	"testing"

	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vString = vidarr.Atomic(vidarr.IsString)
	vInt    = vidarr.Atomic(vidarr.IsInteger)
	vFile   = vidarr.Atomic(vidarr.IsFile)
)

func TestMap(t *testing.T) {
	table := Table{"Sample": {"id": vString}}

	tests := []struct {
		name string
		in   *wdl.Type
		want *vidarr.Type
	}{
		{"Boolean", wdl.Primitive(wdl.Boolean), vidarr.Atomic(vidarr.IsBoolean)},
		{"Int", wdl.Primitive(wdl.Int), vInt},
		{"Float", wdl.Primitive(wdl.Float), vidarr.Atomic(vidarr.IsFloating)},
		{"String", wdl.Primitive(wdl.String), vString},
		{"File", wdl.Primitive(wdl.File), vFile},
		{"Directory", wdl.Primitive(wdl.Directory), vidarr.Atomic(vidarr.IsDirectory)},
		{"String?", wdl.Opt(wdl.Primitive(wdl.String)), vidarr.Optional(vString)},
		{"Array[File]", wdl.ArrayOf(wdl.Primitive(wdl.File), false), vidarr.List(vFile)},
		{"Array[File]+", wdl.ArrayOf(wdl.Primitive(wdl.File), true), vidarr.List(vFile)},
		{"Array[File?]?", wdl.Opt(wdl.ArrayOf(wdl.Opt(wdl.Primitive(wdl.File)), false)), vidarr.Optional(vidarr.List(vidarr.Optional(vFile)))},
		{"Pair[File,Int]", wdl.PairOf(wdl.Primitive(wdl.File), wdl.Primitive(wdl.Int)), vidarr.PairOf(vFile, vInt)},
		{"Pair[File,Int]?", wdl.Opt(wdl.PairOf(wdl.Primitive(wdl.File), wdl.Primitive(wdl.Int))), vidarr.Optional(vidarr.PairOf(vFile, vInt))},
		{"Map[String,Int]", wdl.MapOf(wdl.Primitive(wdl.String), wdl.Primitive(wdl.Int)), vidarr.Dictionary(vString, vInt)},
		{"Map[String,Int]?", wdl.Opt(wdl.MapOf(wdl.Primitive(wdl.String), wdl.Primitive(wdl.Int))), vidarr.Optional(vidarr.Dictionary(vString, vInt))},
		{"Sample", wdl.Struct("Sample"), vidarr.ObjectOf(map[string]*vidarr.Type{"id": vString})},
		{"Sample?", wdl.Opt(wdl.Struct("Sample")), vidarr.Optional(vidarr.ObjectOf(map[string]*vidarr.Type{"id": vString}))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Map(tt.in, table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := Map(tt.in, table)
			require.NoError(t, err)
			assert.Equal(t, got, again, "mapping must be deterministic")
		})
	}
}

// Every kind of the grammar must be handled explicitly. Object is the only
// kind without a Vidarr equivalent; a new kind added to wdl without a case in
// Map fails here.
func TestMap_Exhaustive(t *testing.T) {
	table := Table{"S": {}}
	samples := map[wdl.Kind]*wdl.Type{
		wdl.Array:          wdl.ArrayOf(wdl.Primitive(wdl.Int), false),
		wdl.Pair:           wdl.PairOf(wdl.Primitive(wdl.Int), wdl.Primitive(wdl.Int)),
		wdl.Map:            wdl.MapOf(wdl.Primitive(wdl.String), wdl.Primitive(wdl.Int)),
		wdl.StructInstance: wdl.Struct("S"),
	}
	for k := wdl.Kind(0); k < wdl.NumKinds; k++ {
		typ, ok := samples[k]
		if !ok {
			typ = wdl.Primitive(k)
		}
		_, err := Map(typ, table)
		if k == wdl.Object {
			var unsupported *UnsupportedTypeError
			assert.ErrorAs(t, err, &unsupported, "kind %s", k)
			continue
		}
		assert.NoError(t, err, "kind %s", k)
	}
}

func TestMap_Unsupported(t *testing.T) {
	_, err := Map(wdl.ArrayOf(wdl.Primitive(wdl.Object), false), nil)
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "Object", unsupported.Type)
	assert.Equal(t, "no conversion for Object", err.Error())
}

func TestMap_UnresolvedStruct(t *testing.T) {
	_, err := Map(wdl.Struct("Missing"), Table{})
	var unresolved *UnresolvedStructError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "Missing", unresolved.Name)
}

func member(name string, t *wdl.Type) wdl.Member { return wdl.Member{Name: name, Type: t} }

func TestResolve_ForwardReference(t *testing.T) {
	// Lane refers to Sample, which is declared after it.
	lane := &wdl.StructTypeDef{Name: "Lane", Members: []wdl.Member{
		member("number", wdl.Primitive(wdl.Int)),
		member("samples", wdl.ArrayOf(wdl.Struct("Sample"), false)),
	}}
	sample := &wdl.StructTypeDef{Name: "Sample", Members: []wdl.Member{
		member("name", wdl.Primitive(wdl.String)),
	}}

	table, err := Resolve([]*wdl.StructTypeDef{lane, sample})
	require.NoError(t, err)

	sampleFields := map[string]*vidarr.Type{"name": vString}
	assert.Equal(t, sampleFields, table["Sample"])
	assert.Equal(t, map[string]*vidarr.Type{
		"number":  vInt,
		"samples": vidarr.List(vidarr.ObjectOf(sampleFields)),
	}, table["Lane"])
}

func TestResolve_OrderIndependent(t *testing.T) {
	a := &wdl.StructTypeDef{Name: "A", Members: []wdl.Member{member("b", wdl.Struct("B"))}}
	b := &wdl.StructTypeDef{Name: "B", Members: []wdl.Member{member("x", wdl.Primitive(wdl.Int))}}

	first, err := Resolve([]*wdl.StructTypeDef{a, b})
	require.NoError(t, err)
	second, err := Resolve([]*wdl.StructTypeDef{b, a})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_MutualReferenceWithoutBase(t *testing.T) {
	a := &wdl.StructTypeDef{Name: "A", Members: []wdl.Member{member("b", wdl.Struct("B"))}}
	b := &wdl.StructTypeDef{Name: "B", Members: []wdl.Member{member("a", wdl.Struct("A"))}}

	_, err := Resolve([]*wdl.StructTypeDef{a, b})
	var graphErr *UnresolvableStructGraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, []string{"A", "B"}, graphErr.Structs)
	assert.Nil(t, graphErr.Cause)
	assert.Contains(t, err.Error(), "A, B")
}

func TestResolve_UnsupportedMember(t *testing.T) {
	a := &wdl.StructTypeDef{Name: "A", Members: []wdl.Member{member("o", wdl.Primitive(wdl.Object))}}

	_, err := Resolve([]*wdl.StructTypeDef{a})
	var graphErr *UnresolvableStructGraphError
	require.ErrorAs(t, err, &graphErr)
	assert.Equal(t, []string{"A"}, graphErr.Structs)

	var unsupported *UnsupportedTypeError
	assert.True(t, errors.As(err, &unsupported))
}

func TestResolve_Empty(t *testing.T) {
	table, err := Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, table)
}
