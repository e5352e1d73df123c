package outputs

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/me/wdl2vidarr/internal/meta"
	"github.com/me/wdl2vidarr/internal/rewrite"
	"github.com/me/wdl2vidarr/internal/typemap"
	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func pos(line, col int) wdl.Pos { return wdl.Pos{Line: line, Column: col} }

func span(l1, c1, l2, c2 int) wdl.Span { return wdl.Span{Start: pos(l1, c1), End: pos(l2, c2)} }

// decl builds an output "<type> out = x" on line 1; the type is assumed to
// be written in typeLen bytes.
func decl(t *wdl.Type, typeLen int) *wdl.Decl {
	exprStart := typeLen + 8 // "<type> out = "
	return &wdl.Decl{
		Name:     "out",
		Type:     t,
		TypeSpan: span(1, 1, 1, typeLen+1),
		NameSpan: span(1, typeLen+2, 1, typeLen+5),
		Expr:     &wdl.Expr{Kind: wdl.ExprIdent, Value: "x", Span: span(1, exprStart, 1, exprStart+1)},
		Span:     span(1, 1, 1, exprStart+1),
	}
}

var (
	file     = wdl.Primitive(wdl.File)
	str      = wdl.Primitive(wdl.String)
	integer  = wdl.Primitive(wdl.Int)
	labelMap = wdl.MapOf(str, str)
)

func newClassifier(t *testing.T, buf *bytes.Buffer, structs []*wdl.StructTypeDef, source []string) *Classifier {
	t.Helper()
	table, err := typemap.Resolve(structs)
	require.NoError(t, err)
	return New(testLogger(buf), structs, table, source)
}

func TestClassify_CanonicalShapes(t *testing.T) {
	tests := []struct {
		typ  *wdl.Type
		want vidarr.Category
	}{
		{file, vidarr.File},
		{wdl.ArrayOf(file, true), vidarr.Files},
		{wdl.PairOf(file, labelMap), vidarr.FileWithLabels},
		{wdl.PairOf(wdl.ArrayOf(file, true), labelMap), vidarr.FilesWithLabels},
		{wdl.ArrayOf(wdl.PairOf(file, labelMap), true), vidarr.FilesWithLabels},
		{wdl.Primitive(wdl.Boolean), vidarr.QualityControl},
		{wdl.Opt(file), vidarr.OptionalFile},
		{wdl.Opt(wdl.ArrayOf(file, true)), vidarr.OptionalFiles},
		{wdl.Opt(wdl.ArrayOf(file, false)), vidarr.OptionalFiles},
		{wdl.ArrayOf(file, false), vidarr.OptionalFiles},
		{wdl.Opt(wdl.PairOf(file, labelMap)), vidarr.OptionalFileWithLabels},
		{wdl.Opt(wdl.PairOf(wdl.ArrayOf(file, true), labelMap)), vidarr.OptionalFilesWithLabels},
		{wdl.Opt(wdl.Primitive(wdl.Boolean)), vidarr.OptionalQualityControl},
	}
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, nil)
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			res, err := c.Classify(decl(tt.typ, 4), meta.Annotation{})
			require.NoError(t, err)
			assert.Equal(t, vidarr.Output(tt.want), res.Type)
			assert.Empty(t, res.Edits)
			assert.False(t, res.NeedsSentinel)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	tests := []*wdl.Type{
		str,
		integer,
		wdl.ArrayOf(str, true),
		wdl.PairOf(file, wdl.MapOf(str, integer)),
		wdl.ArrayOf(wdl.Opt(file), true),
		wdl.Primitive(wdl.Directory),
	}
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, nil)
	for _, typ := range tests {
		t.Run(typ.String(), func(t *testing.T) {
			_, err := c.Classify(decl(typ, 4), meta.Annotation{})
			var unsupported *UnsupportedOutputTypeError
			require.ErrorAs(t, err, &unsupported)
			assert.Equal(t, typ.String(), unsupported.Type)
			assert.Equal(t, "out", unsupported.Output)
		})
	}
}

func TestClassify_ExplicitType(t *testing.T) {
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, nil)

	override := map[string]any{"is": "list", "keys": map[string]any{}, "outputs": map[string]any{}}
	res, err := c.Classify(decl(str, 6), meta.Annotation{Type: override, HasType: true})
	require.NoError(t, err)
	assert.Equal(t, vidarr.VerbatimOutput(override), res.Type)
	assert.Empty(t, buf.String())
}

func TestClassify_ExplicitTypeShadowsLabel(t *testing.T) {
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, nil)

	res, err := c.Classify(decl(file, 4), meta.Annotation{Type: "file", HasType: true, Label: "L", HasLabel: true})
	require.NoError(t, err)
	assert.Equal(t, vidarr.VerbatimOutput("file"), res.Type)
	assert.Empty(t, res.Edits)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "label superseded by explicit type")
}

func TestClassify_LabelFile(t *testing.T) {
	var buf bytes.Buffer
	d := decl(file, 4)
	c := newClassifier(t, &buf, nil, []string{"File out = x"})

	res, err := c.Classify(d, meta.Annotation{Label: "L", HasLabel: true})
	require.NoError(t, err)
	assert.Equal(t, vidarr.Output(vidarr.FileWithLabels), res.Type)
	assert.Equal(t, rewrite.LabelFile(d, "L"), res.Edits)
	assert.False(t, res.NeedsSentinel)

	lines, err := rewrite.Apply([]string{"File out = x"}, res.Edits)
	require.NoError(t, err)
	assert.Equal(t, []string{`Pair[File, Map[String,String]] out = (x, {"vidarr_label": "L"})`}, lines)
}

func TestClassify_LabelOptionalFile(t *testing.T) {
	var buf bytes.Buffer
	d := decl(wdl.Opt(file), 5)
	c := newClassifier(t, &buf, nil, []string{"File? out = x"})

	res, err := c.Classify(d, meta.Annotation{Label: "L", HasLabel: true})
	require.NoError(t, err)
	assert.Equal(t, vidarr.Output(vidarr.OptionalFileWithLabels), res.Type)
	assert.True(t, res.NeedsSentinel)

	lines, err := rewrite.Apply([]string{"File? out = x"}, res.Edits)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`Pair[File, Map[String,String]]? out = if defined(x) then (select_first([x]), {"vidarr_label": "L"}) else vidarr_label_sentinel`,
	}, lines)
}

func TestClassify_LabelExistingPair(t *testing.T) {
	// Pair[File, Map[String,String]] out = (x, {})
	src := `Pair[File, Map[String,String]] out = (x, {})`
	mapLit := &wdl.Expr{Kind: wdl.ExprMap, Span: span(1, 42, 1, 44)}
	d := &wdl.Decl{
		Name:     "out",
		Type:     wdl.PairOf(file, labelMap),
		TypeSpan: span(1, 1, 1, 31),
		Expr: &wdl.Expr{
			Kind: wdl.ExprPair,
			Span: span(1, 38, 1, 45),
			Args: []*wdl.Expr{{Kind: wdl.ExprIdent, Value: "x", Span: span(1, 39, 1, 40)}, mapLit},
		},
	}
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, []string{src})

	res, err := c.Classify(d, meta.Annotation{Label: "L", HasLabel: true})
	require.NoError(t, err)
	assert.Equal(t, vidarr.Output(vidarr.FileWithLabels), res.Type)
	require.Len(t, res.Edits, 1)

	lines, err := rewrite.Apply([]string{src}, res.Edits)
	require.NoError(t, err)
	assert.Equal(t, `Pair[File, Map[String,String]] out = (x, {"vidarr_label": "L"})`, lines[0])
}

func TestClassify_LabelExistingPairNotLiteral(t *testing.T) {
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, nil)
	_, err := c.Classify(decl(wdl.PairOf(file, labelMap), 30), meta.Annotation{Label: "L", HasLabel: true})
	var labelErr *UnsupportedLabelUsageError
	require.ErrorAs(t, err, &labelErr)
	assert.Contains(t, labelErr.Reason, "literal pair")
}

func TestClassify_LabelUnsupportedShape(t *testing.T) {
	var buf bytes.Buffer
	c := newClassifier(t, &buf, nil, nil)
	for _, typ := range []*wdl.Type{wdl.ArrayOf(file, true), wdl.Primitive(wdl.Boolean), str} {
		_, err := c.Classify(decl(typ, 4), meta.Annotation{Label: "L", HasLabel: true})
		var labelErr *UnsupportedLabelUsageError
		require.ErrorAs(t, err, &labelErr, typ.String())
		assert.Equal(t, typ.String(), labelErr.Type)
	}
}

func TestClassify_StructList(t *testing.T) {
	structs := []*wdl.StructTypeDef{{
		Name: "Result",
		Members: []wdl.Member{
			{Name: "lane", Type: integer},
			{Name: "barcode", Type: str},
			{Name: "fastqs", Type: wdl.ArrayOf(file, true)},
			{Name: "qc", Type: wdl.Opt(wdl.Primitive(wdl.Boolean))},
		},
	}}
	var buf bytes.Buffer
	c := newClassifier(t, &buf, structs, nil)

	for _, typ := range []*wdl.Type{wdl.ArrayOf(wdl.Struct("Result"), false), wdl.ArrayOf(wdl.Struct("Result"), true)} {
		res, err := c.Classify(decl(typ, 6), meta.Annotation{})
		require.NoError(t, err)
		assert.Equal(t, vidarr.ListOf(
			map[string]vidarr.KeyType{"lane": vidarr.KeyInteger, "barcode": vidarr.KeyString},
			map[string]*vidarr.OutputType{"fastqs": vidarr.Output(vidarr.Files), "qc": vidarr.Output(vidarr.OptionalQualityControl)},
		), res.Type)
	}
}

func TestClassify_StructListNoNesting(t *testing.T) {
	structs := []*wdl.StructTypeDef{
		{Name: "Inner", Members: []wdl.Member{{Name: "f", Type: file}}},
		{Name: "Outer", Members: []wdl.Member{{Name: "inner", Type: wdl.ArrayOf(wdl.Struct("Inner"), false)}}},
	}
	var buf bytes.Buffer
	c := newClassifier(t, &buf, structs, nil)

	_, err := c.Classify(decl(wdl.ArrayOf(wdl.Struct("Outer"), false), 6), meta.Annotation{})
	var unsupported *UnsupportedOutputTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "Array[Inner]", unsupported.Type)
	assert.Contains(t, err.Error(), "member inner")
}

func TestClassify_BareStructUnsupported(t *testing.T) {
	structs := []*wdl.StructTypeDef{{Name: "S", Members: []wdl.Member{{Name: "f", Type: file}}}}
	var buf bytes.Buffer
	c := newClassifier(t, &buf, structs, nil)

	_, err := c.Classify(decl(wdl.Struct("S"), 1), meta.Annotation{})
	var unsupported *UnsupportedOutputTypeError
	require.ErrorAs(t, err, &unsupported)
}
