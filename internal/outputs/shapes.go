package outputs

import (
	"github.com/me/wdl2vidarr/pkg/vidarr"
	"github.com/me/wdl2vidarr/pkg/wdl"
)

var (
	fileType   = wdl.Primitive(wdl.File)
	intType    = wdl.Primitive(wdl.Int)
	stringType = wdl.Primitive(wdl.String)
	labelsType = wdl.MapOf(stringType, stringType)
)

type shape struct {
	Type     *wdl.Type
	Category vidarr.Category
}

func (s shape) carriesLabels() bool {
	switch s.Category {
	case vidarr.FileWithLabels, vidarr.FilesWithLabels,
		vidarr.OptionalFileWithLabels, vidarr.OptionalFilesWithLabels:
		return true
	}
	return false
}

// canonical lists the output shapes Vidarr understands. Matching is exact,
// including optional and nonempty flags; the first match wins.
var canonical = []shape{
	{fileType, vidarr.File},
	{wdl.ArrayOf(fileType, true), vidarr.Files},
	{wdl.PairOf(fileType, labelsType), vidarr.FileWithLabels},
	{wdl.PairOf(wdl.ArrayOf(fileType, true), labelsType), vidarr.FilesWithLabels},
	{wdl.ArrayOf(wdl.PairOf(fileType, labelsType), true), vidarr.FilesWithLabels},
	{wdl.Primitive(wdl.Boolean), vidarr.QualityControl},
	{wdl.Opt(fileType), vidarr.OptionalFile},
	{wdl.Opt(wdl.ArrayOf(fileType, true)), vidarr.OptionalFiles},
	{wdl.Opt(wdl.ArrayOf(fileType, false)), vidarr.OptionalFiles},
	{wdl.ArrayOf(fileType, false), vidarr.OptionalFiles},
	{wdl.Opt(wdl.PairOf(fileType, labelsType)), vidarr.OptionalFileWithLabels},
	{wdl.Opt(wdl.PairOf(wdl.ArrayOf(fileType, true), labelsType)), vidarr.OptionalFilesWithLabels},
	{wdl.Opt(wdl.Primitive(wdl.Boolean)), vidarr.OptionalQualityControl},
}

func matchCanonical(t *wdl.Type) (shape, bool) {
	for _, s := range canonical {
		if t.Equal(s.Type) {
			return s, true
		}
	}
	return shape{}, false
}
