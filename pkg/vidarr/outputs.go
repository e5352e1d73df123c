package vidarr

import "encoding/json"

// Category is an output category understood by Vidarr.
type Category string

const (
	File            Category = "file"
	Files           Category = "files"
	FileWithLabels  Category = "file-with-labels"
	FilesWithLabels Category = "files-with-labels"
	QualityControl  Category = "quality-control"

	OptionalFile            Category = "optional-file"
	OptionalFiles           Category = "optional-files"
	OptionalFileWithLabels  Category = "optional-file-with-labels"
	OptionalFilesWithLabels Category = "optional-files-with-labels"
	OptionalQualityControl  Category = "optional-quality-control"

	// ListOutput is the composite category of an array of structs; see ListOf.
	ListOutput Category = "list"
)

// KeyType is the type of a key column of a list output.
type KeyType string

const (
	KeyInteger KeyType = "INTEGER"
	KeyString  KeyType = "STRING"
)

// OutputType describes how Vidarr provisions one workflow output.
type OutputType struct {
	Category Category
	Keys     map[string]KeyType
	Outputs  map[string]*OutputType

	verbatim any
	explicit bool
}

// Output returns the output type for a simple category.
func Output(c Category) *OutputType { return &OutputType{Category: c} }

// ListOf returns a list output whose records are identified by keys and
// whose remaining members are provisioned as outputs.
func ListOf(keys map[string]KeyType, outputs map[string]*OutputType) *OutputType {
	return &OutputType{Category: ListOutput, Keys: keys, Outputs: outputs}
}

// VerbatimOutput returns an output type that encodes v unchanged.
func VerbatimOutput(v any) *OutputType { return &OutputType{verbatim: v, explicit: true} }

// IsVerbatim reports whether the output type is an explicit override.
func (o *OutputType) IsVerbatim() bool { return o.explicit }

// MarshalJSON implements json.Marshaler.
func (o *OutputType) MarshalJSON() ([]byte, error) {
	if o.explicit {
		return json.Marshal(o.verbatim)
	}
	if o.Category != ListOutput {
		return json.Marshal(string(o.Category))
	}
	keys := o.Keys
	if keys == nil {
		keys = map[string]KeyType{}
	}
	outputs := o.Outputs
	if outputs == nil {
		outputs = map[string]*OutputType{}
	}
	return json.Marshal(map[string]any{
		"is":      ListOutput,
		"keys":    keys,
		"outputs": outputs,
	})
}
