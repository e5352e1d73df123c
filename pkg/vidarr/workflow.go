package vidarr

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Workflow is the bundle registered with Vidarr for one workflow version.
// Fields are declared in key order so that encoded output is sorted.
type Workflow struct {
	AccessoryFiles map[string]string      `json:"accessoryFiles"`
	Language       string                 `json:"language"`
	Outputs        map[string]*OutputType `json:"outputs"`
	Parameters     map[string]*Type       `json:"parameters"`
	Workflow       string                 `json:"workflow"`
}

// Language returns the language tag for a WDL version, e.g. "1.0" -> "WDL_1_0".
func Language(wdlVersion string) string {
	return "WDL_" + strings.ReplaceAll(wdlVersion, ".", "_")
}

// Marshal encodes the bundle. Compact output is a single line; pretty output
// is indented by four spaces. Map keys are always sorted.
func Marshal(w *Workflow, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, w, pretty); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode writes the bundle to out followed by a newline.
func Encode(out io.Writer, w *Workflow, pretty bool) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "    ")
	}
	return enc.Encode(w)
}
