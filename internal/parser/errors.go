package parser

import (
	"fmt"
	"strings"
)

// SyntaxError is one problem found while loading a document.
type SyntaxError struct {
	Path    string // document the error was found in
	Line    int
	Column  int
	Message string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
}

// AggregateParseError collects every problem found while loading a document
// and its imports.
type AggregateParseError struct {
	Path   string
	Errors []SyntaxError
}

func (e *AggregateParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Unable to load %s due to the following errors:", e.Path)
	for i, se := range e.Errors {
		fmt.Fprintf(&sb, "\nError %d at line=%d and column=%d:\n", i+1, se.Line, se.Column)
		if se.Path != "" && se.Path != e.Path {
			fmt.Fprintf(&sb, "%s: ", se.Path)
		}
		sb.WriteString(se.Message)
	}
	return sb.String()
}
