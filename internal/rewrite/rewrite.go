// Package rewrite patches WDL source text with an explicit list of span
// edits. Everything outside the edited spans is preserved byte for byte.
package rewrite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

// Edit replaces the half-open range [Start, End) with Text. Start == End is
// an insertion.
type Edit struct {
	Start wdl.Pos
	End   wdl.Pos
	Text  string
}

// Insert returns an edit that inserts text at pos.
func Insert(pos wdl.Pos, text string) Edit {
	return Edit{Start: pos, End: pos, Text: text}
}

// Replace returns an edit that replaces the span with text.
func Replace(span wdl.Span, text string) Edit {
	return Edit{Start: span.Start, End: span.End, Text: text}
}

// OverlapError is returned when two edits touch the same source range.
type OverlapError struct {
	First, Second Edit
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("edit at %s-%s overlaps edit at %s-%s",
		e.Second.Start, e.Second.End, e.First.Start, e.First.End)
}

// RangeError is returned when an edit lies outside the source.
type RangeError struct {
	Pos wdl.Pos
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("edit position %s is outside the source", e.Pos)
}

// Apply returns lines with all edits applied. Edits are sorted by position and
// applied in a single pass; insertions at the same position keep their
// relative order. The input slice is not modified.
func Apply(lines []string, edits []Edit) ([]string, error) {
	if len(edits) == 0 {
		return append([]string(nil), lines...), nil
	}

	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	// Byte offset of the first character of every line in the joined text.
	starts := make([]int, len(lines))
	off := 0
	for i, l := range lines {
		starts[i] = off
		off += len(l) + 1
	}
	offset := func(p wdl.Pos) (int, error) {
		if p.Line < 1 || p.Line > len(lines) || p.Column < 1 || p.Column > len(lines[p.Line-1])+1 {
			return 0, &RangeError{Pos: p}
		}
		return starts[p.Line-1] + p.Column - 1, nil
	}

	src := strings.Join(lines, "\n")
	var sb strings.Builder
	cursor := 0
	var prev *Edit
	for i := range sorted {
		e := sorted[i]
		start, err := offset(e.Start)
		if err != nil {
			return nil, err
		}
		end, err := offset(e.End)
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, &RangeError{Pos: e.End}
		}
		if start < cursor {
			return nil, &OverlapError{First: *prev, Second: e}
		}
		sb.WriteString(src[cursor:start])
		sb.WriteString(e.Text)
		cursor = end
		prev = &sorted[i]
	}
	sb.WriteString(src[cursor:])
	return strings.Split(sb.String(), "\n"), nil
}
