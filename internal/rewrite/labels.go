package rewrite

import (
	"strings"

	"github.com/me/wdl2vidarr/pkg/wdl"
)

const (
	// LabelKey is the map key under which a label is attached to a file.
	LabelKey = "vidarr_label"

	// SentinelName is the declaration that stands in for a missing labelled
	// file. WDL 1.0 has no literal None for a Pair.
	SentinelName = "vidarr_label_sentinel"

	labelledFileType = "Pair[File, Map[String,String]]"
)

var wdlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)

// quote renders s as a double-quoted WDL string literal.
func quote(s string) string {
	return `"` + wdlEscaper.Replace(s) + `"`
}

// labelEntry renders the map entry carrying label.
func labelEntry(label string) string {
	return quote(LabelKey) + ": " + quote(label)
}

// foldExpr joins the lines of an expression's source with spaces, dropping
// "#" comments. WDL string literals cannot span lines, so a line break is
// always between tokens.
func foldExpr(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = stripComment(line)
	}
	return strings.Join(lines, " ")
}

// stripComment cuts line at the first "#" outside a string literal.
func stripComment(line string) string {
	var delim byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case delim != 0 && c == '\\':
			i++
		case delim != 0 && c == delim:
			delim = 0
		case delim == 0 && (c == '"' || c == '\''):
			delim = c
		case delim == 0 && c == '#':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}

// LabelFile turns "File name = expr" into
// "Pair[File, Map[String,String]] name = (expr, {"vidarr_label": label})".
// The expression itself is left untouched, so a declaration on one line
// changes exactly one line and multi-line expressions keep their line count.
func LabelFile(decl *wdl.Decl, label string) []Edit {
	return []Edit{
		Replace(decl.TypeSpan, labelledFileType),
		Insert(decl.Expr.Span.Start, "("),
		Insert(decl.Expr.Span.End, ", {"+labelEntry(label)+"})"),
	}
}

// LabelOptionalFile turns "File? name = expr" into
// "if defined(expr) then (select_first([expr]), {...}) else sentinel". The
// original expression stays in place inside defined(); exprText is its
// source, copied into select_first with comments dropped and line breaks
// folded into spaces so the line count does not change. The caller must also add the Sentinel
// edit.
func LabelOptionalFile(decl *wdl.Decl, exprText, label string) []Edit {
	return []Edit{
		Replace(decl.TypeSpan, labelledFileType+"?"),
		Insert(decl.Expr.Span.Start, "if defined("),
		Insert(decl.Expr.Span.End, ") then (select_first(["+foldExpr(exprText)+"]), {"+labelEntry(label)+"}) else "+SentinelName),
	}
}

// AppendLabel adds the label entry to a map literal.
func AppendLabel(mapLit *wdl.Expr, label string) Edit {
	if n := len(mapLit.Entries); n > 0 {
		return Insert(mapLit.Entries[n-1].Value.Span.End, ", "+labelEntry(label))
	}
	closing := mapLit.Span.End
	closing.Column--
	return Insert(closing, labelEntry(label))
}

// Sentinel declares the sentinel inside a constant-false conditional placed
// at the end of the workflow body. Declarations inside a conditional are
// optional outside of it, which gives the sentinel the type of a missing
// labelled file. closeLine is the source line holding the workflow's closing
// brace at pos.
func Sentinel(pos wdl.Pos, closeLine string) Edit {
	block := "  if (false) {\n" +
		"    " + labelledFileType + " " + SentinelName + " = (\"\", {})\n" +
		"  }\n"
	if strings.TrimSpace(closeLine[:pos.Column-1]) != "" {
		return Insert(pos, "\n"+block)
	}
	return Insert(wdl.Pos{Line: pos.Line, Column: 1}, block)
}

// SourceText returns the text covered by span.
func SourceText(lines []string, span wdl.Span) string {
	if span.Start.Line == span.End.Line {
		return lines[span.Start.Line-1][span.Start.Column-1 : span.End.Column-1]
	}
	var sb strings.Builder
	sb.WriteString(lines[span.Start.Line-1][span.Start.Column-1:])
	for l := span.Start.Line + 1; l < span.End.Line; l++ {
		sb.WriteString("\n")
		sb.WriteString(lines[l-1])
	}
	sb.WriteString("\n")
	sb.WriteString(lines[span.End.Line-1][:span.End.Column-1])
	return sb.String()
}
