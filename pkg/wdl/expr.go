package wdl

import "fmt"

// Pos is a position in a source document. Line and Column are 1-based;
// Column counts bytes.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Before reports whether p sorts strictly before o.
func (p Pos) Before(o Pos) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Span is a half-open source range [Start, End).
type Span struct {
	Start Pos
	End   Pos
}

// ExprKind identifies the form of an expression node.
type ExprKind int

const (
	ExprLiteral ExprKind = iota // Int, Float, Boolean or None
	ExprString
	ExprIdent
	ExprMember
	ExprIndex
	ExprApply
	ExprPair
	ExprArray
	ExprMap
	ExprObject
	ExprIf
	ExprUnary
	ExprBinary
)

// Expr is a WDL expression. The converter never evaluates expressions; it
// only needs their shape and source spans.
//
// Value holds the literal text (ExprLiteral, ExprString), the identifier
// (ExprIdent), the member name (ExprMember), the function name (ExprApply),
// the struct name or "object" (ExprObject) or the operator (ExprUnary,
// ExprBinary). Args holds operands in source order; Entries holds the
// entries of map and object literals.
type Expr struct {
	Kind    ExprKind
	Span    Span
	Value   string
	Args    []*Expr
	Entries []Entry
}

// Entry is one key/value entry of a map or object literal. Object literals
// use Field instead of Key.
type Entry struct {
	Key   *Expr
	Field string
	Value *Expr
}

// IsLabelledPair reports whether e is a pair literal whose right side is a map
// literal, the form used to attach labels to files.
func (e *Expr) IsLabelledPair() bool {
	return e != nil && e.Kind == ExprPair && len(e.Args) == 2 && e.Args[1].Kind == ExprMap
}
