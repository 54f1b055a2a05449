// Package query implements the boolean search expressions used to filter
// case records client-side: AND/OR/NOT operators, quoted phrases, leading
// "-" negation, and implicit conjunction between bare terms.
package query

import "strings"

// Expr is a node of a parsed query. A nil Expr means "match everything".
type Expr interface {
	isExpr()
}

// Term matches records containing its text.
type Term struct {
	Text string
}

// Quoted is a phrase that must match as a single unit.
type Quoted struct {
	Text string
}

// Not negates its operand.
type Not struct {
	Operand Expr
}

// And requires both operands to match.
type And struct {
	Left  Expr
	Right Expr
}

// Or requires either operand to match.
type Or struct {
	Left  Expr
	Right Expr
}

func (Term) isExpr()   {}
func (Quoted) isExpr() {}
func (Not) isExpr()    {}
func (And) isExpr()    {}
func (Or) isExpr()     {}

// Predicate decides whether a single term matches the record under test.
// exact is true for quoted phrases, letting the predicate distinguish
// phrase-match from substring-match semantics if it wants to.
type Predicate func(text string, exact bool) bool

// Eval interprets the expression against a caller-supplied predicate.
// A nil expression matches everything.
func Eval(e Expr, pred Predicate) bool {
	if e == nil {
		return true
	}
	switch n := e.(type) {
	case Term:
		return pred(n.Text, false)
	case Quoted:
		return pred(n.Text, true)
	case Not:
		return !Eval(n.Operand, pred)
	case And:
		return Eval(n.Left, pred) && Eval(n.Right, pred)
	case Or:
		return Eval(n.Left, pred) || Eval(n.Right, pred)
	}
	return false
}

// RecordPredicate builds the default matcher: it concatenates the given
// textual fields, lower-cases both sides, and checks substring containment.
// Quoted phrases use the same containment check, so the phrase must appear
// contiguously (spaces included).
func RecordPredicate(fields ...string) Predicate {
	haystack := strings.ToLower(strings.Join(fields, " "))
	return func(text string, _ bool) bool {
		return strings.Contains(haystack, strings.ToLower(text))
	}
}
