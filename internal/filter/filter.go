// Package filter implements the small boolean expression DSL over messages
// described in spec.md §4.2: topic pattern tests, payload field tests, a
// substring `grep`, and AND/OR/NOT composition with standard precedence
// (NOT > AND > OR).
package filter

import (
	"fmt"

	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/shellerr"
)

var parseErr = shellerr.ErrParseFilter

// Filter owns the current predicate. It is mutated only from the
// command-dispatch side of the shell (spec.md §3 FilterExpression
// lifecycle); Matches is read-only and safe to call concurrently with
// reads, but callers must still serialize Where/Clear against Matches
// per spec.md §5's shared-resource policy (the shell does this with an
// atomic pointer swap — see internal/shell).
type Filter struct {
	expr Expr
	src  string
}

// New returns a Filter that matches everything.
func New() *Filter {
	return &Filter{expr: Always{}}
}

// Where replaces the current predicate. On a parse error the existing
// filter is left unchanged and the error is returned for the caller to
// surface to the operator.
func (f *Filter) Where(src string) error {
	expr, err := Parse(src)
	if err != nil {
		return err
	}
	f.expr = expr
	f.src = src
	return nil
}

// Clear reverts the filter to always-true.
func (f *Filter) Clear() {
	f.expr = Always{}
	f.src = ""
}

// Source returns the original expression text, or "" if the filter is
// clear.
func (f *Filter) Source() string {
	return f.src
}

// Matches evaluates the current predicate against m. It is total: a
// malformed evaluation path (missing field, non-comparable leaf) yields
// false rather than an error (spec.md §7 EvaluationError).
func (f *Filter) Matches(m msg.Message) bool {
	return Eval(f.expr, m)
}

// Snapshot returns an immutable copy of the current expression tree,
// suitable for a lock-free read in a hot path (the tree itself is never
// mutated in place — Where always builds a fresh one).
func (f *Filter) Snapshot() Expr {
	return f.expr
}

// String renders a round-trippable textual form of expr — parsing this
// string again produces an equivalent tree (spec.md §8 round-trip
// property).
func String(e Expr) string {
	switch n := e.(type) {
	case Always:
		return ""
	case TopicPred:
		return fmt.Sprintf("topic %s '%s'", n.Op, n.Pattern)
	case FieldPred:
		return fmt.Sprintf("payload.%s %s %s", n.Path, n.Op, literalString(n.Literal))
	case TextPred:
		return fmt.Sprintf("grep '%s'", n.Substring)
	case Not:
		return fmt.Sprintf("NOT (%s)", String(n.Inner))
	case And:
		return fmt.Sprintf("(%s) AND (%s)", String(n.Left), String(n.Right))
	case Or:
		return fmt.Sprintf("(%s) OR (%s)", String(n.Left), String(n.Right))
	}
	return ""
}

func literalString(l Literal) string {
	switch l.Kind {
	case LitString:
		return "'" + l.Str + "'"
	case LitInt:
		return fmt.Sprintf("%d", int64(l.Num))
	case LitFloat:
		return fmt.Sprintf("%g", l.Num)
	}
	return ""
}
