// Package rule implements the SQL-dialect rule engine of spec.md §4.3: a
// `SELECT ... FROM '<topic>' [WHERE ...]` parser, an evaluator that matches
// messages against registered rules in insertion order, and projection of
// matched fields.
package rule

import (
	"github.com/rustyeddy/mqttsh/internal/filter"
)

// Rule is a parsed, named SQL rule (spec.md §3 Rule).
type Rule struct {
	Name      string
	SQL       string
	Select    []string // ordered projection fields; ["*"] means "whole message"
	FromTopic string
	Where     filter.Expr // nil means "no WHERE clause" (always matches)
	Actions   []Action

	enabled bool
}

// Enabled reports whether the rule currently participates in evaluation.
// Disabled rules are retained but skipped (spec.md §4.3 Lifecycle).
func (r *Rule) Enabled() bool { return r.enabled }
