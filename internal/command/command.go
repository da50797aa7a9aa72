// Package command implements the line parser and alias expander of
// spec.md §4.9 (component #10): split an input line into a command word
// plus positional/option arguments, then expand it through an alias
// table before dispatch.
package command

import (
	"strings"

	"github.com/rustyeddy/mqttsh/internal/handler"
)

// Expander holds the alias table used to rewrite the first token of an
// input line before parsing.
type Expander struct {
	aliases map[string]string
}

// NewExpander returns an Expander seeded with aliases. A nil or empty map
// means no expansion occurs.
func NewExpander(aliases map[string]string) *Expander {
	e := &Expander{aliases: make(map[string]string, len(aliases))}
	for k, v := range aliases {
		e.aliases[k] = v
	}
	return e
}

// Set adds or overwrites one alias at runtime.
func (e *Expander) Set(alias, expansion string) {
	e.aliases[alias] = expansion
}

// Expand rewrites line's first whitespace-delimited token through the
// alias table, if present, appending the rest of the line unchanged. A
// line with no matching alias is returned as-is.
func (e *Expander) Expand(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return trimmed
	}
	fields := strings.SplitN(trimmed, " ", 2)
	head := fields[0]
	expansion, ok := e.aliases[head]
	if !ok {
		return trimmed
	}
	if len(fields) == 1 {
		return expansion
	}
	if strings.HasSuffix(expansion, " ") {
		return expansion + fields[1]
	}
	return expansion + " " + fields[1]
}

// Parse splits a (post-expansion) line into a ParsedCommand. Empty lines
// yield a zero-value ParsedCommand with an empty Name; callers should
// treat that as "nothing to dispatch".
func Parse(line string) handler.ParsedCommand {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return handler.ParsedCommand{}
	}

	tokens := strings.Fields(trimmed)
	pc := handler.ParsedCommand{
		Name:    tokens[0],
		Options: make(map[string]string),
	}

	for _, tok := range tokens[1:] {
		if strings.HasPrefix(tok, "--") {
			kv := strings.TrimPrefix(tok, "--")
			if eq := strings.IndexByte(kv, '='); eq >= 0 {
				pc.Options[kv[:eq]] = kv[eq+1:]
			} else {
				pc.Options[kv] = "true"
			}
			continue
		}
		pc.Args = append(pc.Args, tok)
	}
	return pc
}
