package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rustyeddy/mqttsh/internal/filter"
	"github.com/rustyeddy/mqttsh/internal/shellerr"
)

var parseErr = shellerr.ErrParseRule

var (
	reFrom     = regexp.MustCompile(`(?i)\bFROM\b`)
	reWhere    = regexp.MustCompile(`(?i)\bWHERE\b`)
	reSelect   = regexp.MustCompile(`(?i)^\s*SELECT\b`)
	reFieldIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// ParseSQL parses a `SELECT fields FROM 'topic' [WHERE where]` rule string.
// Failures name the offending clause, per spec.md §4.3. A rule whose SQL
// fails to parse is never constructed, so callers never see a partially
// built Rule.
func ParseSQL(name, sql string) (*Rule, error) {
	s := strings.TrimSpace(sql)

	if !reSelect.MatchString(s) {
		return nil, fmt.Errorf("%w: rule %q: missing SELECT clause", parseErr, name)
	}
	s = reSelect.ReplaceAllString(s, "")

	fromLoc := reFrom.FindStringIndex(s)
	if fromLoc == nil {
		return nil, fmt.Errorf("%w: rule %q: missing FROM clause", parseErr, name)
	}

	fieldsStr := strings.TrimSpace(s[:fromLoc[0]])
	fields, err := parseFields(fieldsStr)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %q: %s", parseErr, name, err)
	}

	rest := strings.TrimSpace(s[fromLoc[1]:])
	topicStr, rest, err := parseQuotedTopic(rest)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %q: %s", parseErr, name, err)
	}

	var whereExpr filter.Expr
	rest = strings.TrimSpace(rest)
	if rest != "" {
		whereLoc := reWhere.FindStringIndex(rest)
		if whereLoc == nil || whereLoc[0] != 0 {
			return nil, fmt.Errorf("%w: rule %q: unexpected trailing clause %q (expected WHERE)", parseErr, name, rest)
		}
		whereSrc := strings.TrimSpace(rest[whereLoc[1]:])
		if whereSrc == "" {
			return nil, fmt.Errorf("%w: rule %q: WHERE requires a predicate", parseErr, name)
		}
		expr, err := filter.Parse(whereSrc)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: malformed WHERE clause: %s", parseErr, name, err)
		}
		whereExpr = expr
	}

	return &Rule{
		Name:      name,
		SQL:       sql,
		Select:    fields,
		FromTopic: topicStr,
		Where:     whereExpr,
		enabled:   true,
	}, nil
}

func parseFields(s string) ([]string, error) {
	if s == "" {
		return nil, fmt.Errorf("empty SELECT field list")
	}
	if s == "*" {
		return []string{"*"}, nil
	}
	parts := strings.Split(s, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		f := strings.TrimSpace(p)
		if f == "" {
			return nil, fmt.Errorf("empty field in SELECT list")
		}
		if !reFieldIdent.MatchString(f) {
			return nil, fmt.Errorf("malformed SELECT field %q", f)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// parseQuotedTopic consumes a single- or double-quoted string from the
// start of s (after optional leading whitespace) and returns it along with
// the remainder of s.
func parseQuotedTopic(s string) (topic string, rest string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("FROM requires a quoted topic")
	}
	quote := s[0]
	if quote != '\'' && quote != '"' {
		return "", "", fmt.Errorf("FROM topic must be quoted, found %q", s)
	}
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", "", fmt.Errorf("unterminated topic string")
	}
	end++ // account for slice offset
	return s[1:end], s[end+1:], nil
}
