// Package payload models the body of an MQTT message as a small recursive
// value type instead of leaning on reflection. A Value is one of: a mapping,
// a sequence, a string, a number, a boolean, or absent. Dotted-path descent
// (used by the filter and rule WHERE clauses) is a pure function over this
// type.
package payload

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies which alternative a Value holds.
type Kind int

const (
	Absent Kind = iota
	Map
	Seq
	String
	Number
	Bool
)

// Value is a recursive payload value: a JSON-like tree with an explicit
// Absent case so dotted-path descent can report "not found" without a
// sentinel error.
type Value struct {
	kind Kind
	m    map[string]Value
	s    []Value
	str  string
	num  float64
	b    bool
}

// None is the absent value; descent past a missing path segment returns it.
var None = Value{kind: Absent}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == Absent }

func (v Value) AsString() (string, bool) {
	if v.kind == String {
		return v.str, true
	}
	return "", false
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind == Number {
		return v.num, true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) {
	if v.kind == Bool {
		return v.b, true
	}
	return false, false
}

func (v Value) AsMap() (map[string]Value, bool) {
	if v.kind == Map {
		return v.m, true
	}
	return nil, false
}

func (v Value) AsSeq() ([]Value, bool) {
	if v.kind == Seq {
		return v.s, true
	}
	return nil, false
}

// Get descends one segment into a Map value. Missing keys, or a receiver
// that is not a Map, yield None.
func (v Value) Get(key string) Value {
	m, ok := v.AsMap()
	if !ok {
		return None
	}
	child, ok := m[key]
	if !ok {
		return None
	}
	return child
}

// Path descends a dotted path (already split into segments) into v,
// returning None as soon as any segment is missing or the value is not a
// Map. This is the pure function the filter and rule WHERE clauses use for
// `payload.a.b.c` field tests — it never errors.
func Path(v Value, segments []string) Value {
	cur := v
	for _, seg := range segments {
		cur = cur.Get(seg)
		if cur.IsAbsent() {
			return None
		}
	}
	return cur
}

// SplitDotted splits "a.b.c" into ["a","b","c"]. An empty string yields an
// empty slice.
func SplitDotted(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// String renders v as a compact, canonical string — used by the `grep`
// text predicate and by the single-line formatter.
func (v Value) String() string {
	switch v.kind {
	case Absent:
		return ""
	case String:
		return v.str
	case Number:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Seq:
		parts := make([]string, len(v.s))
		for i, e := range v.s {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case Map:
		b, err := json.Marshal(v.Native())
		if err != nil {
			return "{}"
		}
		return string(b)
	}
	return ""
}

// Native converts v back into plain Go values (map[string]any, []any,
// string, float64, bool, nil) suitable for json.Marshal or further
// inspection.
func (v Value) Native() any {
	switch v.kind {
	case Absent:
		return nil
	case String:
		return v.str
	case Number:
		return v.num
	case Bool:
		return v.b
	case Seq:
		out := make([]any, len(v.s))
		for i, e := range v.s {
			out[i] = e.Native()
		}
		return out
	case Map:
		out := make(map[string]any, len(v.m))
		for k, e := range v.m {
			out[k] = e.Native()
		}
		return out
	}
	return nil
}

// FromAny lifts a plain Go value (as produced by encoding/json unmarshal
// into any, or built by hand from string/float64/bool/map/slice) into a
// Value tree.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return None
	case Value:
		return t
	case string:
		return Value{kind: String, str: t}
	case bool:
		return Value{kind: Bool, b: t}
	case float64:
		return Value{kind: Number, num: t}
	case int:
		return Value{kind: Number, num: float64(t)}
	case int64:
		return Value{kind: Number, num: float64(t)}
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = FromAny(e)
		}
		return Value{kind: Map, m: m}
	case map[string]Value:
		return Value{kind: Map, m: t}
	case []any:
		s := make([]Value, len(t))
		for i, e := range t {
			s[i] = FromAny(e)
		}
		return Value{kind: Seq, s: s}
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return None
		}
		var any any
		if err := json.Unmarshal(b, &any); err != nil {
			return None
		}
		return FromAny(any)
	}
}

// ParseJSON decodes raw bytes as a JSON document into a Value tree. If the
// bytes are not valid JSON, it falls back to a String value wrapping the raw
// bytes, so non-JSON payloads still support the `grep` text predicate.
func ParseJSON(raw []byte) Value {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return Value{kind: String, str: string(raw)}
	}
	return FromAny(v)
}

// NewString, NewNumber, NewBool, NewMap, NewSeq build Value literals
// directly, used by rule projections and tests.
func NewString(s string) Value            { return Value{kind: String, str: s} }
func NewNumber(n float64) Value           { return Value{kind: Number, num: n} }
func NewBool(b bool) Value                { return Value{kind: Bool, b: b} }
func NewMap(m map[string]Value) Value     { return Value{kind: Map, m: m} }
func NewSeq(s []Value) Value              { return Value{kind: Seq, s: s} }
