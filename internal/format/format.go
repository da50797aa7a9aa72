// Package format renders Message values for display or logging (spec.md
// §4.6, component #6). Formatting is a pure function of (message,
// format-state); it never blocks and never mutates its input.
package format

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/mqttsh/internal/msg"
)

const timeLayout = "2006-01-02T15:04:05.000"

// Mode selects the rendering layout.
type Mode int

const (
	// SingleLine renders one compact line per message (default).
	SingleLine Mode = iota
	// Vertical renders one key per line, for long or nested payloads.
	Vertical
)

// State holds the mutable display knobs a formatter call is a pure
// function of. It carries no reference to the shell core.
type State struct {
	Mode          Mode
	Color         bool
	Hex           bool
	MaxPayloadLen int // 0 disables truncation
}

// DefaultState returns single-line, uncolored formatting with payloads
// truncated after 512 bytes.
func DefaultState() State {
	return State{Mode: SingleLine, MaxPayloadLen: 512}
}

// ansiRE strips SGR/CSI control sequences before a line is written to a
// log file, regardless of whether it was generated with Color set.
var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes terminal control sequences from s.
func StripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

const (
	colorReset = "\x1b[0m"
	colorDim   = "\x1b[2m"
	colorCyan  = "\x1b[36m"
	colorGreen = "\x1b[32m"
)

// Render formats m according to st. When m.Metadata carries a "rule" entry
// (the name of a rule that matched this message), that name is tagged in
// the output per spec.md §4.6.
func Render(m msg.Message, st State) string {
	ruleMatch := ruleTag(m)
	switch st.Mode {
	case Vertical:
		return renderVertical(m, st, ruleMatch)
	default:
		return renderSingleLine(m, st, ruleMatch)
	}
}

func ruleTag(m msg.Message) string {
	if v, ok := m.Metadata["rule"]; ok {
		if s, ok := v.AsString(); ok {
			return s
		}
	}
	return ""
}

func renderSingleLine(m msg.Message, st State, ruleMatch string) string {
	ts := m.Timestamp.Format(timeLayout)
	payload := renderPayload(m, st)

	var b strings.Builder
	if st.Color {
		b.WriteString(colorDim)
	}
	b.WriteString(ts)
	if st.Color {
		b.WriteString(colorReset)
	}
	b.WriteByte(' ')

	if st.Color {
		b.WriteString(colorCyan)
	}
	b.WriteString(m.Topic)
	if st.Color {
		b.WriteString(colorReset)
	}
	b.WriteByte(' ')
	b.WriteString(payload)

	if ruleMatch != "" {
		if st.Color {
			b.WriteString(colorGreen)
		}
		b.WriteString(fmt.Sprintf(" [rule:%s]", ruleMatch))
		if st.Color {
			b.WriteString(colorReset)
		}
	}
	return b.String()
}

func renderVertical(m msg.Message, st State, ruleMatch string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "time:    %s\n", m.Timestamp.Format(timeLayout))
	fmt.Fprintf(&b, "topic:   %s\n", m.Topic)
	fmt.Fprintf(&b, "qos:     %d\n", m.QoS)
	fmt.Fprintf(&b, "retain:  %t\n", m.Retain)
	fmt.Fprintf(&b, "payload: %s", renderPayload(m, st))
	if ruleMatch != "" {
		fmt.Fprintf(&b, "\nrule:    %s", ruleMatch)
	}
	if len(m.Metadata) > 0 {
		keys := make([]string, 0, len(m.Metadata))
		for k := range m.Metadata {
			if k == "rule" {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\nmeta.%s: %s", k, m.Metadata[k].String())
		}
	}
	return b.String()
}

func renderPayload(m msg.Message, st State) string {
	var rendered string
	if st.Hex {
		rendered = hex.Dump(m.Raw)
	} else {
		rendered = m.Payload.String()
	}
	return truncate(rendered, st.MaxPayloadLen)
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit] + "...[truncated]"
}
