// Package msg is the canonical in-core representation of an inbound or
// outbound MQTT message (spec.md §3, component #1). Messages are immutable
// once constructed; derivations (filtered, formatted, projected) produce new
// values rather than mutating the original.
package msg

import (
	"time"

	"github.com/rustyeddy/mqttsh/internal/payload"
)

// Type distinguishes why a Message exists in the pipeline.
type Type int

const (
	// Data denotes an incoming publish from the broker.
	Data Type = iota
	Publish
	Subscribe
	Unsubscribe
	Disconnect
	System
)

func (t Type) String() string {
	switch t {
	case Data:
		return "data"
	case Publish:
		return "publish"
	case Subscribe:
		return "subscribe"
	case Unsubscribe:
		return "unsubscribe"
	case Disconnect:
		return "disconnect"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

// Message is a received or synthesized MQTT event flowing through the
// shell's pipeline.
type Message struct {
	Type      Type
	Topic     string
	QoS       byte
	Retain    bool
	MessageID uint16
	Payload   payload.Value
	Raw       []byte
	Source    string
	Timestamp time.Time
	Metadata  map[string]payload.Value

	// ID is a monotonically increasing ingestion counter assigned by the
	// history buffer on append; zero until appended.
	ID uint64
}

// New builds a Data message from a raw MQTT publish. raw is parsed as JSON
// when possible; otherwise it is kept as a string value (see
// payload.ParseJSON).
func New(topic string, raw []byte, qos byte, retain bool, source string) Message {
	return Message{
		Type:      Data,
		Topic:     topic,
		QoS:       qos,
		Retain:    retain,
		Payload:   payload.ParseJSON(raw),
		Raw:       raw,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// WithMetadata returns a copy of m with key set in its metadata map. Used by
// the rule engine to tag a message with the name of a matching rule without
// mutating the original.
func (m Message) WithMetadata(key string, v payload.Value) Message {
	out := m
	out.Metadata = make(map[string]payload.Value, len(m.Metadata)+1)
	for k, mv := range m.Metadata {
		out.Metadata[k] = mv
	}
	out.Metadata[key] = v
	return out
}

// Field resolves one of the well-known projection columns (topic, qos,
// timestamp, payload) or, for anything else, descends the payload by dotted
// path. This backs rule SELECT projections and the `fields` command; filter
// field_pred evaluation descends the payload with payload.Path directly.
func (m Message) Field(path string) (payload.Value, bool) {
	switch path {
	case "topic":
		return payload.NewString(m.Topic), true
	case "qos":
		return payload.NewNumber(float64(m.QoS)), true
	case "timestamp":
		return payload.NewString(m.Timestamp.Format(time.RFC3339Nano)), true
	case "payload":
		return m.Payload, true
	}

	const prefix = "payload."
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		v := payload.Path(m.Payload, payload.SplitDotted(path[len(prefix):]))
		return v, !v.IsAbsent()
	}
	return payload.None, false
}

// Canonical renders a compact string representation of the whole message,
// used by the `grep` text predicate.
func (m Message) Canonical() string {
	return m.Topic + " " + m.Payload.String()
}
