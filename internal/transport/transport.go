// Package transport defines the external Transport contract of spec.md
// §6 that the shell core depends on, plus a concrete implementation
// backed by eclipse/paho.mqtt.golang.
package transport

import (
	"context"
	"time"

	"github.com/rustyeddy/mqttsh/internal/msg"
)

// Subscription names one topic filter and the QoS to subscribe it at.
type Subscription struct {
	Filter string
	QoS    byte
}

// Transport is the boundary between the shell core and an actual MQTT
// connection. The core never frames packets, handshakes QoS, or manages
// reconnection itself — all of that lives behind this interface.
type Transport interface {
	// Connect establishes the underlying connection. It is synchronous
	// and may fail with a connection error.
	Connect(ctx context.Context) error

	// Disconnect tears the connection down. It is idempotent.
	Disconnect(ctx context.Context) error

	// StartStreaming enables asynchronous delivery of inbound messages to
	// Receive.
	StartStreaming(ctx context.Context) error

	// StopStreaming disables asynchronous delivery.
	StopStreaming(ctx context.Context) error

	// Receive returns the next buffered inbound message, or ok=false if
	// none arrived within timeout.
	Receive(timeout time.Duration) (m msg.Message, ok bool)

	// Publish sends payload to topic at the given QoS/retain settings.
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error

	// Subscribe registers interest in the given filters.
	Subscribe(ctx context.Context, subs []Subscription) error

	// Unsubscribe removes interest in the given filters.
	Unsubscribe(ctx context.Context, filters []string) error
}

// ConnectionPoolInfo describes a Transport's underlying connection pool, for
// implementations that have one to report on.
type ConnectionPoolInfo struct {
	Broker    string
	Connected bool
	ClientID  string
}

// PoolProvider is implemented by Transports that can describe their
// connection. The `pool` command checks for it with a type assertion and
// reports "not exposed" when absent, per spec.md §6's "if exposed" note.
type PoolProvider interface {
	PoolInfo() (ConnectionPoolInfo, bool)
}
