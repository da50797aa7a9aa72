// Package testsupport provides in-memory fakes used across the module's
// test suites: a channel-backed Transport standing in for a live broker
// connection, grounded on the shape of the teacher's demo/test transports
// (synthetic sources feeding a channel, rather than a real MQTT socket).
package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/transport"
)

// FakeTransport implements transport.Transport entirely in memory. Tests
// feed inbound traffic via Inject; outbound publishes are recorded for
// assertion via Published.
type FakeTransport struct {
	mu sync.Mutex

	connected bool
	streaming bool

	inbound   chan msg.Message
	published []PublishedMessage
	subs      []transport.Subscription

	ConnectErr error
}

// PublishedMessage records one call to Publish.
type PublishedMessage struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// NewFakeTransport returns a FakeTransport with the given inbound buffer
// size.
func NewFakeTransport(bufSize int) *FakeTransport {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &FakeTransport{inbound: make(chan msg.Message, bufSize)}
}

// Inject enqueues m as though it arrived from the broker. It blocks if
// the inbound buffer is full, mirroring a backed-up real transport;
// tests wanting drop-oldest semantics should size the buffer accordingly.
func (f *FakeTransport) Inject(m msg.Message) {
	f.inbound <- m
}

func (f *FakeTransport) Connect(ctx context.Context) error {
	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) StartStreaming(ctx context.Context) error {
	f.mu.Lock()
	f.streaming = true
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) StopStreaming(ctx context.Context) error {
	f.mu.Lock()
	f.streaming = false
	f.mu.Unlock()
	return nil
}

func (f *FakeTransport) Receive(timeout time.Duration) (msg.Message, bool) {
	if timeout <= 0 {
		select {
		case m := <-f.inbound:
			return m, true
		default:
			return msg.Message{}, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case m := <-f.inbound:
		return m, true
	case <-t.C:
		return msg.Message{}, false
	}
}

func (f *FakeTransport) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, PublishedMessage{Topic: topic, Payload: payload, QoS: qos, Retain: retain})
	return nil
}

func (f *FakeTransport) Subscribe(ctx context.Context, subs []transport.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, subs...)
	return nil
}

func (f *FakeTransport) Unsubscribe(ctx context.Context, filters []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	remaining := f.subs[:0]
	for _, s := range f.subs {
		keep := true
		for _, flt := range filters {
			if s.Filter == flt {
				keep = false
				break
			}
		}
		if keep {
			remaining = append(remaining, s)
		}
	}
	f.subs = remaining
	return nil
}

// Published returns a snapshot of every Publish call recorded so far.
func (f *FakeTransport) Published() []PublishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PublishedMessage, len(f.published))
	copy(out, f.published)
	return out
}

// Subscriptions returns a snapshot of the currently active subscriptions.
func (f *FakeTransport) Subscriptions() []transport.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Subscription, len(f.subs))
	copy(out, f.subs)
	return out
}

// IsConnected reports whether Connect has been called without a
// following Disconnect.
func (f *FakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// IsStreaming reports whether StartStreaming has been called without a
// following StopStreaming.
func (f *FakeTransport) IsStreaming() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streaming
}

var _ transport.Transport = (*FakeTransport)(nil)
