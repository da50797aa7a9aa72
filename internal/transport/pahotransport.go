package transport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/shellerr"
)

// Config configures a PahoTransport connection.
type Config struct {
	Broker       string // e.g. "tcp://localhost:1883"
	ClientID     string // random suffix appended if empty
	Username     string
	Password     string
	CleanSession bool
	QueueSize    int // inbound buffer size; defaults to 256
}

// PahoTransport implements Transport over github.com/eclipse/paho.mqtt.golang.
// Inbound publishes are buffered into an internal channel so that Receive
// can be polled with a timeout, matching the Transport contract's pull
// model rather than paho's native push callbacks.
type PahoTransport struct {
	cfg  Config
	opts *paho.ClientOptions

	mu        sync.Mutex
	c         paho.Client
	streaming bool

	inbound chan msg.Message
}

// New constructs a PahoTransport. It does not connect.
func New(cfg Config) *PahoTransport {
	if cfg.ClientID == "" {
		cfg.ClientID = "mqttsh-" + randSuffix()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetCleanSession(cfg.CleanSession)

	return &PahoTransport{
		cfg:     cfg,
		opts:    opts,
		inbound: make(chan msg.Message, cfg.QueueSize),
	}
}

func randSuffix() string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 8)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// Connect implements Transport.
func (p *PahoTransport) Connect(ctx context.Context) error {
	p.mu.Lock()
	if p.c == nil {
		p.c = paho.NewClient(p.opts)
	}
	c := p.c
	p.mu.Unlock()

	tok := c.Connect()
	if !tok.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("%w: timeout contacting %s", shellerr.ErrConnect, p.cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s", shellerr.ErrConnect, err)
	}
	return nil
}

// Disconnect implements Transport. It is idempotent.
func (p *PahoTransport) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	c := p.c
	p.mu.Unlock()
	if c == nil || !c.IsConnected() {
		return nil
	}
	c.Disconnect(250)
	return nil
}

// StartStreaming implements Transport. With paho, subscriptions already
// deliver asynchronously via callback, so this only sets an internal
// streaming flag; inbound publishes are buffered for Receive whether or
// not streaming has been started.
func (p *PahoTransport) StartStreaming(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streaming = true
	return nil
}

// StopStreaming implements Transport.
func (p *PahoTransport) StopStreaming(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streaming = false
	return nil
}

// Receive implements Transport, returning the next buffered inbound
// message or ok=false if none arrives within timeout.
func (p *PahoTransport) Receive(timeout time.Duration) (msg.Message, bool) {
	if timeout <= 0 {
		select {
		case m := <-p.inbound:
			return m, true
		default:
			return msg.Message{}, false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case m := <-p.inbound:
		return m, true
	case <-t.C:
		return msg.Message{}, false
	}
}

// Publish implements Transport.
func (p *PahoTransport) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	p.mu.Lock()
	c := p.c
	p.mu.Unlock()
	if c == nil {
		return fmt.Errorf("%w: publish: not connected", shellerr.ErrTransport)
	}

	tok := c.Publish(topic, qos, retain, payload)
	if qos > 0 {
		if !tok.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("%w: publish: timeout on %s", shellerr.ErrTransport, topic)
		}
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s", shellerr.ErrTransport, err)
	}
	return nil
}

// Subscribe implements Transport. Each matched publish is translated into
// a Data Message and buffered into the inbound channel (drop-oldest on
// overflow, mirroring the shell core's own backpressure policy so a
// transport-level backlog cannot grow unbounded).
func (p *PahoTransport) Subscribe(ctx context.Context, subs []Subscription) error {
	p.mu.Lock()
	c := p.c
	p.mu.Unlock()
	if c == nil {
		return fmt.Errorf("%w: subscribe: not connected", shellerr.ErrTransport)
	}

	filters := make(map[string]byte, len(subs))
	for _, s := range subs {
		filters[s.Filter] = s.QoS
	}

	tok := c.SubscribeMultiple(filters, func(_ paho.Client, pm paho.Message) {
		m := msg.New(pm.Topic(), pm.Payload(), pm.Qos(), pm.Retained(), "broker")
		select {
		case p.inbound <- m:
		default:
			select {
			case <-p.inbound:
			default:
			}
			p.inbound <- m
		}
	})
	if !tok.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("%w: subscribe: timeout", shellerr.ErrTransport)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s", shellerr.ErrTransport, err)
	}
	return nil
}

// PoolInfo implements PoolProvider.
func (p *PahoTransport) PoolInfo() (ConnectionPoolInfo, bool) {
	p.mu.Lock()
	c := p.c
	p.mu.Unlock()
	return ConnectionPoolInfo{
		Broker:    p.cfg.Broker,
		Connected: c != nil && c.IsConnected(),
		ClientID:  p.cfg.ClientID,
	}, true
}

// Unsubscribe implements Transport.
func (p *PahoTransport) Unsubscribe(ctx context.Context, filters []string) error {
	p.mu.Lock()
	c := p.c
	p.mu.Unlock()
	if c == nil {
		return fmt.Errorf("%w: unsubscribe: not connected", shellerr.ErrTransport)
	}

	tok := c.Unsubscribe(filters...)
	if !tok.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("%w: unsubscribe: timeout", shellerr.ErrTransport)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %s", shellerr.ErrTransport, err)
	}
	return nil
}
