// Package wsfeed is an optional live-tail sink: every message the shell
// core accepts for display is also broadcast, as JSON, to any connected
// websocket client. It has no counterpart in spec.md's core component
// list — it is domain-stack enrichment wiring gorilla/websocket into the
// shell's fan-out, grounded on the teacher's HTTP websocket hub.
package wsfeed

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/mqttsh/internal/msg"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// checkOrigin permits any origin: this is a local debug feed, not a
// public-facing endpoint.
func checkOrigin(r *http.Request) bool { return true }

const writeQueueSize = 32

// client is one connected websocket tail consumer.
type client struct {
	conn   *websocket.Conn
	writeQ chan msg.Message
	done   chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn:   conn,
		writeQ: make(chan msg.Message, writeQueueSize),
		done:   make(chan struct{}),
	}
}

// Hub accepts websocket upgrade requests and fans out Broadcast calls to
// every connected client. A slow or disconnected client is dropped rather
// than allowed to block the fan-out.
type Hub struct {
	log *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it for broadcast until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.log != nil {
			h.log.Warn("wsfeed upgrade failed", "error", err)
		}
		return
	}

	c := newClient(conn)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer func() {
		c.conn.Close()
	}()
	for {
		select {
		case m := <-c.writeQ:
			c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteJSON(toWire(m)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.done)
	}
}

// Broadcast enqueues m for delivery to every connected client. A client
// whose write queue is already full is disconnected rather than blocked
// on.
func (h *Hub) Broadcast(m msg.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.writeQ <- m:
		default:
			delete(h.clients, c)
			close(c.done)
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

type wireMessage struct {
	Topic     string `json:"topic"`
	Payload   string `json:"payload"`
	QoS       byte   `json:"qos"`
	Timestamp string `json:"timestamp"`
}

func toWire(m msg.Message) wireMessage {
	return wireMessage{
		Topic:     m.Topic,
		Payload:   m.Payload.String(),
		QoS:       m.QoS,
		Timestamp: m.Timestamp.Format(time.RFC3339Nano),
	}
}
