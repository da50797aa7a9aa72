// Package history implements the bounded message ring buffer of spec.md
// §4.5 (component #4): append-only ingest, lookup by recency or absolute
// counter, linear search, and named bookmarks.
package history

import (
	"sync"

	"github.com/rustyeddy/mqttsh/internal/msg"
)

// History is a fixed-capacity ring buffer of recently ingested messages,
// indexed by a monotonically increasing counter. It evicts the oldest
// entry on overflow.
type History struct {
	mu        sync.RWMutex
	cap       int
	buf       []msg.Message
	next      uint64 // counter assigned to the next appended message
	oldest    uint64 // smallest counter still present in buf
	bookmarks map[string]uint64
}

// New returns a History with the given capacity. capacity must be positive.
func New(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		cap:       capacity,
		buf:       make([]msg.Message, 0, capacity),
		bookmarks: make(map[string]uint64),
	}
}

// Append records m, assigning it the next ingestion counter, and returns
// the stamped copy. When the buffer is at capacity the oldest entry is
// evicted.
func (h *History) Append(m msg.Message) msg.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	m.ID = h.next
	h.next++

	if len(h.buf) >= h.cap {
		h.buf = h.buf[1:]
		h.oldest++
	}
	h.buf = append(h.buf, m)
	return m
}

// Len returns the number of messages currently retained.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buf)
}

// Last returns the k most recent messages in reverse-chronological order
// (newest first). If k exceeds the number retained, all retained messages
// are returned.
func (h *History) Last(k int) []msg.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if k > len(h.buf) {
		k = len(h.buf)
	}
	out := make([]msg.Message, k)
	for i := 0; i < k; i++ {
		out[i] = h.buf[len(h.buf)-1-i]
	}
	return out
}

// At returns the message with the given absolute ingestion counter. ok is
// false if the counter was never assigned or has since been evicted.
func (h *History) At(index uint64) (m msg.Message, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if index < h.oldest || index >= h.next {
		return msg.Message{}, false
	}
	return h.buf[index-h.oldest], true
}

// Search returns every retained message for which pred returns true, in
// chronological order.
func (h *History) Search(pred func(msg.Message) bool) []msg.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []msg.Message
	for _, m := range h.buf {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// Bookmark names the given absolute counter for later lookup via Resolve.
func (h *History) Bookmark(name string, index uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bookmarks[name] = index
}

// Resolve returns the message previously bookmarked under name.
func (h *History) Resolve(name string) (msg.Message, bool) {
	h.mu.RLock()
	index, ok := h.bookmarks[name]
	h.mu.RUnlock()
	if !ok {
		return msg.Message{}, false
	}
	return h.At(index)
}

// Snapshot returns every retained message, oldest first. Used by export.
func (h *History) Snapshot() []msg.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]msg.Message, len(h.buf))
	copy(out, h.buf)
	return out
}

// Clear discards all retained messages and bookmarks. Ingestion counters
// continue from where they left off — a bookmark or absolute index saved
// before a Clear still refers to a now-evicted message and resolves to
// not-found, it is never silently reassigned.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.oldest = h.next
	h.buf = h.buf[:0]
	h.bookmarks = make(map[string]uint64)
}
