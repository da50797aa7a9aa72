// Package logsink implements the optional append-only file sink of
// spec.md §4.7 (component #13): independent of the interactive pause
// state, writing every filter-passing message to disk with control
// sequences stripped first.
package logsink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rustyeddy/mqttsh/internal/format"
	"github.com/rustyeddy/mqttsh/internal/msg"
)

// Sink writes formatted, ANSI-stripped message lines to a file. It is
// safe for concurrent use; the dispatch worker is expected to be its only
// writer, but handler goroutines may call Enabled/Close concurrently.
type Sink struct {
	mu      sync.Mutex
	w       io.WriteCloser
	enabled bool
}

// Open creates (or appends to) the file at path and returns a Sink
// writing to it.
func Open(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open %s: %w", path, err)
	}
	return &Sink{w: f, enabled: true}, nil
}

// Write renders m with st and appends the ANSI-stripped line, regardless
// of the shell's paused/stepping state. It is a no-op when the sink is
// disabled.
func (s *Sink) Write(m msg.Message, st format.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || s.w == nil {
		return nil
	}
	line := format.StripANSI(format.Render(m, st))
	_, err := fmt.Fprintln(s.w, line)
	return err
}

// SetEnabled toggles whether Write actually persists lines, without
// closing the underlying file.
func (s *Sink) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports the current enabled state.
func (s *Sink) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}
