package shell

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/mqttsh/internal/config"
	"github.com/rustyeddy/mqttsh/internal/handler"
	"github.com/rustyeddy/mqttsh/internal/handlers"
	"github.com/rustyeddy/mqttsh/internal/history"
	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/testsupport"
	"github.com/rustyeddy/mqttsh/internal/wsfeed"
)

// fakeLines feeds a fixed sequence of input lines, then reports io.EOF.
type fakeLines struct {
	mu    sync.Mutex
	lines []string
	pos   int
}

func newFakeLines(lines ...string) *fakeLines {
	return &fakeLines{lines: lines}
}

func (f *fakeLines) ReadLine() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.lines) {
		return "", io.EOF
	}
	l := f.lines[f.pos]
	f.pos++
	return l, nil
}

func newTestShell(t *testing.T, lines *fakeLines, bufSize int) (*Shell, *testsupport.FakeTransport, *bytes.Buffer) {
	t.Helper()
	tr := testsupport.NewFakeTransport(64)
	var out bytes.Buffer
	cfg := config.Default()
	cfg.ChannelBufferSize = bufSize
	s := New(Options{
		Config:    cfg,
		Transport: tr,
		Lines:     lines,
		Out:       &out,
		Handlers:  handlers.All(),
	})
	return s, tr, &out
}

// TestBackpressureDropsOldestUnderStep mirrors the S6 overflow scenario: a
// 4-slot queue fed 10 arrivals drops the 6 oldest, and with step-through
// enabled none render until Advance is called, after which messages surface
// one at a time in arrival order.
func TestBackpressureDropsOldestUnderStep(t *testing.T) {
	s, _, out := newTestShell(t, newFakeLines(), 4)
	s.gate.EnableStep()

	for i := 0; i < 10; i++ {
		s.queue.Enqueue(msg.New("sensors/a", []byte(`{"n":`+string(rune('0'+i))+`}`), 0, false, "test"))
	}
	assert.Equal(t, 4, s.queue.Len())
	assert.Equal(t, uint64(6), s.queue.Dropped())

	for {
		m, ok := s.queue.Dequeue()
		if !ok {
			break
		}
		s.gate.Advance()
		s.processMessage(m)
	}
	assert.Equal(t, 4, s.history.Len())
	lines := []string{}
	for _, l := range bytes.Split(out.Bytes(), []byte("\n")) {
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	assert.Len(t, lines, 4)
}

// TestPauseRetainsStatsWhileHidingDisplay exercises S7: pausing must not
// stop stats/history accumulation, only the display gate.
func TestPauseRetainsStatsWhileHidingDisplay(t *testing.T) {
	s, tr, out := newTestShell(t, newFakeLines(), 64)

	s.gate.Pause()
	for i := 0; i < 100; i++ {
		s.processMessage(msg.New("sensors/a", []byte(`{"v":1}`), 0, false, "test"))
	}
	assert.Equal(t, uint64(100), s.stats.Total())
	assert.Empty(t, out.String())

	s.gate.Resume()
	s.processMessage(msg.New("sensors/b", []byte(`{"v":2}`), 0, false, "test"))
	assert.Equal(t, uint64(101), s.stats.Total())
	assert.Contains(t, out.String(), "sensors/b")
	_ = tr
}

// TestProcessMessageRespectsFilter confirms the filter only gates log/display
// output. History always records every ingested message regardless of the
// active filter — stats and history are populated before the filter check
// runs, per the pipeline order processMessage follows.
func TestProcessMessageRespectsFilter(t *testing.T) {
	s, _, out := newTestShell(t, newFakeLines(), 64)
	require.NoError(t, s.filter.Where("topic = 'sensors/a'"))

	s.processMessage(msg.New("sensors/b", []byte(`{}`), 0, false, "test"))
	assert.Empty(t, out.String())
	assert.Equal(t, 1, s.history.Len())

	s.processMessage(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))
	assert.Contains(t, out.String(), "sensors/a")
	assert.Equal(t, 2, s.history.Len())
}

func TestApplyResultStepAdvance(t *testing.T) {
	s, _, _ := newTestShell(t, newFakeLines(), 64)
	s.gate.EnableStep()
	assert.False(t, s.gate.ShouldDisplay())

	s.applyResult(handler.Result{StepChange: handler.StepAdvance})
	assert.True(t, s.gate.ShouldDisplay())
}

// TestLogHandlerBoundToShellLifecycle exercises the "log start/stop"
// command end to end, confirming handlers.LogHandler was rebound to this
// Shell's own StartLogging/StopLogging rather than left as a no-op.
func TestLogHandlerBoundToShellLifecycle(t *testing.T) {
	s, _, _ := newTestShell(t, newFakeLines(), 64)
	path := filepath.Join(t.TempDir(), "session.log")

	hctx := s.handlerContext(context.Background())
	h := s.handlers["log"]
	require.NotNil(t, h)

	res := h.Handle(handler.ParsedCommand{Name: "log", Args: []string{"start", path}}, hctx)
	require.True(t, res.Success)

	s.processMessage(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))

	res = h.Handle(handler.ParsedCommand{Name: "log", Args: []string{"stop"}}, hctx)
	assert.True(t, res.Success)
}

// waitThenExitLines blocks ReadLine until a message has propagated through
// the live pipeline (observed via the history buffer), then yields "exit" —
// this keeps TestRunExitsOnExitCommandAndPrintsSummary deterministic despite
// the reader/dispatch workers running concurrently with the input worker.
type waitThenExitLines struct {
	h    *history.History
	want int
}

func (w *waitThenExitLines) ReadLine() (string, error) {
	for w.h.Len() < w.want {
		time.Sleep(time.Millisecond)
	}
	return "exit", nil
}

// TestRunExitsOnExitCommandAndPrintsSummary drives the full three-worker
// pipeline end to end: an injected message is received and displayed, then
// the "exit" command shuts the whole thing down cleanly.
func TestRunExitsOnExitCommandAndPrintsSummary(t *testing.T) {
	tr := testsupport.NewFakeTransport(64)
	var out bytes.Buffer
	cfg := config.Default()
	cfg.ChannelBufferSize = 16
	s := New(Options{
		Config:    cfg,
		Transport: tr,
		Out:       &out,
		Handlers:  handlers.All(),
	})
	s.lines = &waitThenExitLines{h: s.history, want: 1}

	require.NoError(t, s.Connect(context.Background()))
	tr.Inject(msg.New("sensors/a", []byte(`{"v":1}`), 0, false, "test"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.Contains(t, out.String(), "sensors/a")
	assert.Contains(t, out.String(), "shutdown:")
	assert.False(t, tr.IsStreaming())
	assert.False(t, tr.IsConnected())
}

// TestWSFeedBroadcastsIndependentOfPause confirms a Shell configured with a
// wsfeed.Hub pushes every filter-passing message to connected websocket
// viewers even while the display gate is paused, mirroring the file log
// sink's pause-independence.
func TestWSFeedBroadcastsIndependentOfPause(t *testing.T) {
	hub := wsfeed.NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	cfg := config.Default()
	cfg.ChannelBufferSize = 16
	var out bytes.Buffer
	s := New(Options{
		Config:    cfg,
		Transport: testsupport.NewFakeTransport(16),
		Lines:     newFakeLines(),
		Out:       &out,
		Handlers:  handlers.All(),
		WSFeed:    hub,
	})
	require.Same(t, hub, s.WSFeed())

	s.gate.Pause()
	s.processMessage(msg.New("sensors/a", []byte(`{"v":1}`), 0, false, "test"))
	assert.Empty(t, out.String())

	var got struct {
		Topic string `json:"topic"`
	}
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "sensors/a", got.Topic)
}
