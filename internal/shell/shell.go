// Package shell implements the shell core / pipeline driver of spec.md
// §4.10 (component #11): it owns the bounded ingest queue, runs the
// reader/dispatch/input workers described in §5, and applies handler
// state changes to the display gate.
package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/mqttsh/internal/command"
	"github.com/rustyeddy/mqttsh/internal/config"
	"github.com/rustyeddy/mqttsh/internal/filter"
	"github.com/rustyeddy/mqttsh/internal/format"
	"github.com/rustyeddy/mqttsh/internal/handler"
	"github.com/rustyeddy/mqttsh/internal/handlers"
	"github.com/rustyeddy/mqttsh/internal/history"
	"github.com/rustyeddy/mqttsh/internal/logsink"
	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/payload"
	"github.com/rustyeddy/mqttsh/internal/preset"
	"github.com/rustyeddy/mqttsh/internal/rule"
	"github.com/rustyeddy/mqttsh/internal/shellerr"
	"github.com/rustyeddy/mqttsh/internal/stats"
	"github.com/rustyeddy/mqttsh/internal/transport"
	"github.com/rustyeddy/mqttsh/internal/wsfeed"
)

// LineSource abstracts the operator's terminal so the input task can be
// driven by a real readline instance in production and by a synthetic
// feed in tests.
type LineSource interface {
	// ReadLine returns the next input line. It returns io.EOF when the
	// source is exhausted (e.g. the terminal closed).
	ReadLine() (string, error)
}

// Shell is the pipeline driver: it wires a Transport to the filter,
// stats, history, rule engine, formatter, and optional log sink, and
// dispatches operator commands from a LineSource to the registered
// handlers.
type Shell struct {
	cfg       config.Config
	transport transport.Transport
	queue     *Queue
	gate      *Gate
	out       io.Writer

	filterMu sync.RWMutex
	filter   *filter.Filter

	formatMu sync.RWMutex
	formatSt format.State

	stats   *stats.Collector
	history *history.History
	rules   *rule.Engine
	presets *preset.Manager

	logMu sync.Mutex
	log   *logsink.Sink

	// wsfeed, if set, receives every filter-passing message independent of
	// the display gate, the same way the file log sink does (spec.md
	// §4.7's pause-independence extended to the live-tail websocket feed).
	wsfeed *wsfeed.Hub

	expander *command.Expander
	handlers map[string]handler.Handler
	registry []handler.Handler

	lines  LineSource
	logger *slog.Logger

	totalDisplayed uint64
	startedAt      time.Time
}

// Options bundles the collaborators a Shell is constructed with.
type Options struct {
	Config    config.Config
	Transport transport.Transport
	Lines     LineSource
	Out       io.Writer
	Handlers  []handler.Handler
	Log       *slog.Logger

	// WSFeed, if non-nil, is broadcast to for every filter-passing
	// message, independent of pause/step state. Optional — nil disables
	// the feed entirely.
	WSFeed *wsfeed.Hub
}

// New constructs a Shell. It does not connect to the transport; call
// Connect to do that.
func New(opts Options) *Shell {
	cfg := opts.Config.WithDefaults()

	logger := opts.Log
	if logger == nil {
		logger = slog.Default()
	}

	s := &Shell{
		cfg:       cfg,
		transport: opts.Transport,
		queue:     NewQueue(cfg.ChannelBufferSize),
		gate:      NewGate(),
		out:       opts.Out,
		filter:    filter.New(),
		formatSt:  format.DefaultState(),
		stats:     stats.New(cfg.RateWindowSeconds, cfg.LatencyWindowSize, cfg.TopicTruncationThreshold),
		history:   history.New(cfg.MessageHistoryLimit),
		presets:   preset.NewManager(),
		expander:  command.NewExpander(cfg.Aliases),
		handlers:  make(map[string]handler.Handler),
		lines:     opts.Lines,
		logger:    logger,
		wsfeed:    opts.WSFeed,
	}
	s.rules = rule.NewEngine(rule.ActionContext{Log: logger, Publish: s.publishAction})

	s.registry = make([]handler.Handler, len(opts.Handlers))
	for i, h := range opts.Handlers {
		// The log handler's file sink lifecycle is owned by the shell
		// core (it must outlive any single command dispatch), so bind
		// its Start/Stop hooks here rather than at registry-construction
		// time, which has no Shell to bind to yet.
		if _, ok := h.(handlers.LogHandler); ok {
			h = handlers.LogHandler{Start: s.StartLogging, Stop: s.StopLogging}
		}
		if _, ok := h.(handlers.HelpHandler); ok {
			h = handlers.HelpHandler{Registry: s.registry}
		}
		s.registry[i] = h
		for _, name := range h.Commands() {
			s.handlers[name] = h
		}
	}
	return s
}

// StartLogging opens a file sink at path; subsequent pipeline passes
// write every filter-passing message to it regardless of pause/step
// state (spec.md §4.7).
func (s *Shell) StartLogging(path string) error {
	sink, err := logsink.Open(path)
	if err != nil {
		return err
	}
	s.logMu.Lock()
	if s.log != nil {
		s.log.Close()
	}
	s.log = sink
	s.logMu.Unlock()
	return nil
}

// StopLogging closes the active file sink, if any.
func (s *Shell) StopLogging() error {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	if s.log == nil {
		return nil
	}
	err := s.log.Close()
	s.log = nil
	return err
}

// handlerContext builds a fresh handler.Context snapshot for one command
// dispatch. Format points at a copy of the shell's format state; inputLoop
// hands the handler a copy of the current filter as well, and stores both
// back after the handler returns, so format/hex/filter changes persist.
func (s *Shell) handlerContext(ctx context.Context) *handler.Context {
	s.formatMu.RLock()
	fs := s.formatSt
	s.formatMu.RUnlock()

	return &handler.Context{
		Out:       s.out,
		Transport: s.transport,
		Filter:    s.currentFilter(),
		Presets:   s.presets,
		Format:    &fs,
		History:   s.history,
		Stats:     s.stats,
		Rules:     s.rules,
		Config:    s.cfg,
		Vertical:  fs.Mode == format.Vertical,
		Paused:    s.gate.Paused(),
		Ctx:       ctx,
	}
}

// publishAction adapts the transport's Publish method to the narrow
// function signature rule actions are allowed to call (spec.md §9).
func (s *Shell) publishAction(topic string, payload []byte) error {
	return s.transport.Publish(context.Background(), topic, payload, 0, false)
}

func (s *Shell) currentFilter() *filter.Filter {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()
	return s.filter
}

// Connect starts the transport and enables streaming. Startup failures
// here are fatal per spec.md §7 ConnectError.
func (s *Shell) Connect(ctx context.Context) error {
	if err := s.transport.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := s.transport.StartStreaming(ctx); err != nil {
		return fmt.Errorf("connect: start streaming: %w", err)
	}
	s.startedAt = time.Now()
	return nil
}

// Run drives the three cooperative workers (reader, dispatcher, input)
// until the input source is exhausted or a handler requests exit. It
// returns after a clean shutdown sequence.
func (s *Shell) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readerLoop(runCtx)
	}()
	go func() {
		defer wg.Done()
		s.dispatchLoop(runCtx)
	}()

	s.inputLoop(runCtx, cancel)
	cancel()
	wg.Wait()

	return s.shutdown(ctx)
}

// readerLoop blocks on transport.Receive and enqueues arrivals,
// drop-oldest on overflow (spec.md §5 Reader task).
func (s *Shell) readerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m, ok := s.transport.Receive(100 * time.Millisecond)
		if !ok {
			continue
		}
		before := s.queue.Dropped()
		s.queue.Enqueue(m)
		if after := s.queue.Dropped(); after != before {
			s.logger.Debug("ingest queue overflow", "error", shellerr.ErrOverflow, "total_dropped", after)
		}
	}
}

// dispatchLoop blocks on dequeue and runs the message pipeline (spec.md
// §5 Dispatch+display task, §4.10 Responsibilities).
func (s *Shell) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		m, ok := s.queue.Dequeue()
		if !ok {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		s.processMessage(m)
	}
}

// processMessage runs one message through the pipeline: stats, history,
// filter, rule engine, format, log, display (spec.md §4.10).
func (s *Shell) processMessage(m msg.Message) {
	s.stats.Observe(m.Topic, m.Timestamp)
	m = s.history.Append(m)

	f := s.currentFilter()
	if !f.Matches(m) {
		return
	}

	if matches := s.rules.Process(m); len(matches) > 0 {
		for name := range matches {
			m = m.WithMetadata("rule", payload.NewString(name))
			break // at most one tag; spec.md §4.3 step 4 names "the" matching rule
		}
	}

	s.formatMu.RLock()
	fs := s.formatSt
	s.formatMu.RUnlock()

	s.logMu.Lock()
	sink := s.log
	s.logMu.Unlock()
	if sink != nil {
		sink.Write(m, fs)
	}

	if s.wsfeed != nil {
		s.wsfeed.Broadcast(m)
	}

	if s.gate.ShouldDisplay() {
		fmt.Fprintln(s.out, format.Render(m, fs))
		s.totalDisplayed++
	}
}

// inputLoop reads operator lines, expands aliases, parses, dispatches to
// the matching handler, and applies the returned HandlerResult. cancel is
// called once a handler requests exit.
func (s *Shell) inputLoop(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.lines.ReadLine()
		if err != nil {
			return
		}
		expanded := s.expander.Expand(line)
		pc := command.Parse(expanded)
		if pc.Name == "" {
			continue
		}

		h, ok := s.handlers[pc.Name]
		if !ok {
			err := fmt.Errorf("%w: unknown command %q", shellerr.ErrParseCommand, pc.Name)
			s.logger.Warn("command dispatch failed", "error", err)
			fmt.Fprintf(s.out, "error: %s, try help\n", err)
			continue
		}

		hctx := s.handlerContext(ctx)
		fc := *hctx.Filter
		hctx.Filter = &fc
		res := h.Handle(pc, hctx)
		s.filterMu.Lock()
		s.filter = hctx.Filter
		s.filterMu.Unlock()
		s.formatMu.Lock()
		s.formatSt = *hctx.Format
		s.formatMu.Unlock()
		s.applyResult(res)

		if res.Message != "" {
			prefix := ""
			if !res.Success {
				prefix = "error: "
				s.logger.Debug("handler reported failure", "error", shellerr.ErrHandler, "command", pc.Name, "message", res.Message)
			}
			fmt.Fprintln(s.out, prefix+res.Message)
		}
		if res.ShouldExit {
			cancel()
			return
		}
	}
}

// applyResult performs the at-most-one state change a HandlerResult may
// carry (spec.md §4.8), atomically with respect to the dispatch loop.
func (s *Shell) applyResult(res handler.Result) {
	if res.PauseState != nil {
		if *res.PauseState {
			s.gate.Pause()
		} else {
			s.gate.Resume()
		}
	}
	switch res.StepChange {
	case handler.StepEnable:
		s.gate.EnableStep()
	case handler.StepDisable:
		s.gate.DisableStep()
	case handler.StepAdvance:
		s.gate.Advance()
	case handler.StepResume:
		s.gate.Resume()
	}
}

// shutdown stops streaming, disconnects, and prints a summary
// (spec.md §4.10, §5 Cancellation and timeouts).
func (s *Shell) shutdown(ctx context.Context) error {
	s.gate.Exit()
	_ = s.transport.StopStreaming(ctx)
	err := s.transport.Disconnect(ctx)
	s.StopLogging()

	uptime := time.Since(s.startedAt)
	fmt.Fprintf(s.out, "shutdown: total=%d displayed=%d dropped=%d uptime=%s\n",
		s.stats.Total(), s.totalDisplayed, s.queue.Dropped(), uptime.Round(time.Second))
	return err
}

// Stats exposes the statistics collector for callers that want to report
// on the shell externally.
func (s *Shell) Stats() *stats.Collector { return s.stats }

// History exposes the message history buffer.
func (s *Shell) History() *history.History { return s.history }

// Rules exposes the rule engine.
func (s *Shell) Rules() *rule.Engine { return s.rules }

// Queue exposes the ingest queue (used by tests asserting backpressure).
func (s *Shell) Queue() *Queue { return s.queue }

// Gate exposes the display gate (used by tests).
func (s *Shell) Gate() *Gate { return s.gate }

// Filter exposes the current filter.
func (s *Shell) Filter() *filter.Filter { return s.currentFilter() }

// WSFeed exposes the live-tail websocket hub, or nil if none was configured.
func (s *Shell) WSFeed() *wsfeed.Hub { return s.wsfeed }
