package shell

import "sync"

// DisplayState names one state of spec.md §4.10's display gate state
// machine.
type DisplayState int

const (
	Streaming DisplayState = iota
	Paused
	SteppingWaiting
	SteppingAdvancing
	Exiting
)

// Gate is the step-through debugger of spec.md §4.11 (component #12): it
// decides, for each pipeline pass, whether the dispatcher may write to
// the display. Pause and step are independent axes — both are tracked
// here since either can suspend the display without affecting ingestion,
// stats, or the log.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	state   DisplayState
	advance bool // true for exactly one ShouldDisplay call after step-advance
}

// NewGate returns a Gate starting in the Streaming state.
func NewGate() *Gate {
	return &Gate{state: Streaming}
}

// Pause suspends the display regardless of step mode.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
	g.state = Paused
}

// Resume un-suspends the display and exits step mode.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
	g.state = Streaming
}

// EnableStep switches into step-through mode: the display holds until
// Advance is called once per message.
func (g *Gate) EnableStep() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.state = SteppingWaiting
	}
}

// DisableStep exits step-through mode without affecting Pause.
func (g *Gate) DisableStep() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == SteppingWaiting || g.state == SteppingAdvancing {
		if g.paused {
			g.state = Paused
		} else {
			g.state = Streaming
		}
	}
}

// Advance permits exactly one more message through the display gate,
// then returns to SteppingWaiting.
func (g *Gate) Advance() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == SteppingWaiting {
		g.advance = true
	}
}

// Exit transitions to the terminal Exiting state from any state.
func (g *Gate) Exit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Exiting
}

// ShouldDisplay reports whether the dispatcher may render the current
// message to the display, and consumes a pending single-step advance if
// one is active.
func (g *Gate) ShouldDisplay() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Exiting, Paused:
		return false
	case SteppingWaiting:
		if g.advance {
			g.advance = false
			return true
		}
		return false
	case SteppingAdvancing:
		// A render just happened; fall back to waiting for the next
		// Advance.
		g.state = SteppingWaiting
		return false
	default: // Streaming
		return true
	}
}

// State returns the current display state (for tests and diagnostics).
func (g *Gate) State() DisplayState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Paused reports whether the display is currently paused (independent of
// step mode).
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}
