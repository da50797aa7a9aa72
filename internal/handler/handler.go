// Package handler defines the contract every shell command implements
// (spec.md §4.8, component #8): a Handler claims one or more command
// words, executes against a shared HandlerContext, and returns a
// HandlerResult describing at most one state change.
package handler

import (
	"context"
	"io"

	"github.com/rustyeddy/mqttsh/internal/config"
	"github.com/rustyeddy/mqttsh/internal/filter"
	"github.com/rustyeddy/mqttsh/internal/format"
	"github.com/rustyeddy/mqttsh/internal/history"
	"github.com/rustyeddy/mqttsh/internal/preset"
	"github.com/rustyeddy/mqttsh/internal/rule"
	"github.com/rustyeddy/mqttsh/internal/stats"
	"github.com/rustyeddy/mqttsh/internal/transport"
)

// ParsedCommand is the dispatcher's output for one input line: a command
// word plus positional and option arguments (spec.md §4.9).
type ParsedCommand struct {
	Name    string
	Args    []string
	Options map[string]string
}

// Arg returns the i'th positional argument, or "" if absent.
func (p ParsedCommand) Arg(i int) string {
	if i < 0 || i >= len(p.Args) {
		return ""
	}
	return p.Args[i]
}

// Option returns the value of a --key=value (or --flag) option, and
// whether it was present.
func (p ParsedCommand) Option(key string) (string, bool) {
	v, ok := p.Options[key]
	return v, ok
}

// Context is the set of collaborators a Handler may read or act through.
// Handlers never share mutable state with each other except through this
// struct and the HandlerResult they return.
type Context struct {
	Out       io.Writer
	Transport transport.Transport
	Filter    *filter.Filter
	Presets   *preset.Manager
	Format    *format.State
	History   *history.History
	Stats     *stats.Collector
	Rules     *rule.Engine
	Config    config.Config

	// Vertical reports whether the display is currently in vertical
	// format mode.
	Vertical bool
	// Paused reports whether the display is currently suspended.
	Paused bool

	Ctx context.Context
}

// StepChange names a transition of the step-through debugger gate
// (spec.md §4.10 state machine).
type StepChange int

const (
	StepNone StepChange = iota
	StepEnable
	StepDisable
	StepAdvance
	StepResume
)

// Result is the tagged outcome of one handler invocation. At most one of
// the state-change fields is meaningful per spec.md §4.8; the shell core
// applies whichever is set atomically.
type Result struct {
	ShouldExit bool

	// PauseState is a pointer so that nil means "no change" and a
	// non-nil value is the explicit new pause state.
	PauseState *bool

	StepChange StepChange

	Success bool
	Message string
}

// OK returns a successful Result carrying message and no state change.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// Fail returns an unsuccessful Result carrying message and no state
// change.
func Fail(message string) Result {
	return Result{Success: false, Message: message}
}

// Handler is implemented by every shell command.
type Handler interface {
	Commands() []string
	Handle(pc ParsedCommand, ctx *Context) Result
	Description() string
	Usage() string
}
