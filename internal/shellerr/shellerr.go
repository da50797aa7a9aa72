// Package shellerr names the error kinds the shell distinguishes between,
// per the error taxonomy in the specification. These are sentinels meant to
// be wrapped with fmt.Errorf("%w: ...", ErrX) and unwrapped with errors.Is.
package shellerr

import "errors"

var (
	// ErrConnect marks a failure to open the transport session. Fatal to
	// the startup path only.
	ErrConnect = errors.New("connect error")

	// ErrTransport marks a publish/subscribe/receive failure mid-session.
	// The shell keeps running; the issuing handler reports failure.
	ErrTransport = errors.New("transport error")

	// ErrParseFilter, ErrParseRule, and ErrParseCommand mark malformed
	// user-supplied text. The prior state is left unchanged.
	ErrParseFilter  = errors.New("filter parse error")
	ErrParseRule    = errors.New("rule parse error")
	ErrParseCommand = errors.New("command parse error")

	// ErrAction marks a rule action that failed to execute. Logged with
	// the rule name; later actions and rules still run.
	ErrAction = errors.New("action error")

	// ErrOverflow marks a dropped-oldest ingest queue overflow. Never
	// propagated as a failure. The drop count is kept by the ingest queue
	// and printed in the shutdown summary; the stats command does not
	// report it.
	ErrOverflow = errors.New("ingest queue overflow")

	// ErrHandler marks a handler that returned failure without changing
	// shell state.
	ErrHandler = errors.New("handler error")
)
