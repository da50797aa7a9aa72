package rule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/mqttsh/internal/payload"
	"github.com/rustyeddy/mqttsh/internal/shellerr"
)

var errNoPublisher = fmt.Errorf("%w: no publish hook configured", shellerr.ErrAction)

// Projection is the mapping field-path -> value a matched rule extracts
// from a message (spec.md §4.3 step 3).
type Projection map[string]payload.Value

// ActionContext is the thin set of collaborators an Action may use. It
// deliberately exposes only a publish hook and a logger — the rest of the
// shell's state is not reachable from action code, per spec.md §9's note
// that rule actions are a separate, narrow interface from command handlers.
type ActionContext struct {
	Publish func(topic string, payload []byte) error
	Log     *slog.Logger
}

// Action is a rule side effect (spec.md §3 Rule.Actions, §9 Open Question
// "specify your own action interface before implementing"). Action
// failures are reported and logged; they never interrupt evaluation of
// later actions or later rules (spec.md §4.3 step 5, §7 ActionError).
type Action interface {
	Name() string
	Execute(proj Projection, ctx ActionContext) error
}

// RepublishAction re-publishes the rule's projection (as JSON) to a fixed
// topic.
type RepublishAction struct {
	Topic string
}

func (a RepublishAction) Name() string { return "republish:" + a.Topic }

func (a RepublishAction) Execute(proj Projection, ctx ActionContext) error {
	if ctx.Publish == nil {
		return errNoPublisher
	}
	native := make(map[string]any, len(proj))
	for k, v := range proj {
		native[k] = v.Native()
	}
	b, err := json.Marshal(native)
	if err != nil {
		return err
	}
	return ctx.Publish(a.Topic, b)
}

// TagAction logs a key/value annotation at debug level through the action
// logger. It does not change the message's metadata or the projection, and
// it never fails.
type TagAction struct {
	Key   string
	Value string
}

func (a TagAction) Name() string { return "tag:" + a.Key }

func (a TagAction) Execute(proj Projection, ctx ActionContext) error {
	if ctx.Log != nil {
		ctx.Log.Debug("rule tag action", "key", a.Key, "value", a.Value)
	}
	return nil
}

// LogAction writes the projection to the shell's structured logger.
type LogAction struct {
	Level slog.Level
}

func (a LogAction) Name() string { return "log" }

func (a LogAction) Execute(proj Projection, ctx ActionContext) error {
	if ctx.Log == nil {
		return nil
	}
	args := make([]any, 0, len(proj)*2)
	for k, v := range proj {
		args = append(args, k, v.Native())
	}
	ctx.Log.Log(context.Background(), a.Level, "rule projection", args...)
	return nil
}
