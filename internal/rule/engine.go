package rule

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/rustyeddy/mqttsh/internal/filter"
	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/topic"
)

// Engine holds the set of registered rules and evaluates incoming messages
// against them in insertion order (spec.md §4.3 Lifecycle, §5 evaluation
// algorithm).
type Engine struct {
	mu    sync.RWMutex
	order []string
	rules map[string]*Rule
	ctx   ActionContext
}

// NewEngine returns an empty Engine. actx supplies the collaborators
// (publish hook, logger) available to rule Actions.
func NewEngine(actx ActionContext) *Engine {
	if actx.Log == nil {
		actx.Log = slog.Default()
	}
	return &Engine{
		rules: make(map[string]*Rule),
		ctx:   actx,
	}
}

// Add parses sql and registers it under name, replacing any existing rule
// of the same name in place (preserving its position in evaluation order).
// A parse failure leaves the engine's prior state untouched.
func (e *Engine) Add(name, sql string) (*Rule, error) {
	r, err := ParseSQL(name, sql)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rules[name]; !exists {
		e.order = append(e.order, name)
	}
	e.rules[name] = r
	return r, nil
}

// Remove deletes a rule by name. It is a no-op if the name is unknown.
func (e *Engine) Remove(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[name]; !ok {
		return
	}
	delete(e.rules, name)
	for i, n := range e.order {
		if n == name {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Enable re-activates a disabled rule. Returns an error if name is unknown.
func (e *Engine) Enable(name string) error { return e.setEnabled(name, true) }

// Disable deactivates a rule without removing it. Returns an error if name
// is unknown.
func (e *Engine) Disable(name string) error { return e.setEnabled(name, false) }

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rules[name]
	if !ok {
		return fmt.Errorf("rule %q not found", name)
	}
	r.enabled = enabled
	return nil
}

// List returns the registered rules in insertion order.
func (e *Engine) List() []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Rule, 0, len(e.order))
	for _, n := range e.order {
		out = append(out, e.rules[n])
	}
	return out
}

// Get returns the rule registered under name, if any.
func (e *Engine) Get(name string) (*Rule, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.rules[name]
	return r, ok
}

// Process evaluates m against every enabled rule, in insertion order
// (spec.md §4.3 evaluation algorithm):
//  1. skip rules whose FromTopic does not match m.Topic
//  2. skip rules whose Where predicate evaluates false
//  3. build a Projection from the Select field list ("*" projects the whole
//     message)
//  4. record the rule's name into the returned map and fire its Actions
//
// A rule's Action failures are swallowed into its logger and never abort
// evaluation of later rules.
func (e *Engine) Process(m msg.Message) map[string]Projection {
	results := make(map[string]Projection)

	e.mu.RLock()
	matched := make([]*Rule, 0, len(e.order))
	for _, n := range e.order {
		r := e.rules[n]
		if r.Enabled() {
			matched = append(matched, r)
		}
	}
	e.mu.RUnlock()

	for _, r := range matched {
		if !topic.Matches(r.FromTopic, m.Topic) {
			continue
		}
		if r.Where != nil && !filter.Eval(r.Where, m) {
			continue
		}

		proj := project(r.Select, m)
		results[r.Name] = proj

		for _, act := range r.Actions {
			if err := act.Execute(proj, e.ctx); err != nil && e.ctx.Log != nil {
				e.ctx.Log.Warn("rule action failed", "rule", r.Name, "action", act.Name(), "error", err)
			}
		}
	}
	return results
}

// wildcardSelectFields is the canonical column set spec.md §4.3's "SELECT *"
// projects: topic, payload, timestamp, qos.
var wildcardSelectFields = []string{"topic", "payload", "timestamp", "qos"}

func project(fields []string, m msg.Message) Projection {
	if len(fields) == 1 && fields[0] == "*" {
		fields = wildcardSelectFields
	}
	proj := make(Projection, len(fields))
	for _, f := range fields {
		v, _ := m.Field(f)
		proj[f] = v
	}
	return proj
}
