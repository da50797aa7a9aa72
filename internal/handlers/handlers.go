// Package handlers implements the concrete command set of spec.md §4.9's
// CLI surface (component #9): publish/subscribe/unsubscribe, filter
// control, stats, history, export, format, hex, log, latency, step,
// visualize, rule management, bookmark, fields, pool, exit, and help.
package handlers

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/mqttsh/internal/format"
	"github.com/rustyeddy/mqttsh/internal/handler"
	"github.com/rustyeddy/mqttsh/internal/history"
	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/transport"
)

func boolPtr(b bool) *bool { return &b }

func qosFrom(pc handler.ParsedCommand) byte {
	if v, ok := pc.Option("qos"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 2 {
			return byte(n)
		}
	}
	return 0
}

// All returns every built-in handler, in the order they should be
// registered.
func All() []handler.Handler {
	return []handler.Handler{
		ExitHandler{},
		HelpHandler{},
		PauseHandler{},
		FilterHandler{},
		StatsHandler{},
		HistoryHandler{},
		LastHandler{},
		BookmarkHandler{},
		ExportHandler{},
		PublishHandler{},
		SubscribeHandler{},
		UnsubscribeHandler{},
		FormatHandler{},
		HexHandler{},
		LogHandler{},
		LatencyHandler{},
		StepHandler{},
		RuleHandler{},
		FieldsHandler{},
		PoolHandler{},
		VisualizeHandler{},
	}
}

// ExitHandler implements `exit` / `quit` / `q`.
type ExitHandler struct{}

func (ExitHandler) Commands() []string  { return []string{"exit", "quit"} }
func (ExitHandler) Description() string { return "shut the shell down cleanly" }
func (ExitHandler) Usage() string       { return "exit" }

func (ExitHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	return handler.Result{ShouldExit: true, Success: true, Message: "shutting down"}
}

// HelpHandler implements `help` / `?`.
type HelpHandler struct {
	Registry []handler.Handler
}

func (HelpHandler) Commands() []string  { return []string{"help"} }
func (HelpHandler) Description() string { return "list commands or show one's usage" }
func (HelpHandler) Usage() string       { return "help [command]" }

func (h HelpHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		names := make([]string, 0, len(h.Registry))
		for _, reg := range h.Registry {
			names = append(names, reg.Commands()[0])
		}
		sort.Strings(names)
		return handler.OK("commands: " + strings.Join(names, ", "))
	}
	want := pc.Args[0]
	for _, reg := range h.Registry {
		for _, name := range reg.Commands() {
			if name == want {
				return handler.OK(fmt.Sprintf("%s: %s\nusage: %s", want, reg.Description(), reg.Usage()))
			}
		}
	}
	return handler.Fail(fmt.Sprintf("unknown command %q, try help", want))
}

// PauseHandler implements `pause`/`p` and `resume`/`r`.
type PauseHandler struct{}

func (PauseHandler) Commands() []string  { return []string{"pause", "resume"} }
func (PauseHandler) Description() string { return "suspend or resume the live display" }
func (PauseHandler) Usage() string       { return "pause | resume" }

func (PauseHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	switch pc.Name {
	case "pause":
		return handler.Result{PauseState: boolPtr(true), Success: true, Message: "paused"}
	default:
		return handler.Result{PauseState: boolPtr(false), Success: true, Message: "resumed"}
	}
}

// FilterHandler implements `filter`/`f`.
type FilterHandler struct{}

func (FilterHandler) Commands() []string  { return []string{"filter"} }
func (FilterHandler) Description() string { return "set, clear, or grep the active filter" }
func (FilterHandler) Usage() string       { return "filter <expr> | clear | grep <substring>" }

func (FilterHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.OK("current filter: " + ctx.Filter.Source())
	}
	if pc.Args[0] == "clear" {
		ctx.Filter.Clear()
		return handler.OK("filter cleared")
	}
	expr := strings.Join(pc.Args, " ")
	if err := ctx.Filter.Where(expr); err != nil {
		return handler.Fail("error: " + err.Error())
	}
	return handler.OK("filter set: " + ctx.Filter.Source())
}

// StatsHandler implements `stats`/`s`.
type StatsHandler struct{}

func (StatsHandler) Commands() []string  { return []string{"stats"} }
func (StatsHandler) Description() string { return "print counters, rate, and top-N topics" }
func (StatsHandler) Usage() string       { return "stats" }

func (StatsHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	total := ctx.Stats.Total()
	rate := ctx.Stats.Rate(time.Now())
	top := ctx.Stats.TopTopics(ctx.Config.TopTopicsLimit)

	var b strings.Builder
	fmt.Fprintf(&b, "total=%d rate=%.2f/s top:", total, rate)
	for _, tc := range top {
		fmt.Fprintf(&b, " %s=%d", tc.Topic, tc.Count)
	}
	return handler.OK(b.String())
}

// HistoryHandler implements `history`/`h`.
type HistoryHandler struct{}

func (HistoryHandler) Commands() []string  { return []string{"history"} }
func (HistoryHandler) Description() string { return "print the history tail" }
func (HistoryHandler) Usage() string       { return "history [--limit=N]" }

func (HistoryHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	limit := ctx.Config.MessageHistoryLimit
	if v, ok := pc.Option("limit"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	msgs := ctx.History.Last(limit)
	st := formatState(ctx)
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = format.Render(m, st)
	}
	return handler.OK(strings.Join(lines, "\n"))
}

// LastHandler implements `last`/`l`.
type LastHandler struct{}

func (LastHandler) Commands() []string  { return []string{"last"} }
func (LastHandler) Description() string { return "print the last N messages" }
func (LastHandler) Usage() string       { return "last [N]" }

func (LastHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	n := 1
	if len(pc.Args) > 0 {
		if v, err := strconv.Atoi(pc.Args[0]); err == nil && v > 0 {
			n = v
		}
	}
	msgs := ctx.History.Last(n)
	st := formatState(ctx)
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = format.Render(m, st)
	}
	return handler.OK(strings.Join(lines, "\n"))
}

// BookmarkHandler implements `bookmark`/`expand`.
type BookmarkHandler struct{}

func (BookmarkHandler) Commands() []string  { return []string{"bookmark", "expand"} }
func (BookmarkHandler) Description() string { return "name, or resolve, a history index" }
func (BookmarkHandler) Usage() string       { return "bookmark <name> [index]" }

func (BookmarkHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.Fail("bookmark requires a name")
	}
	name := pc.Args[0]
	if len(pc.Args) >= 2 {
		idx, err := strconv.ParseUint(pc.Args[1], 10, 64)
		if err != nil {
			return handler.Fail("bookmark: invalid index " + pc.Args[1])
		}
		ctx.History.Bookmark(name, idx)
		return handler.OK(fmt.Sprintf("bookmarked %s -> %d", name, idx))
	}
	m, ok := ctx.History.Resolve(name)
	if !ok {
		return handler.Fail("bookmark " + name + " not found")
	}
	return handler.OK(format.Render(m, formatState(ctx)))
}

// ExportHandler implements `export`.
type ExportHandler struct{}

func (ExportHandler) Commands() []string  { return []string{"export"} }
func (ExportHandler) Description() string { return "write history to a file as JSON/CSV/text" }
func (ExportHandler) Usage() string       { return "export <json|csv|text> <path>" }

func (ExportHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) < 2 {
		return handler.Fail("export requires a format and a path")
	}
	var ef history.ExportFormat
	switch strings.ToLower(pc.Args[0]) {
	case "json":
		ef = history.ExportJSON
	case "csv":
		ef = history.ExportCSV
	case "text":
		ef = history.ExportText
	default:
		return handler.Fail("export: unknown format " + pc.Args[0])
	}

	data, err := ctx.History.Export(ef)
	if err != nil {
		return handler.Fail("export: " + err.Error())
	}
	if err := writeFile(pc.Args[1], data); err != nil {
		return handler.Fail("export: " + err.Error())
	}
	return handler.OK(fmt.Sprintf("exported %d bytes to %s", len(data), pc.Args[1]))
}

// PublishHandler implements `publish`/`pub`.
type PublishHandler struct{}

func (PublishHandler) Commands() []string  { return []string{"publish", "pub"} }
func (PublishHandler) Description() string { return "publish a message via the transport" }
func (PublishHandler) Usage() string       { return "publish <topic> <payload> [--qos=N] [--retain]" }

func (PublishHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) < 2 {
		return handler.Fail("publish requires a topic and a payload")
	}
	topic := pc.Args[0]
	payload := strings.Join(pc.Args[1:], " ")
	_, retain := pc.Option("retain")

	if err := ctx.Transport.Publish(ctx.Ctx, topic, []byte(payload), qosFrom(pc), retain); err != nil {
		return handler.Fail("publish: " + err.Error())
	}
	return handler.OK("published to " + topic)
}

// SubscribeHandler implements `subscribe`/`sub`.
type SubscribeHandler struct{}

func (SubscribeHandler) Commands() []string  { return []string{"subscribe", "sub"} }
func (SubscribeHandler) Description() string { return "subscribe to a topic filter" }
func (SubscribeHandler) Usage() string       { return "subscribe <filter> [--qos=N]" }

func (SubscribeHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) < 1 {
		return handler.Fail("subscribe requires a topic filter")
	}
	sub := transport.Subscription{Filter: pc.Args[0], QoS: qosFrom(pc)}
	if err := ctx.Transport.Subscribe(ctx.Ctx, []transport.Subscription{sub}); err != nil {
		return handler.Fail("subscribe: " + err.Error())
	}
	return handler.OK("subscribed to " + pc.Args[0])
}

// UnsubscribeHandler implements `unsubscribe`/`unsub`.
type UnsubscribeHandler struct{}

func (UnsubscribeHandler) Commands() []string  { return []string{"unsubscribe", "unsub"} }
func (UnsubscribeHandler) Description() string { return "unsubscribe from a topic filter" }
func (UnsubscribeHandler) Usage() string       { return "unsubscribe <filter>" }

func (UnsubscribeHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) < 1 {
		return handler.Fail("unsubscribe requires a topic filter")
	}
	if err := ctx.Transport.Unsubscribe(ctx.Ctx, []string{pc.Args[0]}); err != nil {
		return handler.Fail("unsubscribe: " + err.Error())
	}
	return handler.OK("unsubscribed from " + pc.Args[0])
}

// FormatHandler implements `format`.
type FormatHandler struct{}

func (FormatHandler) Commands() []string  { return []string{"format"} }
func (FormatHandler) Description() string { return "switch between horizontal and vertical display" }
func (FormatHandler) Usage() string       { return "format horizontal|vertical" }

func (FormatHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.Fail("format requires horizontal or vertical")
	}
	switch pc.Args[0] {
	case "vertical":
		ctx.Format.Mode = format.Vertical
	case "horizontal":
		ctx.Format.Mode = format.SingleLine
	default:
		return handler.Fail("format: unknown mode " + pc.Args[0])
	}
	return handler.OK("format set to " + pc.Args[0])
}

// HexHandler implements `hex`.
type HexHandler struct{}

func (HexHandler) Commands() []string  { return []string{"hex"} }
func (HexHandler) Description() string { return "toggle hex-dump payload rendering" }
func (HexHandler) Usage() string       { return "hex on|off" }

func (HexHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.Fail("hex requires on or off")
	}
	switch pc.Args[0] {
	case "on":
		ctx.Format.Hex = true
	case "off":
		ctx.Format.Hex = false
	default:
		return handler.Fail("hex: unknown state " + pc.Args[0])
	}
	return handler.OK("hex " + pc.Args[0])
}

// LogHandler implements `log`. The actual sink lifecycle (open/close the
// file) is owned by the shell core, since it outlives any one handler
// call; this handler checks its arguments, calls the Start/Stop hooks
// below, and emits the user-facing acknowledgement.
type LogHandler struct {
	// Start is invoked with the requested path when `log start <path>`
	// is issued; Stop is invoked on `log stop`. The shell core wires
	// these to its logsink.Sink lifecycle.
	Start func(path string) error
	Stop  func() error
}

func (LogHandler) Commands() []string  { return []string{"log"} }
func (LogHandler) Description() string { return "start or stop file logging" }
func (LogHandler) Usage() string       { return "log start <path> | log stop" }

func (h LogHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.Fail("log requires start <path> or stop")
	}
	switch pc.Args[0] {
	case "start":
		if len(pc.Args) < 2 {
			return handler.Fail("log start requires a path")
		}
		if h.Start == nil {
			return handler.Fail("log: file logging not available")
		}
		if err := h.Start(pc.Args[1]); err != nil {
			return handler.Fail("log: " + err.Error())
		}
		return handler.OK("logging to " + pc.Args[1])
	case "stop":
		if h.Stop == nil {
			return handler.OK("logging already stopped")
		}
		if err := h.Stop(); err != nil {
			return handler.Fail("log: " + err.Error())
		}
		return handler.OK("logging stopped")
	default:
		return handler.Fail("log: unknown subcommand " + pc.Args[0])
	}
}

// LatencyHandler implements `latency`.
type LatencyHandler struct{}

func (LatencyHandler) Commands() []string  { return []string{"latency"} }
func (LatencyHandler) Description() string { return "print the latency sample distribution" }
func (LatencyHandler) Usage() string       { return "latency" }

func (LatencyHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	samples := ctx.Stats.LatencySamples()
	if len(samples) == 0 {
		return handler.OK("no latency samples recorded")
	}
	var sum time.Duration
	min, max := samples[0], samples[0]
	for _, s := range samples {
		sum += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	avg := sum / time.Duration(len(samples))
	return handler.OK(fmt.Sprintf("n=%d min=%s avg=%s max=%s", len(samples), min, avg, max))
}

// StepHandler implements `next`/`n` and `step`.
type StepHandler struct{}

func (StepHandler) Commands() []string  { return []string{"next", "step"} }
func (StepHandler) Description() string { return "control the step-through display gate" }
func (StepHandler) Usage() string       { return "step [on|off] | next" }

func (StepHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if pc.Name == "next" {
		return handler.Result{StepChange: handler.StepAdvance, Success: true, Message: "advancing"}
	}
	if len(pc.Args) == 0 {
		return handler.Result{StepChange: handler.StepAdvance, Success: true, Message: "advancing"}
	}
	switch pc.Args[0] {
	case "on":
		return handler.Result{StepChange: handler.StepEnable, Success: true, Message: "step mode enabled"}
	case "off":
		return handler.Result{StepChange: handler.StepDisable, Success: true, Message: "step mode disabled"}
	default:
		return handler.Fail("step: unknown argument " + pc.Args[0])
	}
}

// RuleHandler implements `rule`.
type RuleHandler struct{}

func (RuleHandler) Commands() []string  { return []string{"rule"} }
func (RuleHandler) Description() string { return "manage SQL-dialect match rules" }
func (RuleHandler) Usage() string {
	return "rule add <name> <SQL> | list | enable <name> | disable <name> | remove <name>"
}

func (RuleHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.Fail("rule requires a subcommand")
	}
	switch pc.Args[0] {
	case "add":
		if len(pc.Args) < 3 {
			return handler.Fail("rule add requires a name and a SQL string")
		}
		name := pc.Args[1]
		sql := strings.Join(pc.Args[2:], " ")
		if _, err := ctx.Rules.Add(name, sql); err != nil {
			return handler.Fail("rule: " + err.Error())
		}
		return handler.OK("rule added: " + name)
	case "list":
		rules := ctx.Rules.List()
		names := make([]string, len(rules))
		for i, r := range rules {
			state := "enabled"
			if !r.Enabled() {
				state = "disabled"
			}
			names[i] = fmt.Sprintf("%s(%s)", r.Name, state)
		}
		return handler.OK(strings.Join(names, ", "))
	case "enable":
		if len(pc.Args) < 2 {
			return handler.Fail("rule enable requires a name")
		}
		if err := ctx.Rules.Enable(pc.Args[1]); err != nil {
			return handler.Fail("rule: " + err.Error())
		}
		return handler.OK("rule enabled: " + pc.Args[1])
	case "disable":
		if len(pc.Args) < 2 {
			return handler.Fail("rule disable requires a name")
		}
		if err := ctx.Rules.Disable(pc.Args[1]); err != nil {
			return handler.Fail("rule: " + err.Error())
		}
		return handler.OK("rule disabled: " + pc.Args[1])
	case "remove":
		if len(pc.Args) < 2 {
			return handler.Fail("rule remove requires a name")
		}
		ctx.Rules.Remove(pc.Args[1])
		return handler.OK("rule removed: " + pc.Args[1])
	default:
		return handler.Fail("rule: unknown subcommand " + pc.Args[0])
	}
}

// FieldsHandler implements `fields`/`jsonpath`.
type FieldsHandler struct{}

func (FieldsHandler) Commands() []string  { return []string{"fields", "jsonpath"} }
func (FieldsHandler) Description() string { return "project specific payload fields from history" }
func (FieldsHandler) Usage() string       { return "fields <payload.path> [more.paths ...]" }

func (FieldsHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	if len(pc.Args) == 0 {
		return handler.Fail("fields requires at least one path")
	}
	msgs := ctx.History.Last(1)
	if len(msgs) == 0 {
		return handler.OK("history is empty")
	}
	m := msgs[0]
	var parts []string
	for _, path := range pc.Args {
		v, _ := m.Field(path)
		parts = append(parts, path+"="+v.String())
	}
	return handler.OK(strings.Join(parts, " "))
}

// PoolHandler implements `pool`.
type PoolHandler struct{}

func (PoolHandler) Commands() []string  { return []string{"pool"} }
func (PoolHandler) Description() string { return "show the transport connection pool, if exposed" }
func (PoolHandler) Usage() string       { return "pool" }

func (PoolHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	pp, ok := ctx.Transport.(transport.PoolProvider)
	if !ok {
		return handler.OK("pool info not exposed by this transport")
	}
	info, ok := pp.PoolInfo()
	if !ok {
		return handler.OK("pool info not exposed by this transport")
	}
	return handler.OK(fmt.Sprintf("broker=%s client=%s connected=%t", info.Broker, info.ClientID, info.Connected))
}

// VisualizeHandler implements `visualize`/`viz`.
type VisualizeHandler struct{}

func (VisualizeHandler) Commands() []string  { return []string{"visualize"} }
func (VisualizeHandler) Description() string { return "render a topic tree or flow timeline of retained messages" }
func (VisualizeHandler) Usage() string       { return "visualize tree | visualize flow [N]" }

func (VisualizeHandler) Handle(pc handler.ParsedCommand, ctx *handler.Context) handler.Result {
	mode := "tree"
	if len(pc.Args) > 0 {
		mode = pc.Args[0]
	}
	switch mode {
	case "tree":
		return handler.OK(renderTopicTree(ctx.History.Snapshot()))
	case "flow":
		n := 20
		if len(pc.Args) > 1 {
			if v, err := strconv.Atoi(pc.Args[1]); err == nil && v > 0 {
				n = v
			}
		}
		return handler.OK(renderFlow(ctx.History.Last(n)))
	default:
		return handler.Fail("visualize: unknown mode " + mode)
	}
}

// topicTreeNode counts messages seen at and below a topic segment.
type topicTreeNode struct {
	count    int
	children map[string]*topicTreeNode
}

func newTopicTreeNode() *topicTreeNode {
	return &topicTreeNode{children: make(map[string]*topicTreeNode)}
}

func renderTopicTree(msgs []msg.Message) string {
	root := newTopicTreeNode()
	for _, m := range msgs {
		node := root
		node.count++
		for _, seg := range strings.Split(m.Topic, "/") {
			child, ok := node.children[seg]
			if !ok {
				child = newTopicTreeNode()
				node.children[seg] = child
			}
			node = child
			node.count++
		}
	}

	var b strings.Builder
	var walk func(n *topicTreeNode, prefix string)
	walk = func(n *topicTreeNode, prefix string) {
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := n.children[name]
			fmt.Fprintf(&b, "%s%s (%d)\n", prefix, name, child.count)
			walk(child, prefix+"  ")
		}
	}
	walk(root, "")
	if b.Len() == 0 {
		return "history is empty"
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderFlow prints the sequence of topics as a single-line timeline, most
// recent message first (matching History.Last's ordering).
func renderFlow(msgs []msg.Message) string {
	if len(msgs) == 0 {
		return "history is empty"
	}
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Topic
	}
	return strings.Join(parts, " -> ")
}

func formatState(ctx *handler.Context) format.State {
	if ctx.Format != nil {
		return *ctx.Format
	}
	return format.DefaultState()
}
