package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/mqttsh/internal/command"
	"github.com/rustyeddy/mqttsh/internal/config"
	"github.com/rustyeddy/mqttsh/internal/filter"
	"github.com/rustyeddy/mqttsh/internal/format"
	"github.com/rustyeddy/mqttsh/internal/handler"
	"github.com/rustyeddy/mqttsh/internal/history"
	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/rule"
	"github.com/rustyeddy/mqttsh/internal/stats"
	"github.com/rustyeddy/mqttsh/internal/testsupport"
)

func newTestContext(t *testing.T) (*handler.Context, *testsupport.FakeTransport) {
	t.Helper()
	tr := testsupport.NewFakeTransport(16)
	fs := format.DefaultState()
	return &handler.Context{
		Out:       os.Stdout,
		Transport: tr,
		Filter:    filter.New(),
		Format:    &fs,
		History:   history.New(10),
		Stats:     stats.New(10, 4, 128),
		Rules:     rule.NewEngine(rule.ActionContext{}),
		Config:    config.Default(),
		Ctx:       context.Background(),
	}, tr
}

func TestExitHandlerRequestsShutdown(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := ExitHandler{}.Handle(command.Parse("exit"), ctx)
	assert.True(t, res.ShouldExit)
}

func TestPauseAndResume(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := PauseHandler{}.Handle(command.Parse("pause"), ctx)
	require.NotNil(t, res.PauseState)
	assert.True(t, *res.PauseState)

	res = PauseHandler{}.Handle(command.Parse("resume"), ctx)
	require.NotNil(t, res.PauseState)
	assert.False(t, *res.PauseState)
}

func TestFilterHandlerSetAndClear(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := FilterHandler{}.Handle(command.Parse("filter topic = 'a/b'"), ctx)
	assert.True(t, res.Success)
	assert.Equal(t, "topic = 'a/b'", ctx.Filter.Source())

	res = FilterHandler{}.Handle(command.Parse("filter clear"), ctx)
	assert.True(t, res.Success)
	assert.True(t, ctx.Filter.Matches(msg.New("x", nil, 0, false, "t")))
}

func TestFilterHandlerReportsParseError(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := FilterHandler{}.Handle(command.Parse("filter topic > 'a/b'"), ctx)
	assert.False(t, res.Success)
}

func TestPublishHandlerCallsTransport(t *testing.T) {
	ctx, tr := newTestContext(t)
	res := PublishHandler{}.Handle(command.Parse("publish sensors/a hello --qos=1"), ctx)
	assert.True(t, res.Success)
	pub := tr.Published()
	require.Len(t, pub, 1)
	assert.Equal(t, "sensors/a", pub[0].Topic)
	assert.Equal(t, byte(1), pub[0].QoS)
}

func TestSubscribeAndUnsubscribeHandlers(t *testing.T) {
	ctx, tr := newTestContext(t)
	res := SubscribeHandler{}.Handle(command.Parse("subscribe sensors/#"), ctx)
	assert.True(t, res.Success)
	assert.Len(t, tr.Subscriptions(), 1)

	res = UnsubscribeHandler{}.Handle(command.Parse("unsubscribe sensors/#"), ctx)
	assert.True(t, res.Success)
	assert.Empty(t, tr.Subscriptions())
}

func TestStatsHandlerReportsTotals(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Stats.Observe("sensors/a", time.Now())
	res := StatsHandler{}.Handle(command.Parse("stats"), ctx)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "total=1")
}

func TestHistoryAndLastHandlers(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.History.Append(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))
	res := LastHandler{}.Handle(command.Parse("last 1"), ctx)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "sensors/a")
}

func TestExportHandlerWritesFile(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.History.Append(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))
	path := filepath.Join(t.TempDir(), "out.json")
	res := ExportHandler{}.Handle(command.Parse("export json "+path), ctx)
	require.True(t, res.Success)
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestRuleHandlerAddListEnableDisableRemove(t *testing.T) {
	ctx, _ := newTestContext(t)
	pc := handler.ParsedCommand{Name: "rule", Args: []string{"add", "hot", "SELECT", "payload.temp", "FROM", "'sensors/#'", "WHERE", "payload.temp", ">", "20"}}
	res := RuleHandler{}.Handle(pc, ctx)
	require.True(t, res.Success)

	res = RuleHandler{}.Handle(handler.ParsedCommand{Name: "rule", Args: []string{"list"}}, ctx)
	assert.Contains(t, res.Message, "hot(enabled)")

	res = RuleHandler{}.Handle(handler.ParsedCommand{Name: "rule", Args: []string{"disable", "hot"}}, ctx)
	assert.True(t, res.Success)

	res = RuleHandler{}.Handle(handler.ParsedCommand{Name: "rule", Args: []string{"remove", "hot"}}, ctx)
	assert.True(t, res.Success)
	assert.Empty(t, ctx.Rules.List())
}

func TestStepHandlerNextAdvances(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := StepHandler{}.Handle(command.Parse("next"), ctx)
	assert.Equal(t, handler.StepAdvance, res.StepChange)
}

func TestHexAndFormatToggles(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := HexHandler{}.Handle(command.Parse("hex on"), ctx)
	assert.True(t, res.Success)
	assert.True(t, ctx.Format.Hex)

	res = FormatHandler{}.Handle(command.Parse("format vertical"), ctx)
	assert.True(t, res.Success)
	assert.Equal(t, format.Vertical, ctx.Format.Mode)
}

func TestPoolHandlerReportsNotExposedForFakeTransport(t *testing.T) {
	ctx, _ := newTestContext(t)
	res := PoolHandler{}.Handle(command.Parse("pool"), ctx)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "not exposed")
}

func TestVisualizeTreeGroupsByTopicSegment(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.History.Append(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))
	ctx.History.Append(msg.New("sensors/b", []byte(`{}`), 0, false, "test"))

	res := VisualizeHandler{}.Handle(command.Parse("visualize tree"), ctx)
	assert.True(t, res.Success)
	assert.Contains(t, res.Message, "sensors (2)")
	assert.Contains(t, res.Message, "a (1)")
	assert.Contains(t, res.Message, "b (1)")
}

func TestVisualizeFlowOrdersMostRecentFirst(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.History.Append(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))
	ctx.History.Append(msg.New("sensors/b", []byte(`{}`), 0, false, "test"))

	res := VisualizeHandler{}.Handle(command.Parse("visualize flow"), ctx)
	assert.True(t, res.Success)
	assert.Equal(t, "sensors/b -> sensors/a", res.Message)
}
