package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/mqttsh/internal/config"
)

func TestExpandDefaultAliases(t *testing.T) {
	e := NewExpander(config.DefaultAliases())
	assert.Equal(t, "exit", e.Expand("q"))
	assert.Equal(t, "filter clear", e.Expand("c"))
	assert.Equal(t, "filter grep hello", e.Expand("g hello"))
}

func TestExpandLeavesUnknownCommandsUnchanged(t *testing.T) {
	e := NewExpander(config.DefaultAliases())
	assert.Equal(t, "publish a/b hi", e.Expand("publish a/b hi"))
}

func TestExpandEmptyLine(t *testing.T) {
	e := NewExpander(nil)
	assert.Equal(t, "", e.Expand("   "))
}

func TestParseSplitsCommandArgsAndOptions(t *testing.T) {
	pc := Parse("publish sensors/a hello --qos=1 --retain")
	assert.Equal(t, "publish", pc.Name)
	assert.Equal(t, []string{"sensors/a", "hello"}, pc.Args)
	qos, ok := pc.Option("qos")
	assert.True(t, ok)
	assert.Equal(t, "1", qos)
	retain, ok := pc.Option("retain")
	assert.True(t, ok)
	assert.Equal(t, "true", retain)
}

func TestParseEmptyLineYieldsEmptyName(t *testing.T) {
	pc := Parse("")
	assert.Equal(t, "", pc.Name)
}

func TestParseMultiWordArgsCanBeRejoined(t *testing.T) {
	pc := Parse("filter topic = 'sensors/+' AND payload.temp > 25")
	joined := strings.Join(pc.Args, " ")
	assert.Equal(t, "topic = 'sensors/+' AND payload.temp > 25", joined)
}
