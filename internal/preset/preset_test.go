package preset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	m := NewManager()
	m.Save("hot", "payload.temp > 25")
	expr, err := m.Load("hot")
	require.NoError(t, err)
	assert.Equal(t, "payload.temp > 25", expr)
}

func TestLoadMissingReturnsError(t *testing.T) {
	m := NewManager()
	_, err := m.Load("missing")
	assert.Error(t, err)
}

func TestDeleteAndList(t *testing.T) {
	m := NewManager()
	m.Save("b", "topic = 'b'")
	m.Save("a", "topic = 'a'")
	assert.Equal(t, []string{"a", "b"}, m.List())

	m.Delete("a")
	assert.Equal(t, []string{"b"}, m.List())
}
