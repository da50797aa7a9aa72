package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/mqttsh/internal/msg"
)

func mk(topic string) msg.Message {
	return msg.New(topic, []byte(`{}`), 0, false, "test")
}

func TestAppendAssignsCounters(t *testing.T) {
	h := New(10)
	a := h.Append(mk("a"))
	b := h.Append(mk("b"))
	assert.Equal(t, uint64(0), a.ID)
	assert.Equal(t, uint64(1), b.ID)
	assert.Equal(t, 2, h.Len())
}

func TestOverflowEvictsOldest(t *testing.T) {
	h := New(2)
	h.Append(mk("a"))
	h.Append(mk("b"))
	h.Append(mk("c"))
	assert.Equal(t, 2, h.Len())

	_, ok := h.At(0)
	assert.False(t, ok, "oldest entry should have been evicted")

	m, ok := h.At(2)
	require.True(t, ok)
	assert.Equal(t, "c", m.Topic)
}

func TestLastReturnsReverseChronological(t *testing.T) {
	h := New(5)
	h.Append(mk("a"))
	h.Append(mk("b"))
	h.Append(mk("c"))

	last2 := h.Last(2)
	require.Len(t, last2, 2)
	assert.Equal(t, "c", last2[0].Topic)
	assert.Equal(t, "b", last2[1].Topic)
}

func TestLastCapsAtAvailable(t *testing.T) {
	h := New(5)
	h.Append(mk("a"))
	assert.Len(t, h.Last(10), 1)
}

func TestSearchLinearScan(t *testing.T) {
	h := New(5)
	h.Append(mk("sensors/a"))
	h.Append(mk("other/b"))
	h.Append(mk("sensors/c"))

	found := h.Search(func(m msg.Message) bool {
		return m.Topic == "sensors/a" || m.Topic == "sensors/c"
	})
	assert.Len(t, found, 2)
}

func TestBookmarkAndResolve(t *testing.T) {
	h := New(5)
	a := h.Append(mk("a"))
	h.Bookmark("mine", a.ID)

	got, ok := h.Resolve("mine")
	require.True(t, ok)
	assert.Equal(t, "a", got.Topic)

	_, ok = h.Resolve("missing")
	assert.False(t, ok)
}

func TestClearResetsBufferButNotCounters(t *testing.T) {
	h := New(5)
	h.Append(mk("a"))
	h.Clear()
	assert.Equal(t, 0, h.Len())

	next := h.Append(mk("b"))
	assert.Equal(t, uint64(1), next.ID, "counter should not restart at 0 after Clear")

	_, ok := h.At(0)
	assert.False(t, ok, "pre-clear index should resolve as not-found")
}
