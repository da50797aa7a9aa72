package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserveAccumulatesTotals(t *testing.T) {
	c := New(10, 4, 128)
	now := time.Now()
	c.Observe("sensors/a", now)
	c.Observe("sensors/a", now)
	c.Observe("sensors/b", now)

	assert.Equal(t, uint64(3), c.Total())
	perTopic := c.PerTopic()
	assert.Equal(t, uint64(2), perTopic["sensors/a"])
	assert.Equal(t, uint64(1), perTopic["sensors/b"])
}

func TestTopicTruncation(t *testing.T) {
	c := New(10, 4, 5)
	c.Observe("abcdefghij", time.Now())
	perTopic := c.PerTopic()
	require := assert.New(t)
	require.Len(perTopic, 1)
	for k := range perTopic {
		require.Contains(k, "truncated")
		require.True(len(k) > 5, "truncated key should retain the marker suffix")
	}
}

func TestRateWindowPrunesOldArrivals(t *testing.T) {
	c := New(1, 4, 128) // 1 second window
	base := time.Now()
	c.Observe("x", base)
	c.Observe("x", base.Add(500*time.Millisecond))

	rateWithinWindow := c.Rate(base.Add(900 * time.Millisecond))
	assert.Greater(t, rateWithinWindow, 0.0)

	rateAfterWindow := c.Rate(base.Add(3 * time.Second))
	assert.Equal(t, 0.0, rateAfterWindow)
}

func TestLatencyRingOverwritesOldest(t *testing.T) {
	c := New(10, 2, 128)
	c.ObserveLatency(1 * time.Millisecond)
	c.ObserveLatency(2 * time.Millisecond)
	c.ObserveLatency(3 * time.Millisecond)

	samples := c.LatencySamples()
	require := assert.New(t)
	require.Len(samples, 2)
	require.Equal(2*time.Millisecond, samples[0])
	require.Equal(3*time.Millisecond, samples[1])
}

func TestTopTopicsOrdersByCountThenName(t *testing.T) {
	c := New(10, 4, 128)
	now := time.Now()
	c.Observe("a", now)
	c.Observe("b", now)
	c.Observe("b", now)
	c.Observe("c", now)
	c.Observe("c", now)

	top := c.TopTopics(2)
	require := assert.New(t)
	require.Len(top, 2)
	require.Equal("b", top[0].Topic)
	require.Equal("c", top[1].Topic)
}

func TestResetClearsState(t *testing.T) {
	c := New(10, 4, 128)
	c.Observe("a", time.Now())
	c.ObserveLatency(time.Millisecond)
	c.Reset()

	assert.Equal(t, uint64(0), c.Total())
	assert.Empty(t, c.PerTopic())
	assert.Empty(t, c.LatencySamples())
}
