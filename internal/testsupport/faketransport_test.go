package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/mqttsh/internal/msg"
	"github.com/rustyeddy/mqttsh/internal/transport"
)

func TestInjectThenReceive(t *testing.T) {
	tr := NewFakeTransport(4)
	tr.Inject(msg.New("sensors/a", []byte(`{}`), 0, false, "test"))

	m, ok := tr.Receive(100 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, "sensors/a", m.Topic)
}

func TestReceiveTimesOutWhenEmpty(t *testing.T) {
	tr := NewFakeTransport(4)
	_, ok := tr.Receive(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestPublishIsRecorded(t *testing.T) {
	tr := NewFakeTransport(4)
	require.NoError(t, tr.Publish(context.Background(), "out", []byte("x"), 1, false))
	pub := tr.Published()
	require.Len(t, pub, 1)
	assert.Equal(t, "out", pub[0].Topic)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	tr := NewFakeTransport(4)
	require.NoError(t, tr.Subscribe(context.Background(), []transport.Subscription{{Filter: "a/#", QoS: 0}}))
	assert.Len(t, tr.Subscriptions(), 1)

	require.NoError(t, tr.Unsubscribe(context.Background(), []string{"a/#"}))
	assert.Empty(t, tr.Subscriptions())
}

func TestConnectErrPropagates(t *testing.T) {
	tr := NewFakeTransport(4)
	tr.ConnectErr = assertErr
	err := tr.Connect(context.Background())
	assert.Equal(t, assertErr, err)
	assert.False(t, tr.IsConnected())
}

var assertErr = &connectError{"boom"}

type connectError struct{ msg string }

func (e *connectError) Error() string { return e.msg }
