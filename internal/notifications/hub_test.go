package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(1, nil)
	require.NoError(t, err)
	other, err := hub.Register(2, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, hub.ConnectionCount(1))
	assert.Equal(t, 1, hub.ConnectionCount(2))

	hub.Broadcast(1, "hello")
	assert.Equal(t, []byte("hello"), <-a.Send)
	assert.Equal(t, []byte("hello"), <-b.Send)
	assert.Empty(t, other.Send)
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(1, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register(2, nil)
	assert.NoError(t, err)
}

func TestHub_UnregisterClosesSendOnce(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	assert.Equal(t, 0, hub.ConnectionCount(3))
	_, open := <-c.Send
	assert.False(t, open)

	// sending to a closed client drops instead of panicking
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) })
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(4, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		c.TrySend([]byte("x"))
	}
	assert.Len(t, c.Send, sendBuffer)
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	_, err := hub.Register(5, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.ConnectionCount(5))

	_, err = hub.Register(5, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_StartWiringForwardsToSockets(t *testing.T) {
	n := newTestNotifier(t)
	hub := NewHub()
	c, err := hub.Register(9, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.StartWiring(ctx, n))
	require.NoError(t, n.PublishUser(ctx, 9, `{"type":"post_liked"}`))

	select {
	case msg := <-c.Send:
		assert.JSONEq(t, `{"type":"post_liked"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("message was not forwarded")
	}
}
