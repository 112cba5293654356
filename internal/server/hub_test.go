package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attachDetached registers a client with no socket. Its frames stay on the
// send channel for the test to inspect.
func attachDetached(t *testing.T, srv *Server, id string) *Client {
	t.Helper()
	client := NewClient(id, nil, srv.Hub(), "test:"+id)
	require.True(t, srv.Hub().Register(client))
	require.Eventually(t, func() bool {
		_, ok := srv.Registry().Lookup(id)
		return ok
	}, time.Second, 5*time.Millisecond)
	return client
}

func nextFrame(t *testing.T, c *Client) hub.InboundEnvelope {
	t.Helper()
	select {
	case frame, ok := <-c.GetSendChan():
		require.True(t, ok, "send channel closed")
		var env hub.InboundEnvelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(time.Second):
		require.FailNow(t, "no frame queued")
		return hub.InboundEnvelope{}
	}
}

func TestNewClient(t *testing.T) {
	h := NewHub(logging.Nop(), *NewConfig())
	client := NewClient("abc", nil, h, "127.0.0.1:12345")

	assert.Equal(t, "abc", client.ID())
	assert.NotNil(t, client.GetSendChan())
	assert.Equal(t, defaultSendBufferSize, cap(client.send))
}

func TestHub_RegisterAnnouncesJoin(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := attachDetached(t, srv, "alice-connection")

	env := nextFrame(t, alice)
	assert.Equal(t, hub.NameStatus, env.Event)

	var status hub.StatusPayload
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, hub.StatusJoin, status.Type)
	assert.Equal(t, 1, status.UserCount)
	assert.Equal(t, 1, srv.Hub().ClientCount())
}

func TestHub_DeliverUnknownConnection(t *testing.T) {
	srv := newTestServer(t, nil)

	err := srv.Hub().Deliver(context.Background(), "nobody", []byte(`{}`))
	assert.ErrorIs(t, err, hub.ErrConnectionGone)
}

func TestHub_DeliverCancelledContext(t *testing.T) {
	srv := newTestServer(t, nil)
	attachDetached(t, srv, "alice-connection")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, srv.Hub().Deliver(ctx, "alice-connection", []byte(`{}`)), context.Canceled)
}

// TestHub_SlowConsumerDropped fills a client's queue and checks that the
// next delivery fails fast and the client is disconnected.
func TestHub_SlowConsumerDropped(t *testing.T) {
	srv := newTestServer(t, func(cfg *Config) { cfg.SendBufferSize = 1 })
	slow := attachDetached(t, srv, "slow-connection")

	err := srv.Hub().Deliver(context.Background(), "slow-connection", []byte(`{}`))
	assert.ErrorIs(t, err, hub.ErrSendBufferFull)

	require.Eventually(t, func() bool { return srv.Registry().Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, srv.Hub().ClientCount())

	// The queued join status is still readable, then the channel is closed.
	assert.Equal(t, hub.NameStatus, nextFrame(t, slow).Event)
	_, open := <-slow.GetSendChan()
	assert.False(t, open)

	assert.ErrorIs(t, srv.Hub().Deliver(context.Background(), "slow-connection", []byte(`{}`)), hub.ErrConnectionGone)
}

func TestHub_UnregisterRoutesLeave(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := attachDetached(t, srv, "alice-connection")
	bob := attachDetached(t, srv, "bob-connection")

	srv.Hub().Unregister(bob)
	require.Eventually(t, func() bool { return srv.Registry().Count() == 1 }, time.Second, 5*time.Millisecond)

	var statuses []hub.StatusPayload
	for range 3 {
		env := nextFrame(t, alice)
		var s hub.StatusPayload
		require.NoError(t, json.Unmarshal(env.Data, &s))
		statuses = append(statuses, s)
	}

	assert.Equal(t, hub.StatusJoin, statuses[0].Type)
	assert.Equal(t, hub.StatusJoin, statuses[1].Type)
	assert.Equal(t, 2, statuses[1].UserCount)
	assert.Equal(t, hub.StatusLeave, statuses[2].Type)
	assert.Equal(t, 1, statuses[2].UserCount)
	assert.Contains(t, statuses[2].Msg, hub.GuestName("bob-connection"))

	// A stale unregister is a no-op.
	srv.Hub().Unregister(bob)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, srv.Registry().Count())
}

func TestHub_Shutdown(t *testing.T) {
	cfg := NewConfig()
	srv, err := New(*cfg, logging.Nop())
	require.NoError(t, err)
	srv.StartHub()

	attachDetached(t, srv, "alice-connection")

	require.NoError(t, srv.Hub().Shutdown(time.Second))
	assert.False(t, srv.Hub().Register(NewClient("late", nil, srv.Hub(), "test:late")))

	done := make(chan struct{})
	go func() {
		srv.Hub().Unregister(NewClient("late", nil, srv.Hub(), "test:late"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Unregister blocked after shutdown")
	}
}

// TestHub_ConcurrentDeliveries checks that fan-out to one client from many
// goroutines neither panics nor loses frames that fit in the buffer.
func TestHub_ConcurrentDeliveries(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := attachDetached(t, srv, "alice-connection")
	nextFrame(t, alice)

	const senders = 50
	errc := make(chan error, senders)
	for range senders {
		go func() {
			errc <- srv.Hub().Deliver(context.Background(), "alice-connection", []byte(`{"event":"status"}`))
		}()
	}
	for range senders {
		assert.NoError(t, <-errc)
	}
	assert.Len(t, alice.GetSendChan(), senders)
}
