package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubFixture(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub never reached %d clients", want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := newHubFixture(t)

	a := &Client{ID: "a", UserID: "u1", Send: make(chan []byte, 8)}
	b := &Client{ID: "b", UserID: "u2", Send: make(chan []byte, 8)}
	hub.Register(a)
	hub.Register(b)
	waitForClients(t, hub, 2)

	hub.Broadcast([]byte(`{"kind":"post.created"}`))

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			assert.JSONEq(t, `{"kind":"post.created"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatalf("client %s never received the broadcast", c.ID)
		}
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := newHubFixture(t)

	c := &Client{ID: "a", UserID: "u1", Send: make(chan []byte, 8)}
	hub.Register(c)
	waitForClients(t, hub, 1)

	hub.Unregister(c)
	waitForClients(t, hub, 0)

	select {
	case _, open := <-c.Send:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := newHubFixture(t)

	slow := &Client{ID: "slow", UserID: "u1", Send: make(chan []byte, 1)}
	hub.Register(slow)
	waitForClients(t, hub, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast([]byte("event"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}
