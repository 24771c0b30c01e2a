package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsServer is a scripted gateway endpoint: it records inbound control frames
// and lets the test push frames back down.
type wsServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conn     *websocket.Conn
	received []frame
	ready    chan struct{}
}

func newWSServer(t *testing.T) (*wsServer, *httptest.Server) {
	s := &wsServer{t: t, ready: make(chan struct{}, 8)}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, f)
			s.mu.Unlock()
			s.ready <- struct{}{}
		}
	}))
	t.Cleanup(ts.Close)
	return s, ts
}

func (s *wsServer) waitFrames(n int) []frame {
	deadline := time.After(2 * time.Second)
	for {
		s.mu.Lock()
		got := len(s.received)
		frames := append([]frame(nil), s.received...)
		s.mu.Unlock()
		if got >= n {
			return frames
		}
		select {
		case <-s.ready:
		case <-deadline:
			s.t.Fatalf("timed out waiting for %d control frames, got %d", n, got)
			return nil
		}
	}
}

func (s *wsServer) push(event string, data string) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(s.t, conn)
	require.NoError(s.t, conn.WriteJSON(frame{Event: event, Data: json.RawMessage(data)}))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestChannelHandshakeSendsAuthThenJoin(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok-abc", "downtown"))
	require.True(t, ch.Connected())

	frames := srv.waitFrames(2)
	assert.Equal(t, "auth", frames[0].Type)
	assert.Equal(t, "u-1", frames[0].PrincipalID)
	assert.Equal(t, "tok-abc", frames[0].Token)
	assert.Equal(t, "join-branch", frames[1].Type)
	assert.Equal(t, "downtown", frames[1].Branch)
}

func TestChannelAdminSkipsJoin(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background(), "u-admin", "tok", ""))

	frames := srv.waitFrames(1)
	require.Len(t, frames, 1)
	assert.Equal(t, "auth", frames[0].Type)
}

func TestChannelConnectIsIdempotent(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))

	// Still exactly one auth + one join: reconnecting while connected is a
	// no-op and the room is never joined twice.
	time.Sleep(100 * time.Millisecond)
	frames := srv.waitFrames(2)
	assert.Len(t, frames, 2)
}

func TestChannelConnectRejectsIdentityChangeWhileConnected(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))

	err := ch.Connect(context.Background(), "u-2", "tok-other", "riverside")
	assert.ErrorIs(t, err, ErrAlreadyConnected)

	// The original identity is untouched: still one auth + one join.
	frames := srv.waitFrames(2)
	assert.Equal(t, "u-1", frames[0].PrincipalID)
	assert.Equal(t, "downtown", frames[1].Branch)
}

func TestChannelRedialAbortsAfterDisconnect(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws/orders")

	// A reconnect loop whose lifecycle has ended gives up before dialing.
	done := make(chan struct{})
	close(done)
	err := ch.dial(context.Background(), done)
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.False(t, ch.Connected())
}

func TestChannelDisconnectDuringRedialStaysDown(t *testing.T) {
	_, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))
	ch.Disconnect()

	// A redial that was already in flight when Disconnect landed carries the
	// old lifecycle's done channel. Even though its handshake succeeds, it
	// must not bring the channel back up.
	stale := make(chan struct{})
	err := ch.dial(context.Background(), stale)

	assert.ErrorIs(t, err, ErrDisconnected)
	assert.False(t, ch.Connected(), "stale redial must not resurrect a disconnected channel")

	// An explicit reconnect still works from scratch.
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))
	assert.True(t, ch.Connected())
	ch.Disconnect()
}

func TestChannelDeliversNormalizedEvents(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))
	srv.waitFrames(2)

	events := make(chan OrderEvent, 4)
	ch.OnNewOrder(func(ev OrderEvent) { events <- ev })

	// Legacy spelling on the wire still lands as a normalized new-order.
	srv.push("newOrder", `{"orderId":"5","orderNumber":"ORD-0005","status":"PLACED","branch":"downtown"}`)

	select {
	case ev := <-events:
		assert.Equal(t, KindNew, ev.Kind)
		assert.Equal(t, "ORD-0005", ev.OrderNumber)
		assert.Equal(t, "downtown", ev.Branch)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestChannelDropsMalformedEvents(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	defer ch.Disconnect()
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))
	srv.waitFrames(2)

	events := make(chan OrderEvent, 4)
	ch.OnNewOrder(func(ev OrderEvent) { events <- ev })

	// Missing order number, then an unknown event name: both dropped.
	srv.push("new-order", `{"orderId":"9","status":"PLACED"}`)
	srv.push("order-deleted", `{"orderNumber":"ORD-9"}`)
	// A valid event afterwards proves the loop survived.
	srv.push("new-order", `{"orderNumber":"ORD-0010","branch":"downtown"}`)

	select {
	case ev := <-events:
		assert.Equal(t, "ORD-0010", ev.OrderNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("valid event not delivered")
	}
	assert.Empty(t, events)
}

func TestChannelListenersEachFireOnce(t *testing.T) {
	ch := NewChannel("ws://unused")

	var mu sync.Mutex
	counts := map[string]int{}
	ch.OnNewOrder(func(OrderEvent) { mu.Lock(); counts["a"]++; mu.Unlock() })
	ch.OnNewOrder(func(OrderEvent) { mu.Lock(); counts["b"]++; mu.Unlock() })
	unsubscribe := ch.OnOrderUpdate(func(OrderEvent) { mu.Lock(); counts["c"]++; mu.Unlock() })

	ch.dispatch(OrderEvent{Kind: KindNew, OrderNumber: "ORD-1"})
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])
	assert.Zero(t, counts["c"], "update listener must not hear new-order events")

	ch.dispatch(OrderEvent{Kind: KindUpdated, OrderNumber: "ORD-1"})
	assert.Equal(t, 1, counts["c"])

	unsubscribe()
	ch.dispatch(OrderEvent{Kind: KindUpdated, OrderNumber: "ORD-1"})
	assert.Equal(t, 1, counts["c"])
}

func TestChannelConnectHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := NewChannel("ws://127.0.0.1:1/ws/orders")
	err := ch.Connect(ctx, "u-1", "tok", "downtown")
	require.Error(t, err)
	assert.False(t, ch.Connected())
}

func TestChannelDisconnect(t *testing.T) {
	srv, ts := newWSServer(t)

	ch := NewChannel(wsURL(ts))
	require.NoError(t, ch.Connect(context.Background(), "u-1", "tok", "downtown"))
	srv.waitFrames(2)

	fired := false
	ch.OnNewOrder(func(OrderEvent) { fired = true })

	ch.Disconnect()
	assert.False(t, ch.Connected())

	// Disconnect releases listeners: nothing fires afterwards.
	ch.dispatch(OrderEvent{Kind: KindNew, OrderNumber: "ORD-1"})
	assert.False(t, fired)
}
