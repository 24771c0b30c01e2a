package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sofrapos/sofra/pkg/logger"
)

const (
	// Connection attempts are bounded: after maxAttempts failures the channel
	// stays disconnected until the caller reconnects explicitly.
	maxAttempts  = 5
	attemptDelay = time.Second

	writeWait = 10 * time.Second
)

// ErrDisconnected is returned when Connect exhausts its attempts, or when a
// reconnect is abandoned because Disconnect was called in the meantime.
var ErrDisconnected = errors.New("notify: disconnected after retries")

// ErrAlreadyConnected is returned when Connect is called with a different
// identity while the channel is up. Disconnect first to switch principals.
var ErrAlreadyConnected = errors.New("notify: already connected, disconnect before changing identity")

// frame is the wire envelope for both directions.
type frame struct {
	Type  string          `json:"type,omitempty"`  // control: "auth" | "join-branch"
	Event string          `json:"event,omitempty"` // push: event name
	Data  json.RawMessage `json:"data,omitempty"`

	PrincipalID string `json:"principalId,omitempty"`
	Token       string `json:"token,omitempty"`
	Branch      string `json:"branch,omitempty"`
}

// Listener receives normalized order events.
type Listener func(OrderEvent)

// Channel is one persistent connection to the gateway's order push endpoint.
// Listeners registered through OnNewOrder/OnOrderUpdate each receive every
// delivered event exactly once per transport message; delivery order across
// listeners is unspecified.
type Channel struct {
	url string

	mu          sync.Mutex
	conn        *websocket.Conn
	connected   bool
	joined      bool
	principalID string
	token       string
	branch      string

	nextID       int
	newListeners map[int]Listener
	updListeners map[int]Listener

	done chan struct{}
}

// NewChannel builds a channel for the websocket endpoint at url, e.g.
// "wss://pos.example.com/ws/orders".
func NewChannel(url string) *Channel {
	return &Channel{
		url:          url,
		newListeners: make(map[int]Listener),
		updListeners: make(map[int]Listener),
	}
}

// Connect dials the gateway, authenticates, and joins the principal's branch
// room. At most 5 attempts are made, one second apart; if all fail the
// channel remains disconnected and ErrDisconnected is returned.
//
// An empty branch means the principal (an admin) receives events from every
// room and no join is emitted.
//
// Calling Connect again with the same identity while connected is a no-op.
// Calling it with a different identity returns ErrAlreadyConnected: switching
// principals requires an explicit Disconnect first.
func (c *Channel) Connect(ctx context.Context, principalID, token, branch string) error {
	c.mu.Lock()
	if c.connected {
		same := c.principalID == principalID && c.token == token && c.branch == branch
		c.mu.Unlock()
		if same {
			return nil
		}
		return ErrAlreadyConnected
	}
	c.principalID = principalID
	c.token = token
	c.branch = branch
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	return c.dial(ctx, done)
}

// dial runs the bounded connect loop for one Connect lifecycle, identified by
// its done channel. If Disconnect lands while a dial is in flight — closing
// done or replacing it — the loop aborts and any freshly handshaken
// connection is dropped rather than resurrecting the channel.
func (c *Channel) dial(ctx context.Context, done chan struct{}) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-done:
			return ErrDisconnected
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err == nil {
			if err := c.handshake(conn); err == nil {
				c.mu.Lock()
				if c.done != done {
					c.mu.Unlock()
					conn.Close()
					return ErrDisconnected
				}
				c.conn = conn
				c.connected = true
				c.mu.Unlock()

				go c.readLoop(conn)
				return nil
			} else {
				lastErr = err
				conn.Close()
			}
		} else {
			lastErr = err
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-done:
				return ErrDisconnected
			case <-time.After(attemptDelay):
			}
		}
	}

	logger.Warn("notify: connection attempts exhausted", "error", lastErr)
	return ErrDisconnected
}

// handshake authenticates and performs the idempotent branch join. The
// joined flag survives transient reconnects within one Connect lifecycle so
// a room is never joined twice.
func (c *Channel) handshake(conn *websocket.Conn) error {
	c.mu.Lock()
	auth := frame{Type: "auth", PrincipalID: c.principalID, Token: c.token}
	join := frame{Type: "join-branch", Branch: c.branch}
	needJoin := c.branch != "" && !c.joined
	c.mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(auth); err != nil {
		return err
	}

	if needJoin {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(join); err != nil {
			return err
		}
		c.mu.Lock()
		c.joined = true
		c.mu.Unlock()
	}
	return nil
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.onReadError(conn, err)
			return
		}
		if f.Event == "" {
			continue
		}

		ev, err := Normalize(f.Event, f.Data)
		if err != nil {
			// Malformed events are logged and dropped, never delivered.
			logger.Warn("notify: dropping event", "event", f.Event, "error", err)
			continue
		}

		c.dispatch(ev)
	}
}

// onReadError tears down the broken connection and, unless the channel was
// deliberately disconnected, redials with the same bounded retry policy.
// A successful redial re-authenticates and rejoins the branch room.
func (c *Channel) onReadError(conn *websocket.Conn, err error) {
	conn.Close()

	c.mu.Lock()
	deliberate := c.done == nil
	if c.conn == conn {
		c.conn = nil
		c.connected = false
		c.joined = false // rejoin on the next successful handshake
	}
	done := c.done
	c.mu.Unlock()

	if deliberate {
		return
	}

	select {
	case <-done:
		return
	default:
	}

	logger.Warn("notify: connection lost, reconnecting", "error", err)
	if err := c.dial(context.Background(), done); err != nil {
		logger.Warn("notify: reconnect failed", "error", err)
	}
}

func (c *Channel) dispatch(ev OrderEvent) {
	c.mu.Lock()
	var listeners []Listener
	switch ev.Kind {
	case KindNew:
		listeners = make([]Listener, 0, len(c.newListeners))
		for _, fn := range c.newListeners {
			listeners = append(listeners, fn)
		}
	case KindUpdated:
		listeners = make([]Listener, 0, len(c.updListeners))
		for _, fn := range c.updListeners {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// OnNewOrder registers a listener for new-order events and returns its
// unregistration handle.
func (c *Channel) OnNewOrder(fn Listener) (unsubscribe func()) {
	return c.register(c.newListeners, fn)
}

// OnOrderUpdate registers a listener for order-updated events and returns
// its unregistration handle.
func (c *Channel) OnOrderUpdate(fn Listener) (unsubscribe func()) {
	return c.register(c.updListeners, fn)
}

func (c *Channel) register(m map[int]Listener, fn Listener) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	m[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(m, id)
		c.mu.Unlock()
	}
}

// Connected reports whether the transport is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect closes the transport and releases every listener. A later
// Connect re-authenticates and rejoins the branch room from scratch.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.joined = false
	c.newListeners = make(map[int]Listener)
	c.updListeners = make(map[int]Listener)
	c.mu.Unlock()

	if conn != nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}
}
