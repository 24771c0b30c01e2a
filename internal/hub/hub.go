// Package hub is the gateway's order push fan-out. Each connected terminal
// authenticates with its JWT, optionally joins its branch room, and then
// receives new-order / order-updated events scoped to its visibility:
// admins get every room, everyone else only their own branch.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/metrics"
)

const (
	// Canonical event names pushed to clients. Older terminals listening for
	// legacy spellings normalize these on their side.
	EventNewOrder     = "new-order"
	EventOrderUpdated = "order-updated"
)

// OrderPayload is the event body pushed to terminals.
type OrderPayload struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
	Branch      string `json:"branch"`
	ActorRole   string `json:"updatedByRole,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type pushFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type published struct {
	event   string
	branch  string
	payload []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Terminals connect from kiosk origins; the CORS middleware guards the
	// REST surface, token validation guards this one.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains all connected terminals and routes published events to the
// right rooms. Run must be started in its own goroutine.
type Hub struct {
	secret string

	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	publish    chan published
	inbound    chan inboundMsg

	// In-process subscribers (the SSE fallback stream). Guarded separately
	// because they are added from request goroutines, not the hub loop.
	subsMu sync.Mutex
	subs   map[chan Frame]struct{}
}

// Frame is one published event as seen by in-process subscribers. Payload is
// the same JSON frame pushed to websocket terminals.
type Frame struct {
	Event   string
	Branch  string
	Payload []byte
}

type inboundMsg struct {
	client *client
	data   []byte
}

// New creates a Hub that validates handshakes against the given JWT secret.
func New(secret string) *Hub {
	return &Hub{
		secret:     secret,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		publish:    make(chan published, 256),
		inbound:    make(chan inboundMsg, 256),
		subs:       make(map[chan Frame]struct{}),
	}
}

// Subscribe registers an in-process listener for every published event.
// The returned cancel func must be called when the consumer goes away.
func (h *Hub) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 64)
	h.subsMu.Lock()
	h.subs[ch] = struct{}{}
	h.subsMu.Unlock()

	cancel := func() {
		h.subsMu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.subsMu.Unlock()
	}
	return ch, cancel
}

// Run is the hub event loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			metrics.WSClients.Set(float64(len(h.clients)))
			logger.Info("hub: client connected", "total", len(h.clients))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				metrics.WSClients.Set(float64(len(h.clients)))
				logger.Info("hub: client disconnected", "total", len(h.clients))
			}

		case p := <-h.publish:
			for c := range h.clients {
				if !c.wants(p.branch) {
					continue
				}
				select {
				case c.send <- p.payload:
				default:
					// Slow client: drop it rather than block the loop.
					metrics.EventsDropped.WithLabelValues("slow_client").Inc()
					close(c.send)
					delete(h.clients, c)
				}
			}
			metrics.WSClients.Set(float64(len(h.clients)))

		case msg := <-h.inbound:
			msg.client.handleControl(msg.data)
		}
	}
}

// PublishNewOrder pushes a new-order event to the branch room and to every
// admin terminal.
func (h *Hub) PublishNewOrder(p OrderPayload) {
	h.push(EventNewOrder, p)
	metrics.EventsPublished.WithLabelValues("new").Inc()
}

// PublishOrderUpdated pushes an order-updated event.
func (h *Hub) PublishOrderUpdated(p OrderPayload) {
	h.push(EventOrderUpdated, p)
	metrics.EventsPublished.WithLabelValues("updated").Inc()
}

func (h *Hub) push(event string, p OrderPayload) {
	raw, err := json.Marshal(pushFrame{Event: event, Data: p})
	if err != nil {
		logger.Error("hub: marshal event", "error", err)
		return
	}
	h.publish <- published{event: event, branch: p.Branch, payload: raw}

	h.subsMu.Lock()
	for ch := range h.subs {
		select {
		case ch <- Frame{Event: event, Branch: p.Branch, Payload: raw}:
		default:
			metrics.EventsDropped.WithLabelValues("slow_client").Inc()
		}
	}
	h.subsMu.Unlock()
}

// ServeWS upgrades the HTTP request and registers the terminal. The client
// must send an auth control frame before it receives anything.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("hub: upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c
	go c.writePump()
	go c.readPump()
}
