package hub

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sofrapos/sofra/pkg/authz"
	"github.com/sofrapos/sofra/pkg/logger"
	"github.com/sofrapos/sofra/pkg/token"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// client is one connected terminal.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Set by the auth control frame; read only from the hub loop.
	authed bool
	role   authz.Role
	branch string
	joined string
}

// controlFrame is what terminals send: auth and join-branch messages.
type controlFrame struct {
	Type        string `json:"type"`
	PrincipalID string `json:"principalId,omitempty"`
	Token       string `json:"token,omitempty"`
	Branch      string `json:"branch,omitempty"`
}

// wants reports whether this client should receive an event for branch.
// Unauthenticated clients get nothing; admins get everything.
func (c *client) wants(branch string) bool {
	if !c.authed {
		return false
	}
	if c.role == authz.RoleAdmin {
		return true
	}
	return c.joined != "" && c.joined == branch
}

// handleControl processes an inbound control frame. Runs on the hub loop, so
// mutating client state needs no locking.
func (c *client) handleControl(data []byte) {
	var f controlFrame
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Warn("hub: bad control frame", "error", err)
		return
	}

	switch f.Type {
	case "auth":
		claims, err := token.Validate(c.hub.secret, f.Token)
		if err != nil {
			logger.Warn("hub: auth rejected", "error", err)
			return
		}
		c.authed = true
		c.role = authz.ParseRole(claims.Role)
		c.branch = claims.Branch

	case "join-branch":
		if !c.authed {
			return
		}
		// Rejoining is a no-op; non-admins may only join their own branch.
		if c.joined == f.Branch {
			return
		}
		if c.role != authz.RoleAdmin && f.Branch != c.branch {
			logger.Warn("hub: cross-branch join rejected",
				"requested", f.Branch, "own", c.branch)
			return
		}
		c.joined = f.Branch

	default:
		logger.Debug("hub: ignoring control frame", "type", f.Type)
	}
}

// readPump pumps control messages from the terminal into the hub loop.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("hub: unexpected close", "error", err)
			}
			break
		}
		c.hub.inbound <- inboundMsg{client: c, data: msg}
	}
}

// writePump pumps hub events to the terminal.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
