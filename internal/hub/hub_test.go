package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sofrapos/sofra/pkg/token"
)

const testSecret = "hub-test-secret"

func signed(t *testing.T, role, branch string) string {
	t.Helper()
	tok, err := token.Generate(testSecret, token.Claims{
		UserID: 1, Email: "t@sofra.local", Role: role, Branch: branch,
	})
	require.NoError(t, err)
	return tok
}

func TestClientWants(t *testing.T) {
	c := &client{}
	assert.False(t, c.wants("downtown"), "unauthenticated client hears nothing")

	c.authed = true
	c.role = "STAFF"
	c.branch = "downtown"
	assert.False(t, c.wants("downtown"), "authed but not joined")

	c.joined = "downtown"
	assert.True(t, c.wants("downtown"))
	assert.False(t, c.wants("riverside"))

	admin := &client{authed: true, role: "ADMIN"}
	assert.True(t, admin.wants("downtown"))
	assert.True(t, admin.wants("riverside"))
}

func TestHandleControlAuth(t *testing.T) {
	h := New(testSecret)
	c := &client{hub: h}

	c.handleControl([]byte(`{"type":"auth","principalId":"1","token":"` + signed(t, "STAFF", "downtown") + `"}`))
	assert.True(t, c.authed)
	assert.Equal(t, "downtown", c.branch)

	// A forged token leaves the client unauthenticated.
	forged := &client{hub: h}
	forged.handleControl([]byte(`{"type":"auth","token":"not-a-jwt"}`))
	assert.False(t, forged.authed)

	// Garbage frames are ignored.
	c2 := &client{hub: h}
	c2.handleControl([]byte(`{{{`))
	assert.False(t, c2.authed)
}

func TestHandleControlJoinBranch(t *testing.T) {
	h := New(testSecret)
	c := &client{hub: h}

	// Join before auth is refused.
	c.handleControl([]byte(`{"type":"join-branch","branch":"downtown"}`))
	assert.Empty(t, c.joined)

	c.handleControl([]byte(`{"type":"auth","token":"` + signed(t, "STAFF", "downtown") + `"}`))

	// Non-admins may only join their own branch.
	c.handleControl([]byte(`{"type":"join-branch","branch":"riverside"}`))
	assert.Empty(t, c.joined)

	c.handleControl([]byte(`{"type":"join-branch","branch":"downtown"}`))
	assert.Equal(t, "downtown", c.joined)

	// Rejoining is a no-op.
	c.handleControl([]byte(`{"type":"join-branch","branch":"downtown"}`))
	assert.Equal(t, "downtown", c.joined)
}

func TestHandleControlAdminJoinsAnyBranch(t *testing.T) {
	h := New(testSecret)
	c := &client{hub: h}
	c.handleControl([]byte(`{"type":"auth","token":"` + signed(t, "ADMIN", "") + `"}`))

	c.handleControl([]byte(`{"type":"join-branch","branch":"riverside"}`))
	assert.Equal(t, "riverside", c.joined)
}

// dialAndHandshake connects a test terminal to the hub and performs the
// control handshake.
func dialAndHandshake(t *testing.T, url, role, branch, join string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type": "auth", "principalId": "1", "token": signed(t, role, branch),
	}))
	if join != "" {
		require.NoError(t, conn.WriteJSON(map[string]string{
			"type": "join-branch", "branch": join,
		}))
	}
	return conn
}

func readPush(t *testing.T, conn *websocket.Conn) (string, OrderPayload) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var f struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&f))

	var p OrderPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	return f.Event, p
}

func TestHubBranchScopedFanout(t *testing.T) {
	h := New(testSecret)
	go h.Run()

	ts := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	downtown := dialAndHandshake(t, url, "STAFF", "downtown", "downtown")
	riverside := dialAndHandshake(t, url, "STAFF", "riverside", "riverside")
	admin := dialAndHandshake(t, url, "ADMIN", "", "")

	// Let the control frames reach the hub loop before publishing.
	time.Sleep(200 * time.Millisecond)

	h.PublishNewOrder(OrderPayload{
		OrderID: "7", OrderNumber: "ORD-0007", Status: "PLACED", Branch: "downtown",
	})

	event, payload := readPush(t, downtown)
	assert.Equal(t, EventNewOrder, event)
	assert.Equal(t, "ORD-0007", payload.OrderNumber)
	assert.Equal(t, "downtown", payload.Branch)

	// Admin terminals hear every branch.
	event, payload = readPush(t, admin)
	assert.Equal(t, EventNewOrder, event)
	assert.Equal(t, "ORD-0007", payload.OrderNumber)

	// The riverside terminal hears nothing.
	riverside.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var discard interface{}
	assert.Error(t, riverside.ReadJSON(&discard))
}

func TestHubSubscribeReceivesPublishedFrames(t *testing.T) {
	h := New(testSecret)

	frames, cancel := h.Subscribe()
	defer cancel()

	h.PublishOrderUpdated(OrderPayload{
		OrderID: "3", OrderNumber: "ORD-0003", Status: "READY", Branch: "downtown",
	})

	select {
	case f := <-frames:
		assert.Equal(t, EventOrderUpdated, f.Event)
		assert.Equal(t, "downtown", f.Branch)
		assert.Contains(t, string(f.Payload), "ORD-0003")
	case <-time.After(time.Second):
		t.Fatal("subscriber frame not delivered")
	}

	cancel()
	_, open := <-frames
	assert.False(t, open, "cancel closes the subscriber channel")
}
