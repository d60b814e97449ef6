package realtime

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
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/pixie-bridge/internal/drawing"
	"github.com/benmeehan/pixie-bridge/internal/mocks"
	"github.com/benmeehan/pixie-bridge/internal/models"
)

// fakeAccess allows every user listed per device.
type fakeAccess struct {
	mu      sync.Mutex
	allowed map[int64][]int64
	calls   int
}

func (a *fakeAccess) CanDraw(ctx context.Context, deviceID, userID int64) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	for _, u := range a.allowed[deviceID] {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

type hubFixture struct {
	hub    *Hub
	engine *drawing.Engine
	pusher *mocks.MockPusher
	access *fakeAccess
	srv    *httptest.Server
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	pusher := new(mocks.MockPusher)
	for _, m := range []string{"EnterDrawMode", "ExitDrawMode"} {
		pusher.On(m, mock.Anything).Return(nil).Maybe()
	}
	pusher.On("DrawPixel", mock.Anything, mock.Anything).Return(nil).Maybe()
	pusher.On("DrawStroke", mock.Anything, mock.Anything).Return(nil).Maybe()
	pusher.On("ClearCanvas", mock.Anything, mock.Anything).Return(nil).Maybe()

	engine := drawing.NewEngine(drawing.Config{}, pusher, zerolog.Nop())
	access := &fakeAccess{allowed: map[int64][]int64{7: {1, 2}}}
	hub := NewHub(engine, access, Options{}, zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int64 = 1
		if r.URL.Query().Get("user") == "2" {
			id = 2
		}
		if r.URL.Query().Get("user") == "3" {
			id = 3
		}
		hub.ServeHTTP(w, r, models.User{ID: id, Username: "user" + r.URL.Query().Get("user")})
	}))
	t.Cleanup(srv.Close)
	return &hubFixture{hub: hub, engine: engine, pusher: pusher, access: access, srv: srv}
}

func (f *hubFixture) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/?user=" + user
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(Envelope{Event: event, Data: raw}))
}

// expectEvent reads until event arrives and returns its data.
func expectEvent(t *testing.T, ws *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var env Envelope
		require.NoError(t, ws.ReadJSON(&env))
		if env.Event == event {
			return env.Data
		}
	}
}

// TestHub_JoinAndDraw tests that a joiner gets the canvas and a pixel reaches the other participant.
func TestHub_JoinAndDraw(t *testing.T) {
	f := newHubFixture(t)
	alice := f.dial(t, "1")
	bob := f.dial(t, "2")

	sendEvent(t, alice, drawing.EventJoinDevice, 7)
	var state drawing.DrawingState
	require.NoError(t, json.Unmarshal(expectEvent(t, alice, drawing.EventDrawingState), &state))
	assert.Len(t, state.Pixels, 64)

	sendEvent(t, bob, drawing.EventJoinDevice, map[string]int{"deviceId": 7})
	expectEvent(t, bob, drawing.EventDrawingState)
	var joined drawing.PresenceEvent
	require.NoError(t, json.Unmarshal(expectEvent(t, alice, drawing.EventUserJoined), &joined))
	assert.Equal(t, "2", joined.UserID)

	sendEvent(t, alice, drawing.EventDrawPixel, map[string]interface{}{"deviceId": 7, "x": 3, "y": 4, "color": "#FF0000", "tool": "draw", "size": 1})
	var px drawing.PixelEvent
	require.NoError(t, json.Unmarshal(expectEvent(t, bob, drawing.EventDrawPixel), &px))
	assert.Equal(t, drawing.PixelEvent{X: 3, Y: 4, Color: "#FF0000", Tool: "draw", Size: 1, UserID: "1"}, px)

	canvas, ok := f.engine.Canvas(7)
	require.True(t, ok)
	assert.Equal(t, "#FF0000", canvas[4][3])
	// One check per user on join; alice's draw uses the cached grant.
	f.access.mu.Lock()
	defer f.access.mu.Unlock()
	assert.Equal(t, 2, f.access.calls)
}

// TestHub_Errors tests that rejected commands become error events on an open connection.
func TestHub_Errors(t *testing.T) {
	f := newHubFixture(t)
	ws := f.dial(t, "1")

	sendEvent(t, ws, drawing.EventDrawPixel, map[string]interface{}{"deviceId": 7, "x": 1, "y": 1, "color": "#FFFFFF"})
	var e drawing.ErrorEvent
	require.NoError(t, json.Unmarshal(expectEvent(t, ws, drawing.EventError), &e))
	assert.Equal(t, "Drawing session not found", e.Message)

	sendEvent(t, ws, drawing.EventJoinDevice, 99)
	require.NoError(t, json.Unmarshal(expectEvent(t, ws, drawing.EventError), &e))
	assert.Equal(t, "Not allowed to draw on this device", e.Message)

	sendEvent(t, ws, "dance", nil)
	require.NoError(t, json.Unmarshal(expectEvent(t, ws, drawing.EventError), &e))
	assert.Contains(t, e.Message, "unknown event")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, json.Unmarshal(expectEvent(t, ws, drawing.EventError), &e))
	assert.Equal(t, "Malformed message", e.Message)

	// Still usable after errors.
	sendEvent(t, ws, drawing.EventJoinDevice, 7)
	expectEvent(t, ws, drawing.EventDrawingState)
}

// TestHub_DisconnectLeaves tests that closing the socket removes the user and closes the session.
func TestHub_DisconnectLeaves(t *testing.T) {
	f := newHubFixture(t)
	ws := f.dial(t, "1")

	sendEvent(t, ws, drawing.EventJoinDevice, 7)
	expectEvent(t, ws, drawing.EventDrawingState)
	assert.Equal(t, 1, f.engine.ActiveSessions())
	assert.Equal(t, 1, f.hub.Len())

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	ws.Close()

	assert.Eventually(t, func() bool { return f.engine.ActiveSessions() == 0 && f.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	f.pusher.AssertCalled(t, "ExitDrawMode", int64(7))
}

// TestHub_CloseAll tests that every client is disconnected.
func TestHub_CloseAll(t *testing.T) {
	f := newHubFixture(t)
	f.dial(t, "1")
	f.dial(t, "2")
	assert.Eventually(t, func() bool { return f.hub.Len() == 2 }, time.Second, 10*time.Millisecond)

	f.hub.CloseAll()
	assert.Eventually(t, func() bool { return f.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func (a *fakeAccess) set(deviceID int64, users ...int64) {
	a.mu.Lock()
	a.allowed[deviceID] = users
	a.mu.Unlock()
}

// TestHub_Authorize_RevokedGrant tests that a revoked draw right stops working
// on the next join and once the cached grant expires.
func TestHub_Authorize_RevokedGrant(t *testing.T) {
	access := &fakeAccess{allowed: map[int64][]int64{7: {1}}}
	hub := NewHub(nil, access, Options{AccessTTL: time.Minute}, zerolog.Nop())
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	hub.now = func() time.Time { return now }
	c := newConn(nil, models.User{ID: 1}, 1)
	ctx := context.Background()

	require.NoError(t, hub.authorize(ctx, c, 7, true))
	require.NoError(t, hub.authorize(ctx, c, 7, false))
	assert.Equal(t, 1, access.calls)

	access.set(7)

	// Within the TTL draws reuse the grant; a join always asks again.
	require.NoError(t, hub.authorize(ctx, c, 7, false))
	assert.ErrorIs(t, hub.authorize(ctx, c, 7, true), errNotAllowed)
	assert.ErrorIs(t, hub.authorize(ctx, c, 7, false), errNotAllowed)
	assert.Equal(t, 3, access.calls)

	// An expired grant is checked again.
	access.set(7, 1)
	require.NoError(t, hub.authorize(ctx, c, 7, true))
	access.set(7)
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, hub.authorize(ctx, c, 7, false), errNotAllowed)
}

// TestParseDeviceID tests both accepted join payload shapes.
func TestParseDeviceID(t *testing.T) {
	id, err := parseDeviceID(json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = parseDeviceID(json.RawMessage(`{"deviceId":9}`))
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	for _, bad := range []string{`"x"`, `0`, `{}`, `-1`, ``} {
		_, err := parseDeviceID(json.RawMessage(bad))
		assert.ErrorIs(t, err, models.ErrValidation, bad)
	}
}

// TestConn_SlowConsumer tests that a full buffer closes the connection.
func TestConn_SlowConsumer(t *testing.T) {
	c := newConn(nil, models.User{ID: 5, Username: "eve"}, 1)
	assert.Equal(t, "5", c.UserID())
	assert.Equal(t, "eve", c.Username())
	assert.NotEmpty(t, c.ConnID())

	require.NoError(t, c.Send("a", 1))
	assert.ErrorIs(t, c.Send("b", 2), ErrSlowConsumer)
	assert.ErrorIs(t, c.Send("c", 3), ErrConnClosed)
}
