// Package testhelpers provides common utilities and helper functions for
// testing the chat hub over real WebSocket connections.
//
// It provides functions for dialing test servers, sending protocol
// envelopes, and waiting for specific events to reduce code duplication in
// test files.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds every blocking read performed by these helpers.
const DefaultTimeout = 2 * time.Second

// Frame is a decoded envelope with its raw data kept for typed decoding.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the frame's data into v.
func (f Frame) Decode(t testing.TB, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Data, v))
}

// WebSocketURL converts an httptest server URL into its /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket dials url presenting origin as the Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url or fails the test. The connection is closed on cleanup.
func MustConnect(t testing.TB, url, origin string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, origin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent writes an envelope with the given event name and data.
func SendEvent(t testing.TB, conn *websocket.Conn, event string, data any) {
	t.Helper()
	env := map[string]any{"event": event}
	if data != nil {
		env["data"] = data
	}
	require.NoError(t, conn.WriteJSON(env))
}

// SendChat sends a chat message envelope.
func SendChat(t testing.TB, conn *websocket.Conn, message, username string) {
	t.Helper()
	SendEvent(t, conn, "message", map[string]string{"message": message, "username": username})
}

// ReadFrame reads the next frame or fails after timeout.
func ReadFrame(t testing.TB, conn *websocket.Conn, timeout time.Duration) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	var f Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// ExpectEvent skips frames until one named event arrives and returns it.
func ExpectEvent(t testing.TB, conn *websocket.Conn, event string) Frame {
	t.Helper()
	deadline := time.Now().Add(DefaultTimeout)
	for time.Now().Before(deadline) {
		f := ReadFrame(t, conn, time.Until(deadline))
		if f.Event == event {
			return f
		}
	}
	require.FailNow(t, "timed out waiting for event", event)
	return Frame{}
}

// ExpectNoFrame asserts that nothing arrives within wait.
func ExpectNoFrame(t testing.TB, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
