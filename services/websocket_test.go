package services

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
)

func startHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 8), ID: r.URL.Query().Get("id")}
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcastsToAllClients(t *testing.T) {
	hub, url := startHubServer(t)
	a := dial(t, url+"?id=a")
	b := dial(t, url+"?id=b")
	waitForClients(t, hub, 2)

	hub.Publish(WebSocketMessage{Type: MessageState, Data: map[string]int{"boards": 1}})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageState, msg.Type)
		assert.Equal(t, map[string]any{"boards": float64(1)}, msg.Data)
	}
}

func TestHubPingGetsPong(t *testing.T) {
	hub, url := startHubServer(t)
	conn := dial(t, url+"?id=a")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: MessagePing}))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)
}

func TestHubIgnoresClientState(t *testing.T) {
	hub, url := startHubServer(t)
	a := dial(t, url+"?id=a")
	b := dial(t, url+"?id=b")
	waitForClients(t, hub, 2)

	// a client cannot push state to the others
	require.NoError(t, a.WriteJSON(WebSocketMessage{Type: MessageState, Data: "forged"}))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, a.WriteJSON(WebSocketMessage{Type: MessagePing}))
	assert.Equal(t, MessagePong, readMessage(t, a).Type)

	require.NoError(t, b.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := b.ReadMessage()
	assert.Error(t, err)
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url := startHubServer(t)
	conn := dial(t, url+"?id=a")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestHubPublishDeliversBeforeReturning(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	client := &Client{Hub: hub, Send: make(chan []byte, 4), ID: "a"}
	hub.Register(client)

	for i := 1; i <= 3; i++ {
		hub.Publish(WebSocketMessage{Type: MessageState, Data: i})
		require.Len(t, client.Send, i)
	}
	var got []int
	for len(client.Send) > 0 {
		var msg struct {
			Data int `json:"data"`
		}
		require.NoError(t, json.Unmarshal(<-client.Send, &msg))
		got = append(got, msg.Data)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}
