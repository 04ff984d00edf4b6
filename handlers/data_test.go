package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban-board/kanban"
	"github.com/CrowderSoup/kanban-board/services"
)

type memoryStore struct {
	mu      sync.Mutex
	state   kanban.State
	version int64
}

func (m *memoryStore) Load(context.Context, string) (kanban.State, int64, error) {
	return kanban.NewState(), 0, nil
}

func (m *memoryStore) Save(_ context.Context, _ string, s kanban.State, version int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.version = version + 1
	return m.version, nil
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	handler http.Handler
	boards  *services.BoardService
	hub     *services.Hub
	static  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>board</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log(1)"), 0o644))

	hub := services.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	boards, err := services.NewBoardService(context.Background(), &memoryStore{}, "task-board-storage", hub)
	require.NoError(t, err)

	h := NewRouter(
		RouterConfig{StaticDir: static, AllowedOrigins: []string{"http://localhost:5173"}},
		NewDataHandler(boards),
		NewFeedHandler(boards, hub),
	)
	return &testServer{handler: h, boards: boards, hub: hub, static: static}
}

func (s *testServer) do(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestBoardEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, env := s.do(t, "POST", "/api/boards", map[string]string{"name": "Sprint 1", "description": "two weeks"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", env.Status)
	board := decodeData[kanban.Board](t, env)
	assert.Equal(t, "Sprint 1", board.Name)
	assert.NotEmpty(t, board.ID)

	rec, env = s.do(t, "POST", "/api/boards", map[string]string{"name": "Sprint 1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "error", env.Status)

	rec, _ = s.do(t, "POST", "/api/boards", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, "GET", "/api/boards", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]kanban.Board](t, env), 1)

	rec, _ = s.do(t, "GET", "/api/boards/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCardLifecycle(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, "POST", "/api/boards", map[string]string{"name": "Sprint 1"})
	board := decodeData[kanban.Board](t, env)

	_, env = s.do(t, "POST", "/api/boards/"+board.ID+"/columns", map[string]string{"title": "Todo"})
	todo := decodeData[kanban.Column](t, env)
	_, env = s.do(t, "POST", "/api/boards/"+board.ID+"/columns", map[string]string{"title": "Done"})
	done := decodeData[kanban.Column](t, env)

	rec, env := s.do(t, "POST", "/api/columns/"+todo.ID+"/cards", map[string]string{
		"title":    "Write spec",
		"priority": "HIGH",
		"dueDate":  "2024-06-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeData[kanban.Card](t, env)
	assert.Equal(t, kanban.PriorityHigh, first.Priority)
	assert.Equal(t, todo.ID, first.ColumnID)

	_, env = s.do(t, "POST", "/api/columns/"+todo.ID+"/cards", map[string]string{"title": "Review"})
	second := decodeData[kanban.Card](t, env)
	assert.Equal(t, kanban.PriorityMedium, second.Priority)

	rec, env = s.do(t, "POST", "/api/columns/"+todo.ID+"/cards/"+second.ID+"/reorder", map[string]int{"newIndex": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{second.ID, first.ID}, decodeData[[]string](t, env))

	rec, env = s.do(t, "PATCH", "/api/cards/"+first.ID, map[string]string{"assignedTo": "sam"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sam", decodeData[kanban.Card](t, env).AssignedTo)

	rec, env = s.do(t, "POST", "/api/cards/"+first.ID+"/move", map[string]any{
		"sourceColumnId":      todo.ID,
		"destinationColumnId": done.ID,
		"destinationIndex":    5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, done.ID, decodeData[kanban.Card](t, env).ColumnID)

	rec, _ = s.do(t, "POST", "/api/drop", map[string]any{
		"draggableId": second.ID,
		"source":      map[string]any{"droppableId": todo.ID, "index": 0},
		"destination": map[string]any{"droppableId": done.ID, "index": 0},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, "GET", "/api/boards/"+board.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	details := decodeData[struct {
		Columns []kanban.Column `json:"columns"`
		Cards   []kanban.Card   `json:"cards"`
	}](t, env)
	assert.Len(t, details.Columns, 2)
	assert.Len(t, details.Cards, 2)
	assert.Equal(t, []string{second.ID, first.ID}, s.boards.State().CardOrders[done.ID])

	rec, _ = s.do(t, "DELETE", "/api/columns/"+done.ID+"/cards/"+second.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = s.do(t, "DELETE", "/api/boards/"+board.ID+"/columns/"+done.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.boards.State().Cards)
	assert.Empty(t, kanban.Validate(s.boards.State()))

	rec, _ = s.do(t, "DELETE", "/api/boards/"+board.ID+"/columns/"+done.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDropWithoutDestination(t *testing.T) {
	s := newTestServer(t)
	_, env := s.do(t, "POST", "/api/boards", map[string]string{"name": "b"})
	board := decodeData[kanban.Board](t, env)
	_, env = s.do(t, "POST", "/api/boards/"+board.ID+"/columns", map[string]string{"title": "Todo"})
	col := decodeData[kanban.Column](t, env)
	_, env = s.do(t, "POST", "/api/columns/"+col.ID+"/cards", map[string]string{"title": "x"})
	card := decodeData[kanban.Card](t, env)
	before := s.boards.State()

	rec, _ := s.do(t, "POST", "/api/drop", map[string]any{
		"draggableId": card.ID,
		"source":      map[string]any{"droppableId": col.ID, "index": 0},
		"destination": nil,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, before, s.boards.State())

	rec, env = s.do(t, "POST", "/api/drop", map[string]any{
		"draggableId": card.ID,
		"source":      map[string]any{"droppableId": col.ID, "index": 0},
		"destination": map[string]any{"droppableId": "gone", "index": 0},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "error", env.Status)
}

func TestRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	_, env := s.do(t, "POST", "/api/boards", map[string]string{"name": "b"})
	board := decodeData[kanban.Board](t, env)
	_, env = s.do(t, "POST", "/api/boards/"+board.ID+"/columns", map[string]string{"title": "Todo"})
	col := decodeData[kanban.Column](t, env)
	_, env = s.do(t, "POST", "/api/columns/"+col.ID+"/cards", map[string]string{"title": "x"})
	card := decodeData[kanban.Card](t, env)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"malformed json", "POST", "/api/boards", "{", http.StatusBadRequest},
		{"empty body", "POST", "/api/boards", nil, http.StatusBadRequest},
		{"unknown field", "POST", "/api/boards", map[string]string{"name": "c", "owner": "me"}, http.StatusBadRequest},
		{"invalid priority", "POST", "/api/columns/" + col.ID + "/cards", map[string]string{"title": "y", "priority": "urgent"}, http.StatusBadRequest},
		{"invalid due date", "POST", "/api/columns/" + col.ID + "/cards", map[string]string{"title": "y", "dueDate": "06/01/2024"}, http.StatusBadRequest},
		{"blank card title", "POST", "/api/columns/" + col.ID + "/cards", map[string]string{"title": " "}, http.StatusBadRequest},
		{"missing column", "POST", "/api/columns/nope/cards", map[string]string{"title": "y"}, http.StatusNotFound},
		{"edit priority", "PATCH", "/api/cards/" + card.ID, map[string]string{"priority": "urgent"}, http.StatusBadRequest},
		{"edit column id", "PATCH", "/api/cards/" + card.ID, map[string]string{"columnId": "elsewhere"}, http.StatusBadRequest},
		{"edit missing card", "PATCH", "/api/cards/nope", map[string]string{"title": "z"}, http.StatusNotFound},
		{"move to missing column", "POST", "/api/cards/" + card.ID + "/move", map[string]any{"sourceColumnId": col.ID, "destinationColumnId": "nope"}, http.StatusNotFound},
		{"rename missing column", "PATCH", "/api/columns/nope", map[string]string{"title": "z"}, http.StatusNotFound},
		{"unknown endpoint", "GET", "/api/nothing", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", env.Status)
			assert.NotEmpty(t, env.Message)
		})
	}

	assert.Len(t, s.boards.State().Cards, 1)
	assert.Equal(t, card, s.boards.State().Cards[card.ID])
}

func TestStateEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "POST", "/api/boards", map[string]string{"name": "b"})

	rec, env := s.do(t, "GET", "/api/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeData[kanban.State](t, env)
	assert.Len(t, state.Boards, 1)
	assert.Len(t, state.BoardOrder, 1)
}

func TestPageRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/boards", "/board/123"} {
		rec, _ := s.do(t, "GET", target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "board", target)
	}

	rec, _ := s.do(t, "GET", "/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	for _, target := range []string{"/", "/somewhere/else", "/board"} {
		rec, _ := s.do(t, "GET", target, nil)
		assert.Equal(t, http.StatusFound, rec.Code, target)
		assert.Equal(t, "/boards", rec.Header().Get("Location"), target)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("OPTIONS", "/api/boards", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketFeed(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() services.WebSocketMessage {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg struct {
			Type string       `json:"type"`
			Data kanban.State `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		return services.WebSocketMessage{Type: msg.Type, Data: msg.Data}
	}

	initial := read()
	assert.Equal(t, services.MessageState, initial.Type)
	assert.Empty(t, initial.Data.(kanban.State).Boards)

	require.Eventually(t, func() bool { return s.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.do(t, "POST", "/api/boards", map[string]string{"name": "b"})

	update := read()
	assert.Equal(t, services.MessageState, update.Type)
	assert.Len(t, update.Data.(kanban.State).Boards, 1)
}

func TestWebSocketFeedMutationRightAfterConnect(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.handler)
	defer srv.Close()

	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
		require.NoError(t, err)

		rec, _ := s.do(t, "POST", "/api/boards", map[string]string{"name": fmt.Sprintf("board %d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)

		// the feed either starts after the write or delivers it next
		var seen int
		for seen < i+1 {
			require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
			var msg struct {
				Type string       `json:"type"`
				Data kanban.State `json:"data"`
			}
			require.NoError(t, conn.ReadJSON(&msg), "connection %d never saw board %d", i, i)
			require.Equal(t, services.MessageState, msg.Type)
			seen = len(msg.Data.Boards)
		}
		assert.Equal(t, i+1, seen)
		require.NoError(t, conn.Close())
	}
}
