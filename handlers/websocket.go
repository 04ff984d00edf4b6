package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/CrowderSoup/kanban-board/kanban"
	"github.com/CrowderSoup/kanban-board/services"
)

// FeedHandler streams board state changes to websocket subscribers.
type FeedHandler struct {
	boards   *services.BoardService
	hub      *services.Hub
	upgrader websocket.Upgrader
}

func NewFeedHandler(boards *services.BoardService, hub *services.Hub) *FeedHandler {
	return &FeedHandler{
		boards: boards,
		hub:    hub,
		upgrader: websocket.Upgrader{
			// Origin is enforced by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWebSocket upgrades the connection and subscribes it to the feed.
// The current state is sent first so the subscriber starts in sync.
func (h *FeedHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("error upgrading to websocket")
		return
	}

	client := &services.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		ID:   uuid.NewString(),
	}

	// Registering under the service lock means every later change reaches
	// this client, and arrives after the initial state.
	var encodeErr error
	h.boards.WithState(func(state kanban.State) {
		initial, err := json.Marshal(services.WebSocketMessage{Type: services.MessageState, Data: state})
		if err != nil {
			encodeErr = err
			return
		}
		client.Send <- initial
		h.hub.Register(client)
	})
	if encodeErr != nil {
		log.WithError(encodeErr).Error("failed to encode initial state")
		_ = conn.Close()
		return
	}

	log.WithField("client", client.ID).Info("websocket client registered")

	go client.WritePump()
	go client.ReadPump()
}
