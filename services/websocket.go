package services

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only ever send pings
	maxMessageSize = 4096
)

// Message types on the change feed.
const (
	MessageState = "state"
	MessagePing  = "ping"
	MessagePong  = "pong"
)

// Client is one subscriber of the change feed.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	ID   string
}

// WebSocketMessage is the envelope of every change feed message.
type WebSocketMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ReadPump drains the connection. Apart from ping, client messages are ignored:
// the feed flows from the store to the browser only.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).WithField("client", c.ID).Warn("websocket read failed")
			}
			break
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.WithError(err).WithField("client", c.ID).Debug("ignoring malformed websocket message")
			continue
		}
		if msg.Type != MessagePing {
			continue
		}

		pong, err := json.Marshal(WebSocketMessage{
			Type: MessagePong,
			Data: map[string]string{"timestamp": time.Now().Format(time.RFC3339)},
		})
		if err != nil {
			continue
		}
		c.Hub.sendTo(c, pong)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message; clients parse each frame as a single JSON document.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type directMessage struct {
	client  *Client
	message []byte
}

// Hub fans store changes out to every connected client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	direct     chan directMessage
	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	// broadcast is unbuffered so Publish returns only once the state has
	// been handed to every registered client.
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		direct:     make(chan directMessage, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast sends msg to every client.
func (h *Hub) Broadcast(msg WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Error("failed to marshal websocket message")
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// Publish implements Publisher by broadcasting the state.
func (h *Hub) Publish(msg WebSocketMessage) {
	h.Broadcast(msg)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	reply := make(chan int)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) sendTo(c *Client, message []byte) {
	select {
	case h.direct <- directMessage{client: c, message: message}:
	case <-h.done:
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			log.WithField("client", client.ID).Debug("change feed client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.WithField("client", client.ID).Debug("change feed client disconnected")
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case dm := <-h.direct:
			if _, ok := h.clients[dm.client]; ok {
				h.deliver(dm.client, dm.message)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				h.deliver(client, message)
			}
		}
	}
}

func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		// Client's send buffer is full, assume disconnected
		log.WithField("client", client.ID).Warn("client send buffer full, removing client")
		close(client.Send)
		delete(h.clients, client)
	}
}
