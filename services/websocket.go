package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Client represents a connected WebSocket client
type Client struct {
	Hub         *Hub
	Conn        *websocket.Conn
	Send        chan []byte
	WorkspaceID string
}

// WebSocketMessage is the standard message format for board update pushes.
// The server is authoritative: clients receive change notifications and
// re-fetch, they never push state over the socket.
type WebSocketMessage struct {
	Type    string `json:"type"`
	BoardID string `json:"boardId,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ReadPump drains the WebSocket connection. Client frames are ignored apart
// from keeping the read deadline alive.
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
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
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

type broadcastEnvelope struct {
	workspaceID string
	payload     []byte
}

// Hub maintains the set of active clients and pushes board change events to
// every client watching the affected workspace.
type Hub struct {
	Clients    map[*Client]bool
	broadcast  chan broadcastEnvelope
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a new hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan broadcastEnvelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Clients:    make(map[*Client]bool),
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast sends a message to every client in the given workspace.
func (h *Hub) Broadcast(workspaceID string, message WebSocketMessage) {
	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshalling WebSocket message: %v", err)
		return
	}

	h.broadcast <- broadcastEnvelope{workspaceID: workspaceID, payload: payload}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.Clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
			}
		case envelope := <-h.broadcast:
			for client := range h.Clients {
				if client.WorkspaceID != envelope.workspaceID {
					continue
				}

				select {
				case client.Send <- envelope.payload:
					// Message sent successfully
				default:
					// Client's send buffer is full, assume disconnected
					close(client.Send)
					delete(h.Clients, client)
				}
			}
		}
	}
}
