package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/services"
)

// WebSocketHandler upgrades board re-sync connections
type WebSocketHandler struct {
	store       *database.Store
	authService *services.AuthService
	hub         *services.Hub
}

func NewWebSocketHandler(store *database.Store, authService *services.AuthService, hub *services.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		store:       store,
		authService: authService,
		hub:         hub,
	}
}

// Handle upgrades the HTTP connection to a WebSocket connection. Browsers
// cannot set headers on WebSocket requests, so the token rides in a query
// parameter instead of the Authorization header.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	uid, err := h.authService.VerifyJWT(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ws, err := h.store.GetWorkspaceForUser(r.Context(), uid)
	if err != nil {
		writeStoreError(w, err, "Failed to resolve workspace")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in development
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading to WebSocket: %v", err)
		return
	}

	client := &services.Client{
		Hub:         h.hub,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		WorkspaceID: ws.ID,
	}

	h.hub.Register(client)
	log.Printf("WebSocket client registered for workspace %s", ws.ID)

	go client.WritePump()
	go client.ReadPump()
}
