package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
	"github.com/openclaw/clawboard/services"
)

const maxHistoryLimit = 200

// CommandHandler handles Command Center endpoints
type CommandHandler struct {
	store      *database.Store
	dispatcher *openclaw.Dispatcher
	hub        *services.Hub
}

func NewCommandHandler(store *database.Store, dispatcher *openclaw.Dispatcher, hub *services.Hub) *CommandHandler {
	return &CommandHandler{
		store:      store,
		dispatcher: dispatcher,
		hub:        hub,
	}
}

// Execute dispatches one Command Center command for the user's workspace.
func (h *CommandHandler) Execute(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Command string         `json:"command"`
		Params  map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	result, err := h.dispatcher.Execute(r.Context(), ws.ID, req.Command, req.Params)
	if err != nil {
		writeStoreError(w, err, "Failed to execute command")
		return
	}

	// task.sync can move tasks; let connected boards re-fetch.
	if req.Command == openclaw.CmdTaskSync {
		h.hub.Broadcast(ws.ID, services.WebSocketMessage{Type: "tasks.synced"})
	}

	writeJSON(w, http.StatusOK, result)
}

// History returns the workspace's command log, newest first.
func (h *CommandHandler) History(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	logs, err := h.store.GetCommandLogs(r.Context(), ws.ID, limit)
	if err != nil {
		writeStoreError(w, err, "Failed to load command history")
		return
	}

	writeJSON(w, http.StatusOK, logs)
}
