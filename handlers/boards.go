package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/services"
)

// resolveWorkspace maps the authenticated user onto their workspace.
func resolveWorkspace(r *http.Request, store *database.Store) (*database.Workspace, bool) {
	id, ok := userID(r)
	if !ok {
		return nil, false
	}
	ws, err := store.GetWorkspaceForUser(r.Context(), id)
	if err != nil {
		return nil, false
	}
	return ws, true
}

// BoardHandler handles board and column endpoints
type BoardHandler struct {
	store *database.Store
	hub   *services.Hub
}

func NewBoardHandler(store *database.Store, hub *services.Hub) *BoardHandler {
	return &BoardHandler{
		store: store,
		hub:   hub,
	}
}

func (h *BoardHandler) notifyBoard(workspaceID, boardID, event string) {
	h.hub.Broadcast(workspaceID, services.WebSocketMessage{
		Type:    event,
		BoardID: boardID,
	})
}

// ListBoards returns every board in the user's workspace with column
// summaries.
func (h *BoardHandler) ListBoards(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	boards, err := h.store.GetBoards(r.Context(), ws.ID)
	if err != nil {
		writeStoreError(w, err, "Failed to load boards")
		return
	}

	writeJSON(w, http.StatusOK, boards)
}

// CreateBoard creates a board with the default column set.
func (h *BoardHandler) CreateBoard(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	board, err := h.store.CreateBoard(r.Context(), ws.ID, req.Title)
	if err != nil {
		writeStoreError(w, err, "Failed to create board")
		return
	}

	h.notifyBoard(ws.ID, board.ID, "board.created")
	writeJSON(w, http.StatusCreated, board)
}

// GetBoard returns one board with its columns and tasks.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	board, err := h.store.GetBoard(r.Context(), ws.ID, boardID)
	if err != nil {
		writeStoreError(w, err, "Failed to load board")
		return
	}

	writeJSON(w, http.StatusOK, board)
}

// UpdateBoard renames a board.
func (h *BoardHandler) UpdateBoard(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	board, err := h.store.UpdateBoardTitle(r.Context(), ws.ID, boardID, req.Title)
	if err != nil {
		writeStoreError(w, err, "Failed to update board")
		return
	}

	h.notifyBoard(ws.ID, board.ID, "board.updated")
	writeJSON(w, http.StatusOK, board)
}

// DeleteBoard removes a board and everything on it.
func (h *BoardHandler) DeleteBoard(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	if err := h.store.DeleteBoard(r.Context(), ws.ID, boardID); err != nil {
		writeStoreError(w, err, "Failed to delete board")
		return
	}

	h.notifyBoard(ws.ID, boardID, "board.deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ListColumns returns a board's columns with their ordered tasks.
func (h *BoardHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	// Scope check before listing.
	if _, err := h.store.GetBoard(r.Context(), ws.ID, boardID); err != nil {
		writeStoreError(w, err, "Failed to load board")
		return
	}

	columns, err := h.store.GetColumns(r.Context(), boardID)
	if err != nil {
		writeStoreError(w, err, "Failed to load columns")
		return
	}

	writeJSON(w, http.StatusOK, columns)
}

// CreateColumn appends a column to a board.
func (h *BoardHandler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	column, err := h.store.CreateColumn(r.Context(), ws.ID, boardID, req.Title)
	if err != nil {
		writeStoreError(w, err, "Failed to create column")
		return
	}

	h.notifyBoard(ws.ID, boardID, "column.created")
	writeJSON(w, http.StatusCreated, column)
}

// ReorderColumns rewrites a board's column order from a full ID list.
func (h *BoardHandler) ReorderColumns(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ColumnIDs []string `json:"columnIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(req.ColumnIDs) == 0 {
		writeError(w, http.StatusBadRequest, "columnIds is required")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	if err := h.store.ReorderColumns(r.Context(), ws.ID, boardID, req.ColumnIDs); err != nil {
		writeStoreError(w, err, "Failed to reorder columns")
		return
	}

	h.notifyBoard(ws.ID, boardID, "column.reordered")
	writeJSON(w, http.StatusOK, map[string]bool{"reordered": true})
}

// UpdateColumn renames a column.
func (h *BoardHandler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	columnID := mux.Vars(r)["columnId"]
	column, err := h.store.UpdateColumnTitle(r.Context(), ws.ID, columnID, req.Title)
	if err != nil {
		writeStoreError(w, err, "Failed to update column")
		return
	}

	h.notifyBoard(ws.ID, column.BoardID, "column.updated")
	writeJSON(w, http.StatusOK, column)
}

// DeleteColumn removes a column and compacts its siblings.
func (h *BoardHandler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	boardID := mux.Vars(r)["boardId"]
	columnID := mux.Vars(r)["columnId"]
	if err := h.store.DeleteColumn(r.Context(), ws.ID, columnID); err != nil {
		writeStoreError(w, err, "Failed to delete column")
		return
	}

	h.notifyBoard(ws.ID, boardID, "column.deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
