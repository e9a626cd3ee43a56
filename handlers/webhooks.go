package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
	"github.com/openclaw/clawboard/services"
)

// WebhookHandler receives push updates from the OpenClaw backend. Both
// endpoints authenticate with the shared secret header.
type WebhookHandler struct {
	store      *database.Store
	reconciler *openclaw.Reconciler
	hub        *services.Hub
	secret     string
}

func NewWebhookHandler(store *database.Store, reconciler *openclaw.Reconciler, hub *services.Hub, secret string) *WebhookHandler {
	return &WebhookHandler{
		store:      store,
		reconciler: reconciler,
		hub:        hub,
		secret:     secret,
	}
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	return h.secret != "" && r.Header.Get("X-OPENCLAW-SECRET") == h.secret
}

var validLogLevels = map[string]bool{
	"info":  true,
	"warn":  true,
	"error": true,
	"debug": true,
}

// JobStatus applies a pushed job-status transition to the linked task.
func (h *WebhookHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		JobID  string          `json:"jobId"`
		Status string          `json:"status"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.JobID == "" || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Validation failed")
		return
	}

	job, err := h.store.GetOpenClawJob(r.Context(), req.JobID)
	if err != nil {
		writeStoreError(w, err, "Failed to load job")
		return
	}

	var result *string
	if len(req.Result) > 0 && string(req.Result) != "null" {
		s := string(req.Result)
		result = &s
	}
	var errMsg *string
	if req.Error != "" {
		errMsg = &req.Error
	}

	if err := h.reconciler.ApplyStatus(r.Context(), job, req.Status, result, errMsg); err != nil {
		writeStoreError(w, err, "Failed to apply job status")
		return
	}

	if workspaceID, err := h.store.WorkspaceForJob(r.Context(), req.JobID); err == nil {
		boardID, _ := h.store.BoardForTask(r.Context(), job.TaskID)
		h.hub.Broadcast(workspaceID, services.WebSocketMessage{
			Type:    "task.updated",
			BoardID: boardID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// Log stores a streamed job log line in the command log.
func (h *WebhookHandler) Log(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		JobID     string `json:"jobId"`
		Level     string `json:"level"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.JobID == "" || req.Message == "" || !validLogLevels[req.Level] {
		writeError(w, http.StatusBadRequest, "Validation failed")
		return
	}

	workspaceID, err := h.store.WorkspaceForJob(r.Context(), req.JobID)
	if err != nil {
		writeStoreError(w, err, "Failed to resolve job")
		return
	}

	input, err := json.Marshal(map[string]string{
		"jobId":     req.JobID,
		"timestamp": req.Timestamp,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to process log webhook")
		return
	}

	status := "success"
	if req.Level == "error" {
		status = "error"
	}

	inputStr := string(input)
	entry := database.CommandLog{
		WorkspaceID: workspaceID,
		Command:     "webhook.log." + req.Level,
		Input:       &inputStr,
		Output:      &req.Message,
		Status:      status,
	}
	if err := h.store.AppendCommandLog(r.Context(), entry); err != nil {
		writeStoreError(w, err, "Failed to store log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
