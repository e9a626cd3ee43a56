package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
	"github.com/openclaw/clawboard/services"
	"github.com/openclaw/clawboard/wiring"
)

// OpenClawHandler handles integration config, health, contract, dispatch,
// and wiring pack endpoints
type OpenClawHandler struct {
	store         *database.Store
	client        openclaw.Client
	cipher        *services.TokenCipher
	webhookSecret string
}

func NewOpenClawHandler(store *database.Store, client openclaw.Client, cipher *services.TokenCipher, webhookSecret string) *OpenClawHandler {
	return &OpenClawHandler{
		store:         store,
		client:        client,
		cipher:        cipher,
		webhookSecret: webhookSecret,
	}
}

// configView is the client-facing shape: the token itself never leaves the
// server, only whether one is stored.
type configView struct {
	ID            string     `json:"id,omitempty"`
	WorkspaceID   string     `json:"workspaceId,omitempty"`
	BaseURL       string     `json:"baseUrl"`
	Mode          string     `json:"mode"`
	HealthPath    string     `json:"healthPath"`
	HasToken      bool       `json:"hasToken"`
	LastStatus    *string    `json:"lastStatus"`
	LastLatencyMs *int       `json:"lastLatencyMs"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

func viewOf(cfg *database.OpenClawConfig) configView {
	updatedAt := cfg.UpdatedAt
	return configView{
		ID:            cfg.ID,
		WorkspaceID:   cfg.WorkspaceID,
		BaseURL:       cfg.BaseURL,
		Mode:          cfg.Mode,
		HealthPath:    cfg.HealthPath,
		HasToken:      cfg.TokenEncrypted != "",
		LastStatus:    cfg.LastStatus,
		LastLatencyMs: cfg.LastLatencyMs,
		UpdatedAt:     &updatedAt,
	}
}

// GetConfig returns the workspace's integration settings.
func (h *OpenClawHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cfg, err := h.store.GetOpenClawConfig(r.Context(), ws.ID)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusOK, configView{
			Mode:       openclaw.ModeMock,
			HealthPath: "/health",
		})
		return
	}
	if err != nil {
		writeStoreError(w, err, "Failed to load config")
		return
	}

	writeJSON(w, http.StatusOK, viewOf(cfg))
}

// UpdateConfig upserts the workspace's integration settings and probes the
// backend with them. An empty token keeps the stored one.
func (h *OpenClawHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		BaseURL    string `json:"baseUrl"`
		Token      string `json:"token"`
		Mode       string `json:"mode"`
		HealthPath string `json:"healthPath"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if req.Mode != openclaw.ModeMock && req.Mode != openclaw.ModeReal {
		writeError(w, http.StatusBadRequest, "Invalid mode")
		return
	}
	if req.Mode == openclaw.ModeReal && strings.TrimSpace(req.BaseURL) == "" {
		writeError(w, http.StatusBadRequest, "baseUrl is required in real mode")
		return
	}
	if req.HealthPath == "" {
		req.HealthPath = "/health"
	}

	tokenEncrypted := ""
	if req.Token != "" {
		encrypted, err := h.cipher.Encrypt(req.Token)
		if err != nil {
			log.Printf("Error encrypting token: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to store token")
			return
		}
		tokenEncrypted = encrypted
	}

	cfg, err := h.store.UpsertOpenClawConfig(r.Context(), ws.ID, req.Mode, strings.TrimSpace(req.BaseURL), req.HealthPath, tokenEncrypted)
	if err != nil {
		writeStoreError(w, err, "Failed to update config")
		return
	}

	status, err := h.client.Status(r.Context(), ws.ID)
	if err != nil {
		status = &openclaw.Status{Status: openclaw.StatusMisconfigured, Mode: cfg.Mode, Error: err.Error()}
	}

	// Re-read so lastStatus reflects the probe just recorded.
	if fresh, err := h.store.GetOpenClawConfig(r.Context(), ws.ID); err == nil {
		cfg = fresh
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"config": viewOf(cfg),
		"status": status,
	})
}

// Health probes the backend and returns the connection status badge.
func (h *OpenClawHandler) Health(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := h.client.Status(r.Context(), ws.ID)
	if err != nil {
		writeStoreError(w, err, "Failed to check health")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Contract serves the full command registry.
func (h *OpenClawHandler) Contract(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commands": openclaw.Registry,
	})
}

// WiringPack streams the wiring pack ZIP.
func (h *OpenClawHandler) WiringPack(w http.ResponseWriter, r *http.Request) {
	archive, err := wiring.Zip()
	if err != nil {
		log.Printf("Error generating wiring pack: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate wiring pack")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+wiring.ArchiveName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(archive); err != nil {
		log.Printf("Error writing wiring pack: %v", err)
	}
}

// Dispatch receives inbound actions from an OpenClaw agent, authenticated by
// the shared webhook secret, and acknowledges them into the command log.
func (h *OpenClawHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" || r.Header.Get("X-OPENCLAW-SECRET") != h.webhookSecret {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Action  string          `json:"action"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "Action is required")
		return
	}

	// Dispatch authenticates with the shared secret, not a session, so the
	// log entry attaches to the first workspace.
	if ws, err := h.store.GetAnyWorkspace(r.Context()); err == nil {
		var input *string
		if len(req.Payload) > 0 {
			s := string(req.Payload)
			input = &s
		}
		output := `{"acknowledged":true}`
		entry := database.CommandLog{
			WorkspaceID: ws.ID,
			Command:     "dispatch." + req.Action,
			Input:       input,
			Output:      &output,
			Status:      "success",
		}
		if err := h.store.AppendCommandLog(r.Context(), entry); err != nil {
			log.Printf("Error logging dispatch: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"acknowledged": true,
		"action":       req.Action,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
