package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/openclaw/clawboard/database"
)

// DiagnosticsHandler reports server health for troubleshooting wiring
// problems
type DiagnosticsHandler struct {
	store *database.Store
}

func NewDiagnosticsHandler(store *database.Store) *DiagnosticsHandler {
	return &DiagnosticsHandler{store: store}
}

var diagnosticEnvVars = []string{
	"DATABASE_PATH",
	"JWT_SECRET",
	"ENCRYPTION_KEY",
	"OPENCLAW_WEBHOOK_SECRET",
}

var apiRoutes = []map[string]any{
	{"path": "/api/auth/register", "methods": []string{"POST"}},
	{"path": "/api/auth/login", "methods": []string{"POST"}},
	{"path": "/api/auth/verify", "methods": []string{"GET"}},
	{"path": "/api/boards", "methods": []string{"GET", "POST"}},
	{"path": "/api/boards/{boardId}", "methods": []string{"GET", "PUT", "DELETE"}},
	{"path": "/api/boards/{boardId}/columns", "methods": []string{"GET", "POST", "PUT"}},
	{"path": "/api/boards/{boardId}/columns/{columnId}", "methods": []string{"PUT", "DELETE"}},
	{"path": "/api/boards/{boardId}/columns/{columnId}/tasks", "methods": []string{"POST"}},
	{"path": "/api/tasks/{taskId}", "methods": []string{"GET", "PUT", "DELETE"}},
	{"path": "/api/tasks/{taskId}/move", "methods": []string{"PUT"}},
	{"path": "/api/tasks/{taskId}/activity", "methods": []string{"GET"}},
	{"path": "/api/tasks/{taskId}/job/cancel", "methods": []string{"POST"}},
	{"path": "/api/command-center/execute", "methods": []string{"POST"}},
	{"path": "/api/command-center/history", "methods": []string{"GET"}},
	{"path": "/api/openclaw/config", "methods": []string{"GET", "PUT"}},
	{"path": "/api/openclaw/health", "methods": []string{"GET"}},
	{"path": "/api/openclaw/contract", "methods": []string{"GET"}},
	{"path": "/api/openclaw/dispatch", "methods": []string{"POST"}},
	{"path": "/api/openclaw/webhook/job-status", "methods": []string{"POST"}},
	{"path": "/api/openclaw/webhook/log", "methods": []string{"POST"}},
	{"path": "/api/openclaw/wiring-pack", "methods": []string{"GET"}},
	{"path": "/api/diagnostics", "methods": []string{"GET"}},
	{"path": "/api/ws", "methods": []string{"GET"}},
}

// Get reports database connectivity, env presence, integration config
// summary, and the route list.
func (h *DiagnosticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := resolveWorkspace(r, h.store)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	dbConnected := true
	var dbError string
	if err := h.store.DB().PingContext(r.Context()); err != nil {
		dbConnected = false
		dbError = err.Error()
	}

	envStatus := make([]map[string]any, 0, len(diagnosticEnvVars))
	for _, name := range diagnosticEnvVars {
		envStatus = append(envStatus, map[string]any{
			"name": name,
			"set":  os.Getenv(name) != "",
		})
	}

	var openclawConfig map[string]any
	if cfg, err := h.store.GetOpenClawConfig(r.Context(), ws.ID); err == nil {
		openclawConfig = map[string]any{
			"mode":          cfg.Mode,
			"hasBaseUrl":    cfg.BaseURL != "",
			"hasToken":      cfg.TokenEncrypted != "",
			"lastStatus":    cfg.LastStatus,
			"lastLatencyMs": cfg.LastLatencyMs,
			"healthPath":    cfg.HealthPath,
		}
	}

	var dbStats map[string]any
	if dbConnected {
		boards, _ := h.store.GetBoards(r.Context(), ws.ID)
		logs, _ := h.store.GetCommandLogs(r.Context(), ws.ID, maxHistoryLimit)
		dbStats = map[string]any{
			"boards":      len(boards),
			"commandLogs": len(logs),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"database": map[string]any{
			"connected": dbConnected,
			"error":     dbError,
		},
		"env":            envStatus,
		"openclawConfig": openclawConfig,
		"routes":         apiRoutes,
		"stats":          dbStats,
	})
}
