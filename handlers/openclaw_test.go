package handlers

import (
	"archive/zip"
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawboard/openclaw"
)

func TestGetConfigDefaults(t *testing.T) {
	app := newTestApp(t)

	rec := app.authed(t, "GET", "/api/openclaw/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cfg := decodeJSON[configView](t, rec)
	assert.Equal(t, openclaw.ModeMock, cfg.Mode)
	assert.Equal(t, "/health", cfg.HealthPath)
	assert.False(t, cfg.HasToken)
}

func TestUpdateConfig(t *testing.T) {
	app := newTestApp(t)

	rec := app.authed(t, "PUT", "/api/openclaw/config", map[string]any{
		"mode":    "real",
		"baseUrl": "https://openclaw.internal:9090",
		"token":   "oc_live_abc123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[struct {
		Config configView       `json:"config"`
		Status *openclaw.Status `json:"status"`
	}](t, rec)
	assert.Equal(t, "real", resp.Config.Mode)
	assert.Equal(t, "https://openclaw.internal:9090", resp.Config.BaseURL)
	assert.True(t, resp.Config.HasToken)
	require.NotNil(t, resp.Status)

	t.Run("empty token keeps the stored one", func(t *testing.T) {
		rec := app.authed(t, "PUT", "/api/openclaw/config", map[string]any{
			"mode":    "real",
			"baseUrl": "https://openclaw.internal:9090",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeJSON[struct {
			Config configView `json:"config"`
		}](t, rec)
		assert.True(t, resp.Config.HasToken)
	})

	t.Run("real mode requires baseUrl", func(t *testing.T) {
		rec := app.authed(t, "PUT", "/api/openclaw/config", map[string]any{"mode": "real"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		rec := app.authed(t, "PUT", "/api/openclaw/config", map[string]any{"mode": "hybrid"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.authed(t, "GET", "/api/openclaw/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeJSON[openclaw.Status](t, rec)
	assert.Equal(t, openclaw.StatusConnected, status.Status)
}

func TestContractEndpoint(t *testing.T) {
	app := newTestApp(t)

	// Contract is public: agents fetch it before any session exists.
	rec := app.do(t, "GET", "/api/openclaw/contract", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeJSON[struct {
		Commands []openclaw.CommandDefinition `json:"commands"`
	}](t, rec)
	require.Len(t, resp.Commands, len(openclaw.Registry))

	names := map[string]bool{}
	for _, def := range resp.Commands {
		names[def.Name] = true
	}
	assert.True(t, names[openclaw.CmdHealth])
	assert.True(t, names[openclaw.CmdTaskSync])
}

func TestWiringPackEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.authed(t, "GET", "/api/openclaw/wiring-pack", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "openclaw-wiring-pack.zip")

	data := rec.Body.Bytes()
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, reader.File, 5)

	t.Run("requires auth", func(t *testing.T) {
		rec := app.do(t, "GET", "/api/openclaw/wiring-pack", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestDispatchEndpoint(t *testing.T) {
	app := newTestApp(t)

	rec := app.webhook(t, "POST", "/api/openclaw/dispatch", map[string]any{
		"action":  "task.create",
		"payload": map[string]any{"title": "From the agent"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[map[string]any](t, rec)
	assert.Equal(t, true, resp["acknowledged"])
	assert.Equal(t, "task.create", resp["action"])
	assert.NotEmpty(t, resp["timestamp"])

	history := decodeJSON[[]struct {
		Command string `json:"command"`
	}](t, app.authed(t, "GET", "/api/command-center/history", nil))
	require.NotEmpty(t, history)
	assert.Equal(t, "dispatch.task.create", history[0].Command)

	t.Run("missing secret", func(t *testing.T) {
		rec := app.do(t, "POST", "/api/openclaw/dispatch", map[string]any{"action": "x"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing action", func(t *testing.T) {
		rec := app.webhook(t, "POST", "/api/openclaw/dispatch", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
