package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
)

func TestExecuteCommand(t *testing.T) {
	app := newTestApp(t)

	rec := app.authed(t, "POST", "/api/command-center/execute", map[string]any{
		"command": openclaw.CmdHealth,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeJSON[openclaw.ExecuteResult](t, rec)
	assert.True(t, result.Success)
	assert.NotNil(t, result.Data)

	t.Run("command is required", func(t *testing.T) {
		rec := app.authed(t, "POST", "/api/command-center/execute", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown command", func(t *testing.T) {
		rec := app.authed(t, "POST", "/api/command-center/execute", map[string]any{
			"command": "rm.rf",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestExecuteTaskSync(t *testing.T) {
	app := newTestApp(t)
	todo := app.Columns[database.RoleBacklog]
	doing := app.Columns[database.RoleInProgress]

	task := app.createTask(t, todo.ID, map[string]any{
		"title": "Bot task", "assignee": database.AssigneeBot,
	})
	require.Len(t, app.Backend.created, 1)
	app.Backend.jobs["job-1"].Status = database.JobRunning

	rec := app.authed(t, "POST", "/api/command-center/execute", map[string]any{
		"command": openclaw.CmdTaskSync,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeJSON[struct {
		Success bool                 `json:"success"`
		Data    *openclaw.SyncReport `json:"data"`
	}](t, rec)
	assert.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, 1, result.Data.Synced)

	fresh := decodeJSON[database.Task](t, app.authed(t, "GET", "/api/tasks/"+task.ID, nil))
	assert.Equal(t, doing.ID, fresh.ColumnID)
}

func TestCommandHistory(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		rec := app.authed(t, "POST", "/api/command-center/execute", map[string]any{
			"command": openclaw.CmdHealth,
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := app.authed(t, "GET", "/api/command-center/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeJSON[[]database.CommandLog](t, rec)
	assert.Len(t, logs, 2)

	t.Run("default limit", func(t *testing.T) {
		rec := app.authed(t, "GET", "/api/command-center/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		logs := decodeJSON[[]database.CommandLog](t, rec)
		assert.Len(t, logs, 3)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := app.authed(t, "GET", "/api/command-center/history?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = app.authed(t, "GET", "/api/command-center/history?limit=0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
