package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
	"github.com/openclaw/clawboard/services"
)

const testWebhookSecret = "test-webhook-secret"

var testDBCounter atomic.Int64

// stubBackend is a canned openclaw.Client for handler tests.
type stubBackend struct {
	jobs      map[string]*openclaw.Job
	err       error
	created   []openclaw.JobPayload
	cancelled []string
	nextJob   int
}

func (c *stubBackend) Health(ctx context.Context, workspaceID string) (*openclaw.HealthResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &openclaw.HealthResponse{Status: "ok", Version: "test"}, nil
}

func (c *stubBackend) CreateJob(ctx context.Context, workspaceID string, payload openclaw.JobPayload) (*openclaw.Job, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.created = append(c.created, payload)
	c.nextJob++
	job := &openclaw.Job{JobID: fmt.Sprintf("job-%d", c.nextJob), Status: database.JobPending}
	if c.jobs == nil {
		c.jobs = map[string]*openclaw.Job{}
	}
	c.jobs[job.JobID] = job
	return job, nil
}

func (c *stubBackend) GetJob(ctx context.Context, workspaceID, jobID string) (*openclaw.Job, error) {
	if c.err != nil {
		return nil, c.err
	}
	job, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	return job, nil
}

func (c *stubBackend) CancelJob(ctx context.Context, workspaceID, jobID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.cancelled = append(c.cancelled, jobID)
	return true, nil
}

func (c *stubBackend) SendCommand(ctx context.Context, workspaceID string, payload openclaw.CommandPayload) (*openclaw.CommandResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &openclaw.CommandResponse{Success: true, Data: map[string]any{"echo": payload.Command}}, nil
}

func (c *stubBackend) Status(ctx context.Context, workspaceID string) (*openclaw.Status, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &openclaw.Status{Status: openclaw.StatusConnected, Mode: openclaw.ModeMock}, nil
}

// testApp is a full HTTP stack over an in-memory database, wired exactly
// like the production router but with a stub automation backend.
type testApp struct {
	Router      *mux.Router
	Store       *database.Store
	Backend     *stubBackend
	Token       string
	WorkspaceID string
	BoardID     string
	Columns     map[string]database.Column // by role
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := database.InitDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := database.NewStore(db)
	authService := services.NewAuthService("test-jwt-secret")
	cipher := services.NewTokenCipher("test-encryption-key")

	backend := &stubBackend{}
	reconciler := openclaw.NewReconciler(store, backend)
	dispatcher := openclaw.NewDispatcher(store, backend, reconciler)

	hub := services.NewHub()
	go hub.Run()

	authHandler := NewAuthHandler(authService, store, OpenClawDefaults{
		Mode:       openclaw.ModeMock,
		HealthPath: "/health",
	})
	authMiddleware := NewAuthMiddleware(authService)
	boardHandler := NewBoardHandler(store, hub)
	taskHandler := NewTaskHandler(store, hub, backend, reconciler)
	commandHandler := NewCommandHandler(store, dispatcher, hub)
	openclawHandler := NewOpenClawHandler(store, backend, cipher, testWebhookSecret)
	webhookHandler := NewWebhookHandler(store, reconciler, hub, testWebhookSecret)
	diagnosticsHandler := NewDiagnosticsHandler(store)

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/openclaw/contract", openclawHandler.Contract).Methods("GET")
	r.HandleFunc("/api/openclaw/dispatch", openclawHandler.Dispatch).Methods("POST")
	r.HandleFunc("/api/openclaw/webhook/job-status", webhookHandler.JobStatus).Methods("POST")
	r.HandleFunc("/api/openclaw/webhook/log", webhookHandler.Log).Methods("POST")

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(authMiddleware.Auth)
	protected.HandleFunc("/auth/verify", authHandler.Verify).Methods("GET")
	protected.HandleFunc("/boards", boardHandler.ListBoards).Methods("GET")
	protected.HandleFunc("/boards", boardHandler.CreateBoard).Methods("POST")
	protected.HandleFunc("/boards/{boardId}", boardHandler.GetBoard).Methods("GET")
	protected.HandleFunc("/boards/{boardId}", boardHandler.UpdateBoard).Methods("PUT")
	protected.HandleFunc("/boards/{boardId}", boardHandler.DeleteBoard).Methods("DELETE")
	protected.HandleFunc("/boards/{boardId}/columns", boardHandler.ListColumns).Methods("GET")
	protected.HandleFunc("/boards/{boardId}/columns", boardHandler.CreateColumn).Methods("POST")
	protected.HandleFunc("/boards/{boardId}/columns", boardHandler.ReorderColumns).Methods("PUT")
	protected.HandleFunc("/boards/{boardId}/columns/{columnId}", boardHandler.UpdateColumn).Methods("PUT")
	protected.HandleFunc("/boards/{boardId}/columns/{columnId}", boardHandler.DeleteColumn).Methods("DELETE")
	protected.HandleFunc("/boards/{boardId}/columns/{columnId}/tasks", taskHandler.CreateTask).Methods("POST")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.GetTask).Methods("GET")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.UpdateTask).Methods("PUT")
	protected.HandleFunc("/tasks/{taskId}", taskHandler.DeleteTask).Methods("DELETE")
	protected.HandleFunc("/tasks/{taskId}/move", taskHandler.MoveTask).Methods("PUT")
	protected.HandleFunc("/tasks/{taskId}/activity", taskHandler.GetActivity).Methods("GET")
	protected.HandleFunc("/tasks/{taskId}/job/cancel", taskHandler.CancelJob).Methods("POST")
	protected.HandleFunc("/command-center/execute", commandHandler.Execute).Methods("POST")
	protected.HandleFunc("/command-center/history", commandHandler.History).Methods("GET")
	protected.HandleFunc("/openclaw/config", openclawHandler.GetConfig).Methods("GET")
	protected.HandleFunc("/openclaw/config", openclawHandler.UpdateConfig).Methods("PUT")
	protected.HandleFunc("/openclaw/health", openclawHandler.Health).Methods("GET")
	protected.HandleFunc("/openclaw/wiring-pack", openclawHandler.WiringPack).Methods("GET")
	protected.HandleFunc("/diagnostics", diagnosticsHandler.Get).Methods("GET")

	app := &testApp{Router: r, Store: store, Backend: backend}

	registered := app.do(t, "POST", "/api/auth/register", map[string]any{
		"email":    "dev@example.com",
		"name":     "Dev",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, registered.Code, registered.Body.String())
	var reg struct {
		WorkspaceID string `json:"workspaceId"`
		BoardID     string `json:"boardId"`
	}
	require.NoError(t, json.Unmarshal(registered.Body.Bytes(), &reg))
	app.WorkspaceID = reg.WorkspaceID
	app.BoardID = reg.BoardID

	login := app.do(t, "POST", "/api/auth/login", map[string]any{
		"email":    "dev@example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, login.Code, login.Body.String())
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &session))
	app.Token = session.Token

	ctx := context.Background()
	board, err := store.GetBoard(ctx, app.WorkspaceID, app.BoardID)
	require.NoError(t, err)
	app.Columns = map[string]database.Column{}
	for _, c := range board.Columns {
		app.Columns[c.Role] = c
	}

	return app
}

// do sends an unauthenticated request.
func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.send(t, method, path, body, nil)
}

// authed sends a request carrying the session token.
func (a *testApp) authed(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.send(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + a.Token,
	})
}

// webhook sends a request carrying the shared secret.
func (a *testApp) webhook(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return a.send(t, method, path, body, map[string]string{
		"X-OPENCLAW-SECRET": testWebhookSecret,
	})
}

func (a *testApp) send(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.Router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// createTask posts a new task into the given column and returns it.
func (a *testApp) createTask(t *testing.T, columnID string, body map[string]any) database.Task {
	t.Helper()
	rec := a.authed(t, "POST", "/api/boards/"+a.BoardID+"/columns/"+columnID+"/tasks", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[database.Task](t, rec)
}
