package openclaw

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openclaw/clawboard/database"
)

var testDBCounter atomic.Int64

type testEnv struct {
	Store     *database.Store
	Workspace *database.Workspace
	Board     *database.Board
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:octest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := database.InitDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := database.NewStore(db)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "dev@example.com", "Dev", "not-a-real-hash")
	require.NoError(t, err)
	ws, err := store.CreateWorkspace(ctx, "Dev's Workspace", user.ID)
	require.NoError(t, err)
	board, err := store.CreateBoard(ctx, ws.ID, "My First Board")
	require.NoError(t, err)

	return &testEnv{Store: store, Workspace: ws, Board: board}
}

func (e *testEnv) column(t *testing.T, role string) database.Column {
	t.Helper()
	for _, c := range e.Board.Columns {
		if c.Role == role {
			return c
		}
	}
	t.Fatalf("board has no column with role %q", role)
	return database.Column{}
}

// botTask creates a bot-assigned task in the backlog column with a linked job
// in the given status.
func (e *testEnv) botTask(t *testing.T, title, jobID, jobStatus string) (*database.Task, *database.OpenClawJob) {
	t.Helper()
	ctx := context.Background()

	task, err := e.Store.CreateTask(ctx, e.Workspace.ID, e.column(t, database.RoleBacklog).ID, database.CreateTaskParams{
		Title:    title,
		Priority: database.PriorityMedium,
		Assignee: database.AssigneeBot,
	})
	require.NoError(t, err)

	job, err := e.Store.CreateOpenClawJob(ctx, jobID, task.ID, jobStatus)
	require.NoError(t, err)
	return task, job
}

// stubClient is a canned Client for reconciler and dispatcher tests. Jobs are
// looked up by ID; a non-nil err fails every call.
type stubClient struct {
	jobs      map[string]*Job
	status    *Status
	err       error
	cancelled []string
	commands  []CommandPayload
}

func (c *stubClient) Health(ctx context.Context, workspaceID string) (*HealthResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &HealthResponse{Status: "ok", Version: "test"}, nil
}

func (c *stubClient) CreateJob(ctx context.Context, workspaceID string, payload JobPayload) (*Job, error) {
	if c.err != nil {
		return nil, c.err
	}
	job := &Job{JobID: fmt.Sprintf("job-%d", len(c.jobs)+1), Status: database.JobPending}
	if c.jobs == nil {
		c.jobs = map[string]*Job{}
	}
	c.jobs[job.JobID] = job
	return job, nil
}

func (c *stubClient) GetJob(ctx context.Context, workspaceID, jobID string) (*Job, error) {
	if c.err != nil {
		return nil, c.err
	}
	job, ok := c.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	return job, nil
}

func (c *stubClient) CancelJob(ctx context.Context, workspaceID, jobID string) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	c.cancelled = append(c.cancelled, jobID)
	return true, nil
}

func (c *stubClient) SendCommand(ctx context.Context, workspaceID string, payload CommandPayload) (*CommandResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.commands = append(c.commands, payload)
	return &CommandResponse{Success: true, Data: map[string]any{"echo": payload.Command}}, nil
}

func (c *stubClient) Status(ctx context.Context, workspaceID string) (*Status, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.status != nil {
		return c.status, nil
	}
	return &Status{Status: StatusConnected, Mode: ModeMock}, nil
}
