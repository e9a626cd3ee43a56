package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var testDBCounter atomic.Int64

// fixture is a fully migrated in-memory store seeded with one user, one
// workspace, and one board carrying the three default columns.
type fixture struct {
	Store     *Store
	Workspace *Workspace
	Board     *Board
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// A plain :memory: DSN gives every pooled connection its own empty
	// database, so each test gets a uniquely named shared-cache one.
	dsn := fmt.Sprintf("file:test%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := InitDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "dev@example.com", "Dev", "not-a-real-hash")
	require.NoError(t, err)
	ws, err := store.CreateWorkspace(ctx, "Dev's Workspace", user.ID)
	require.NoError(t, err)
	board, err := store.CreateBoard(ctx, ws.ID, "My First Board")
	require.NoError(t, err)

	return &fixture{Store: store, Workspace: ws, Board: board}
}

func (f *fixture) column(t *testing.T, role string) Column {
	t.Helper()
	for _, c := range f.Board.Columns {
		if c.Role == role {
			return c
		}
	}
	t.Fatalf("board has no column with role %q", role)
	return Column{}
}

func (f *fixture) addTask(t *testing.T, columnID, title string) *Task {
	t.Helper()
	task, err := f.Store.CreateTask(context.Background(), f.Workspace.ID, columnID, CreateTaskParams{
		Title:    title,
		Priority: PriorityMedium,
		Assignee: AssigneeMe,
	})
	require.NoError(t, err)
	return task
}

// titlesInOrder reads back a column's tasks and returns their titles, failing
// the test if the stored orders are not a dense 0..N-1 sequence.
func (f *fixture) titlesInOrder(t *testing.T, columnID string) []string {
	t.Helper()
	tasks, err := f.Store.GetTasksByColumn(context.Background(), columnID)
	require.NoError(t, err)

	titles := make([]string, len(tasks))
	for i, task := range tasks {
		require.Equal(t, i, task.Order, "task %q has order %d at position %d", task.Title, task.Order, i)
		titles[i] = task.Title
	}
	return titles
}
