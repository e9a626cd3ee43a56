package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveTaskWithinColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)

	var tasks []*Task
	for _, title := range []string{"a", "b", "c", "d"} {
		tasks = append(tasks, f.addTask(t, todo.ID, title))
	}

	t.Run("move earlier", func(t *testing.T) {
		moved, err := f.Store.MoveTask(ctx, f.Workspace.ID, tasks[3].ID, todo.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, moved.Order)
		assert.Equal(t, []string{"a", "d", "b", "c"}, f.titlesInOrder(t, todo.ID))
	})

	t.Run("move later", func(t *testing.T) {
		_, err := f.Store.MoveTask(ctx, f.Workspace.ID, tasks[0].ID, todo.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "b", "c", "a"}, f.titlesInOrder(t, todo.ID))
	})

	t.Run("same slot is a no-op", func(t *testing.T) {
		before := f.titlesInOrder(t, todo.ID)
		_, err := f.Store.MoveTask(ctx, f.Workspace.ID, tasks[1].ID, todo.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, before, f.titlesInOrder(t, todo.ID))
	})
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)
	doing := f.column(t, RoleInProgress)

	a := f.addTask(t, todo.ID, "a")
	f.addTask(t, todo.ID, "b")
	f.addTask(t, todo.ID, "c")
	f.addTask(t, doing.ID, "x")
	f.addTask(t, doing.ID, "y")

	moved, err := f.Store.MoveTask(ctx, f.Workspace.ID, a.ID, doing.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, doing.ID, moved.ColumnID)
	assert.Equal(t, 1, moved.Order)

	assert.Equal(t, []string{"b", "c"}, f.titlesInOrder(t, todo.ID))
	assert.Equal(t, []string{"x", "a", "y"}, f.titlesInOrder(t, doing.ID))
}

func TestMoveTaskClampsPastEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)
	done := f.column(t, RoleDone)

	a := f.addTask(t, todo.ID, "a")
	f.addTask(t, done.ID, "x")

	moved, err := f.Store.MoveTask(ctx, f.Workspace.ID, a.ID, done.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Order)
	assert.Equal(t, []string{"x", "a"}, f.titlesInOrder(t, done.ID))
}

func TestMoveTaskRejectsNegativeIndex(t *testing.T) {
	f := newFixture(t)
	todo := f.column(t, RoleBacklog)
	a := f.addTask(t, todo.ID, "a")

	_, err := f.Store.MoveTask(context.Background(), f.Workspace.ID, a.ID, todo.ID, -1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMoveTaskForeignWorkspace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)
	a := f.addTask(t, todo.ID, "a")

	other, err := f.Store.CreateUser(ctx, "other@example.com", "Other", "not-a-real-hash")
	require.NoError(t, err)
	otherWS, err := f.Store.CreateWorkspace(ctx, "Other Workspace", other.ID)
	require.NoError(t, err)

	t.Run("task outside caller workspace", func(t *testing.T) {
		_, err := f.Store.MoveTask(ctx, otherWS.ID, a.ID, todo.ID, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("destination column outside caller workspace", func(t *testing.T) {
		otherBoard, err := f.Store.CreateBoard(ctx, otherWS.ID, "Other Board")
		require.NoError(t, err)

		_, err = f.Store.MoveTask(ctx, f.Workspace.ID, a.ID, otherBoard.Columns[0].ID, 0)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	// Nothing moved: the task still sits at the head of its column.
	assert.Equal(t, []string{"a"}, f.titlesInOrder(t, todo.ID))
}

func TestMoveTaskRecordsActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)
	doing := f.column(t, RoleInProgress)

	a := f.addTask(t, todo.ID, "a")
	_, err := f.Store.MoveTask(ctx, f.Workspace.ID, a.ID, doing.ID, 0)
	require.NoError(t, err)

	activities, err := f.Store.GetActivities(ctx, f.Workspace.ID, a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, activities)

	// Newest first: the move entry precedes the creation entry.
	assert.Equal(t, "moved", activities[0].Action)
	assert.Contains(t, activities[0].Details, "In Progress")
	assert.Equal(t, "created", activities[len(activities)-1].Action)
}

func TestDeleteTaskCompactsColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)

	f.addTask(t, todo.ID, "a")
	b := f.addTask(t, todo.ID, "b")
	f.addTask(t, todo.ID, "c")

	require.NoError(t, f.Store.DeleteTask(ctx, f.Workspace.ID, b.ID))
	assert.Equal(t, []string{"a", "c"}, f.titlesInOrder(t, todo.ID))
}

func TestRelocateTaskAppendsAtTail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)
	done := f.column(t, RoleDone)

	a := f.addTask(t, todo.ID, "a")
	f.addTask(t, done.ID, "x")
	f.addTask(t, done.ID, "y")

	require.NoError(t, f.Store.RelocateTask(ctx, a.ID, done.ID))
	assert.Equal(t, []string{"x", "y", "a"}, f.titlesInOrder(t, done.ID))

	// Already there: relocation again changes nothing.
	require.NoError(t, f.Store.RelocateTask(ctx, a.ID, done.ID))
	assert.Equal(t, []string{"x", "y", "a"}, f.titlesInOrder(t, done.ID))
}

func TestUpdateTaskPartial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)
	a := f.addTask(t, todo.ID, "a")

	title := "renamed"
	priority := PriorityHigh
	updated, err := f.Store.UpdateTask(ctx, f.Workspace.ID, a.ID, UpdateTaskParams{
		Title:    &title,
		Priority: &priority,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, PriorityHigh, updated.Priority)
	assert.Equal(t, a.Assignee, updated.Assignee)

	t.Run("labels cleared only when explicitly set", func(t *testing.T) {
		withLabels, err := f.Store.UpdateTask(ctx, f.Workspace.ID, a.ID, UpdateTaskParams{
			Labels: []string{"infra"}, LabelsSet: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"infra"}, withLabels.Labels)

		untouched, err := f.Store.UpdateTask(ctx, f.Workspace.ID, a.ID, UpdateTaskParams{})
		require.NoError(t, err)
		assert.Equal(t, []string{"infra"}, untouched.Labels)

		cleared, err := f.Store.UpdateTask(ctx, f.Workspace.ID, a.ID, UpdateTaskParams{
			Labels: nil, LabelsSet: true,
		})
		require.NoError(t, err)
		assert.Empty(t, cleared.Labels)
	})
}

func TestRetriedTaskListsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)

	task := f.addTask(t, todo.ID, "retry me")
	assignee := AssigneeBot
	_, err := f.Store.UpdateTask(ctx, f.Workspace.ID, task.ID, UpdateTaskParams{Assignee: &assignee})
	require.NoError(t, err)

	// First job failed; re-assignment created a fresh one.
	_, err = f.Store.CreateOpenClawJob(ctx, "job-old", task.ID, JobFailed)
	require.NoError(t, err)
	_, err = f.Store.CreateOpenClawJob(ctx, "job-new", task.ID, JobPending)
	require.NoError(t, err)

	tasks, err := f.Store.GetTasksByColumn(ctx, todo.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].OpenClawJobID)
	assert.Equal(t, "job-new", *tasks[0].OpenClawJobID)

	bot, err := f.Store.ListBotTasks(ctx, f.Workspace.ID)
	require.NoError(t, err)
	require.Len(t, bot, 1)
	require.NotNil(t, bot[0].OpenClawJobID)
	assert.Equal(t, "job-new", *bot[0].OpenClawJobID)

	job, err := f.Store.GetJobForTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "job-new", job.JobID)
}

func TestListBotTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	todo := f.column(t, RoleBacklog)

	bot := f.addTask(t, todo.ID, "bot work")
	assignee := AssigneeBot
	_, err := f.Store.UpdateTask(ctx, f.Workspace.ID, bot.ID, UpdateTaskParams{Assignee: &assignee})
	require.NoError(t, err)
	_, err = f.Store.CreateOpenClawJob(ctx, "job-1", bot.ID, JobPending)
	require.NoError(t, err)

	// Assigned to the bot but without a linked job: not listed.
	unlinked := f.addTask(t, todo.ID, "unlinked")
	_, err = f.Store.UpdateTask(ctx, f.Workspace.ID, unlinked.ID, UpdateTaskParams{Assignee: &assignee})
	require.NoError(t, err)

	f.addTask(t, todo.ID, "mine")

	tasks, err := f.Store.ListBotTasks(ctx, f.Workspace.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, bot.ID, tasks[0].ID)
	require.NotNil(t, tasks[0].OpenClawJobID)
	assert.Equal(t, "job-1", *tasks[0].OpenClawJobID)
}
