package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateTaskParams carries the validated fields for a new task.
type CreateTaskParams struct {
	Title       string
	Description string
	Priority    string
	Labels      []string
	DueDate     *time.Time
	Assignee    string
}

// UpdateTaskParams carries a partial task update. Nil fields are left alone.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Priority    *string
	Labels      []string
	LabelsSet   bool
	DueDate     *time.Time
	DueDateSet  bool
	Assignee    *string
}

const taskColumns = `t.id, t.title, t.description, t.priority, t.labels, t.due_date,
	t.assignee, t.column_id, t.sort_order, j.job_id, t.created_at, t.updated_at`

// latestJobJoin attaches only the most recent job row. A task accrues a new
// job each time it is handed back to the bot after a terminal one, and an
// unbounded join on task_id would duplicate the task once per job. The rowid
// tiebreaker keeps the choice stable when two jobs share a creation second.
const latestJobJoin = `openclaw_jobs j ON j.rowid = (
	SELECT rowid FROM openclaw_jobs WHERE task_id = t.id
	ORDER BY created_at DESC, rowid DESC LIMIT 1
)`

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	task := &Task{}
	var description sql.NullString
	var dueDate sql.NullTime
	var jobID sql.NullString
	var labels string

	err := row.Scan(
		&task.ID, &task.Title, &description, &task.Priority, &labels, &dueDate,
		&task.Assignee, &task.ColumnID, &task.Order, &jobID, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	if dueDate.Valid {
		d := dueDate.Time
		task.DueDate = &d
	}
	if jobID.Valid {
		j := jobID.String
		task.OpenClawJobID = &j
	}
	if err := json.Unmarshal([]byte(labels), &task.Labels); err != nil {
		task.Labels = []string{}
	}
	return task, nil
}

// CreateTask appends a task at the tail of a column and records the creation
// in the activity log.
func (s *Store) CreateTask(ctx context.Context, workspaceID, columnID string, params CreateTaskParams) (*Task, error) {
	if _, err := s.getColumnScoped(ctx, workspaceID, columnID); err != nil {
		return nil, err
	}

	labels, err := json.Marshal(params.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal labels: %w", err)
	}
	if params.Labels == nil {
		labels = []byte("[]")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxOrder sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT MAX(sort_order) FROM tasks WHERE column_id = ?`, columnID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to query max order: %w", err)
	}
	nextOrder := 0
	if maxOrder.Valid {
		nextOrder = int(maxOrder.Int64) + 1
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, priority, labels, due_date, assignee, column_id, sort_order)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, params.Title, params.Description, params.Priority, string(labels),
		params.DueDate, params.Assignee, columnID, nextOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	if err := appendActivityTx(ctx, tx, id, "created", fmt.Sprintf("Task %q created", params.Title)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.getTaskByID(ctx, id)
}

func (s *Store) getTaskByID(ctx context.Context, taskID string) (*Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 LEFT JOIN `+latestJobJoin+`
		 WHERE t.id = ?`,
		taskID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

// GetTask loads a task only if its ownership chain (task, column, board)
// lands in the given workspace.
func (s *Store) GetTask(ctx context.Context, workspaceID, taskID string) (*Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 JOIN columns c ON t.column_id = c.id
		 JOIN boards b ON c.board_id = b.id
		 LEFT JOIN `+latestJobJoin+`
		 WHERE t.id = ? AND b.workspace_id = ?`,
		taskID, workspaceID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

// GetTasksByColumn returns a column's tasks in display order.
func (s *Store) GetTasksByColumn(ctx context.Context, columnID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 LEFT JOIN `+latestJobJoin+`
		 WHERE t.column_id = ? ORDER BY t.sort_order`,
		columnID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTask applies a partial update and records which fields changed.
func (s *Store) UpdateTask(ctx context.Context, workspaceID, taskID string, params UpdateTaskParams) (*Task, error) {
	if _, err := s.GetTask(ctx, workspaceID, taskID); err != nil {
		return nil, err
	}

	sets := []string{}
	args := []any{}
	changed := []string{}

	if params.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *params.Title)
		changed = append(changed, "title")
	}
	if params.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *params.Description)
		changed = append(changed, "description")
	}
	if params.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *params.Priority)
		changed = append(changed, "priority")
	}
	if params.LabelsSet {
		labels, err := json.Marshal(params.Labels)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal labels: %w", err)
		}
		sets = append(sets, "labels = ?")
		args = append(args, string(labels))
		changed = append(changed, "labels")
	}
	if params.DueDateSet {
		sets = append(sets, "due_date = ?")
		args = append(args, params.DueDate)
		changed = append(changed, "dueDate")
	}
	if params.Assignee != nil {
		sets = append(sets, "assignee = ?")
		args = append(args, *params.Assignee)
		changed = append(changed, "assignee")
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
		args = append(args, taskID)
		_, err := s.db.ExecContext(ctx,
			"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update task: %w", err)
		}

		if err := s.AppendActivity(ctx, taskID, "updated", "Updated: "+strings.Join(changed, ", ")); err != nil {
			return nil, err
		}
	}

	return s.getTaskByID(ctx, taskID)
}

// DeleteTask removes a task and compacts its former siblings in the same
// transaction. Activities and linked jobs cascade.
func (s *Store) DeleteTask(ctx context.Context, workspaceID, taskID string) error {
	task, err := s.GetTask(ctx, workspaceID, taskID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET sort_order = sort_order - 1 WHERE column_id = ? AND sort_order > ?`,
		task.ColumnID, task.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to compact tasks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MoveTask relocates a task to targetIndex in the destination column. The
// sibling shifts, the task's own update, and the audit entry commit as one
// transaction; concurrent moves observe either the fully-pre-move or the
// fully-post-move state.
func (s *Store) MoveTask(ctx context.Context, workspaceID, taskID, destColumnID string, targetIndex int) (*Task, error) {
	if targetIndex < 0 {
		return nil, fmt.Errorf("%w: order must be a non-negative integer", ErrValidation)
	}

	task, err := s.GetTask(ctx, workspaceID, taskID)
	if err != nil {
		return nil, err
	}

	dest, err := s.getColumnScoped(ctx, workspaceID, destColumnID)
	if err != nil {
		return nil, err
	}

	sameColumn := task.ColumnID == dest.ID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Destination size before insertion; past-the-end targets append at the
	// tail. For a same-column move the task already occupies a slot, so the
	// last valid index is size-1.
	var destSize int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE column_id = ?`, dest.ID,
	).Scan(&destSize)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	if sameColumn {
		destSize--
	}
	targetIndex = ClampTarget(targetIndex, destSize)

	plan := PlanMove(task.Order, targetIndex, sameColumn)

	if err := applyPlanTx(ctx, tx, plan, task, dest.ID); err != nil {
		return nil, err
	}

	if err := appendActivityTx(ctx, tx, taskID, "moved", fmt.Sprintf("moved to %s", dest.Title)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.getTaskByID(ctx, taskID)
}

// applyPlanTx executes an ordering plan against the store: every window
// becomes one ranged UPDATE, then the moving task takes its target slot.
func applyPlanTx(ctx context.Context, tx *sql.Tx, plan MovePlan, task *Task, destColumnID string) error {
	apply := func(columnID string, windows []ShiftWindow) error {
		for _, w := range windows {
			query := `UPDATE tasks SET sort_order = sort_order + ? WHERE column_id = ? AND id != ? AND sort_order >= ?`
			args := []any{w.Delta, columnID, task.ID, w.FromOrder}
			if !w.Unbounded {
				query += ` AND sort_order <= ?`
				args = append(args, w.ToOrder)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to shift tasks: %w", err)
			}
		}
		return nil
	}

	if err := apply(task.ColumnID, plan.Source); err != nil {
		return err
	}
	if err := apply(destColumnID, plan.Dest); err != nil {
		return err
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE tasks SET column_id = ?, sort_order = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		destColumnID, plan.Target, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to move task: %w", err)
	}
	return nil
}

// RelocateTask moves a task to the tail of a column on behalf of the job
// lifecycle reconciler. Same plan-then-apply path as MoveTask, but the caller
// writes its own activity entry describing the job transition.
func (s *Store) RelocateTask(ctx context.Context, taskID, destColumnID string) error {
	task, err := s.getTaskByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task.ColumnID == destColumnID {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var destSize int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE column_id = ?`, destColumnID,
	).Scan(&destSize)
	if err != nil {
		return fmt.Errorf("failed to count tasks: %w", err)
	}

	plan := PlanMove(task.Order, destSize, false)
	if err := applyPlanTx(ctx, tx, plan, task, destColumnID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SetTaskPriority updates only the priority field.
func (s *Store) SetTaskPriority(ctx context.Context, taskID, priority string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET priority = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		priority, taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update priority: %w", err)
	}
	return nil
}

// SetTaskAssignee updates only the assignee field.
func (s *Store) SetTaskAssignee(ctx context.Context, taskID, assignee string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET assignee = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		assignee, taskID,
	)
	if err != nil {
		return fmt.Errorf("failed to update assignee: %w", err)
	}
	return nil
}

// ListBotTasks returns the workspace's tasks that are assigned to the bot and
// linked to an OpenClaw job.
func (s *Store) ListBotTasks(ctx context.Context, workspaceID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks t
		 JOIN columns c ON t.column_id = c.id
		 JOIN boards b ON c.board_id = b.id
		 JOIN `+latestJobJoin+`
		 WHERE t.assignee = ? AND b.workspace_id = ?
		 ORDER BY t.created_at`,
		AssigneeBot, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bot tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func appendActivityTx(ctx context.Context, tx *sql.Tx, taskID, action, details string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO task_activities (id, task_id, action, details) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), taskID, action, details,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// AppendActivity records one audit entry for a task.
func (s *Store) AppendActivity(ctx context.Context, taskID, action, details string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_activities (id, task_id, action, details) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), taskID, action, details,
	)
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// GetActivities lists a task's audit entries, newest first.
func (s *Store) GetActivities(ctx context.Context, workspaceID, taskID string) ([]TaskActivity, error) {
	if _, err := s.GetTask(ctx, workspaceID, taskID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, action, details, created_at
		 FROM task_activities WHERE task_id = ? ORDER BY created_at DESC, rowid DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := []TaskActivity{}
	for rows.Next() {
		a := TaskActivity{}
		var details sql.NullString
		if err := rows.Scan(&a.ID, &a.TaskID, &a.Action, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Details = details.String
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
