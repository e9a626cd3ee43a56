package openclaw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/openclaw/clawboard/database"
)

// Reconciler translates OpenClaw job-status transitions into task placement
// and metadata. The same code path serves pushed webhook events and the
// pull-style task.sync sweep, so both observe identical state-machine rules.
type Reconciler struct {
	store  *database.Store
	client Client
}

func NewReconciler(store *database.Store, client Client) *Reconciler {
	return &Reconciler{store: store, client: client}
}

func isTerminal(status string) bool {
	switch status {
	case database.JobCompleted, database.JobFailed, database.JobCancelled:
		return true
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case database.JobPending, database.JobRunning, database.JobCompleted,
		database.JobFailed, database.JobCancelled:
		return true
	}
	return false
}

// ApplyStatus applies one observed status transition to a job and its task.
// Repeating the same (jobId, status) pair is a no-op, and terminal states are
// never left again, so out-of-order or duplicated deliveries cannot corrupt
// placement.
func (r *Reconciler) ApplyStatus(ctx context.Context, job *database.OpenClawJob, status string, result, errMsg *string) error {
	if !validStatus(status) {
		return fmt.Errorf("%w: unknown job status %q", database.ErrValidation, status)
	}
	if job.Status == status {
		return nil
	}
	if isTerminal(job.Status) {
		log.Printf("Ignoring job %s transition %s -> %s: job already terminal", job.JobID, job.Status, status)
		return nil
	}

	lastResponse := job.LastResponse

	switch status {
	case database.JobPending:
		// Initial state; nothing to place.
	case database.JobRunning:
		if err := r.moveToRole(ctx, job.TaskID, database.RoleInProgress, "In Progress"); err != nil {
			return err
		}
	case database.JobCompleted:
		if err := r.moveToRole(ctx, job.TaskID, database.RoleDone, "Done"); err != nil {
			return err
		}
		lastResponse = result
	case database.JobFailed:
		if err := r.moveToRole(ctx, job.TaskID, database.RoleBacklog, "To Do"); err != nil {
			return err
		}
		if err := r.store.SetTaskPriority(ctx, job.TaskID, database.PriorityHigh); err != nil {
			return err
		}
		lastResponse = errMsg
	case database.JobCancelled:
		// Task stays put; the bot hands the task back.
		if err := r.store.SetTaskAssignee(ctx, job.TaskID, database.AssigneeMe); err != nil {
			return err
		}
	}

	if err := r.store.UpdateOpenClawJob(ctx, job.JobID, status, lastResponse); err != nil {
		return err
	}

	details := fmt.Sprintf("OpenClaw job %s is now %s", job.JobID, status)
	if errMsg != nil && status == database.JobFailed {
		details = fmt.Sprintf("OpenClaw job %s failed: %s", job.JobID, *errMsg)
	}
	if err := r.store.AppendActivity(ctx, job.TaskID, "job_"+status, details); err != nil {
		return err
	}

	job.Status = status
	job.LastResponse = lastResponse
	return nil
}

// moveToRole relocates a task to the board's well-known column for role. A
// board without that column logs a warning and leaves the task in place; a
// missing column must never fail the whole transition.
func (r *Reconciler) moveToRole(ctx context.Context, taskID, role, fallbackTitle string) error {
	boardID, err := r.store.BoardForTask(ctx, taskID)
	if err != nil {
		return err
	}

	col, err := r.store.FindColumnByRole(ctx, boardID, role, fallbackTitle)
	if errors.Is(err, database.ErrNotFound) {
		log.Printf("Board %s has no %q column; leaving task %s in place", boardID, fallbackTitle, taskID)
		return nil
	}
	if err != nil {
		return err
	}

	return r.store.RelocateTask(ctx, taskID, col.ID)
}

// TaskSync is one row of a reconciliation report.
type TaskSync struct {
	TaskID string `json:"taskId"`
	JobID  string `json:"jobId"`
	Status string `json:"status"` // synced, conflict, or orphaned
	Error  string `json:"error,omitempty"`
}

// SyncReport summarizes one reconciliation sweep.
type SyncReport struct {
	Synced int        `json:"synced"`
	Tasks  []TaskSync `json:"tasks"`
}

// Reconcile sweeps the workspace's bot-assigned tasks, pulls each linked
// job's current status from the backend, applies any pending transition, and
// classifies each task. Individual task failures are reported per task and
// never abort the sweep; only a workspace-level failure does.
func (r *Reconciler) Reconcile(ctx context.Context, workspaceID string) (*SyncReport, error) {
	tasks, err := r.store.ListBotTasks(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Tasks: []TaskSync{}}
	for _, task := range tasks {
		entry := TaskSync{TaskID: task.ID}

		job, err := r.store.GetJobForTask(ctx, task.ID)
		if err != nil {
			entry.Status = "orphaned"
			entry.Error = "no linked job"
			report.Tasks = append(report.Tasks, entry)
			continue
		}
		entry.JobID = job.JobID

		remote, err := r.client.GetJob(ctx, workspaceID, job.JobID)
		if err != nil {
			entry.Status = "orphaned"
			entry.Error = err.Error()
			report.Tasks = append(report.Tasks, entry)
			continue
		}

		if remote.Status != job.Status {
			var result, errMsg *string
			if remote.Result != nil {
				if encoded, err := json.Marshal(remote.Result); err == nil {
					s := string(encoded)
					result = &s
				}
			}
			if remote.Error != "" {
				e := remote.Error
				errMsg = &e
			}
			if err := r.ApplyStatus(ctx, job, remote.Status, result, errMsg); err != nil {
				entry.Status = "conflict"
				entry.Error = err.Error()
				report.Tasks = append(report.Tasks, entry)
				continue
			}
		}

		status, err := r.classify(ctx, workspaceID, task.ID, job.Status)
		if err != nil {
			entry.Status = "conflict"
			entry.Error = err.Error()
			report.Tasks = append(report.Tasks, entry)
			continue
		}

		entry.Status = status
		if status == "synced" {
			report.Synced++
		}
		report.Tasks = append(report.Tasks, entry)
	}

	return report, nil
}

// classify checks whether a task sits in the column its job status maps to.
func (r *Reconciler) classify(ctx context.Context, workspaceID, taskID, jobStatus string) (string, error) {
	var role, fallbackTitle string
	switch jobStatus {
	case database.JobRunning:
		role, fallbackTitle = database.RoleInProgress, "In Progress"
	case database.JobCompleted:
		role, fallbackTitle = database.RoleDone, "Done"
	case database.JobFailed:
		role, fallbackTitle = database.RoleBacklog, "To Do"
	default:
		// pending and cancelled impose no expected placement.
		return "synced", nil
	}

	task, err := r.store.GetTask(ctx, workspaceID, taskID)
	if err != nil {
		return "", err
	}

	boardID, err := r.store.BoardForTask(ctx, taskID)
	if err != nil {
		return "", err
	}

	expected, err := r.store.FindColumnByRole(ctx, boardID, role, fallbackTitle)
	if errors.Is(err, database.ErrNotFound) {
		// No well-known column to compare against.
		return "synced", nil
	}
	if err != nil {
		return "", err
	}

	if task.ColumnID != expected.ID {
		return "conflict", nil
	}
	return "synced", nil
}
