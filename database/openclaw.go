package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// GetOpenClawConfig returns the workspace's OpenClaw configuration.
func (s *Store) GetOpenClawConfig(ctx context.Context, workspaceID string) (*OpenClawConfig, error) {
	cfg := &OpenClawConfig{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, workspace_id, mode, base_url, health_path, token_encrypted,
		        last_status, last_latency_ms, updated_at
		 FROM openclaw_configs WHERE workspace_id = ?`,
		workspaceID,
	).Scan(
		&cfg.ID, &cfg.WorkspaceID, &cfg.Mode, &cfg.BaseURL, &cfg.HealthPath,
		&cfg.TokenEncrypted, &cfg.LastStatus, &cfg.LastLatencyMs, &cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query openclaw config: %w", err)
	}
	return cfg, nil
}

// UpsertOpenClawConfig creates or updates the workspace's configuration. An
// empty tokenEncrypted keeps the stored token untouched on update.
func (s *Store) UpsertOpenClawConfig(ctx context.Context, workspaceID, mode, baseURL, healthPath, tokenEncrypted string) (*OpenClawConfig, error) {
	if tokenEncrypted != "" {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO openclaw_configs (id, workspace_id, mode, base_url, health_path, token_encrypted, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
			 ON CONFLICT(workspace_id) DO UPDATE SET
				mode = excluded.mode,
				base_url = excluded.base_url,
				health_path = excluded.health_path,
				token_encrypted = excluded.token_encrypted,
				updated_at = CURRENT_TIMESTAMP`,
			uuid.NewString(), workspaceID, mode, baseURL, healthPath, tokenEncrypted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert openclaw config: %w", err)
		}
	} else {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO openclaw_configs (id, workspace_id, mode, base_url, health_path, token_encrypted, updated_at)
			 VALUES (?, ?, ?, ?, ?, '', CURRENT_TIMESTAMP)
			 ON CONFLICT(workspace_id) DO UPDATE SET
				mode = excluded.mode,
				base_url = excluded.base_url,
				health_path = excluded.health_path,
				updated_at = CURRENT_TIMESTAMP`,
			uuid.NewString(), workspaceID, mode, baseURL, healthPath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert openclaw config: %w", err)
		}
	}
	return s.GetOpenClawConfig(ctx, workspaceID)
}

// UpdateOpenClawStatus records the result of the latest connectivity probe.
func (s *Store) UpdateOpenClawStatus(ctx context.Context, workspaceID, lastStatus string, latencyMs *int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE openclaw_configs SET last_status = ?, last_latency_ms = ? WHERE workspace_id = ?`,
		lastStatus, latencyMs, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update openclaw status: %w", err)
	}
	return nil
}

// CreateOpenClawJob links an external job to a task.
func (s *Store) CreateOpenClawJob(ctx context.Context, jobID, taskID, status string) (*OpenClawJob, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO openclaw_jobs (id, job_id, task_id, status) VALUES (?, ?, ?, ?)`,
		id, jobID, taskID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert openclaw job: %w", err)
	}
	return s.GetOpenClawJob(ctx, jobID)
}

// GetOpenClawJob looks a job up by its external job ID.
func (s *Store) GetOpenClawJob(ctx context.Context, jobID string) (*OpenClawJob, error) {
	job := &OpenClawJob{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, task_id, status, last_response, created_at, updated_at
		 FROM openclaw_jobs WHERE job_id = ?`,
		jobID,
	).Scan(&job.ID, &job.JobID, &job.TaskID, &job.Status, &job.LastResponse, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query openclaw job: %w", err)
	}
	return job, nil
}

// GetJobForTask returns the task's most recent job, if any. The rowid
// tiebreaker keeps the choice stable when a retry lands in the same
// creation second as the job it replaces.
func (s *Store) GetJobForTask(ctx context.Context, taskID string) (*OpenClawJob, error) {
	job := &OpenClawJob{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, job_id, task_id, status, last_response, created_at, updated_at
		 FROM openclaw_jobs WHERE task_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		taskID,
	).Scan(&job.ID, &job.JobID, &job.TaskID, &job.Status, &job.LastResponse, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query openclaw job: %w", err)
	}
	return job, nil
}

// UpdateOpenClawJob records a job's new status and latest response payload.
func (s *Store) UpdateOpenClawJob(ctx context.Context, jobID, status string, lastResponse *string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE openclaw_jobs SET status = ?, last_response = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE job_id = ?`,
		status, lastResponse, jobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update openclaw job: %w", err)
	}
	return nil
}

// WorkspaceForJob walks job -> task -> column -> board to find the owning
// workspace.
func (s *Store) WorkspaceForJob(ctx context.Context, jobID string) (string, error) {
	var workspaceID string
	err := s.db.QueryRowContext(ctx,
		`SELECT b.workspace_id
		 FROM openclaw_jobs j
		 JOIN tasks t ON j.task_id = t.id
		 JOIN columns c ON t.column_id = c.id
		 JOIN boards b ON c.board_id = b.id
		 WHERE j.job_id = ?`,
		jobID,
	).Scan(&workspaceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace for job: %w", err)
	}
	return workspaceID, nil
}

// BoardForTask resolves the board a task currently sits on.
func (s *Store) BoardForTask(ctx context.Context, taskID string) (string, error) {
	var boardID string
	err := s.db.QueryRowContext(ctx,
		`SELECT c.board_id FROM tasks t JOIN columns c ON t.column_id = c.id WHERE t.id = ?`,
		taskID,
	).Scan(&boardID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve board for task: %w", err)
	}
	return boardID, nil
}
