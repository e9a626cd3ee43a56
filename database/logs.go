package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// AppendCommandLog records one dispatched command or inbound webhook event.
// The log is append-only.
func (s *Store) AppendCommandLog(ctx context.Context, log CommandLog) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_logs (id, workspace_id, command, input, output, status, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), log.WorkspaceID, log.Command, log.Input, log.Output, log.Status, log.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to append command log: %w", err)
	}
	return nil
}

// GetCommandLogs lists a workspace's command history, newest first.
func (s *Store) GetCommandLogs(ctx context.Context, workspaceID string, limit int) ([]CommandLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, command, input, output, status, duration_ms, created_at
		 FROM command_logs WHERE workspace_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		workspaceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query command logs: %w", err)
	}
	defer rows.Close()

	logs := []CommandLog{}
	for rows.Next() {
		l := CommandLog{}
		var input, output sql.NullString
		if err := rows.Scan(&l.ID, &l.WorkspaceID, &l.Command, &input, &output, &l.Status, &l.DurationMs, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan command log: %w", err)
		}
		if input.Valid {
			l.Input = &input.String
		}
		if output.Valid {
			l.Output = &output.String
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
