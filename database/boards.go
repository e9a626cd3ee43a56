package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// defaultColumns seeds every new board. Roles give the reconciler a stable
// handle on the well-known columns even if they are later renamed.
var defaultColumns = []struct {
	Title string
	Role  string
}{
	{"To Do", RoleBacklog},
	{"In Progress", RoleInProgress},
	{"Done", RoleDone},
}

// CreateBoard creates a board with the three default columns in one
// transaction.
func (s *Store) CreateBoard(ctx context.Context, workspaceID, title string) (*Board, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	boardID := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO boards (id, title, workspace_id) VALUES (?, ?, ?)`,
		boardID, title, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert board: %w", err)
	}

	for i, col := range defaultColumns {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO columns (id, title, role, board_id, sort_order) VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), col.Title, col.Role, boardID, i,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert column: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetBoard(ctx, workspaceID, boardID)
}

// GetBoard returns one board with its columns, scoped to the workspace.
func (s *Store) GetBoard(ctx context.Context, workspaceID, boardID string) (*Board, error) {
	board := &Board{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, workspace_id, created_at, updated_at
		 FROM boards WHERE id = ? AND workspace_id = ?`,
		boardID, workspaceID,
	).Scan(&board.ID, &board.Title, &board.WorkspaceID, &board.CreatedAt, &board.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query board: %w", err)
	}

	columns, err := s.GetColumns(ctx, boardID)
	if err != nil {
		return nil, err
	}
	board.Columns = columns
	return board, nil
}

// GetBoards lists all boards in a workspace with column summaries.
func (s *Store) GetBoards(ctx context.Context, workspaceID string) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, workspace_id, created_at, updated_at
		 FROM boards WHERE workspace_id = ? ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}
	defer rows.Close()

	boards := []Board{}
	for rows.Next() {
		board := Board{}
		if err := rows.Scan(&board.ID, &board.Title, &board.WorkspaceID, &board.CreatedAt, &board.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read boards: %w", err)
	}

	for i := range boards {
		summaries, err := s.getColumnSummaries(ctx, boards[i].ID)
		if err != nil {
			return nil, err
		}
		boards[i].Columns = summaries
	}
	return boards, nil
}

// UpdateBoardTitle renames a board, scoped to the workspace.
func (s *Store) UpdateBoardTitle(ctx context.Context, workspaceID, boardID, title string) (*Board, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE boards SET title = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND workspace_id = ?`,
		title, boardID, workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetBoard(ctx, workspaceID, boardID)
}

// DeleteBoard removes a board; columns and tasks cascade.
func (s *Store) DeleteBoard(ctx context.Context, workspaceID, boardID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM boards WHERE id = ? AND workspace_id = ?`,
		boardID, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
