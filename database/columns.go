package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// GetColumns returns a board's columns in display order, each with its tasks.
func (s *Store) GetColumns(ctx context.Context, boardID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, role, board_id, sort_order
		 FROM columns WHERE board_id = ? ORDER BY sort_order`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	columns := []Column{}
	for rows.Next() {
		col := Column{}
		if err := rows.Scan(&col.ID, &col.Title, &col.Role, &col.BoardID, &col.Order); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	for i := range columns {
		tasks, err := s.GetTasksByColumn(ctx, columns[i].ID)
		if err != nil {
			return nil, err
		}
		columns[i].Tasks = tasks
	}
	return columns, nil
}

// getColumnSummaries returns columns with task counts but without task rows.
func (s *Store) getColumnSummaries(ctx context.Context, boardID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.role, c.board_id, c.sort_order, COUNT(t.id)
		 FROM columns c
		 LEFT JOIN tasks t ON t.column_id = c.id
		 WHERE c.board_id = ?
		 GROUP BY c.id, c.title, c.role, c.board_id, c.sort_order
		 ORDER BY c.sort_order`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query column summaries: %w", err)
	}
	defer rows.Close()

	columns := []Column{}
	for rows.Next() {
		col := Column{}
		if err := rows.Scan(&col.ID, &col.Title, &col.Role, &col.BoardID, &col.Order, &col.TaskCount); err != nil {
			return nil, fmt.Errorf("failed to scan column summary: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// getColumnScoped loads a column only if it belongs to the given workspace.
// A column outside the workspace reads the same as a missing one.
func (s *Store) getColumnScoped(ctx context.Context, workspaceID, columnID string) (*Column, error) {
	col := &Column{}
	err := s.db.QueryRowContext(ctx,
		`SELECT c.id, c.title, c.role, c.board_id, c.sort_order
		 FROM columns c
		 JOIN boards b ON c.board_id = b.id
		 WHERE c.id = ? AND b.workspace_id = ?`,
		columnID, workspaceID,
	).Scan(&col.ID, &col.Title, &col.Role, &col.BoardID, &col.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query column: %w", err)
	}
	return col, nil
}

// CreateColumn appends a column at the tail of the board.
func (s *Store) CreateColumn(ctx context.Context, workspaceID, boardID, title string) (*Column, error) {
	if _, err := s.GetBoard(ctx, workspaceID, boardID); err != nil {
		return nil, err
	}

	var maxOrder sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(sort_order) FROM columns WHERE board_id = ?`, boardID,
	).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to query max order: %w", err)
	}

	nextOrder := 0
	if maxOrder.Valid {
		nextOrder = int(maxOrder.Int64) + 1
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO columns (id, title, role, board_id, sort_order) VALUES (?, ?, '', ?, ?)`,
		id, title, boardID, nextOrder,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert column: %w", err)
	}

	return &Column{ID: id, Title: title, BoardID: boardID, Order: nextOrder}, nil
}

// ReorderColumns rewrites the board's column order to match the given ID list.
// All updates commit atomically.
func (s *Store) ReorderColumns(ctx context.Context, workspaceID, boardID string, columnIDs []string) error {
	if _, err := s.GetBoard(ctx, workspaceID, boardID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, id := range columnIDs {
		_, err := tx.ExecContext(ctx,
			`UPDATE columns SET sort_order = ? WHERE id = ? AND board_id = ?`,
			i, id, boardID,
		)
		if err != nil {
			return fmt.Errorf("failed to reorder column: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateColumnTitle renames a column.
func (s *Store) UpdateColumnTitle(ctx context.Context, workspaceID, columnID, title string) (*Column, error) {
	col, err := s.getColumnScoped(ctx, workspaceID, columnID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE columns SET title = ? WHERE id = ?`, title, columnID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update column: %w", err)
	}
	col.Title = title
	return col, nil
}

// DeleteColumn removes a column and compacts the surviving siblings' order in
// the same transaction, so the board keeps a dense 0..N-1 sequence.
func (s *Store) DeleteColumn(ctx context.Context, workspaceID, columnID string) error {
	col, err := s.getColumnScoped(ctx, workspaceID, columnID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE id = ?`, columnID); err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE columns SET sort_order = sort_order - 1 WHERE board_id = ? AND sort_order > ?`,
		col.BoardID, col.Order,
	)
	if err != nil {
		return fmt.Errorf("failed to compact columns: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// FindColumnByRole resolves a well-known column on a board by its role tag,
// falling back to a title match for boards that predate role tags.
func (s *Store) FindColumnByRole(ctx context.Context, boardID, role, fallbackTitle string) (*Column, error) {
	col := &Column{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, role, board_id, sort_order FROM columns
		 WHERE board_id = ? AND (role = ? OR (role = '' AND title = ?))
		 ORDER BY role DESC LIMIT 1`,
		boardID, role, fallbackTitle,
	).Scan(&col.ID, &col.Title, &col.Role, &col.BoardID, &col.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query column by role: %w", err)
	}
	return col, nil
}
