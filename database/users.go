package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateUser inserts a new user record.
func (s *Store) CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash) VALUES (?, ?, ?, ?)`,
		id, email, name, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByEmail looks a user up by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`,
		email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// CreateWorkspace inserts a workspace owned by the given user.
func (s *Store) CreateWorkspace(ctx context.Context, name, userID string) (*Workspace, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, user_id) VALUES (?, ?, ?)`,
		id, name, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert workspace: %w", err)
	}

	ws := &Workspace{}
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, created_at FROM workspaces WHERE id = ?`,
		id,
	).Scan(&ws.ID, &ws.Name, &ws.UserID, &ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace: %w", err)
	}
	return ws, nil
}

// GetWorkspaceForUser resolves the workspace owned by a user. The data model
// currently keeps one workspace per user; core operations still take the
// resolved workspace ID explicitly so multi-workspace support stays a
// non-breaking extension.
func (s *Store) GetWorkspaceForUser(ctx context.Context, userID string) (*Workspace, error) {
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, created_at FROM workspaces
		 WHERE user_id = ? ORDER BY created_at LIMIT 1`,
		userID,
	).Scan(&ws.ID, &ws.Name, &ws.UserID, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace: %w", err)
	}
	return ws, nil
}

// GetAnyWorkspace returns the first workspace in the store. Used by the
// dispatch endpoint, which authenticates with the shared secret rather than a
// user session and only needs somewhere to attach its audit log entry.
func (s *Store) GetAnyWorkspace(ctx context.Context) (*Workspace, error) {
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, user_id, created_at FROM workspaces ORDER BY created_at LIMIT 1`,
	).Scan(&ws.ID, &ws.Name, &ws.UserID, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace: %w", err)
	}
	return ws, nil
}
