package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindColumnByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("resolves by role tag", func(t *testing.T) {
		col, err := f.Store.FindColumnByRole(ctx, f.Board.ID, RoleDone, "Done")
		require.NoError(t, err)
		assert.Equal(t, "Done", col.Title)
		assert.Equal(t, RoleDone, col.Role)
	})

	t.Run("role survives a rename", func(t *testing.T) {
		done := f.column(t, RoleDone)
		_, err := f.Store.UpdateColumnTitle(ctx, f.Workspace.ID, done.ID, "Shipped")
		require.NoError(t, err)

		col, err := f.Store.FindColumnByRole(ctx, f.Board.ID, RoleDone, "Done")
		require.NoError(t, err)
		assert.Equal(t, done.ID, col.ID)
		assert.Equal(t, "Shipped", col.Title)
	})

	t.Run("title fallback for untagged columns", func(t *testing.T) {
		// User-created columns carry no role; only the title can match.
		review, err := f.Store.CreateColumn(ctx, f.Workspace.ID, f.Board.ID, "Review")
		require.NoError(t, err)

		col, err := f.Store.FindColumnByRole(ctx, f.Board.ID, "review", "Review")
		require.NoError(t, err)
		assert.Equal(t, review.ID, col.ID)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := f.Store.FindColumnByRole(ctx, f.Board.ID, "triage", "Triage")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateColumnAppendsAtTail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	col, err := f.Store.CreateColumn(ctx, f.Workspace.ID, f.Board.ID, "Blocked")
	require.NoError(t, err)
	assert.Equal(t, 3, col.Order)
	assert.Empty(t, col.Role)
}

func TestDeleteColumnCompactsBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doing := f.column(t, RoleInProgress)

	require.NoError(t, f.Store.DeleteColumn(ctx, f.Workspace.ID, doing.ID))

	cols, err := f.Store.GetColumns(ctx, f.Board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	for i, c := range cols {
		assert.Equal(t, i, c.Order)
	}
	assert.Equal(t, "To Do", cols[0].Title)
	assert.Equal(t, "Done", cols[1].Title)
}

func TestReorderColumns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := make([]string, len(f.Board.Columns))
	for i, c := range f.Board.Columns {
		ids[i] = c.ID
	}
	reversed := []string{ids[2], ids[1], ids[0]}

	require.NoError(t, f.Store.ReorderColumns(ctx, f.Workspace.ID, f.Board.ID, reversed))

	cols, err := f.Store.GetColumns(ctx, f.Board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "Done", cols[0].Title)
	assert.Equal(t, "In Progress", cols[1].Title)
	assert.Equal(t, "To Do", cols[2].Title)
}
