package roles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

// exerciseRepository runs the behaviour every Repository must share.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	role := func(id, name string, perms ...string) Role {
		return Role{ID: id, AppID: "sales", Name: name, Permissions: rbac.MustParseSet(perms...), CreatedAt: now, UpdatedAt: now}
	}

	list, err := repo.ListRoles(ctx, "sales")
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.InsertRole(ctx, role("b", "Second", "orders.*")))
	require.NoError(t, repo.InsertRole(ctx, role("a", "First", "customers.view")))
	require.NoError(t, repo.InsertRole(ctx, Role{ID: "a", AppID: "hr", Name: "Other app", CreatedAt: now, UpdatedAt: now}))

	err = repo.InsertRole(ctx, role("a", "Duplicate"))
	assert.True(t, errors.Is(err, shared.ErrConflict))

	list, err = repo.ListRoles(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID, "insertion order")
	assert.Equal(t, "a", list[1].ID)

	got, err := repo.GetRole(ctx, "sales", "b")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
	assert.Equal(t, []string{"orders.*"}, got.Permissions.Strings())

	updated := got
	updated.Name = "Second renamed"
	updated.Permissions = rbac.MustParseSet("orders.view")
	require.NoError(t, repo.UpdateRole(ctx, updated))
	got, err = repo.GetRole(ctx, "sales", "b")
	require.NoError(t, err)
	assert.Equal(t, "Second renamed", got.Name)
	assert.Equal(t, []string{"orders.view"}, got.Permissions.Strings())

	require.NoError(t, repo.DeleteRole(ctx, "sales", "b"))
	_, err = repo.GetRole(ctx, "sales", "b")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	err = repo.DeleteRole(ctx, "sales", "b")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	err = repo.UpdateRole(ctx, role("b", "Back"))
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	taken, err := repo.IDTaken(ctx, "sales", "b")
	require.NoError(t, err)
	assert.True(t, taken, "deleted ids stay retired")
	err = repo.InsertRole(ctx, role("b", "Reborn"))
	assert.True(t, errors.Is(err, shared.ErrConflict))

	taken, err = repo.IDTaken(ctx, "sales", "c")
	require.NoError(t, err)
	assert.False(t, taken)

	list, err = repo.ListRoles(ctx, "hr")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].Permissions.Len())
}

func TestMemoryRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryRepository())
}

func TestMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.InsertRole(ctx, Role{ID: "a", AppID: "sales", Permissions: rbac.MustParseSet("customers.view")}))

	got, err := repo.GetRole(ctx, "sales", "a")
	require.NoError(t, err)
	got.Permissions.Add(rbac.AllOf("customers"))

	again, err := repo.GetRole(ctx, "sales", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"customers.view"}, again.Permissions.Strings())
}
