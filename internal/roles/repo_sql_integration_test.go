//go:build integration

package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/odyssey-erp/odyssey-rbac/internal/catalog"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
)

func setupPostgresRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("rbac_test"),
		postgres.WithUsername("odyssey"),
		postgres.WithPassword("odyssey"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := db.New(ctx, db.Config{DSN: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewPostgresRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is repeatable")
	return repo
}

func TestPostgresRepository(t *testing.T) {
	exerciseRepository(t, setupPostgresRepository(t))
}

func TestServiceOnPostgres(t *testing.T) {
	repo := setupPostgresRepository(t)
	c := catalog.Default()
	svc := NewService(c, repo, rbac.NewEngine(c))
	ctx := context.Background()

	require.NoError(t, svc.SeedCatalog(ctx, c))
	require.NoError(t, svc.SeedCatalog(ctx, c))

	roles, err := svc.ListRoles(ctx, "sales")
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	allowed, err := svc.Can(ctx, "sales", "sales-admin", "customers.export")
	require.NoError(t, err)
	assert.True(t, allowed)
}
