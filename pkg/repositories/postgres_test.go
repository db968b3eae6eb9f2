package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("wordchain"),
		postgres.WithUsername("wordchain"),
		postgres.WithPassword("wordchain"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := Open(ctx, connStr)
	require.NoError(t, err)
	defer repo.Close(ctx)
	require.IsType(t, &PostgresRepository{}, repo)

	exerciseRepository(t, repo)

	// migrations are idempotent
	again, err := NewPostgresRepository(ctx, connStr)
	require.NoError(t, err)
	again.Close(ctx)
}
