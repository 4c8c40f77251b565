//go:build integration

// Package pgtest starts a throwaway PostgreSQL container with the
// application schema applied. It backs the repository integration tests
// run with `go test -tags integration ./...`.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/homefixer/homefixer/internal/infra"
)

const image = "postgres:16-alpine"

// New returns a pool connected to a fresh, migrated database. The container
// is removed when t finishes.
func New(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("homefixer"),
		tcpostgres.WithUsername("homefixer"),
		tcpostgres.WithPassword("homefixer"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	pool, err := infra.NewPostgresPool(ctx, dsn, "homefixer-test")
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := infra.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}
