// Package testutil opens a migrated Postgres pool for adapter contract tests.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/logger"
)

// EnvDatabaseURL names the database used by Postgres tests. Tests skip when it is unset.
const EnvDatabaseURL = "TEST_DATABASE_URL"

func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("%s not set; skipping Postgres test", EnvDatabaseURL)
	}
	if err := postgres.Migrate(dsn, logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolOptions{MaxConns: 8})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
