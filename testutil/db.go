// Package testutil provides shared helpers for database integration tests.
// Every helper skips the calling test when TEST_DATABASE_URL is unset, so the
// unit suite runs without Postgres.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/pkordes/fleetops/migrations"
)

const dsnEnv = "TEST_DATABASE_URL"

// NewPool opens a pool on the test database and closes it when t finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// NewSQLDB opens a database/sql handle on the test database for goose,
// closed when t finishes.
func NewSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewSQLDB: open: %v", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLDB: ping: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// MigrateForMain brings the test database up to the latest schema from a
// TestMain, where no *testing.T exists. It reports false when
// TEST_DATABASE_URL is unset and panics on any other failure.
func MigrateForMain() bool {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		return false
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		panic("testutil.MigrateForMain: open: " + err.Error())
	}
	defer db.Close()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := migrations.Up(context.Background(), db, quiet); err != nil {
		panic("testutil.MigrateForMain: " + err.Error())
	}
	return true
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skip(dsnEnv + " not set; skipping integration test")
	}
	return dsn
}
