// Package repo contains all database access logic for the FleetOps API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here: only SQL, type mapping and the transaction
// boundary.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/fleetops/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// conn is a db that can also open a transaction. *pgxpool.Pool opens a real
// transaction; pgx.Tx opens a savepoint.
type conn interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the per-entity repos behind one handle and provides the unit
// of work. Services depend on this interface, never on pgx types.
type Store interface {
	Trips() TripRepo
	Shipments() ShipmentRepo
	Drivers() DriverRepo
	Vehicles() VehicleRepo
	Issues() IssueRepo

	// InTx runs fn against a Store bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise, so every
	// write made through the Store passed to fn lands together or not at all.
	InTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	conn conn
}

// NewStore constructs a Store backed by c.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewStore(c conn) Store {
	return &pgStore{conn: c}
}

func (s *pgStore) Trips() TripRepo         { return &pgTripRepo{db: s.conn} }
func (s *pgStore) Shipments() ShipmentRepo { return &pgShipmentRepo{db: s.conn} }
func (s *pgStore) Drivers() DriverRepo     { return &pgDriverRepo{db: s.conn} }
func (s *pgStore) Vehicles() VehicleRepo   { return &pgVehicleRepo{db: s.conn} }
func (s *pgStore) Issues() IssueRepo       { return &pgIssueRepo{db: s.conn} }

// InTx begins a transaction (or a savepoint when s is already transactional),
// runs fn, and commits only if fn succeeds.
func (s *pgStore) InTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.Store.InTx: begin: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&pgStore{conn: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.Store.InTx: commit: %w", mapPgError(err))
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// mapPgError translates constraint violations into domain sentinels so
// services and handlers never inspect SQLSTATE codes.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced record does not exist (%s)", domain.ErrValidation, pgErr.ConstraintName)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: concurrent update, retry", domain.ErrConflict)
		}
	}
	return err
}

// collect drains rows through scan into a non-nil slice.
func collect[T any](rows pgx.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
