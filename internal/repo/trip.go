package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleetops/internal/domain"
)

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres implementation,
// which allows the service to be unit-tested with an in-memory store.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with DB-generated
	// id, created_at, and updated_at populated).
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetForUpdate is GetByID with a row lock held until the surrounding
	// transaction ends. Outside InTx the lock is released immediately.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// List returns one page of trips matching f, newest date_start first, and
	// the total number of matching rows.
	List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// ListForResources returns every non-cancelled trip that uses one of ids
	// as its driver (kind == driver) or vehicle (kind == vehicle).
	ListForResources(ctx context.Context, kind domain.ResourceKind, ids []uuid.UUID) ([]domain.Trip, error)

	// ListOpen returns all planned and ongoing trips.
	ListOpen(ctx context.Context) ([]domain.Trip, error)

	// Update overwrites the schedulable fields of a trip. Status and
	// actual_duration are only written by UpdateStatus.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// UpdateStatus writes trip.Status and trip.ActualDuration, provided the
	// stored status is still from. Returns domain.ErrConflict otherwise.
	UpdateStatus(ctx context.Context, trip domain.Trip, from domain.TripStatus) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// LockResources takes transaction-scoped advisory locks on the driver and
	// vehicle so that concurrent bookings of the same resource serialise.
	LockResources(ctx context.Context, driverID, vehicleID uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, driver_id, vehicle_id, departure, destination, date_start, date_end,
		status, estimated_duration, actual_duration, distance, total_cost, notes,
		created_at, updated_at`

func tripArgs(t domain.Trip) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                 t.ID,
		"driver_id":          t.DriverID,
		"vehicle_id":         t.VehicleID,
		"departure":          t.Departure,
		"destination":        t.Destination,
		"date_start":         t.DateStart,
		"date_end":           t.DateEnd, // nil becomes NULL
		"status":             string(t.Status),
		"estimated_duration": t.EstimatedDuration,
		"actual_duration":    t.ActualDuration,
		"distance":           t.Distance,
		"total_cost":         t.TotalCost,
		"notes":              t.Notes,
	}
}

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		INSERT INTO trips (driver_id, vehicle_id, departure, destination, date_start, date_end,
		                   status, estimated_duration, distance, total_cost, notes)
		VALUES (@driver_id, @vehicle_id, @departure, @destination, @date_start, @date_end,
		        @status, @estimated_duration, @distance, @total_cost, @notes)
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, tripArgs(trip)))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", mapPgError(err))
	}
	return result, nil
}

// GetForUpdate retrieves a trip and locks its row.
func (r *pgTripRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id FOR UPDATE`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetForUpdate: %w", mapPgError(err))
	}
	return result, nil
}

// List returns a filtered page of trips and the unpaged total.
func (r *pgTripRepo) List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	const where = `
		WHERE (@status::text = '' OR status = @status)
		  AND (@driver_id::uuid IS NULL OR driver_id = @driver_id)`

	args := pgx.NamedArgs{
		"status":    string(f.Status),
		"driver_id": nullUUID(f.DriverID),
		"limit":     p.Limit,
		"offset":    p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trips`+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: count: %w", err)
	}

	q := `SELECT ` + tripColumns + ` FROM trips` + where + `
		ORDER BY date_start DESC, id
		LIMIT @limit OFFSET @offset`
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	trips, err := collect(rows, scanTrip)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	return trips, total, nil
}

// ListForResources returns the non-cancelled trips of the given drivers or vehicles.
func (r *pgTripRepo) ListForResources(ctx context.Context, kind domain.ResourceKind, ids []uuid.UUID) ([]domain.Trip, error) {
	var column string
	switch kind {
	case domain.KindDriver:
		column = "driver_id"
	case domain.KindVehicle:
		column = "vehicle_id"
	default:
		return nil, fmt.Errorf("repo.TripRepo.ListForResources: %w: unknown resource kind %q", domain.ErrValidation, kind)
	}
	if len(ids) == 0 {
		return []domain.Trip{}, nil
	}

	q := `SELECT ` + tripColumns + ` FROM trips
		WHERE ` + column + ` = ANY(@ids) AND status <> 'cancelled'
		ORDER BY date_start, id`
	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListForResources: %w", err)
	}
	trips, err := collect(rows, scanTrip)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListForResources: %w", err)
	}
	return trips, nil
}

// ListOpen returns planned and ongoing trips ordered by start.
func (r *pgTripRepo) ListOpen(ctx context.Context) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips
		WHERE status IN ('planned', 'ongoing')
		ORDER BY date_start, id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListOpen: %w", err)
	}
	trips, err := collect(rows, scanTrip)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListOpen: %w", err)
	}
	return trips, nil
}

// Update overwrites the schedulable fields of a trip and returns the updated record.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET driver_id          = @driver_id,
		    vehicle_id         = @vehicle_id,
		    departure          = @departure,
		    destination        = @destination,
		    date_start         = @date_start,
		    date_end           = @date_end,
		    estimated_duration = @estimated_duration,
		    distance           = @distance,
		    total_cost         = @total_cost,
		    notes              = @notes,
		    updated_at         = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, tripArgs(trip)))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", mapPgError(err))
	}
	return result, nil
}

// UpdateStatus writes the status and actual duration if the stored status is from.
func (r *pgTripRepo) UpdateStatus(ctx context.Context, trip domain.Trip, from domain.TripStatus) (domain.Trip, error) {
	q := `
		UPDATE trips
		SET status          = @status,
		    actual_duration = @actual_duration,
		    updated_at      = now()
		WHERE id = @id AND status = @from
		RETURNING ` + tripColumns

	args := tripArgs(trip)
	args["from"] = string(from)

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	err = mapPgError(err)
	if errors.Is(err, domain.ErrNotFound) {
		// Either the trip is gone or another writer moved it first.
		if _, getErr := r.GetByID(ctx, trip.ID); getErr == nil {
			err = fmt.Errorf("%w: trip status changed concurrently", domain.ErrConflict)
		}
	}
	return domain.Trip{}, fmt.Errorf("repo.TripRepo.UpdateStatus: %w", err)
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// LockResources takes advisory locks in a fixed order (driver, then vehicle)
// so two transactions booking the same pair cannot deadlock.
func (r *pgTripRepo) LockResources(ctx context.Context, driverID, vehicleID uuid.UUID) error {
	const q = `SELECT pg_advisory_xact_lock(hashtextextended(@key, 0))`

	for _, key := range []string{"driver:" + driverID.String(), "vehicle:" + vehicleID.String()} {
		if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"key": key}); err != nil {
			return fmt.Errorf("repo.TripRepo.LockResources: %s: %w", key, err)
		}
	}
	return nil
}

// scanTrip maps a single database row into a domain.Trip.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t                   domain.Trip
		id, driver, vehicle pgtype.UUID
		status              string
		dateEnd             pgtype.Timestamptz
		estimated, actual   pgtype.Int4
		distance            pgtype.Float8
	)

	err := s.Scan(&id, &driver, &vehicle, &t.Departure, &t.Destination, &t.DateStart, &dateEnd,
		&status, &estimated, &actual, &distance, &t.TotalCost, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.DriverID = uuid.UUID(driver.Bytes)
	t.VehicleID = uuid.UUID(vehicle.Bytes)
	t.Status = domain.TripStatus(status)
	t.DateEnd = timePtr(dateEnd)
	t.EstimatedDuration = intPtr(estimated)
	t.ActualDuration = intPtr(actual)
	t.Distance = floatPtr(distance)
	return t, nil
}
