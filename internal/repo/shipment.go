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

// ShipmentRepo defines the persistence operations for Shipments.
type ShipmentRepo interface {
	// Create inserts a new shipment. A duplicate tracking number yields
	// domain.ErrConflict.
	Create(ctx context.Context, s domain.Shipment) (domain.Shipment, error)

	// GetByID retrieves a shipment. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Shipment, error)

	// GetByTracking retrieves a shipment by its tracking number.
	GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error)

	// List returns one page of shipments matching f, newest first, and the
	// total number of matching rows.
	List(ctx context.Context, f domain.ShipmentFilter, p domain.PaginationParams) ([]domain.Shipment, int64, error)

	// ListByTrips returns every shipment attached to one of tripIDs.
	ListByTrips(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Shipment, error)

	// LockByTrip returns the shipments of a trip with their rows locked until
	// the surrounding transaction ends.
	LockByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Shipment, error)

	// Assign attaches a pending, unassigned shipment to tripID and marks it
	// assigned. If the shipment is no longer pending and unassigned when the
	// write lands, nothing changes and domain.ErrConflict is returned.
	Assign(ctx context.Context, id, tripID uuid.UUID) (domain.Shipment, error)

	// UpdateStatus writes s.Status, s.PickupDate and s.DeliveryDate provided
	// the stored status is still from. Returns domain.ErrConflict otherwise.
	UpdateStatus(ctx context.Context, s domain.Shipment, from domain.ShipmentStatus) (domain.Shipment, error)

	// Delete removes a shipment by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgShipmentRepo struct {
	db db
}

// NewShipmentRepo constructs a ShipmentRepo backed by the provided db connection.
func NewShipmentRepo(db db) ShipmentRepo {
	return &pgShipmentRepo{db: db}
}

const shipmentColumns = `id, trip_id, client_id, tracking_number, description, weight, volume,
		price, pickup_address, delivery_address, priority, status, pickup_date, delivery_date,
		created_at, updated_at`

func (r *pgShipmentRepo) Create(ctx context.Context, s domain.Shipment) (domain.Shipment, error) {
	q := `
		INSERT INTO shipments (trip_id, client_id, tracking_number, description, weight, volume,
		                       price, pickup_address, delivery_address, priority, status,
		                       pickup_date, delivery_date)
		VALUES (@trip_id, @client_id, @tracking_number, @description, @weight, @volume,
		        @price, @pickup_address, @delivery_address, @priority, @status,
		        @pickup_date, @delivery_date)
		RETURNING ` + shipmentColumns

	args := pgx.NamedArgs{
		"trip_id":          s.TripID,
		"client_id":        s.ClientID,
		"tracking_number":  s.TrackingNumber,
		"description":      s.Description,
		"weight":           s.Weight,
		"volume":           s.Volume,
		"price":            s.Price,
		"pickup_address":   s.PickupAddress,
		"delivery_address": s.DeliveryAddress,
		"priority":         string(s.Priority),
		"status":           string(s.Status),
		"pickup_date":      s.PickupDate,
		"delivery_date":    s.DeliveryDate,
	}

	result, err := scanShipment(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("repo.ShipmentRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgShipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Shipment, error) {
	q := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = @id`

	result, err := scanShipment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("repo.ShipmentRepo.GetByID: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgShipmentRepo) GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	q := `SELECT ` + shipmentColumns + ` FROM shipments WHERE tracking_number = @tracking_number`

	result, err := scanShipment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"tracking_number": trackingNumber}))
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("repo.ShipmentRepo.GetByTracking: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgShipmentRepo) List(ctx context.Context, f domain.ShipmentFilter, p domain.PaginationParams) ([]domain.Shipment, int64, error) {
	const where = `
		WHERE (@status::text = '' OR status = @status)
		  AND (@client_id::text = '' OR client_id = @client_id)
		  AND (NOT @unassigned::bool OR trip_id IS NULL)`

	args := pgx.NamedArgs{
		"status":     string(f.Status),
		"client_id":  f.ClientID,
		"unassigned": f.Unassigned,
		"limit":      p.Limit,
		"offset":     p.Offset(),
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM shipments`+where, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ShipmentRepo.List: count: %w", err)
	}

	q := `SELECT ` + shipmentColumns + ` FROM shipments` + where + `
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ShipmentRepo.List: %w", err)
	}
	shipments, err := collect(rows, scanShipment)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ShipmentRepo.List: %w", err)
	}
	return shipments, total, nil
}

func (r *pgShipmentRepo) ListByTrips(ctx context.Context, tripIDs []uuid.UUID) ([]domain.Shipment, error) {
	if len(tripIDs) == 0 {
		return []domain.Shipment{}, nil
	}
	q := `SELECT ` + shipmentColumns + ` FROM shipments
		WHERE trip_id = ANY(@trip_ids)
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_ids": tripIDs})
	if err != nil {
		return nil, fmt.Errorf("repo.ShipmentRepo.ListByTrips: %w", err)
	}
	shipments, err := collect(rows, scanShipment)
	if err != nil {
		return nil, fmt.Errorf("repo.ShipmentRepo.ListByTrips: %w", err)
	}
	return shipments, nil
}

func (r *pgShipmentRepo) LockByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Shipment, error) {
	q := `SELECT ` + shipmentColumns + ` FROM shipments
		WHERE trip_id = @trip_id
		ORDER BY created_at, id
		FOR UPDATE`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.ShipmentRepo.LockByTrip: %w", err)
	}
	shipments, err := collect(rows, scanShipment)
	if err != nil {
		return nil, fmt.Errorf("repo.ShipmentRepo.LockByTrip: %w", err)
	}
	return shipments, nil
}

// Assign is a conditional write: only a row that is still pending and
// unassigned is updated, so exactly one of several concurrent callers wins.
func (r *pgShipmentRepo) Assign(ctx context.Context, id, tripID uuid.UUID) (domain.Shipment, error) {
	q := `
		UPDATE shipments
		SET trip_id    = @trip_id,
		    status     = 'assigned',
		    updated_at = now()
		WHERE id = @id AND status = 'pending' AND trip_id IS NULL
		RETURNING ` + shipmentColumns

	result, err := scanShipment(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "trip_id": tripID}))
	if err == nil {
		return result, nil
	}
	return domain.Shipment{}, fmt.Errorf("repo.ShipmentRepo.Assign: %w", r.lostWrite(ctx, id, err, "shipment already assigned"))
}

func (r *pgShipmentRepo) UpdateStatus(ctx context.Context, s domain.Shipment, from domain.ShipmentStatus) (domain.Shipment, error) {
	q := `
		UPDATE shipments
		SET status        = @status,
		    pickup_date   = @pickup_date,
		    delivery_date = @delivery_date,
		    updated_at    = now()
		WHERE id = @id AND status = @from
		RETURNING ` + shipmentColumns

	args := pgx.NamedArgs{
		"id":            s.ID,
		"status":        string(s.Status),
		"pickup_date":   s.PickupDate,
		"delivery_date": s.DeliveryDate,
		"from":          string(from),
	}

	result, err := scanShipment(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	return domain.Shipment{}, fmt.Errorf("repo.ShipmentRepo.UpdateStatus: %w", r.lostWrite(ctx, s.ID, err, "shipment status changed concurrently"))
}

func (r *pgShipmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM shipments WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.ShipmentRepo.Delete: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ShipmentRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// lostWrite classifies a conditional UPDATE that matched no row: if the
// shipment still exists its guard no longer held, which is a conflict.
func (r *pgShipmentRepo) lostWrite(ctx context.Context, id uuid.UUID, err error, msg string) error {
	err = mapPgError(err)
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	var exists bool
	if qErr := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM shipments WHERE id = @id)`,
		pgx.NamedArgs{"id": id}).Scan(&exists); qErr != nil {
		return qErr
	}
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	}
	return domain.ErrNotFound
}

func scanShipment(s scanner) (domain.Shipment, error) {
	var (
		sh                   domain.Shipment
		id, tripID           pgtype.UUID
		weight, volume       pgtype.Float8
		priority, status     string
		pickupDate, delivery pgtype.Timestamptz
	)

	err := s.Scan(&id, &tripID, &sh.ClientID, &sh.TrackingNumber, &sh.Description, &weight, &volume,
		&sh.Price, &sh.PickupAddress, &sh.DeliveryAddress, &priority, &status, &pickupDate, &delivery,
		&sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return domain.Shipment{}, err
	}

	sh.ID = uuid.UUID(id.Bytes)
	sh.TripID = uuidPtr(tripID)
	sh.Weight = floatPtr(weight)
	sh.Volume = floatPtr(volume)
	sh.Priority = domain.Priority(priority)
	sh.Status = domain.ShipmentStatus(status)
	sh.PickupDate = timePtr(pickupDate)
	sh.DeliveryDate = timePtr(delivery)
	return sh, nil
}
