package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleetops/internal/domain"
)

// DriverRepo defines the persistence operations for Drivers.
type DriverRepo interface {
	Create(ctx context.Context, d domain.Driver) (domain.Driver, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Driver, error)
	// GetByUserID looks a driver up by identity-provider subject.
	GetByUserID(ctx context.Context, userID string) (domain.Driver, error)
	// List returns all drivers, optionally restricted to one status (empty = all).
	List(ctx context.Context, status domain.DriverStatus) ([]domain.Driver, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error)
}

// VehicleRepo defines the persistence operations for Vehicles.
type VehicleRepo interface {
	Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	// GetByIDs returns the vehicles among ids that exist, in no particular order.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Vehicle, error)
	// List returns all vehicles, optionally restricted to one status (empty = all).
	List(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error)
}

type pgDriverRepo struct {
	db db
}

// NewDriverRepo constructs a DriverRepo backed by the provided db connection.
func NewDriverRepo(db db) DriverRepo {
	return &pgDriverRepo{db: db}
}

const driverColumns = `id, user_id, name, license_number, status, experience_years, created_at, updated_at`

func (r *pgDriverRepo) Create(ctx context.Context, d domain.Driver) (domain.Driver, error) {
	q := `
		INSERT INTO drivers (user_id, name, license_number, status, experience_years)
		VALUES (@user_id, @name, @license_number, @status, @experience_years)
		RETURNING ` + driverColumns

	args := pgx.NamedArgs{
		"user_id":          d.UserID,
		"name":             d.Name,
		"license_number":   d.LicenseNumber,
		"status":           string(d.Status),
		"experience_years": d.ExperienceYears,
	}
	result, err := scanDriver(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgDriverRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers WHERE id = @id`

	result, err := scanDriver(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.GetByID: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgDriverRepo) GetByUserID(ctx context.Context, userID string) (domain.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers WHERE user_id = @user_id`

	result, err := scanDriver(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.GetByUserID: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgDriverRepo) List(ctx context.Context, status domain.DriverStatus) ([]domain.Driver, error) {
	q := `SELECT ` + driverColumns + ` FROM drivers
		WHERE (@status::text = '' OR status = @status)
		ORDER BY name, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("repo.DriverRepo.List: %w", err)
	}
	drivers, err := collect(rows, scanDriver)
	if err != nil {
		return nil, fmt.Errorf("repo.DriverRepo.List: %w", err)
	}
	return drivers, nil
}

func (r *pgDriverRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error) {
	q := `
		UPDATE drivers SET status = @status, updated_at = now()
		WHERE id = @id
		RETURNING ` + driverColumns

	result, err := scanDriver(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)}))
	if err != nil {
		return domain.Driver{}, fmt.Errorf("repo.DriverRepo.UpdateStatus: %w", mapPgError(err))
	}
	return result, nil
}

func scanDriver(s scanner) (domain.Driver, error) {
	var (
		d      domain.Driver
		id     pgtype.UUID
		userID pgtype.Text
		status string
	)
	if err := s.Scan(&id, &userID, &d.Name, &d.LicenseNumber, &status, &d.ExperienceYears,
		&d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.Driver{}, err
	}
	d.ID = uuid.UUID(id.Bytes)
	d.UserID = textPtr(userID)
	d.Status = domain.DriverStatus(status)
	return d, nil
}

type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

const vehicleColumns = `id, plate_number, model, status, capacity_weight, capacity_volume, mileage, created_at, updated_at`

func (r *pgVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	q := `
		INSERT INTO vehicles (plate_number, model, status, capacity_weight, capacity_volume, mileage)
		VALUES (@plate_number, @model, @status, @capacity_weight, @capacity_volume, @mileage)
		RETURNING ` + vehicleColumns

	args := pgx.NamedArgs{
		"plate_number":    v.PlateNumber,
		"model":           v.Model,
		"status":          string(v.Status),
		"capacity_weight": v.CapacityWeight,
		"capacity_volume": v.CapacityVolume,
		"mileage":         v.Mileage,
	}
	result, err := scanVehicle(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = @id`

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetByID: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgVehicleRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Vehicle, error) {
	if len(ids) == 0 {
		return []domain.Vehicle{}, nil
	}
	q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ANY(@ids)`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.GetByIDs: %w", err)
	}
	vehicles, err := collect(rows, scanVehicle)
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.GetByIDs: %w", err)
	}
	return vehicles, nil
}

func (r *pgVehicleRepo) List(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE (@status::text = '' OR status = @status)
		ORDER BY plate_number, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.List: %w", err)
	}
	vehicles, err := collect(rows, scanVehicle)
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.List: %w", err)
	}
	return vehicles, nil
}

func (r *pgVehicleRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error) {
	q := `
		UPDATE vehicles SET status = @status, updated_at = now()
		WHERE id = @id
		RETURNING ` + vehicleColumns

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.UpdateStatus: %w", mapPgError(err))
	}
	return result, nil
}

func scanVehicle(s scanner) (domain.Vehicle, error) {
	var (
		v              domain.Vehicle
		id             pgtype.UUID
		status         string
		weight, volume pgtype.Float8
	)
	if err := s.Scan(&id, &v.PlateNumber, &v.Model, &status, &weight, &volume, &v.Mileage,
		&v.CreatedAt, &v.UpdatedAt); err != nil {
		return domain.Vehicle{}, err
	}
	v.ID = uuid.UUID(id.Bytes)
	v.Status = domain.VehicleStatus(status)
	v.CapacityWeight = floatPtr(weight)
	v.CapacityVolume = floatPtr(volume)
	return v, nil
}
