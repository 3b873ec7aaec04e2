package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/repo"
)

// FleetService manages the driver and vehicle registries.
type FleetService struct {
	base
}

// NewFleetService constructs a FleetService backed by store.
func NewFleetService(store repo.Store, opts ...Option) *FleetService {
	return &FleetService{base: newBase(store, opts)}
}

// CreateDriver validates and persists a driver. Status defaults to active.
// A duplicate license number or user id yields domain.ErrConflict.
func (s *FleetService) CreateDriver(ctx context.Context, d domain.Driver) (domain.Driver, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	if d.Status == "" {
		d.Status = domain.DriverActive
	}
	if err := validateDriver(d); err != nil {
		return domain.Driver{}, err
	}
	result, err := s.store.Drivers().Create(ctx, d)
	if err != nil {
		return domain.Driver{}, fmt.Errorf("service.FleetService.CreateDriver: %w", err)
	}
	return result, nil
}

// GetDriver returns a driver by id.
func (s *FleetService) GetDriver(ctx context.Context, id uuid.UUID) (domain.Driver, error) {
	result, err := s.store.Drivers().GetByID(ctx, id)
	if err != nil {
		return domain.Driver{}, fmt.Errorf("service.FleetService.GetDriver: %w", err)
	}
	return result, nil
}

// DriverBySubject returns the driver linked to an identity-provider subject.
func (s *FleetService) DriverBySubject(ctx context.Context, subject string) (domain.Driver, error) {
	result, err := s.store.Drivers().GetByUserID(ctx, subject)
	if err != nil {
		return domain.Driver{}, fmt.Errorf("service.FleetService.DriverBySubject: %w", err)
	}
	return result, nil
}

// ListDrivers returns drivers, optionally filtered by status.
func (s *FleetService) ListDrivers(ctx context.Context, status domain.DriverStatus) ([]domain.Driver, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown driver status %q", domain.ErrValidation, status)
	}
	result, err := s.store.Drivers().List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service.FleetService.ListDrivers: %w", err)
	}
	return result, nil
}

// SetDriverStatus changes a driver's status. Existing trips are unaffected;
// the driver simply stops appearing in availability queries.
func (s *FleetService) SetDriverStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error) {
	if !status.Valid() {
		return domain.Driver{}, fmt.Errorf("%w: unknown driver status %q", domain.ErrValidation, status)
	}
	result, err := s.store.Drivers().UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Driver{}, fmt.Errorf("service.FleetService.SetDriverStatus: %w", err)
	}
	s.log.InfoContext(ctx, "driver status changed", "driver_id", id, "status", status)
	return result, nil
}

// CreateVehicle validates and persists a vehicle. Status defaults to active.
func (s *FleetService) CreateVehicle(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	v.PlateNumber = strings.ToUpper(strings.TrimSpace(v.PlateNumber))
	v.Model = strings.TrimSpace(v.Model)
	if v.Status == "" {
		v.Status = domain.VehicleActive
	}
	if err := validateVehicle(v); err != nil {
		return domain.Vehicle{}, err
	}
	result, err := s.store.Vehicles().Create(ctx, v)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.FleetService.CreateVehicle: %w", err)
	}
	return result, nil
}

// GetVehicle returns a vehicle by id.
func (s *FleetService) GetVehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	result, err := s.store.Vehicles().GetByID(ctx, id)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.FleetService.GetVehicle: %w", err)
	}
	return result, nil
}

// ListVehicles returns vehicles, optionally filtered by status.
func (s *FleetService) ListVehicles(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle status %q", domain.ErrValidation, status)
	}
	result, err := s.store.Vehicles().List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service.FleetService.ListVehicles: %w", err)
	}
	return result, nil
}

// SetVehicleStatus changes a vehicle's status.
func (s *FleetService) SetVehicleStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error) {
	if !status.Valid() {
		return domain.Vehicle{}, fmt.Errorf("%w: unknown vehicle status %q", domain.ErrValidation, status)
	}
	result, err := s.store.Vehicles().UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.FleetService.SetVehicleStatus: %w", err)
	}
	s.log.InfoContext(ctx, "vehicle status changed", "vehicle_id", id, "status", status)
	return result, nil
}

func validateDriver(d domain.Driver) error {
	if err := requireText("name", d.Name); err != nil {
		return err
	}
	if err := requireText("license_number", d.LicenseNumber); err != nil {
		return err
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: unknown driver status %q", domain.ErrValidation, d.Status)
	}
	if d.ExperienceYears < 0 {
		return fmt.Errorf("%w: experience_years must not be negative", domain.ErrValidation)
	}
	if d.UserID != nil && strings.TrimSpace(*d.UserID) == "" {
		return fmt.Errorf("%w: user_id must not be blank", domain.ErrValidation)
	}
	return nil
}

func validateVehicle(v domain.Vehicle) error {
	if err := requireText("plate_number", v.PlateNumber); err != nil {
		return err
	}
	if err := requireText("model", v.Model); err != nil {
		return err
	}
	if !v.Status.Valid() {
		return fmt.Errorf("%w: unknown vehicle status %q", domain.ErrValidation, v.Status)
	}
	if err := requireNonNegative("capacity_weight", v.CapacityWeight); err != nil {
		return err
	}
	if err := requireNonNegative("capacity_volume", v.CapacityVolume); err != nil {
		return err
	}
	if v.Mileage < 0 {
		return fmt.Errorf("%w: mileage must not be negative", domain.ErrValidation)
	}
	return nil
}
