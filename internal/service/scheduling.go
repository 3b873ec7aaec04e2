package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/dispatch"
	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/repo"
)

// SchedulingService answers "who is free" and "who fits best" for a
// prospective trip window. It only reads; availability is always derived
// from the current trip set.
type SchedulingService struct {
	base
}

// NewSchedulingService constructs a SchedulingService backed by store.
func NewSchedulingService(store repo.Store, opts ...Option) *SchedulingService {
	return &SchedulingService{base: newBase(store, opts)}
}

// FindAvailable partitions the active drivers or vehicles into those free
// for w and those with conflicting trips.
func (s *SchedulingService) FindAvailable(ctx context.Context, kind domain.ResourceKind, w dispatch.Window) (dispatch.Availability, error) {
	var ids []uuid.UUID
	switch kind {
	case domain.KindDriver:
		drivers, err := s.store.Drivers().List(ctx, domain.DriverActive)
		if err != nil {
			return dispatch.Availability{}, fmt.Errorf("service.SchedulingService.FindAvailable: %w", err)
		}
		for _, d := range drivers {
			ids = append(ids, d.ID)
		}
	case domain.KindVehicle:
		vehicles, err := s.store.Vehicles().List(ctx, domain.VehicleActive)
		if err != nil {
			return dispatch.Availability{}, fmt.Errorf("service.SchedulingService.FindAvailable: %w", err)
		}
		for _, v := range vehicles {
			ids = append(ids, v.ID)
		}
	default:
		return dispatch.Availability{}, fmt.Errorf("%w: kind must be driver or vehicle", domain.ErrValidation)
	}

	trips, err := s.store.Trips().ListForResources(ctx, kind, ids)
	if err != nil {
		return dispatch.Availability{}, fmt.Errorf("service.SchedulingService.FindAvailable: %w", err)
	}
	return dispatch.FindAvailable(ids, dispatch.GroupTrips(trips, kind), w), nil
}

// SuggestDrivers ranks every active driver for w, unavailable ones included.
func (s *SchedulingService) SuggestDrivers(ctx context.Context, w dispatch.Window) ([]dispatch.Candidate, error) {
	drivers, err := s.store.Drivers().List(ctx, domain.DriverActive)
	if err != nil {
		return nil, fmt.Errorf("service.SchedulingService.SuggestDrivers: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
	}
	trips, err := s.store.Trips().ListForResources(ctx, domain.KindDriver, ids)
	if err != nil {
		return nil, fmt.Errorf("service.SchedulingService.SuggestDrivers: %w", err)
	}
	byDriver := dispatch.GroupTrips(trips, domain.KindDriver)

	cands := make([]dispatch.Candidate, 0, len(drivers))
	for _, d := range drivers {
		cands = append(cands, dispatch.ScoreDriver(d, byDriver[d.ID], w))
	}
	dispatch.Rank(cands)
	return cands, nil
}

// SuggestVehicles ranks every active vehicle for w against the cargo in req.
func (s *SchedulingService) SuggestVehicles(ctx context.Context, w dispatch.Window, req dispatch.Requirements) ([]dispatch.Candidate, error) {
	if err := requireNonNegative("weight", req.Weight); err != nil {
		return nil, err
	}
	if err := requireNonNegative("volume", req.Volume); err != nil {
		return nil, err
	}
	vehicles, err := s.store.Vehicles().List(ctx, domain.VehicleActive)
	if err != nil {
		return nil, fmt.Errorf("service.SchedulingService.SuggestVehicles: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(vehicles))
	for _, v := range vehicles {
		ids = append(ids, v.ID)
	}
	trips, err := s.store.Trips().ListForResources(ctx, domain.KindVehicle, ids)
	if err != nil {
		return nil, fmt.Errorf("service.SchedulingService.SuggestVehicles: %w", err)
	}
	byVehicle := dispatch.GroupTrips(trips, domain.KindVehicle)

	cands := make([]dispatch.Candidate, 0, len(vehicles))
	for _, v := range vehicles {
		cands = append(cands, dispatch.ScoreVehicle(v, byVehicle[v.ID], w, req))
	}
	dispatch.Rank(cands)
	return cands, nil
}
