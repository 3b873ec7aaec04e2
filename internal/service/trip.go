package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/dispatch"
	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/notify"
	"github.com/pkordes/fleetops/internal/repo"
)

// TripService implements trip booking and the trip status engine.
type TripService struct {
	base
}

// NewTripService constructs a TripService backed by store.
func NewTripService(store repo.Store, opts ...Option) *TripService {
	return &TripService{base: newBase(store, opts)}
}

// TransitionResult is the outcome of a trip status change: the updated trip
// and every shipment the cascade moved.
type TransitionResult struct {
	Trip      domain.Trip       `json:"trip"`
	Shipments []domain.Shipment `json:"shipments"`
}

// Create validates and books a new planned trip. The driver and vehicle are
// locked for the duration of the write and re-checked for overlapping trips;
// an overlap yields domain.ErrConflict unless allowConflicts is set.
func (s *TripService) Create(ctx context.Context, trip domain.Trip, allowConflicts bool) (domain.Trip, error) {
	normalizeTrip(&trip)
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}
	trip.ID = uuid.Nil
	trip.Status = domain.TripPlanned
	trip.ActualDuration = nil

	var created domain.Trip
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		if err := s.checkBookable(ctx, tx, trip, allowConflicts); err != nil {
			return err
		}
		var err error
		created, err = tx.Trips().Create(ctx, trip)
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	s.log.InfoContext(ctx, "trip created",
		"trip_id", created.ID, "driver_id", created.DriverID, "vehicle_id", created.VehicleID)
	return created, nil
}

// GetByID returns a single trip by ID.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	result, err := s.store.Trips().GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return result, nil
}

// List returns one page of trips matching f.
func (s *TripService) List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	if f.Status != "" && !f.Status.Valid() {
		return domain.Page[domain.Trip]{}, fmt.Errorf("%w: unknown trip status %q", domain.ErrValidation, f.Status)
	}
	items, total, err := s.store.Trips().List(ctx, f, p)
	if err != nil {
		return domain.Page[domain.Trip]{}, fmt.Errorf("service.TripService.List: %w", err)
	}
	return domain.Page[domain.Trip]{Items: items, Total: total}, nil
}

// Update reschedules a planned or ongoing trip. Status and actual duration
// are owned by ChangeStatus and are never taken from the input. An ongoing
// trip keeps its driver and vehicle.
func (s *TripService) Update(ctx context.Context, trip domain.Trip, allowConflicts bool) (domain.Trip, error) {
	normalizeTrip(&trip)
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	var updated domain.Trip
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		current, err := tx.Trips().GetForUpdate(ctx, trip.ID)
		if err != nil {
			return err
		}
		if current.Status.Terminal() {
			return fmt.Errorf("%w: a %s trip can no longer be edited", domain.ErrConflict, current.Status)
		}
		if current.Status == domain.TripOngoing &&
			(trip.DriverID != current.DriverID || trip.VehicleID != current.VehicleID) {
			return fmt.Errorf("%w: driver and vehicle of an ongoing trip cannot change", domain.ErrValidation)
		}
		trip.Status = current.Status
		trip.ActualDuration = current.ActualDuration

		if err := s.checkBookable(ctx, tx, trip, allowConflicts); err != nil {
			return err
		}
		updated, err = tx.Trips().Update(ctx, trip)
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return updated, nil
}

// Delete removes a planned or cancelled trip that carries no active
// shipments. Cancelled shipments left on it are detached.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		trip, err := tx.Trips().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if trip.Status != domain.TripPlanned && trip.Status != domain.TripCancelled {
			return fmt.Errorf("%w: only planned or cancelled trips can be deleted", domain.ErrConflict)
		}
		shipments, err := tx.Shipments().LockByTrip(ctx, id)
		if err != nil {
			return err
		}
		for _, sh := range shipments {
			if !sh.Status.Terminal() {
				return fmt.Errorf("%w: trip still carries shipment %s (%s)", domain.ErrConflict, sh.TrackingNumber, sh.Status)
			}
		}
		return tx.Trips().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	s.log.InfoContext(ctx, "trip deleted", "trip_id", id)
	return nil
}

// ListShipments returns every shipment attached to a trip.
func (s *TripService) ListShipments(ctx context.Context, tripID uuid.UUID) ([]domain.Shipment, error) {
	if _, err := s.store.Trips().GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.TripService.ListShipments: %w", err)
	}
	shipments, err := s.store.Shipments().ListByTrips(ctx, []uuid.UUID{tripID})
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListShipments: %w", err)
	}
	return shipments, nil
}

// ChangeStatus moves a trip to status to and cascades the move onto its
// shipments in a single unit of work: either the trip and every affected
// shipment change, or nothing does. The trip row stays locked until commit.
func (s *TripService) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.TripStatus) (TransitionResult, error) {
	if !to.Valid() {
		return TransitionResult{}, fmt.Errorf("%w: unknown trip status %q", domain.ErrValidation, to)
	}

	var (
		res           TransitionResult
		cascade       dispatch.Cascade
		driverSubject *string
	)
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		trip, err := tx.Trips().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		shipments, err := tx.Shipments().LockByTrip(ctx, id)
		if err != nil {
			return err
		}
		cascade, err = dispatch.PlanTripTransition(trip, to, shipments, s.now())
		if err != nil {
			return err
		}

		res.Trip, err = tx.Trips().UpdateStatus(ctx, cascade.Trip, cascade.From)
		if err != nil {
			return err
		}
		res.Shipments = make([]domain.Shipment, 0, len(cascade.Shipments))
		for _, ch := range cascade.Shipments {
			updated, err := tx.Shipments().UpdateStatus(ctx, ch.Shipment, ch.From)
			if err != nil {
				return fmt.Errorf("shipment %s: %w", ch.Shipment.ID, err)
			}
			res.Shipments = append(res.Shipments, updated)
		}

		// The driver's subject is only needed to address the notification.
		if d, err := tx.Drivers().GetByID(ctx, trip.DriverID); err == nil {
			driverSubject = d.UserID
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return TransitionResult{}, fmt.Errorf("service.TripService.ChangeStatus: %w", err)
	}

	s.log.InfoContext(ctx, "trip status changed",
		"trip_id", id, "from", cascade.From, "to", to, "shipments_moved", len(res.Shipments))
	s.emit(ctx, tripEvents(res, cascade, driverSubject, s.now())...)
	return res, nil
}

// checkBookable verifies the driver and vehicle exist and are active, takes
// their advisory locks and rejects overlapping trips unless allowConflicts.
func (s *TripService) checkBookable(ctx context.Context, tx repo.Store, trip domain.Trip, allowConflicts bool) error {
	driver, err := tx.Drivers().GetByID(ctx, trip.DriverID)
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if driver.Status != domain.DriverActive {
		return fmt.Errorf("%w: driver %s is %s", domain.ErrValidation, driver.Name, driver.Status)
	}
	vehicle, err := tx.Vehicles().GetByID(ctx, trip.VehicleID)
	if err != nil {
		return fmt.Errorf("vehicle: %w", err)
	}
	if vehicle.Status != domain.VehicleActive {
		return fmt.Errorf("%w: vehicle %s is %s", domain.ErrValidation, vehicle.PlateNumber, vehicle.Status)
	}

	if err := tx.Trips().LockResources(ctx, trip.DriverID, trip.VehicleID); err != nil {
		return err
	}

	w := dispatch.TripWindow(trip)
	for _, res := range []struct {
		kind  domain.ResourceKind
		id    uuid.UUID
		label string
	}{
		{domain.KindDriver, trip.DriverID, "driver " + driver.Name},
		{domain.KindVehicle, trip.VehicleID, "vehicle " + vehicle.PlateNumber},
	} {
		booked, err := tx.Trips().ListForResources(ctx, res.kind, []uuid.UUID{res.id})
		if err != nil {
			return err
		}
		conflicts := dispatch.ConflictingTrips(booked, w, trip.ID)
		if len(conflicts) == 0 {
			continue
		}
		if !allowConflicts {
			return fmt.Errorf("%w: %s is already booked on trip %s (%s → %s)", domain.ErrConflict,
				res.label, conflicts[0].ID, conflicts[0].Departure, conflicts[0].Destination)
		}
		s.log.WarnContext(ctx, "booking overlapping trip on operator override",
			"resource", res.label, "conflicts", len(conflicts))
	}
	return nil
}

func normalizeTrip(t *domain.Trip) {
	t.Departure = strings.TrimSpace(t.Departure)
	t.Destination = strings.TrimSpace(t.Destination)
	t.Notes = strings.TrimSpace(t.Notes)
}

// validateTrip enforces the rules common to Create and Update.
func validateTrip(t domain.Trip) error {
	if t.DriverID == uuid.Nil {
		return fmt.Errorf("%w: driver_id is required", domain.ErrValidation)
	}
	if t.VehicleID == uuid.Nil {
		return fmt.Errorf("%w: vehicle_id is required", domain.ErrValidation)
	}
	if err := requireText("departure", t.Departure); err != nil {
		return err
	}
	if err := requireText("destination", t.Destination); err != nil {
		return err
	}
	if _, err := dispatch.NewWindow(t.DateStart, t.DateEnd); err != nil {
		return err
	}
	if t.EstimatedDuration != nil && *t.EstimatedDuration < 0 {
		return fmt.Errorf("%w: estimated_duration must not be negative", domain.ErrValidation)
	}
	if err := requireNonNegative("distance", t.Distance); err != nil {
		return err
	}
	if t.TotalCost < 0 {
		return fmt.Errorf("%w: total_cost must not be negative", domain.ErrValidation)
	}
	return nil
}

func tripEvents(res TransitionResult, c dispatch.Cascade, driverSubject *string, now time.Time) []notify.Event {
	shipmentIDs := make([]string, 0, len(res.Shipments))
	for _, sh := range res.Shipments {
		shipmentIDs = append(shipmentIDs, sh.ID.String())
	}
	tripEvent := notify.NewEvent(notify.TripStatusChanged, res.Trip.ID, now, map[string]any{
		"from":      string(c.From),
		"to":        string(res.Trip.Status),
		"shipments": shipmentIDs,
	})
	if driverSubject != nil {
		tripEvent.Recipients = []string{*driverSubject}
	}

	events := []notify.Event{tripEvent}
	for i, sh := range res.Shipments {
		events = append(events, shipmentStatusEvent(sh, c.Shipments[i].From, now))
	}
	return events
}
