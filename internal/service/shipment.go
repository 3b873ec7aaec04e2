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

const (
	trackingPrefix   = "FO-"
	trackingAttempts = 3
)

// ShipmentService implements client shipments, trip matching and the
// shipment side of the status engine.
type ShipmentService struct {
	base
	newTracking func() string
}

// NewShipmentService constructs a ShipmentService backed by store.
func NewShipmentService(store repo.Store, opts ...Option) *ShipmentService {
	return &ShipmentService{base: newBase(store, opts), newTracking: newTrackingNumber}
}

// newTrackingNumber returns e.g. "FO-3F2A9C01B7D4".
func newTrackingNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return trackingPrefix + strings.ToUpper(raw[:12])
}

// Create validates and persists a new pending, unassigned shipment with a
// generated tracking number.
func (s *ShipmentService) Create(ctx context.Context, sh domain.Shipment) (domain.Shipment, error) {
	normalizeShipment(&sh)
	if sh.Priority == "" {
		sh.Priority = domain.PriorityNormal
	}
	if err := validateShipment(sh); err != nil {
		return domain.Shipment{}, err
	}
	sh.ID = uuid.Nil
	sh.TripID = nil
	sh.Status = domain.ShipmentPending
	sh.DeliveryDate = nil

	// Tracking numbers are random; retry on the rare collision.
	var err error
	for range trackingAttempts {
		sh.TrackingNumber = s.newTracking()
		var created domain.Shipment
		created, err = s.store.Shipments().Create(ctx, sh)
		if err == nil {
			s.log.InfoContext(ctx, "shipment created",
				"shipment_id", created.ID, "tracking_number", created.TrackingNumber, "client_id", created.ClientID)
			return created, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	return domain.Shipment{}, fmt.Errorf("service.ShipmentService.Create: %w", err)
}

// GetByID returns a single shipment.
func (s *ShipmentService) GetByID(ctx context.Context, id uuid.UUID) (domain.Shipment, error) {
	result, err := s.store.Shipments().GetByID(ctx, id)
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("service.ShipmentService.GetByID: %w", err)
	}
	return result, nil
}

// GetByTracking returns the shipment with the given tracking number.
func (s *ShipmentService) GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error) {
	trackingNumber = strings.ToUpper(strings.TrimSpace(trackingNumber))
	if trackingNumber == "" {
		return domain.Shipment{}, fmt.Errorf("%w: tracking number is required", domain.ErrValidation)
	}
	result, err := s.store.Shipments().GetByTracking(ctx, trackingNumber)
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("service.ShipmentService.GetByTracking: %w", err)
	}
	return result, nil
}

// List returns one page of shipments matching f.
func (s *ShipmentService) List(ctx context.Context, f domain.ShipmentFilter, p domain.PaginationParams) (domain.Page[domain.Shipment], error) {
	if f.Status != "" && !f.Status.Valid() {
		return domain.Page[domain.Shipment]{}, fmt.Errorf("%w: unknown shipment status %q", domain.ErrValidation, f.Status)
	}
	items, total, err := s.store.Shipments().List(ctx, f, p)
	if err != nil {
		return domain.Page[domain.Shipment]{}, fmt.Errorf("service.ShipmentService.List: %w", err)
	}
	return domain.Page[domain.Shipment]{Items: items, Total: total}, nil
}

// FindCandidateTrips ranks the open trips an unassigned shipment could ride
// on, together with a pre-filled "new trip" option.
func (s *ShipmentService) FindCandidateTrips(ctx context.Context, id uuid.UUID) (dispatch.MatchResult, error) {
	sh, err := s.store.Shipments().GetByID(ctx, id)
	if err != nil {
		return dispatch.MatchResult{}, fmt.Errorf("service.ShipmentService.FindCandidateTrips: %w", err)
	}
	if sh.TripID != nil || sh.Status != domain.ShipmentPending {
		return dispatch.MatchResult{}, fmt.Errorf("%w: shipment %s is %s, only pending unassigned shipments can be matched",
			domain.ErrConflict, sh.TrackingNumber, sh.Status)
	}

	loads, err := s.loadOpenTrips(ctx)
	if err != nil {
		return dispatch.MatchResult{}, fmt.Errorf("service.ShipmentService.FindCandidateTrips: %w", err)
	}
	return dispatch.MatchShipment(sh, loads), nil
}

// loadOpenTrips gathers every open trip with its vehicle and current cargo.
func (s *ShipmentService) loadOpenTrips(ctx context.Context) ([]dispatch.TripLoad, error) {
	trips, err := s.store.Trips().ListOpen(ctx)
	if err != nil {
		return nil, err
	}
	if len(trips) == 0 {
		return nil, nil
	}

	tripIDs := make([]uuid.UUID, 0, len(trips))
	vehicleIDs := make([]uuid.UUID, 0, len(trips))
	for _, t := range trips {
		tripIDs = append(tripIDs, t.ID)
		vehicleIDs = append(vehicleIDs, t.VehicleID)
	}
	vehicles, err := s.store.Vehicles().GetByIDs(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}
	cargo, err := s.store.Shipments().ListByTrips(ctx, tripIDs)
	if err != nil {
		return nil, err
	}

	vehicleByID := make(map[uuid.UUID]domain.Vehicle, len(vehicles))
	for _, v := range vehicles {
		vehicleByID[v.ID] = v
	}
	cargoByTrip := make(map[uuid.UUID][]domain.Shipment)
	for _, c := range cargo {
		if c.TripID != nil {
			cargoByTrip[*c.TripID] = append(cargoByTrip[*c.TripID], c)
		}
	}

	loads := make([]dispatch.TripLoad, 0, len(trips))
	for _, t := range trips {
		l := dispatch.TripLoad{Trip: t, Shipments: cargoByTrip[t.ID]}
		if v, ok := vehicleByID[t.VehicleID]; ok {
			l.Vehicle = &v
		}
		loads = append(loads, l)
	}
	return loads, nil
}

// AssignToTrip attaches a pending shipment to an open trip. The write is
// conditional on the shipment still being pending and unassigned, so of
// several concurrent attempts exactly one succeeds and the rest get
// domain.ErrConflict.
func (s *ShipmentService) AssignToTrip(ctx context.Context, shipmentID, tripID uuid.UUID) (domain.Shipment, error) {
	var (
		assigned domain.Shipment
		trip     domain.Trip
	)
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		var err error
		// Locking the trip keeps it from being cancelled or completed underneath us.
		trip, err = tx.Trips().GetForUpdate(ctx, tripID)
		if err != nil {
			return fmt.Errorf("trip: %w", err)
		}
		if !trip.Status.Open() {
			return fmt.Errorf("%w: trip %s is %s and no longer accepts shipments",
				domain.ErrInvalidTransition, trip.ID, trip.Status)
		}

		sh, err := tx.Shipments().GetByID(ctx, shipmentID)
		if err != nil {
			return fmt.Errorf("shipment: %w", err)
		}
		if sh.TripID != nil || sh.Status == domain.ShipmentAssigned {
			return fmt.Errorf("%w: shipment %s is already assigned", domain.ErrConflict, sh.TrackingNumber)
		}
		if err := dispatch.CheckShipmentTransition(sh.Status, domain.ShipmentAssigned); err != nil {
			return err
		}

		assigned, err = tx.Shipments().Assign(ctx, shipmentID, tripID)
		return err
	})
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("service.ShipmentService.AssignToTrip: %w", err)
	}

	s.log.InfoContext(ctx, "shipment assigned", "shipment_id", shipmentID, "trip_id", tripID)
	e := notify.NewEvent(notify.ShipmentAssigned, assigned.ID, s.now(), map[string]any{
		"tracking_number": assigned.TrackingNumber,
		"trip_id":         tripID.String(),
		"departure":       trip.Departure,
		"destination":     trip.Destination,
	})
	e.Recipients = []string{assigned.ClientID}
	s.emit(ctx, e)
	return assigned, nil
}

// ChangeStatus applies a direct shipment transition (an admin correction or
// a client cancellation). Assignment has its own operation and is refused
// here.
func (s *ShipmentService) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.ShipmentStatus) (domain.Shipment, error) {
	if !to.Valid() {
		return domain.Shipment{}, fmt.Errorf("%w: unknown shipment status %q", domain.ErrValidation, to)
	}

	var (
		updated domain.Shipment
		from    domain.ShipmentStatus
	)
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		current, err := tx.Shipments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		from = current.Status
		if err := dispatch.CheckShipmentTransition(from, to); err != nil {
			return err
		}
		if to == domain.ShipmentAssigned {
			return fmt.Errorf("%w: a shipment is assigned by attaching it to a trip", domain.ErrInvalidTransition)
		}
		if to.RequiresTrip() && current.TripID == nil {
			return fmt.Errorf("%w: shipment %s has no trip", domain.ErrInvalidTransition, current.TrackingNumber)
		}

		updated, err = tx.Shipments().UpdateStatus(ctx, dispatch.AdvanceShipment(current, to, s.now()), from)
		return err
	})
	if err != nil {
		return domain.Shipment{}, fmt.Errorf("service.ShipmentService.ChangeStatus: %w", err)
	}

	s.log.InfoContext(ctx, "shipment status changed", "shipment_id", id, "from", from, "to", to)
	s.emit(ctx, shipmentStatusEvent(updated, from, s.now()))
	return updated, nil
}

func shipmentStatusEvent(sh domain.Shipment, from domain.ShipmentStatus, now time.Time) notify.Event {
	e := notify.NewEvent(notify.ShipmentStatusChanged, sh.ID, now, map[string]any{
		"tracking_number": sh.TrackingNumber,
		"from":            string(from),
		"to":              string(sh.Status),
	})
	e.Recipients = []string{sh.ClientID}
	return e
}

func normalizeShipment(sh *domain.Shipment) {
	sh.ClientID = strings.TrimSpace(sh.ClientID)
	sh.Description = strings.TrimSpace(sh.Description)
	sh.PickupAddress = strings.TrimSpace(sh.PickupAddress)
	sh.DeliveryAddress = strings.TrimSpace(sh.DeliveryAddress)
}

func validateShipment(sh domain.Shipment) error {
	for _, f := range []struct{ name, value string }{
		{"client_id", sh.ClientID},
		{"description", sh.Description},
		{"pickup_address", sh.PickupAddress},
		{"delivery_address", sh.DeliveryAddress},
	} {
		if err := requireText(f.name, f.value); err != nil {
			return err
		}
	}
	if err := requireNonNegative("weight", sh.Weight); err != nil {
		return err
	}
	if err := requireNonNegative("volume", sh.Volume); err != nil {
		return err
	}
	if sh.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if !sh.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", domain.ErrValidation, sh.Priority)
	}
	return nil
}
