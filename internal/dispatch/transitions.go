package dispatch

import (
	"slices"
	"time"

	"github.com/pkordes/fleetops/internal/domain"
)

var tripTransitions = map[domain.TripStatus][]domain.TripStatus{
	domain.TripPlanned: {domain.TripOngoing, domain.TripCancelled},
	domain.TripOngoing: {domain.TripCompleted, domain.TripCancelled},
}

var shipmentTransitions = map[domain.ShipmentStatus][]domain.ShipmentStatus{
	domain.ShipmentPending:   {domain.ShipmentAssigned, domain.ShipmentCancelled},
	domain.ShipmentAssigned:  {domain.ShipmentInTransit, domain.ShipmentCancelled},
	domain.ShipmentInTransit: {domain.ShipmentDelivered, domain.ShipmentCancelled},
}

var issueTransitions = map[domain.IssueStatus][]domain.IssueStatus{
	domain.IssueOpen:       {domain.IssueInProgress, domain.IssueResolved, domain.IssueClosed},
	domain.IssueInProgress: {domain.IssueResolved, domain.IssueClosed},
	domain.IssueResolved:   {domain.IssueClosed},
}

// CheckTripTransition returns a *domain.TransitionError unless from→to is in
// the trip transition table.
func CheckTripTransition(from, to domain.TripStatus) error {
	if slices.Contains(tripTransitions[from], to) {
		return nil
	}
	return &domain.TransitionError{Entity: "trip", From: string(from), To: string(to)}
}

// CheckShipmentTransition returns a *domain.TransitionError unless from→to is
// in the shipment transition table.
func CheckShipmentTransition(from, to domain.ShipmentStatus) error {
	if slices.Contains(shipmentTransitions[from], to) {
		return nil
	}
	return &domain.TransitionError{Entity: "shipment", From: string(from), To: string(to)}
}

// CheckIssueTransition returns a *domain.TransitionError unless from→to is in
// the issue transition table.
func CheckIssueTransition(from, to domain.IssueStatus) error {
	if slices.Contains(issueTransitions[from], to) {
		return nil
	}
	return &domain.TransitionError{Entity: "issue", From: string(from), To: string(to)}
}

// ShipmentChange records one shipment rewritten by a cascade.
type ShipmentChange struct {
	From     domain.ShipmentStatus
	Shipment domain.Shipment
}

// Cascade is the complete set of writes implied by one trip transition.
// It must be persisted as a single unit.
type Cascade struct {
	From      domain.TripStatus
	Trip      domain.Trip
	Shipments []ShipmentChange
}

// PlanTripTransition validates moving trip to status to and computes the
// resulting trip and shipment rows. shipments are the shipments currently on
// the trip; those the cascade does not touch are left out of the result.
//
//   - planned→ongoing: assigned shipments go in_transit, pickup_date defaults to now.
//   - ongoing→completed: in_transit shipments are delivered, delivery_date
//     defaults to now; actual_duration is derived from the dates if unset.
//   - →cancelled: every shipment not yet delivered or cancelled is cancelled.
func PlanTripTransition(trip domain.Trip, to domain.TripStatus, shipments []domain.Shipment, now time.Time) (Cascade, error) {
	if err := CheckTripTransition(trip.Status, to); err != nil {
		return Cascade{}, err
	}

	c := Cascade{From: trip.Status, Trip: trip}
	c.Trip.Status = to

	var match func(domain.ShipmentStatus) bool
	var target domain.ShipmentStatus
	switch to {
	case domain.TripOngoing:
		target = domain.ShipmentInTransit
		match = func(s domain.ShipmentStatus) bool { return s == domain.ShipmentAssigned }
	case domain.TripCompleted:
		target = domain.ShipmentDelivered
		match = func(s domain.ShipmentStatus) bool { return s == domain.ShipmentInTransit }
		if c.Trip.ActualDuration == nil && c.Trip.DateEnd != nil {
			minutes := int(c.Trip.DateEnd.Sub(c.Trip.DateStart) / time.Minute)
			c.Trip.ActualDuration = &minutes
		}
	case domain.TripCancelled:
		target = domain.ShipmentCancelled
		match = func(s domain.ShipmentStatus) bool { return !s.Terminal() }
	}

	for _, s := range shipments {
		if !match(s.Status) {
			continue
		}
		c.Shipments = append(c.Shipments, ShipmentChange{
			From:     s.Status,
			Shipment: AdvanceShipment(s, target, now),
		})
	}
	return c, nil
}

// AdvanceShipment sets s to status to and fills the date the move implies,
// without checking the transition table. Existing dates are kept.
func AdvanceShipment(s domain.Shipment, to domain.ShipmentStatus, now time.Time) domain.Shipment {
	s.Status = to
	switch to {
	case domain.ShipmentInTransit:
		if s.PickupDate == nil {
			t := now
			s.PickupDate = &t
		}
	case domain.ShipmentDelivered:
		if s.DeliveryDate == nil {
			t := now
			s.DeliveryDate = &t
		}
	}
	return s
}
