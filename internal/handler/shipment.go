package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
)

type shipmentRequest struct {
	ClientID        string          `json:"client_id"`
	Description     string          `json:"description"`
	Weight          *float64        `json:"weight"`
	Volume          *float64        `json:"volume"`
	Price           float64         `json:"price"`
	PickupAddress   string          `json:"pickup_address"`
	DeliveryAddress string          `json:"delivery_address"`
	Priority        domain.Priority `json:"priority"`
	PickupDate      *time.Time      `json:"pickup_date"`
}

type assignRequest struct {
	TripID uuid.UUID `json:"trip_id"`
}

// CreateShipment handles POST /shipments. A client always creates shipments
// for itself; only admins may name another client.
func (s *Server) CreateShipment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body shipmentRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if p.Role == domain.RoleClient {
		body.ClientID = p.Subject
	}
	created, err := s.shipments.Create(r.Context(), domain.Shipment{
		ClientID:        body.ClientID,
		Description:     body.Description,
		Weight:          body.Weight,
		Volume:          body.Volume,
		Price:           body.Price,
		PickupAddress:   body.PickupAddress,
		DeliveryAddress: body.DeliveryAddress,
		Priority:        body.Priority,
		PickupDate:      body.PickupDate,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListShipments handles GET /shipments?status&unassigned&page&limit.
// Clients only see their own shipments.
func (s *Server) ListShipments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	params, err := pagination(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var (
		status     *string
		unassigned *bool
	)
	if err := query(r, "status", false, &status); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := query(r, "unassigned", false, &unassigned); err != nil {
		s.fail(w, r, err)
		return
	}

	filter := domain.ShipmentFilter{
		Status:     domain.ShipmentStatus(deref(status)),
		Unassigned: deref(unassigned),
	}
	if !p.IsAdmin() {
		filter.ClientID = p.Subject
	}
	page, err := s.shipments.List(r.Context(), filter, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page, params))
}

// GetShipment handles GET /shipments/{id}.
func (s *Server) GetShipment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sh, err := s.shipmentFor(r.Context(), p, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

// TrackShipment handles GET /shipments/tracking/{number}. Any authenticated
// caller holding a tracking number may look the shipment up.
func (s *Server) TrackShipment(w http.ResponseWriter, r *http.Request) {
	sh, err := s.shipments.GetByTracking(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

// FindCandidateTrips handles GET /shipments/{id}/candidate-trips.
func (s *Server) FindCandidateTrips(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.shipments.FindCandidateTrips(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// AssignShipment handles POST /shipments/{id}/assign. Losing a race with
// another assignment answers 409.
func (s *Server) AssignShipment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body assignRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.TripID == uuid.Nil {
		s.fail(w, r, fmt.Errorf("%w: trip_id is required", domain.ErrValidation))
		return
	}
	sh, err := s.shipments.AssignToTrip(r.Context(), id, body.TripID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

// ChangeShipmentStatus handles POST /shipments/{id}/status. Clients may
// only cancel their own shipments.
func (s *Server) ChangeShipmentStatus(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	to := domain.ShipmentStatus(body.Status)
	if !p.IsAdmin() {
		if _, err := s.shipmentFor(r.Context(), p, id); err != nil {
			s.fail(w, r, err)
			return
		}
		if to != domain.ShipmentCancelled {
			s.fail(w, r, fmt.Errorf("%w: clients may only cancel shipments", domain.ErrForbidden))
			return
		}
	}
	sh, err := s.shipments.ChangeStatus(r.Context(), id, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}
