package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
)

type tripRequest struct {
	DriverID          uuid.UUID  `json:"driver_id"`
	VehicleID         uuid.UUID  `json:"vehicle_id"`
	Departure         string     `json:"departure"`
	Destination       string     `json:"destination"`
	DateStart         time.Time  `json:"date_start"`
	DateEnd           *time.Time `json:"date_end"`
	EstimatedDuration *int       `json:"estimated_duration"`
	Distance          *float64   `json:"distance"`
	TotalCost         float64    `json:"total_cost"`
	Notes             string     `json:"notes"`
	AllowConflicts    bool       `json:"allow_conflicts"`
}

func (b tripRequest) toTrip(id uuid.UUID) domain.Trip {
	return domain.Trip{
		ID:                id,
		DriverID:          b.DriverID,
		VehicleID:         b.VehicleID,
		Departure:         b.Departure,
		Destination:       b.Destination,
		DateStart:         b.DateStart,
		DateEnd:           b.DateEnd,
		EstimatedDuration: b.EstimatedDuration,
		Distance:          b.Distance,
		TotalCost:         b.TotalCost,
		Notes:             b.Notes,
	}
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body tripRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.trips.Create(r.Context(), body.toTrip(uuid.Nil), body.AllowConflicts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListTrips handles GET /trips?status&page&limit. Drivers only ever see
// their own trips.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
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
	var status *string
	if err := query(r, "status", false, &status); err != nil {
		s.fail(w, r, err)
		return
	}

	filter := domain.TripFilter{Status: domain.TripStatus(deref(status))}
	if !p.IsAdmin() {
		d, err := s.callerDriver(r.Context(), p)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		filter.DriverID = d.ID
	}

	page, err := s.trips.List(r.Context(), filter, params)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(page, params))
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.authorizedTrip(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// UpdateTrip handles PUT /trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body tripRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	updated, err := s.trips.Update(r.Context(), body.toTrip(id), body.AllowConflicts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrip handles DELETE /trips/{id}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.trips.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangeTripStatus handles POST /trips/{id}/status. The response carries the
// trip and every shipment the transition cascaded to.
func (s *Server) ChangeTripStatus(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.authorizedTrip(w, r)
	if !ok {
		return
	}
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.trips.ChangeStatus(r.Context(), trip.ID, domain.TripStatus(body.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Shipments == nil {
		res.Shipments = []domain.Shipment{}
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTripShipments handles GET /trips/{id}/shipments.
func (s *Server) ListTripShipments(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.authorizedTrip(w, r)
	if !ok {
		return
	}
	shipments, err := s.trips.ListShipments(r.Context(), trip.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(shipments))
}

// authorizedTrip binds {id}, loads the trip and checks the caller may act on
// it. On failure the error response has already been written.
func (s *Server) authorizedTrip(w http.ResponseWriter, r *http.Request) (domain.Trip, bool) {
	p, err := principal(r)
	if err != nil {
		s.fail(w, r, err)
		return domain.Trip{}, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return domain.Trip{}, false
	}
	trip, err := s.tripFor(r.Context(), p, id)
	if err != nil {
		s.fail(w, r, err)
		return domain.Trip{}, false
	}
	return trip, true
}
