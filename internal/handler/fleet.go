package handler

import (
	"net/http"

	"github.com/pkordes/fleetops/internal/domain"
)

type driverRequest struct {
	UserID          *string             `json:"user_id"`
	Name            string              `json:"name"`
	LicenseNumber   string              `json:"license_number"`
	Status          domain.DriverStatus `json:"status"`
	ExperienceYears int                 `json:"experience_years"`
}

type vehicleRequest struct {
	PlateNumber    string               `json:"plate_number"`
	Model          string               `json:"model"`
	Status         domain.VehicleStatus `json:"status"`
	CapacityWeight *float64             `json:"capacity_weight"`
	CapacityVolume *float64             `json:"capacity_volume"`
	Mileage        int                  `json:"mileage"`
}

type statusRequest struct {
	Status     string `json:"status"`
	Resolution string `json:"resolution,omitempty"`
}

// CreateDriver handles POST /drivers.
func (s *Server) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var body driverRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.fleet.CreateDriver(r.Context(), domain.Driver{
		UserID:          body.UserID,
		Name:            body.Name,
		LicenseNumber:   body.LicenseNumber,
		Status:          body.Status,
		ExperienceYears: body.ExperienceYears,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListDrivers handles GET /drivers?status=.
func (s *Server) ListDrivers(w http.ResponseWriter, r *http.Request) {
	var status *string
	if err := query(r, "status", false, &status); err != nil {
		s.fail(w, r, err)
		return
	}
	drivers, err := s.fleet.ListDrivers(r.Context(), domain.DriverStatus(deref(status)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(drivers))
}

// GetDriver handles GET /drivers/{id}.
func (s *Server) GetDriver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.fleet.GetDriver(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SetDriverStatus handles PATCH /drivers/{id}/status.
func (s *Server) SetDriverStatus(w http.ResponseWriter, r *http.Request) {
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
	d, err := s.fleet.SetDriverStatus(r.Context(), id, domain.DriverStatus(body.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateVehicle handles POST /vehicles.
func (s *Server) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var body vehicleRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.fleet.CreateVehicle(r.Context(), domain.Vehicle{
		PlateNumber:    body.PlateNumber,
		Model:          body.Model,
		Status:         body.Status,
		CapacityWeight: body.CapacityWeight,
		CapacityVolume: body.CapacityVolume,
		Mileage:        body.Mileage,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListVehicles handles GET /vehicles?status=.
func (s *Server) ListVehicles(w http.ResponseWriter, r *http.Request) {
	var status *string
	if err := query(r, "status", false, &status); err != nil {
		s.fail(w, r, err)
		return
	}
	vehicles, err := s.fleet.ListVehicles(r.Context(), domain.VehicleStatus(deref(status)))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(vehicles))
}

// GetVehicle handles GET /vehicles/{id}.
func (s *Server) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	v, err := s.fleet.GetVehicle(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetVehicleStatus handles PATCH /vehicles/{id}/status.
func (s *Server) SetVehicleStatus(w http.ResponseWriter, r *http.Request) {
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
	v, err := s.fleet.SetVehicleStatus(r.Context(), id, domain.VehicleStatus(body.Status))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
