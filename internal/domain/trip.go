// Package domain contains the core data types for the FleetOps dispatch service.
// This package has no infrastructure dependencies and is imported by every
// other internal package (dispatch, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus is the lifecycle state of a Trip.
type TripStatus string

const (
	TripPlanned   TripStatus = "planned"
	TripOngoing   TripStatus = "ongoing"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Valid reports whether s is one of the known trip statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripPlanned, TripOngoing, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s TripStatus) Terminal() bool {
	return s == TripCompleted || s == TripCancelled
}

// Open reports whether shipments may still be attached to a trip in status s.
func (s TripStatus) Open() bool {
	return s == TripPlanned || s == TripOngoing
}

// Trip is a scheduled movement of one driver/vehicle pair between two
// locations. A trip reserves its driver and vehicle for [DateStart, DateEnd);
// DateEnd is nil for open-ended trips.
type Trip struct {
	ID                uuid.UUID  `json:"id"`
	DriverID          uuid.UUID  `json:"driver_id"`
	VehicleID         uuid.UUID  `json:"vehicle_id"`
	Departure         string     `json:"departure"`
	Destination       string     `json:"destination"`
	DateStart         time.Time  `json:"date_start"`
	DateEnd           *time.Time `json:"date_end,omitempty"`
	Status            TripStatus `json:"status"`
	EstimatedDuration *int       `json:"estimated_duration,omitempty"` // minutes
	ActualDuration    *int       `json:"actual_duration,omitempty"`    // minutes
	Distance          *float64   `json:"distance,omitempty"`           // kilometres
	TotalCost         float64    `json:"total_cost"`
	Notes             string     `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TripFilter narrows trip listings. Zero values mean "no filter".
type TripFilter struct {
	Status   TripStatus
	DriverID uuid.UUID
}
