package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResourceKind identifies which kind of fleet resource a query is about.
type ResourceKind string

const (
	KindDriver  ResourceKind = "driver"
	KindVehicle ResourceKind = "vehicle"
)

// Valid reports whether k is a known resource kind.
func (k ResourceKind) Valid() bool {
	return k == KindDriver || k == KindVehicle
}

// DriverStatus is the employment state of a driver.
type DriverStatus string

const (
	DriverActive    DriverStatus = "active"
	DriverInactive  DriverStatus = "inactive"
	DriverSuspended DriverStatus = "suspended"
)

// Valid reports whether s is a known driver status.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverActive, DriverInactive, DriverSuspended:
		return true
	}
	return false
}

// Driver is a person who can be assigned to trips. Only active drivers are
// scheduling candidates. UserID links the driver to the identity provider
// subject so drivers can act on their own trips.
type Driver struct {
	ID              uuid.UUID    `json:"id"`
	UserID          *string      `json:"user_id,omitempty"`
	Name            string       `json:"name"`
	LicenseNumber   string       `json:"license_number"`
	Status          DriverStatus `json:"status"`
	ExperienceYears int          `json:"experience_years"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleActive        VehicleStatus = "active"
	VehicleInMaintenance VehicleStatus = "in_maintenance"
	VehicleInactive      VehicleStatus = "inactive"
)

// Valid reports whether s is a known vehicle status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleInMaintenance, VehicleInactive:
		return true
	}
	return false
}

// Vehicle is a truck or van that can be assigned to trips. Capacities are
// optional; when unknown, capacity checks are skipped.
type Vehicle struct {
	ID             uuid.UUID     `json:"id"`
	PlateNumber    string        `json:"plate_number"`
	Model          string        `json:"model"`
	Status         VehicleStatus `json:"status"`
	CapacityWeight *float64      `json:"capacity_weight,omitempty"` // kilograms
	CapacityVolume *float64      `json:"capacity_volume,omitempty"` // cubic metres
	Mileage        int           `json:"mileage"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
