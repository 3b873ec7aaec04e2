package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentStatus is the lifecycle state of a Shipment.
type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "pending"
	ShipmentAssigned  ShipmentStatus = "assigned"
	ShipmentInTransit ShipmentStatus = "in_transit"
	ShipmentDelivered ShipmentStatus = "delivered"
	ShipmentCancelled ShipmentStatus = "cancelled"
)

// Valid reports whether s is one of the known shipment statuses.
func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentPending, ShipmentAssigned, ShipmentInTransit, ShipmentDelivered, ShipmentCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s ShipmentStatus) Terminal() bool {
	return s == ShipmentDelivered || s == ShipmentCancelled
}

// RequiresTrip reports whether a shipment in status s must reference a trip.
func (s ShipmentStatus) RequiresTrip() bool {
	return s == ShipmentAssigned || s == ShipmentInTransit || s == ShipmentDelivered
}

// Priority ranks how urgently a client needs a shipment moved.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Shipment is a client's cargo request. TripID stays nil until the shipment
// is assigned to a trip.
type Shipment struct {
	ID              uuid.UUID      `json:"id"`
	TripID          *uuid.UUID     `json:"trip_id,omitempty"`
	ClientID        string         `json:"client_id"`
	TrackingNumber  string         `json:"tracking_number"`
	Description     string         `json:"description"`
	Weight          *float64       `json:"weight,omitempty"` // kilograms
	Volume          *float64       `json:"volume,omitempty"` // cubic metres
	Price           float64        `json:"price"`
	PickupAddress   string         `json:"pickup_address"`
	DeliveryAddress string         `json:"delivery_address"`
	Priority        Priority       `json:"priority"`
	Status          ShipmentStatus `json:"status"`
	PickupDate      *time.Time     `json:"pickup_date,omitempty"`
	DeliveryDate    *time.Time     `json:"delivery_date,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ShipmentFilter narrows shipment listings. Zero values mean "no filter".
type ShipmentFilter struct {
	Status     ShipmentStatus
	ClientID   string
	Unassigned bool
}
