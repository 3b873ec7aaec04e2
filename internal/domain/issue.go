package domain

import (
	"time"

	"github.com/google/uuid"
)

// IssueType classifies what went wrong on a trip.
type IssueType string

const (
	IssueBreakdown   IssueType = "breakdown"
	IssueAccident    IssueType = "accident"
	IssueDelay       IssueType = "delay"
	IssueCargoDamage IssueType = "cargo_damage"
	IssueOther       IssueType = "other"
)

// Valid reports whether t is a known issue type.
func (t IssueType) Valid() bool {
	switch t {
	case IssueBreakdown, IssueAccident, IssueDelay, IssueCargoDamage, IssueOther:
		return true
	}
	return false
}

// Severity grades an issue's impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IssueStatus is the handling state of an issue.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueClosed     IssueStatus = "closed"
)

// Valid reports whether s is a known issue status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueOpen, IssueInProgress, IssueResolved, IssueClosed:
		return true
	}
	return false
}

// Issue is a problem a driver reported during a trip. Issues do not affect
// scheduling; they are a reporting side-channel.
type Issue struct {
	ID          uuid.UUID   `json:"id"`
	TripID      uuid.UUID   `json:"trip_id"`
	DriverID    uuid.UUID   `json:"driver_id"`
	Type        IssueType   `json:"type"`
	Severity    Severity    `json:"severity"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
	Resolution  *string     `json:"resolution,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}
