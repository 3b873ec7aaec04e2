// Package dispatch holds the scheduling core: interval overlap, resource
// availability, candidate scoring, trip–shipment matching and the status
// state machines. Everything here is pure: callers load data from the store,
// pass it in, and persist what comes back. No I/O, no clocks.
package dispatch

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
)

// Window is the half-open interval [Start, End). A nil End extends to
// infinity. A window whose End equals its Start occupies the single instant
// Start rather than nothing at all.
type Window struct {
	Start time.Time
	End   *time.Time
}

// NewWindow validates that end, if present, is not before start.
func NewWindow(start time.Time, end *time.Time) (Window, error) {
	if start.IsZero() {
		return Window{}, fmt.Errorf("%w: window start is required", domain.ErrValidation)
	}
	if end != nil && end.Before(start) {
		return Window{}, fmt.Errorf("%w: window end must not be before start", domain.ErrValidation)
	}
	return Window{Start: start, End: end}, nil
}

// OpenEnded reports whether the window has no end.
func (w Window) OpenEnded() bool {
	return w.End == nil
}

// Overlaps reports whether w and o share at least one instant.
func (w Window) Overlaps(o Window) bool {
	return w.endsAfter(o.Start) && o.endsAfter(w.Start)
}

// endsAfter reports whether the window is still running strictly after t.
func (w Window) endsAfter(t time.Time) bool {
	if w.End == nil {
		return true
	}
	end := *w.End
	if !end.After(w.Start) {
		end = w.Start.Add(time.Nanosecond)
	}
	return end.After(t)
}

// TripWindow returns the reservation interval of a trip. A completed trip
// without an end date no longer holds its resources, so it is collapsed to
// its start instant.
func TripWindow(t domain.Trip) Window {
	w := Window{Start: t.DateStart, End: t.DateEnd}
	if t.Status == domain.TripCompleted && t.DateEnd == nil {
		start := t.DateStart
		w.End = &start
	}
	return w
}

// compareIDs orders UUIDs by byte value, which matches their canonical
// string order.
func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
