package dispatch

import (
	"slices"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
)

// BusyResource is a resource that cannot take a trip in the probed window,
// together with the trips that hold it.
type BusyResource struct {
	ID        uuid.UUID     `json:"id"`
	Conflicts []domain.Trip `json:"conflicts"`
}

// Availability partitions a set of resources for one window.
// Both slices are ordered by resource id.
type Availability struct {
	Available []uuid.UUID    `json:"available"`
	Busy      []BusyResource `json:"busy"`
}

// Occupies reports whether trip t reserves its driver and vehicle at any
// point of w. Cancelled trips never occupy anything.
func Occupies(t domain.Trip, w Window) bool {
	if t.Status == domain.TripCancelled {
		return false
	}
	return TripWindow(t).Overlaps(w)
}

// ConflictingTrips returns the trips in trips that occupy w, ordered by start
// then id. The trip with id exclude is skipped so a trip being rescheduled
// does not conflict with itself; pass uuid.Nil to skip nothing.
func ConflictingTrips(trips []domain.Trip, w Window, exclude uuid.UUID) []domain.Trip {
	var out []domain.Trip
	for _, t := range trips {
		if exclude != uuid.Nil && t.ID == exclude {
			continue
		}
		if Occupies(t, w) {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, compareTrips)
	return out
}

// FindAvailable checks every resource in resources against its own trips in
// tripsByResource. Callers pass only resources whose status is active;
// inactive ones must be filtered out beforehand, not reported as busy.
func FindAvailable(resources []uuid.UUID, tripsByResource map[uuid.UUID][]domain.Trip, w Window) Availability {
	ids := slices.Clone(resources)
	slices.SortFunc(ids, compareIDs)
	ids = slices.Compact(ids)

	res := Availability{Available: []uuid.UUID{}, Busy: []BusyResource{}}
	for _, id := range ids {
		conflicts := ConflictingTrips(tripsByResource[id], w, uuid.Nil)
		if len(conflicts) == 0 {
			res.Available = append(res.Available, id)
			continue
		}
		res.Busy = append(res.Busy, BusyResource{ID: id, Conflicts: conflicts})
	}
	return res
}

// GroupTrips indexes trips by the resource of the given kind they reserve.
func GroupTrips(trips []domain.Trip, kind domain.ResourceKind) map[uuid.UUID][]domain.Trip {
	out := make(map[uuid.UUID][]domain.Trip)
	for _, t := range trips {
		id := t.DriverID
		if kind == domain.KindVehicle {
			id = t.VehicleID
		}
		out[id] = append(out[id], t)
	}
	return out
}

func compareTrips(a, b domain.Trip) int {
	if c := a.DateStart.Compare(b.DateStart); c != 0 {
		return c
	}
	return compareIDs(a.ID, b.ID)
}
