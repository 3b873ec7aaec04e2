package dispatch

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
)

// AvailabilityStatus labels a candidate for the requested window.
type AvailabilityStatus string

const (
	Available   AvailabilityStatus = "available"
	Unavailable AvailabilityStatus = "unavailable"
)

const (
	capabilityWeight   = 0.6
	utilisationWeight  = 0.4
	maxExperienceYears = 10
	neutralCapability  = 0.5

	reasonTimeLayout = "2006-01-02 15:04 MST"
)

// Candidate is a driver or vehicle under consideration for a new trip.
// Score is on a 0–100 scale and only orders candidates within the same
// availability bucket. Reasons are display strings.
type Candidate struct {
	ID           uuid.UUID           `json:"id"`
	Kind         domain.ResourceKind `json:"kind"`
	Label        string              `json:"label"`
	Score        float64             `json:"score"`
	Availability AvailabilityStatus  `json:"availability"`
	Reasons      []string            `json:"reasons"`
	Conflicts    []domain.Trip       `json:"conflicts,omitempty"`
}

// Requirements describe the cargo a vehicle must carry. Nil fields are unknown.
type Requirements struct {
	Weight *float64
	Volume *float64
}

// ScoreDriver scores d for window w given every trip d has ever been
// assigned (any status).
func ScoreDriver(d domain.Driver, trips []domain.Trip, w Window) Candidate {
	years := max(d.ExperienceYears, 0)
	capability := float64(min(years, maxExperienceYears)) / maxExperienceYears

	c := Candidate{ID: d.ID, Kind: domain.KindDriver, Label: d.Name}
	c.Reasons = append(c.Reasons, experienceReason(years))
	return finishCandidate(c, capability, trips, w)
}

// ScoreVehicle scores v for window w. When req and the vehicle's capacity
// are both known the capability factor reflects how well the cargo fits;
// otherwise it is neutral.
func ScoreVehicle(v domain.Vehicle, trips []domain.Trip, w Window, req Requirements) Candidate {
	c := Candidate{ID: v.ID, Kind: domain.KindVehicle, Label: v.PlateNumber}
	if v.Model != "" {
		c.Label = v.PlateNumber + " (" + v.Model + ")"
	}

	capability, reasons := vehicleCapability(v, req)
	c.Reasons = append(c.Reasons, reasons...)
	return finishCandidate(c, capability, trips, w)
}

// Rank orders candidates available-first, then by score descending, then by
// id ascending. The sort is in place and deterministic.
func Rank(cands []Candidate) {
	slices.SortFunc(cands, func(a, b Candidate) int {
		if a.Availability != b.Availability {
			if a.Availability == Available {
				return -1
			}
			return 1
		}
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return compareIDs(a.ID, b.ID)
	})
}

func finishCandidate(c Candidate, capability float64, trips []domain.Trip, w Window) Candidate {
	count := 0
	for _, t := range trips {
		if t.Status != domain.TripCancelled {
			count++
		}
	}
	utilisation := 1 / float64(1+count)
	c.Reasons = append(c.Reasons, tripCountReason(count))

	c.Score = roundTo(100*(capabilityWeight*capability+utilisationWeight*utilisation), 2)

	conflicts := ConflictingTrips(trips, w, uuid.Nil)
	if len(conflicts) == 0 {
		c.Availability = Available
		c.Reasons = append(c.Reasons, "Available for the requested window")
		return c
	}
	c.Availability = Unavailable
	c.Conflicts = conflicts
	c.Reasons = append(c.Reasons, conflictReason(conflicts[0]))
	if len(conflicts) > 1 {
		c.Reasons = append(c.Reasons, fmt.Sprintf("%d conflicting trips in the window", len(conflicts)))
	}
	return c
}

func vehicleCapability(v domain.Vehicle, req Requirements) (float64, []string) {
	var reasons []string
	compared := false
	fits := true
	slack := 1.0

	check := func(capacity, need *float64, unit string) {
		if capacity == nil || need == nil || *capacity <= 0 {
			return
		}
		compared = true
		if *need > *capacity {
			fits = false
			reasons = append(reasons, fmt.Sprintf("Capacity %s %s below required %s %s",
				formatQty(*capacity), unit, formatQty(*need), unit))
			return
		}
		ratio := (*capacity - *need) / *capacity
		slack = min(slack, ratio)
		reasons = append(reasons, fmt.Sprintf("Capacity %s %s covers %s %s",
			formatQty(*capacity), unit, formatQty(*need), unit))
	}
	check(v.CapacityWeight, req.Weight, "kg")
	check(v.CapacityVolume, req.Volume, "m3")

	if !compared {
		if req.Weight != nil || req.Volume != nil {
			reasons = append(reasons, "Capacity not recorded")
		}
		return neutralCapability, reasons
	}
	if !fits {
		return 0, reasons
	}
	return 0.5 + 0.5*slack, reasons
}

func experienceReason(years int) string {
	switch years {
	case 0:
		return "No recorded experience"
	case 1:
		return "1 year experience"
	}
	return fmt.Sprintf("%d years experience", years)
}

func tripCountReason(n int) string {
	switch n {
	case 0:
		return "No previous trips"
	case 1:
		return "1 previous trip"
	}
	return fmt.Sprintf("%d previous trips", n)
}

func conflictReason(t domain.Trip) string {
	route := t.Departure + " → " + t.Destination
	if t.DateEnd == nil {
		return fmt.Sprintf("On open-ended trip %s since %s", route, formatTime(t.DateStart))
	}
	return fmt.Sprintf("Currently on trip %s until %s", route, formatTime(*t.DateEnd))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(reasonTimeLayout)
}

func formatQty(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func roundTo(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}
