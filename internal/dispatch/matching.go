package dispatch

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pkordes/fleetops/internal/domain"
)

const (
	routeWeight    = 0.5
	timingWeight   = 0.3
	capacityWeight = 0.2

	// timingHorizon is how far outside a trip window a pickup date may fall
	// before timing affinity drops to zero.
	timingHorizon = 48 * time.Hour

	// GoodMatchScore is the lowest score at which an existing trip is
	// recommended over creating a new one.
	GoodMatchScore = 0.5
)

// TripLoad is an open trip together with what the matcher needs to judge
// spare capacity: its vehicle (nil if unknown) and the shipments already on it.
type TripLoad struct {
	Trip      domain.Trip
	Vehicle   *domain.Vehicle
	Shipments []domain.Shipment
}

// TripMatch is one existing trip offered for a shipment.
type TripMatch struct {
	Trip   domain.Trip `json:"trip"`
	Score  float64     `json:"match_score"`
	Reason string      `json:"match_reason"`
}

// NewTripOption is the always-present "create a new trip" choice, pre-filled
// from the shipment.
type NewTripOption struct {
	Departure   string     `json:"departure"`
	Destination string     `json:"destination"`
	DateStart   *time.Time `json:"date_start,omitempty"`
}

// MatchResult lists candidate trips best-first next to the new-trip option.
// PreferNewTrip is set when no candidate reaches GoodMatchScore.
type MatchResult struct {
	Candidates    []TripMatch   `json:"candidates"`
	NewTrip       NewTripOption `json:"new_trip"`
	PreferNewTrip bool          `json:"prefer_new_trip"`
}

// MatchShipment scores every planned or ongoing trip in loads for s. Trips in
// any other status are dropped. Trips with zero or negative affinity are kept
// and sort last so an operator can still assign anyway.
func MatchShipment(s domain.Shipment, loads []TripLoad) MatchResult {
	res := MatchResult{
		Candidates: []TripMatch{},
		NewTrip: NewTripOption{
			Departure:   s.PickupAddress,
			Destination: s.DeliveryAddress,
			DateStart:   s.PickupDate,
		},
	}

	for _, l := range loads {
		if !l.Trip.Status.Open() {
			continue
		}
		res.Candidates = append(res.Candidates, scoreTrip(s, l))
	}

	slices.SortFunc(res.Candidates, func(a, b TripMatch) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return compareTrips(a.Trip, b.Trip)
	})

	res.PreferNewTrip = len(res.Candidates) == 0 || res.Candidates[0].Score < GoodMatchScore
	return res
}

func scoreTrip(s domain.Shipment, l TripLoad) TripMatch {
	var reasons []string

	route, r := routeAffinity(s, l.Trip)
	reasons = append(reasons, r...)

	timing, r := timingAffinity(s.PickupDate, l.Trip)
	reasons = append(reasons, r...)

	capacity, r := capacityAffinity(s, l)
	reasons = append(reasons, r...)

	score := routeWeight*route + timingWeight*timing + capacityWeight*capacity
	if capacity < 0 {
		// Overloading a vehicle is never a good match, however well the
		// route lines up.
		score = routeWeight*route + timingWeight*timing - 1
	}
	return TripMatch{
		Trip:   l.Trip,
		Score:  roundTo(score, 3),
		Reason: strings.Join(reasons, "; "),
	}
}

func routeAffinity(s domain.Shipment, t domain.Trip) (float64, []string) {
	pickup, pr := legAffinity(s.PickupAddress, t.Departure, "pickup", "departure")
	delivery, dr := legAffinity(s.DeliveryAddress, t.Destination, "delivery", "destination")
	if pickup == 0 && delivery == 0 {
		return 0, []string{"no route overlap"}
	}
	var reasons []string
	if pr != "" {
		reasons = append(reasons, pr)
	}
	if dr != "" {
		reasons = append(reasons, dr)
	}
	return (pickup + delivery) / 2, reasons
}

// legAffinity compares two free-text locations: identical after
// normalisation scores 1, one containing the other scores 0.5.
func legAffinity(a, b, aName, bName string) (float64, string) {
	na, nb := normalizeLocation(a), normalizeLocation(b)
	switch {
	case na == "" || nb == "":
		return 0, ""
	case na == nb:
		return 1, fmt.Sprintf("%s matches %s", aName, bName)
	case strings.Contains(na, nb) || strings.Contains(nb, na):
		return 0.5, fmt.Sprintf("%s partially matches %s", aName, bName)
	}
	return 0, ""
}

func normalizeLocation(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func timingAffinity(pickup *time.Time, t domain.Trip) (float64, []string) {
	if pickup == nil {
		return 0, []string{"no pickup date"}
	}
	var gap time.Duration
	switch {
	case pickup.Before(t.DateStart):
		gap = t.DateStart.Sub(*pickup)
	case t.DateEnd != nil && pickup.After(*t.DateEnd):
		gap = pickup.Sub(*t.DateEnd)
	default:
		return 1, []string{"pickup date within trip window"}
	}
	if gap >= timingHorizon {
		return 0, []string{fmt.Sprintf("pickup date %s outside trip window", roundDuration(gap))}
	}
	score := 0.5 * (1 - float64(gap)/float64(timingHorizon))
	return score, []string{fmt.Sprintf("pickup date %s outside trip window", roundDuration(gap))}
}

// capacityAffinity returns the smallest spare-capacity ratio left after
// loading s, -1 if s does not fit, or 0 when nothing can be compared.
func capacityAffinity(s domain.Shipment, l TripLoad) (float64, []string) {
	if l.Vehicle == nil {
		return 0, nil
	}
	var usedWeight, usedVolume float64
	for _, other := range l.Shipments {
		if other.ID == s.ID {
			continue
		}
		if other.Status != domain.ShipmentAssigned && other.Status != domain.ShipmentInTransit {
			continue
		}
		if other.Weight != nil {
			usedWeight += *other.Weight
		}
		if other.Volume != nil {
			usedVolume += *other.Volume
		}
	}

	compared := false
	slack := 1.0
	for _, dim := range []struct {
		capacity *float64
		used     float64
		need     *float64
		name     string
	}{
		{l.Vehicle.CapacityWeight, usedWeight, s.Weight, "weight"},
		{l.Vehicle.CapacityVolume, usedVolume, s.Volume, "volume"},
	} {
		if dim.capacity == nil || dim.need == nil || *dim.capacity <= 0 {
			continue
		}
		compared = true
		remaining := *dim.capacity - dim.used
		if *dim.need > remaining {
			return -1, []string{fmt.Sprintf("%s capacity exceeded", dim.name)}
		}
		slack = min(slack, (remaining-*dim.need)/(*dim.capacity))
	}
	if !compared {
		return 0, nil
	}
	return slack, []string{fmt.Sprintf("%.0f%% capacity left after loading", slack*100)}
}

func roundDuration(d time.Duration) time.Duration {
	return d.Round(time.Minute)
}
