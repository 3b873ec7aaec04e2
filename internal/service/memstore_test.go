package service_test

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/repo"
)

// memData is the shared state behind a memStore.
type memData struct {
	trips     map[uuid.UUID]domain.Trip
	shipments map[uuid.UUID]domain.Shipment
	drivers   map[uuid.UUID]domain.Driver
	vehicles  map[uuid.UUID]domain.Vehicle
	issues    map[uuid.UUID]domain.Issue
}

func (d *memData) clone() *memData {
	return &memData{
		trips:     maps.Clone(d.trips),
		shipments: maps.Clone(d.shipments),
		drivers:   maps.Clone(d.drivers),
		vehicles:  maps.Clone(d.vehicles),
		issues:    maps.Clone(d.issues),
	}
}

// memStore is an in-memory repo.Store. Transactions are serialised by txMu
// and roll back by restoring a snapshot, which is enough to observe both
// atomicity and the outcome of racing writers.
type memStore struct {
	mu   *sync.Mutex // guards data
	txMu *sync.Mutex // one transaction at a time
	data **memData
	inTx bool

	// failShipmentUpdate, when set, is consulted before every shipment
	// status write and can abort it.
	failShipmentUpdate func(domain.Shipment) error
	lockCalls          *int
}

var _ repo.Store = (*memStore)(nil)

func newMemStore() *memStore {
	d := &memData{
		trips:     map[uuid.UUID]domain.Trip{},
		shipments: map[uuid.UUID]domain.Shipment{},
		drivers:   map[uuid.UUID]domain.Driver{},
		vehicles:  map[uuid.UUID]domain.Vehicle{},
		issues:    map[uuid.UUID]domain.Issue{},
	}
	return &memStore{mu: &sync.Mutex{}, txMu: &sync.Mutex{}, data: &d, lockCalls: new(int)}
}

func (s *memStore) Trips() repo.TripRepo         { return memTrips{s} }
func (s *memStore) Shipments() repo.ShipmentRepo { return memShipments{s} }
func (s *memStore) Drivers() repo.DriverRepo     { return memDrivers{s} }
func (s *memStore) Vehicles() repo.VehicleRepo   { return memVehicles{s} }
func (s *memStore) Issues() repo.IssueRepo       { return memIssues{s} }

func (s *memStore) InTx(_ context.Context, fn func(repo.Store) error) error {
	if !s.inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	snapshot := (*s.data).clone()
	s.mu.Unlock()

	tx := *s
	tx.inTx = true
	if err := fn(&tx); err != nil {
		s.mu.Lock()
		*s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) read(f func(d *memData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(*s.data)
}

// ---- seeding helpers --------------------------------------------------------

func (s *memStore) putDriver(d domain.Driver) domain.Driver {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = domain.DriverActive
	}
	s.read(func(m *memData) { m.drivers[d.ID] = d })
	return d
}

func (s *memStore) putVehicle(v domain.Vehicle) domain.Vehicle {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Status == "" {
		v.Status = domain.VehicleActive
	}
	s.read(func(m *memData) { m.vehicles[v.ID] = v })
	return v
}

func (s *memStore) putTrip(t domain.Trip) domain.Trip {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.read(func(m *memData) { m.trips[t.ID] = t })
	return t
}

func (s *memStore) putShipment(sh domain.Shipment) domain.Shipment {
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}
	if sh.TrackingNumber == "" {
		sh.TrackingNumber = "FO-" + strings.ToUpper(sh.ID.String()[:8])
	}
	s.read(func(m *memData) { m.shipments[sh.ID] = sh })
	return sh
}

func (s *memStore) trip(id uuid.UUID) domain.Trip {
	var t domain.Trip
	s.read(func(m *memData) { t = m.trips[id] })
	return t
}

func (s *memStore) shipment(id uuid.UUID) domain.Shipment {
	var sh domain.Shipment
	s.read(func(m *memData) { sh = m.shipments[id] })
	return sh
}

func page[T any](items []T, p domain.PaginationParams) []T {
	lo := min(p.Offset(), len(items))
	hi := min(lo+p.Limit, len(items))
	return items[lo:hi]
}

func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// ---- trips ------------------------------------------------------------------

type memTrips struct{ s *memStore }

func (r memTrips) Create(_ context.Context, t domain.Trip) (domain.Trip, error) {
	t.ID = uuid.New()
	stamp(&t.CreatedAt, &t.UpdatedAt)
	r.s.read(func(m *memData) { m.trips[t.ID] = t })
	return t, nil
}

func (r memTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	var (
		t  domain.Trip
		ok bool
	)
	r.s.read(func(m *memData) { t, ok = m.trips[id] })
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	return t, nil
}

func (r memTrips) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return r.GetByID(ctx, id)
}

func (r memTrips) List(_ context.Context, f domain.TripFilter, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	var out []domain.Trip
	r.s.read(func(m *memData) {
		for _, t := range m.trips {
			if f.Status != "" && t.Status != f.Status {
				continue
			}
			if f.DriverID != uuid.Nil && t.DriverID != f.DriverID {
				continue
			}
			out = append(out, t)
		}
	})
	slices.SortFunc(out, func(a, b domain.Trip) int { return b.DateStart.Compare(a.DateStart) })
	return append([]domain.Trip{}, page(out, p)...), int64(len(out)), nil
}

func (r memTrips) ListForResources(_ context.Context, kind domain.ResourceKind, ids []uuid.UUID) ([]domain.Trip, error) {
	out := []domain.Trip{}
	r.s.read(func(m *memData) {
		for _, t := range m.trips {
			id := t.DriverID
			if kind == domain.KindVehicle {
				id = t.VehicleID
			}
			if t.Status != domain.TripCancelled && slices.Contains(ids, id) {
				out = append(out, t)
			}
		}
	})
	return out, nil
}

func (r memTrips) ListOpen(_ context.Context) ([]domain.Trip, error) {
	out := []domain.Trip{}
	r.s.read(func(m *memData) {
		for _, t := range m.trips {
			if t.Status.Open() {
				out = append(out, t)
			}
		}
	})
	return out, nil
}

func (r memTrips) Update(_ context.Context, t domain.Trip) (domain.Trip, error) {
	var err error
	r.s.read(func(m *memData) {
		cur, ok := m.trips[t.ID]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		t.Status, t.ActualDuration, t.CreatedAt = cur.Status, cur.ActualDuration, cur.CreatedAt
		stamp(&t.CreatedAt, &t.UpdatedAt)
		m.trips[t.ID] = t
	})
	return t, err
}

func (r memTrips) UpdateStatus(_ context.Context, t domain.Trip, from domain.TripStatus) (domain.Trip, error) {
	var (
		out domain.Trip
		err error
	)
	r.s.read(func(m *memData) {
		cur, ok := m.trips[t.ID]
		switch {
		case !ok:
			err = domain.ErrNotFound
		case cur.Status != from:
			err = fmt.Errorf("%w: trip status changed concurrently", domain.ErrConflict)
		default:
			cur.Status, cur.ActualDuration = t.Status, t.ActualDuration
			stamp(&cur.CreatedAt, &cur.UpdatedAt)
			m.trips[t.ID] = cur
			out = cur
		}
	})
	return out, err
}

func (r memTrips) Delete(_ context.Context, id uuid.UUID) error {
	var err error
	r.s.read(func(m *memData) {
		if _, ok := m.trips[id]; !ok {
			err = domain.ErrNotFound
			return
		}
		delete(m.trips, id)
		for sid, sh := range m.shipments {
			if sh.TripID != nil && *sh.TripID == id {
				sh.TripID = nil
				m.shipments[sid] = sh
			}
		}
	})
	return err
}

func (r memTrips) LockResources(context.Context, uuid.UUID, uuid.UUID) error {
	r.s.read(func(*memData) { *r.s.lockCalls++ })
	return nil
}

// ---- shipments --------------------------------------------------------------

type memShipments struct{ s *memStore }

func (r memShipments) Create(_ context.Context, sh domain.Shipment) (domain.Shipment, error) {
	var err error
	r.s.read(func(m *memData) {
		for _, other := range m.shipments {
			if other.TrackingNumber == sh.TrackingNumber {
				err = fmt.Errorf("%w: tracking number exists", domain.ErrConflict)
				return
			}
		}
		sh.ID = uuid.New()
		stamp(&sh.CreatedAt, &sh.UpdatedAt)
		m.shipments[sh.ID] = sh
	})
	return sh, err
}

func (r memShipments) GetByID(_ context.Context, id uuid.UUID) (domain.Shipment, error) {
	var (
		sh domain.Shipment
		ok bool
	)
	r.s.read(func(m *memData) { sh, ok = m.shipments[id] })
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	return sh, nil
}

func (r memShipments) GetByTracking(_ context.Context, tn string) (domain.Shipment, error) {
	var (
		sh domain.Shipment
		ok bool
	)
	r.s.read(func(m *memData) {
		for _, c := range m.shipments {
			if c.TrackingNumber == tn {
				sh, ok = c, true
			}
		}
	})
	if !ok {
		return domain.Shipment{}, domain.ErrNotFound
	}
	return sh, nil
}

func (r memShipments) List(_ context.Context, f domain.ShipmentFilter, p domain.PaginationParams) ([]domain.Shipment, int64, error) {
	var out []domain.Shipment
	r.s.read(func(m *memData) {
		for _, sh := range m.shipments {
			if f.Status != "" && sh.Status != f.Status {
				continue
			}
			if f.ClientID != "" && sh.ClientID != f.ClientID {
				continue
			}
			if f.Unassigned && sh.TripID != nil {
				continue
			}
			out = append(out, sh)
		}
	})
	slices.SortFunc(out, func(a, b domain.Shipment) int { return strings.Compare(a.TrackingNumber, b.TrackingNumber) })
	return append([]domain.Shipment{}, page(out, p)...), int64(len(out)), nil
}

func (r memShipments) ListByTrips(_ context.Context, tripIDs []uuid.UUID) ([]domain.Shipment, error) {
	out := []domain.Shipment{}
	r.s.read(func(m *memData) {
		for _, sh := range m.shipments {
			if sh.TripID != nil && slices.Contains(tripIDs, *sh.TripID) {
				out = append(out, sh)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.Shipment) int { return strings.Compare(a.TrackingNumber, b.TrackingNumber) })
	return out, nil
}

func (r memShipments) LockByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Shipment, error) {
	return r.ListByTrips(ctx, []uuid.UUID{tripID})
}

func (r memShipments) Assign(_ context.Context, id, tripID uuid.UUID) (domain.Shipment, error) {
	var (
		out domain.Shipment
		err error
	)
	r.s.read(func(m *memData) {
		sh, ok := m.shipments[id]
		switch {
		case !ok:
			err = domain.ErrNotFound
		case sh.Status != domain.ShipmentPending || sh.TripID != nil:
			err = fmt.Errorf("%w: shipment already assigned", domain.ErrConflict)
		default:
			sh.TripID = &tripID
			sh.Status = domain.ShipmentAssigned
			m.shipments[id] = sh
			out = sh
		}
	})
	return out, err
}

func (r memShipments) UpdateStatus(_ context.Context, sh domain.Shipment, from domain.ShipmentStatus) (domain.Shipment, error) {
	if r.s.failShipmentUpdate != nil {
		if err := r.s.failShipmentUpdate(sh); err != nil {
			return domain.Shipment{}, err
		}
	}
	var (
		out domain.Shipment
		err error
	)
	r.s.read(func(m *memData) {
		cur, ok := m.shipments[sh.ID]
		switch {
		case !ok:
			err = domain.ErrNotFound
		case cur.Status != from:
			err = fmt.Errorf("%w: shipment status changed concurrently", domain.ErrConflict)
		default:
			cur.Status, cur.PickupDate, cur.DeliveryDate = sh.Status, sh.PickupDate, sh.DeliveryDate
			m.shipments[sh.ID] = cur
			out = cur
		}
	})
	return out, err
}

func (r memShipments) Delete(_ context.Context, id uuid.UUID) error {
	var err error
	r.s.read(func(m *memData) {
		if _, ok := m.shipments[id]; !ok {
			err = domain.ErrNotFound
			return
		}
		delete(m.shipments, id)
	})
	return err
}

// ---- fleet ------------------------------------------------------------------

type memDrivers struct{ s *memStore }

func (r memDrivers) Create(_ context.Context, d domain.Driver) (domain.Driver, error) {
	var err error
	r.s.read(func(m *memData) {
		for _, o := range m.drivers {
			if o.LicenseNumber == d.LicenseNumber {
				err = fmt.Errorf("%w: license exists", domain.ErrConflict)
				return
			}
		}
		d.ID = uuid.New()
		m.drivers[d.ID] = d
	})
	return d, err
}

func (r memDrivers) GetByID(_ context.Context, id uuid.UUID) (domain.Driver, error) {
	var (
		d  domain.Driver
		ok bool
	)
	r.s.read(func(m *memData) { d, ok = m.drivers[id] })
	if !ok {
		return domain.Driver{}, domain.ErrNotFound
	}
	return d, nil
}

func (r memDrivers) GetByUserID(_ context.Context, userID string) (domain.Driver, error) {
	var (
		d  domain.Driver
		ok bool
	)
	r.s.read(func(m *memData) {
		for _, c := range m.drivers {
			if c.UserID != nil && *c.UserID == userID {
				d, ok = c, true
			}
		}
	})
	if !ok {
		return domain.Driver{}, domain.ErrNotFound
	}
	return d, nil
}

func (r memDrivers) List(_ context.Context, status domain.DriverStatus) ([]domain.Driver, error) {
	out := []domain.Driver{}
	r.s.read(func(m *memData) {
		for _, d := range m.drivers {
			if status == "" || d.Status == status {
				out = append(out, d)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.Driver) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r memDrivers) UpdateStatus(_ context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error) {
	var (
		d   domain.Driver
		err error
	)
	r.s.read(func(m *memData) {
		cur, ok := m.drivers[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		cur.Status = status
		m.drivers[id] = cur
		d = cur
	})
	return d, err
}

type memVehicles struct{ s *memStore }

func (r memVehicles) Create(_ context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	var err error
	r.s.read(func(m *memData) {
		for _, o := range m.vehicles {
			if o.PlateNumber == v.PlateNumber {
				err = fmt.Errorf("%w: plate exists", domain.ErrConflict)
				return
			}
		}
		v.ID = uuid.New()
		m.vehicles[v.ID] = v
	})
	return v, err
}

func (r memVehicles) GetByID(_ context.Context, id uuid.UUID) (domain.Vehicle, error) {
	var (
		v  domain.Vehicle
		ok bool
	)
	r.s.read(func(m *memData) { v, ok = m.vehicles[id] })
	if !ok {
		return domain.Vehicle{}, domain.ErrNotFound
	}
	return v, nil
}

func (r memVehicles) GetByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Vehicle, error) {
	out := []domain.Vehicle{}
	r.s.read(func(m *memData) {
		for _, id := range ids {
			if v, ok := m.vehicles[id]; ok {
				out = append(out, v)
			}
		}
	})
	return out, nil
}

func (r memVehicles) List(_ context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	out := []domain.Vehicle{}
	r.s.read(func(m *memData) {
		for _, v := range m.vehicles {
			if status == "" || v.Status == status {
				out = append(out, v)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.Vehicle) int { return strings.Compare(a.PlateNumber, b.PlateNumber) })
	return out, nil
}

func (r memVehicles) UpdateStatus(_ context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error) {
	var (
		v   domain.Vehicle
		err error
	)
	r.s.read(func(m *memData) {
		cur, ok := m.vehicles[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		cur.Status = status
		m.vehicles[id] = cur
		v = cur
	})
	return v, err
}

// ---- issues -----------------------------------------------------------------

type memIssues struct{ s *memStore }

func (r memIssues) Create(_ context.Context, i domain.Issue) (domain.Issue, error) {
	i.ID = uuid.New()
	stamp(&i.CreatedAt, &i.UpdatedAt)
	r.s.read(func(m *memData) { m.issues[i.ID] = i })
	return i, nil
}

func (r memIssues) GetByID(_ context.Context, id uuid.UUID) (domain.Issue, error) {
	var (
		i  domain.Issue
		ok bool
	)
	r.s.read(func(m *memData) { i, ok = m.issues[id] })
	if !ok {
		return domain.Issue{}, domain.ErrNotFound
	}
	return i, nil
}

func (r memIssues) ListByTrip(_ context.Context, tripID uuid.UUID) ([]domain.Issue, error) {
	out := []domain.Issue{}
	r.s.read(func(m *memData) {
		for _, i := range m.issues {
			if i.TripID == tripID {
				out = append(out, i)
			}
		}
	})
	return out, nil
}

func (r memIssues) Update(_ context.Context, i domain.Issue) (domain.Issue, error) {
	var err error
	r.s.read(func(m *memData) {
		if _, ok := m.issues[i.ID]; !ok {
			err = domain.ErrNotFound
			return
		}
		m.issues[i.ID] = i
	})
	return i, err
}
