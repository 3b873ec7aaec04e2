package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/middleware"
)

// principal returns the authenticated caller. Routes only reach handlers
// through Authenticate, so a missing principal is a wiring bug.
func principal(r *http.Request) (domain.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return domain.Principal{}, errors.New("handler.principal: request is not authenticated")
	}
	return p, nil
}

// callerDriver resolves a driver-role principal to its driver record.
// A subject with no linked driver is forbidden rather than not found.
func (s *Server) callerDriver(ctx context.Context, p domain.Principal) (domain.Driver, error) {
	d, err := s.fleet.DriverBySubject(ctx, p.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Driver{}, fmt.Errorf("%w: no driver is linked to this account", domain.ErrForbidden)
	}
	return d, err
}

// tripFor loads a trip and checks that p may act on it: admins always may,
// drivers only on trips assigned to them.
func (s *Server) tripFor(ctx context.Context, p domain.Principal, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, err
	}
	if p.IsAdmin() {
		return trip, nil
	}
	if p.Role == domain.RoleDriver {
		d, err := s.callerDriver(ctx, p)
		if err != nil {
			return domain.Trip{}, err
		}
		if d.ID == trip.DriverID {
			return trip, nil
		}
	}
	return domain.Trip{}, fmt.Errorf("%w: trip is not assigned to you", domain.ErrForbidden)
}

// shipmentFor loads a shipment and checks that p may see it: admins always
// may, clients only their own shipments.
func (s *Server) shipmentFor(ctx context.Context, p domain.Principal, id uuid.UUID) (domain.Shipment, error) {
	sh, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		return domain.Shipment{}, err
	}
	if p.IsAdmin() || (p.Role == domain.RoleClient && sh.ClientID == p.Subject) {
		return sh, nil
	}
	return domain.Shipment{}, fmt.Errorf("%w: shipment belongs to another client", domain.ErrForbidden)
}
