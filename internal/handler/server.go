// Package handler implements the FleetOps HTTP API. Every endpoint is a
// method on Server; Routes wires them into a chi router. Methods are split
// into per-resource files but share the Server dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/dispatch"
	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/middleware"
	"github.com/pkordes/fleetops/internal/service"
)

// TripServicer is the trip behaviour the handlers depend on.
type TripServicer interface {
	Create(ctx context.Context, trip domain.Trip, allowConflicts bool) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	Update(ctx context.Context, trip domain.Trip, allowConflicts bool) (domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListShipments(ctx context.Context, tripID uuid.UUID) ([]domain.Shipment, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to domain.TripStatus) (service.TransitionResult, error)
}

// ShipmentServicer is the shipment behaviour the handlers depend on.
type ShipmentServicer interface {
	Create(ctx context.Context, sh domain.Shipment) (domain.Shipment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Shipment, error)
	GetByTracking(ctx context.Context, trackingNumber string) (domain.Shipment, error)
	List(ctx context.Context, f domain.ShipmentFilter, p domain.PaginationParams) (domain.Page[domain.Shipment], error)
	FindCandidateTrips(ctx context.Context, id uuid.UUID) (dispatch.MatchResult, error)
	AssignToTrip(ctx context.Context, shipmentID, tripID uuid.UUID) (domain.Shipment, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to domain.ShipmentStatus) (domain.Shipment, error)
}

// FleetServicer is the driver and vehicle registry behaviour.
type FleetServicer interface {
	CreateDriver(ctx context.Context, d domain.Driver) (domain.Driver, error)
	GetDriver(ctx context.Context, id uuid.UUID) (domain.Driver, error)
	DriverBySubject(ctx context.Context, subject string) (domain.Driver, error)
	ListDrivers(ctx context.Context, status domain.DriverStatus) ([]domain.Driver, error)
	SetDriverStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error)
	CreateVehicle(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	GetVehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	ListVehicles(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error)
	SetVehicleStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error)
}

// SchedulingServicer answers availability and candidate queries.
type SchedulingServicer interface {
	FindAvailable(ctx context.Context, kind domain.ResourceKind, w dispatch.Window) (dispatch.Availability, error)
	SuggestDrivers(ctx context.Context, w dispatch.Window) ([]dispatch.Candidate, error)
	SuggestVehicles(ctx context.Context, w dispatch.Window, req dispatch.Requirements) ([]dispatch.Candidate, error)
}

// IssueServicer is the trip issue behaviour.
type IssueServicer interface {
	Report(ctx context.Context, issue domain.Issue) (domain.Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Issue, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, to domain.IssueStatus, resolution string) (domain.Issue, error)
}

// Services bundles the dependencies of a Server.
type Services struct {
	Trips      TripServicer
	Shipments  ShipmentServicer
	Fleet      FleetServicer
	Scheduling SchedulingServicer
	Issues     IssueServicer
}

// Server implements every API endpoint.
type Server struct {
	trips      TripServicer
	shipments  ShipmentServicer
	fleet      FleetServicer
	scheduling SchedulingServicer
	issues     IssueServicer
	log        *slog.Logger
	openAPI    []byte
}

// NewServer constructs the Server. openAPI is the document served at
// /openapi.yaml; a nil log falls back to slog.Default().
func NewServer(svc Services, openAPI []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		trips:      svc.Trips,
		shipments:  svc.Shipments,
		fleet:      svc.Fleet,
		scheduling: svc.Scheduling,
		issues:     svc.Issues,
		log:        log,
		openAPI:    openAPI,
	}
}

// Routes returns the API router. authn must authenticate the caller and
// store a domain.Principal in the request context; everything under
// /api/v1 runs behind it.
func (s *Server) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	admin := middleware.RequireRole(domain.RoleAdmin)
	adminOrClient := middleware.RequireRole(domain.RoleAdmin, domain.RoleClient)
	adminOrDriver := middleware.RequireRole(domain.RoleAdmin, domain.RoleDriver)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn)

		r.With(admin).Route("/drivers", func(r chi.Router) {
			r.Post("/", s.CreateDriver)
			r.Get("/", s.ListDrivers)
			r.Get("/{id}", s.GetDriver)
			r.Patch("/{id}/status", s.SetDriverStatus)
		})
		r.With(admin).Route("/vehicles", func(r chi.Router) {
			r.Post("/", s.CreateVehicle)
			r.Get("/", s.ListVehicles)
			r.Get("/{id}", s.GetVehicle)
			r.Patch("/{id}/status", s.SetVehicleStatus)
		})
		r.With(admin).Get("/availability", s.GetAvailability)
		r.With(admin).Get("/candidates/drivers", s.SuggestDrivers)
		r.With(admin).Get("/candidates/vehicles", s.SuggestVehicles)

		r.Route("/trips", func(r chi.Router) {
			r.With(admin).Post("/", s.CreateTrip)
			r.With(adminOrDriver).Get("/", s.ListTrips)
			r.Route("/{id}", func(r chi.Router) {
				r.With(adminOrDriver).Get("/", s.GetTrip)
				r.With(admin).Put("/", s.UpdateTrip)
				r.With(admin).Delete("/", s.DeleteTrip)
				r.With(adminOrDriver).Post("/status", s.ChangeTripStatus)
				r.With(adminOrDriver).Get("/shipments", s.ListTripShipments)
				r.With(adminOrDriver).Post("/issues", s.ReportIssue)
				r.With(adminOrDriver).Get("/issues", s.ListTripIssues)
			})
		})

		r.Route("/shipments", func(r chi.Router) {
			r.With(adminOrClient).Post("/", s.CreateShipment)
			r.With(adminOrClient).Get("/", s.ListShipments)
			r.Get("/tracking/{number}", s.TrackShipment)
			r.Route("/{id}", func(r chi.Router) {
				r.With(adminOrClient).Get("/", s.GetShipment)
				r.With(admin).Get("/candidate-trips", s.FindCandidateTrips)
				r.With(admin).Post("/assign", s.AssignShipment)
				r.With(adminOrClient).Post("/status", s.ChangeShipmentStatus)
			})
		})

		r.With(admin).Get("/issues/{id}", s.GetIssue)
		r.With(admin).Post("/issues/{id}/status", s.ChangeIssueStatus)
	})
	return r
}
