package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleetops/internal/dispatch"
	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/handler"
	"github.com/pkordes/fleetops/internal/middleware"
	"github.com/pkordes/fleetops/internal/service"
)

// Test doubles for the handler's service interfaces. Set only the method
// fields a test needs; calling an unset one panics and fails the test.

type mockTrips struct {
	create        func(ctx context.Context, trip domain.Trip, allow bool) (domain.Trip, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	list          func(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error)
	update        func(ctx context.Context, trip domain.Trip, allow bool) (domain.Trip, error)
	delete        func(ctx context.Context, id uuid.UUID) error
	listShipments func(ctx context.Context, tripID uuid.UUID) ([]domain.Shipment, error)
	changeStatus  func(ctx context.Context, id uuid.UUID, to domain.TripStatus) (service.TransitionResult, error)
}

func (m *mockTrips) Create(ctx context.Context, t domain.Trip, allow bool) (domain.Trip, error) {
	return m.create(ctx, t, allow)
}
func (m *mockTrips) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTrips) List(ctx context.Context, f domain.TripFilter, p domain.PaginationParams) (domain.Page[domain.Trip], error) {
	return m.list(ctx, f, p)
}
func (m *mockTrips) Update(ctx context.Context, t domain.Trip, allow bool) (domain.Trip, error) {
	return m.update(ctx, t, allow)
}
func (m *mockTrips) Delete(ctx context.Context, id uuid.UUID) error { return m.delete(ctx, id) }
func (m *mockTrips) ListShipments(ctx context.Context, id uuid.UUID) ([]domain.Shipment, error) {
	return m.listShipments(ctx, id)
}
func (m *mockTrips) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.TripStatus) (service.TransitionResult, error) {
	return m.changeStatus(ctx, id, to)
}

type mockShipments struct {
	create        func(ctx context.Context, sh domain.Shipment) (domain.Shipment, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Shipment, error)
	getByTracking func(ctx context.Context, tn string) (domain.Shipment, error)
	list          func(ctx context.Context, f domain.ShipmentFilter, p domain.PaginationParams) (domain.Page[domain.Shipment], error)
	candidates    func(ctx context.Context, id uuid.UUID) (dispatch.MatchResult, error)
	assign        func(ctx context.Context, id, tripID uuid.UUID) (domain.Shipment, error)
	changeStatus  func(ctx context.Context, id uuid.UUID, to domain.ShipmentStatus) (domain.Shipment, error)
}

func (m *mockShipments) Create(ctx context.Context, sh domain.Shipment) (domain.Shipment, error) {
	return m.create(ctx, sh)
}
func (m *mockShipments) GetByID(ctx context.Context, id uuid.UUID) (domain.Shipment, error) {
	return m.getByID(ctx, id)
}
func (m *mockShipments) GetByTracking(ctx context.Context, tn string) (domain.Shipment, error) {
	return m.getByTracking(ctx, tn)
}
func (m *mockShipments) List(ctx context.Context, f domain.ShipmentFilter, p domain.PaginationParams) (domain.Page[domain.Shipment], error) {
	return m.list(ctx, f, p)
}
func (m *mockShipments) FindCandidateTrips(ctx context.Context, id uuid.UUID) (dispatch.MatchResult, error) {
	return m.candidates(ctx, id)
}
func (m *mockShipments) AssignToTrip(ctx context.Context, id, tripID uuid.UUID) (domain.Shipment, error) {
	return m.assign(ctx, id, tripID)
}
func (m *mockShipments) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.ShipmentStatus) (domain.Shipment, error) {
	return m.changeStatus(ctx, id, to)
}

type mockFleet struct {
	createDriver     func(ctx context.Context, d domain.Driver) (domain.Driver, error)
	getDriver        func(ctx context.Context, id uuid.UUID) (domain.Driver, error)
	driverBySubject  func(ctx context.Context, subject string) (domain.Driver, error)
	listDrivers      func(ctx context.Context, status domain.DriverStatus) ([]domain.Driver, error)
	setDriverStatus  func(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error)
	createVehicle    func(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
	getVehicle       func(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)
	listVehicles     func(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error)
	setVehicleStatus func(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error)
}

func (m *mockFleet) CreateDriver(ctx context.Context, d domain.Driver) (domain.Driver, error) {
	return m.createDriver(ctx, d)
}
func (m *mockFleet) GetDriver(ctx context.Context, id uuid.UUID) (domain.Driver, error) {
	return m.getDriver(ctx, id)
}
func (m *mockFleet) DriverBySubject(ctx context.Context, subject string) (domain.Driver, error) {
	return m.driverBySubject(ctx, subject)
}
func (m *mockFleet) ListDrivers(ctx context.Context, status domain.DriverStatus) ([]domain.Driver, error) {
	return m.listDrivers(ctx, status)
}
func (m *mockFleet) SetDriverStatus(ctx context.Context, id uuid.UUID, status domain.DriverStatus) (domain.Driver, error) {
	return m.setDriverStatus(ctx, id, status)
}
func (m *mockFleet) CreateVehicle(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	return m.createVehicle(ctx, v)
}
func (m *mockFleet) GetVehicle(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	return m.getVehicle(ctx, id)
}
func (m *mockFleet) ListVehicles(ctx context.Context, status domain.VehicleStatus) ([]domain.Vehicle, error) {
	return m.listVehicles(ctx, status)
}
func (m *mockFleet) SetVehicleStatus(ctx context.Context, id uuid.UUID, status domain.VehicleStatus) (domain.Vehicle, error) {
	return m.setVehicleStatus(ctx, id, status)
}

type mockScheduling struct {
	findAvailable   func(ctx context.Context, kind domain.ResourceKind, w dispatch.Window) (dispatch.Availability, error)
	suggestDrivers  func(ctx context.Context, w dispatch.Window) ([]dispatch.Candidate, error)
	suggestVehicles func(ctx context.Context, w dispatch.Window, req dispatch.Requirements) ([]dispatch.Candidate, error)
}

func (m *mockScheduling) FindAvailable(ctx context.Context, kind domain.ResourceKind, w dispatch.Window) (dispatch.Availability, error) {
	return m.findAvailable(ctx, kind, w)
}
func (m *mockScheduling) SuggestDrivers(ctx context.Context, w dispatch.Window) ([]dispatch.Candidate, error) {
	return m.suggestDrivers(ctx, w)
}
func (m *mockScheduling) SuggestVehicles(ctx context.Context, w dispatch.Window, req dispatch.Requirements) ([]dispatch.Candidate, error) {
	return m.suggestVehicles(ctx, w, req)
}

type mockIssues struct {
	report       func(ctx context.Context, issue domain.Issue) (domain.Issue, error)
	getByID      func(ctx context.Context, id uuid.UUID) (domain.Issue, error)
	listByTrip   func(ctx context.Context, tripID uuid.UUID) ([]domain.Issue, error)
	changeStatus func(ctx context.Context, id uuid.UUID, to domain.IssueStatus, resolution string) (domain.Issue, error)
}

func (m *mockIssues) Report(ctx context.Context, i domain.Issue) (domain.Issue, error) {
	return m.report(ctx, i)
}
func (m *mockIssues) GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error) {
	return m.getByID(ctx, id)
}
func (m *mockIssues) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Issue, error) {
	return m.listByTrip(ctx, tripID)
}
func (m *mockIssues) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.IssueStatus, res string) (domain.Issue, error) {
	return m.changeStatus(ctx, id, to, res)
}

var (
	_ handler.TripServicer       = (*mockTrips)(nil)
	_ handler.ShipmentServicer   = (*mockShipments)(nil)
	_ handler.FleetServicer      = (*mockFleet)(nil)
	_ handler.SchedulingServicer = (*mockScheduling)(nil)
	_ handler.IssueServicer      = (*mockIssues)(nil)
)

// ---- harness ----------------------------------------------------------------

var testSecret = []byte("handler-test-secret")

const (
	adminSub  = "auth0|admin"
	driverSub = "auth0|driver"
	clientSub = "auth0|client"
)

type mocks struct {
	trips      *mockTrips
	shipments  *mockShipments
	fleet      *mockFleet
	scheduling *mockScheduling
	issues     *mockIssues
}

func newMocks() *mocks {
	return &mocks{
		trips:      &mockTrips{},
		shipments:  &mockShipments{},
		fleet:      &mockFleet{},
		scheduling: &mockScheduling{},
		issues:     &mockIssues{},
	}
}

// router wires a Server over m exactly as main does, including real bearer
// token authentication.
func (m *mocks) router() http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := handler.NewServer(handler.Services{
		Trips:      m.trips,
		Shipments:  m.shipments,
		Fleet:      m.fleet,
		Scheduling: m.scheduling,
		Issues:     m.issues,
	}, []byte("openapi: 3.0.3\n"), log)
	return srv.Routes(middleware.Authenticate(middleware.NewTokenVerifier(testSecret), log))
}

func token(t *testing.T, subject string, role domain.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

// do sends one request as the given role. A nil body sends no body.
func (m *mocks) do(t *testing.T, role domain.Role, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if role != "" {
		sub := map[domain.Role]string{domain.RoleAdmin: adminSub, domain.RoleDriver: driverSub, domain.RoleClient: clientSub}[role]
		req.Header.Set("Authorization", "Bearer "+token(t, sub, role))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	m.router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type pageBody[T any] struct {
	Data       []T `json:"data"`
	Pagination struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"pagination"`
}

type listBody[T any] struct {
	Data []T `json:"data"`
}

func ptr[T any](v T) *T { return &v }

func day(d, h int) time.Time {
	return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)
}
