package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleetops/internal/domain"
)

func TestDriverRepo_CreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	subject := "auth0|" + uuid.NewString()
	created, err := s.Drivers().Create(ctx, domain.Driver{
		UserID:          &subject,
		Name:            "Rosa",
		LicenseNumber:   unique("LIC"),
		Status:          domain.DriverActive,
		ExperienceYears: 7,
	})
	require.NoError(t, err)
	require.NotNil(t, created.UserID)
	assert.Equal(t, subject, *created.UserID)

	bySubject, err := s.Drivers().GetByUserID(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySubject.ID)

	_, err = s.Drivers().GetByUserID(ctx, "auth0|nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDriverRepo_DuplicateLicense(t *testing.T) {
	s := newTestStore(t)
	first := mustDriver(t, s)

	_, err := s.Drivers().Create(context.Background(), domain.Driver{
		Name: "Copy", LicenseNumber: first.LicenseNumber, Status: domain.DriverActive,
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDriverRepo_ListAndUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d := mustDriver(t, s)

	suspended, err := s.Drivers().UpdateStatus(ctx, d.ID, domain.DriverSuspended)
	require.NoError(t, err)
	assert.Equal(t, domain.DriverSuspended, suspended.Status)

	active, err := s.Drivers().List(ctx, domain.DriverActive)
	require.NoError(t, err)
	for _, got := range active {
		assert.NotEqual(t, d.ID, got.ID)
	}

	_, err = s.Drivers().UpdateStatus(ctx, uuid.New(), domain.DriverActive)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVehicleRepo_CreateGetList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	v := mustVehicle(t, s)
	other := mustVehicle(t, s)

	got, err := s.Vehicles().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 12000.0, *got.CapacityWeight)
	assert.Nil(t, got.CapacityVolume)

	many, err := s.Vehicles().GetByIDs(ctx, []uuid.UUID{v.ID, other.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = s.Vehicles().UpdateStatus(ctx, v.ID, domain.VehicleInMaintenance)
	require.NoError(t, err)
	maint, err := s.Vehicles().List(ctx, domain.VehicleInMaintenance)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(maint))
	for _, m := range maint {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, v.ID)
	assert.NotContains(t, ids, other.ID)
}

func TestVehicleRepo_DuplicatePlate(t *testing.T) {
	s := newTestStore(t)
	v := mustVehicle(t, s)

	_, err := s.Vehicles().Create(context.Background(), domain.Vehicle{
		PlateNumber: v.PlateNumber, Model: "Copy", Status: domain.VehicleActive,
	})

	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestIssueRepo_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	trip := mustTrip(t, s, tripFixture(t, s))

	created, err := s.Issues().Create(ctx, domain.Issue{
		TripID:      trip.ID,
		DriverID:    trip.DriverID,
		Type:        domain.IssueBreakdown,
		Severity:    domain.SeverityHigh,
		Description: "Flat tyre on A16",
		Status:      domain.IssueOpen,
	})
	require.NoError(t, err)
	assert.Nil(t, created.Resolution)
	assert.Nil(t, created.ResolvedAt)

	resolvedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	created.Status = domain.IssueResolved
	created.Resolution = ptr("Tyre replaced")
	created.ResolvedAt = &resolvedAt
	updated, err := s.Issues().Update(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueResolved, updated.Status)
	assert.Equal(t, "Tyre replaced", *updated.Resolution)
	assert.True(t, updated.ResolvedAt.Equal(resolvedAt))

	listed, err := s.Issues().ListByTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	_, err = s.Issues().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
