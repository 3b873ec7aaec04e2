package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleetops/internal/domain"
)

func TestReportIssue_OwnTripOnly(t *testing.T) {
	trip := tripFixture()
	m := newMocks()
	m.withTrip(trip, trip.DriverID)
	m.issues.report = func(_ context.Context, in domain.Issue) (domain.Issue, error) {
		assert.Equal(t, trip.ID, in.TripID)
		assert.Equal(t, domain.IssueBreakdown, in.Type)
		in.ID = uuid.New()
		in.Status = domain.IssueOpen
		return in, nil
	}
	target := "/api/v1/trips/" + trip.ID.String() + "/issues"
	body := map[string]string{"type": "breakdown", "severity": "high", "description": "Flat tyre"}

	rec := m.do(t, domain.RoleDriver, http.MethodPost, target, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.IssueOpen, decode[domain.Issue](t, rec).Status)

	m.withTrip(trip, uuid.New())
	rec = m.do(t, domain.RoleDriver, http.MethodPost, target, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListTripIssues(t *testing.T) {
	trip := tripFixture()
	m := newMocks()
	m.withTrip(trip, trip.DriverID)
	m.issues.listByTrip = func(context.Context, uuid.UUID) ([]domain.Issue, error) {
		return []domain.Issue{{ID: uuid.New(), TripID: trip.ID}}, nil
	}

	rec := m.do(t, domain.RoleAdmin, http.MethodGet, "/api/v1/trips/"+trip.ID.String()+"/issues", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listBody[domain.Issue]](t, rec).Data, 1)
}

func TestChangeIssueStatus(t *testing.T) {
	m := newMocks()
	id := uuid.New()
	m.issues.changeStatus = func(_ context.Context, got uuid.UUID, to domain.IssueStatus, resolution string) (domain.Issue, error) {
		assert.Equal(t, id, got)
		if resolution == "" {
			return domain.Issue{}, fmt.Errorf("service.IssueService.ChangeStatus: %w: resolution is required to resolve an issue", domain.ErrValidation)
		}
		return domain.Issue{ID: id, Status: to, Resolution: &resolution}, nil
	}
	target := "/api/v1/issues/" + id.String() + "/status"

	rec := m.do(t, domain.RoleAdmin, http.MethodPost, target, map[string]string{"status": "resolved"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "resolution is required to resolve an issue", decode[errorBody](t, rec).Error.Message)

	rec = m.do(t, domain.RoleAdmin, http.MethodPost, target, map[string]string{"status": "resolved", "resolution": "Towed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Towed", *decode[domain.Issue](t, rec).Resolution)

	rec = m.do(t, domain.RoleDriver, http.MethodPost, target, map[string]string{"status": "closed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetIssue(t *testing.T) {
	m := newMocks()
	m.issues.getByID = func(_ context.Context, id uuid.UUID) (domain.Issue, error) {
		return domain.Issue{ID: id}, nil
	}

	rec := m.do(t, domain.RoleAdmin, http.MethodGet, "/api/v1/issues/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
