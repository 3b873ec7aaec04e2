package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/fleetops/internal/dispatch"
	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/notify"
	"github.com/pkordes/fleetops/internal/repo"
)

// IssueService records problems reported against trips and drives their
// open → resolved → closed workflow.
type IssueService struct {
	base
}

// NewIssueService constructs an IssueService backed by store.
func NewIssueService(store repo.Store, opts ...Option) *IssueService {
	return &IssueService{base: newBase(store, opts)}
}

// Report files a new open issue against a trip. The reporting driver is
// always the trip's driver. Cancelled trips do not accept issues.
func (s *IssueService) Report(ctx context.Context, issue domain.Issue) (domain.Issue, error) {
	issue.Description = strings.TrimSpace(issue.Description)
	if issue.Severity == "" {
		issue.Severity = domain.SeverityMedium
	}
	if !issue.Type.Valid() {
		return domain.Issue{}, fmt.Errorf("%w: unknown issue type %q", domain.ErrValidation, issue.Type)
	}
	if !issue.Severity.Valid() {
		return domain.Issue{}, fmt.Errorf("%w: unknown severity %q", domain.ErrValidation, issue.Severity)
	}
	if err := requireText("description", issue.Description); err != nil {
		return domain.Issue{}, err
	}

	trip, err := s.store.Trips().GetByID(ctx, issue.TripID)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("service.IssueService.Report: %w", err)
	}
	if trip.Status == domain.TripCancelled {
		return domain.Issue{}, fmt.Errorf("%w: trip is cancelled", domain.ErrValidation)
	}
	issue.DriverID = trip.DriverID
	issue.Status = domain.IssueOpen
	issue.Resolution = nil
	issue.ResolvedAt = nil

	created, err := s.store.Issues().Create(ctx, issue)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("service.IssueService.Report: %w", err)
	}

	s.log.InfoContext(ctx, "issue reported",
		"issue_id", created.ID, "trip_id", created.TripID, "type", created.Type, "severity", created.Severity)
	s.emit(ctx, notify.NewEvent(notify.IssueReported, created.ID, s.now(), map[string]any{
		"trip_id":  created.TripID.String(),
		"type":     string(created.Type),
		"severity": string(created.Severity),
	}))
	return created, nil
}

// GetByID returns a single issue.
func (s *IssueService) GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error) {
	result, err := s.store.Issues().GetByID(ctx, id)
	if err != nil {
		return domain.Issue{}, fmt.Errorf("service.IssueService.GetByID: %w", err)
	}
	return result, nil
}

// ListByTrip returns a trip's issues, oldest first.
func (s *IssueService) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Issue, error) {
	if _, err := s.store.Trips().GetByID(ctx, tripID); err != nil {
		return nil, fmt.Errorf("service.IssueService.ListByTrip: %w", err)
	}
	result, err := s.store.Issues().ListByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("service.IssueService.ListByTrip: %w", err)
	}
	return result, nil
}

// ChangeStatus moves an issue along its workflow. Resolving requires a
// resolution text and stamps resolved_at; closing an unresolved issue stamps
// it too.
func (s *IssueService) ChangeStatus(ctx context.Context, id uuid.UUID, to domain.IssueStatus, resolution string) (domain.Issue, error) {
	if !to.Valid() {
		return domain.Issue{}, fmt.Errorf("%w: unknown issue status %q", domain.ErrValidation, to)
	}
	resolution = strings.TrimSpace(resolution)

	var updated domain.Issue
	err := s.store.InTx(ctx, func(tx repo.Store) error {
		issue, err := tx.Issues().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := dispatch.CheckIssueTransition(issue.Status, to); err != nil {
			return err
		}
		if to == domain.IssueResolved && resolution == "" {
			return fmt.Errorf("%w: resolution is required to resolve an issue", domain.ErrValidation)
		}

		issue.Status = to
		if resolution != "" {
			issue.Resolution = &resolution
		}
		if (to == domain.IssueResolved || to == domain.IssueClosed) && issue.ResolvedAt == nil {
			now := s.now()
			issue.ResolvedAt = &now
		}
		updated, err = tx.Issues().Update(ctx, issue)
		return err
	})
	if err != nil {
		return domain.Issue{}, fmt.Errorf("service.IssueService.ChangeStatus: %w", err)
	}

	s.log.InfoContext(ctx, "issue status changed", "issue_id", id, "to", to)
	if to == domain.IssueResolved {
		data := map[string]any{"trip_id": updated.TripID.String()}
		if updated.Resolution != nil {
			data["resolution"] = *updated.Resolution
		}
		s.emit(ctx, notify.NewEvent(notify.IssueResolved, updated.ID, s.now(), data))
	}
	return updated, nil
}
