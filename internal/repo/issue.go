package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/fleetops/internal/domain"
)

// IssueRepo defines the persistence operations for trip Issues.
type IssueRepo interface {
	Create(ctx context.Context, i domain.Issue) (domain.Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error)
	// ListByTrip returns a trip's issues, oldest first.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Issue, error)
	// Update writes status, resolution and resolved_at.
	Update(ctx context.Context, i domain.Issue) (domain.Issue, error)
}

type pgIssueRepo struct {
	db db
}

// NewIssueRepo constructs an IssueRepo backed by the provided db connection.
func NewIssueRepo(db db) IssueRepo {
	return &pgIssueRepo{db: db}
}

const issueColumns = `id, trip_id, driver_id, type, severity, description, status, resolution,
		created_at, updated_at, resolved_at`

func (r *pgIssueRepo) Create(ctx context.Context, i domain.Issue) (domain.Issue, error) {
	q := `
		INSERT INTO issues (trip_id, driver_id, type, severity, description, status)
		VALUES (@trip_id, @driver_id, @type, @severity, @description, @status)
		RETURNING ` + issueColumns

	args := pgx.NamedArgs{
		"trip_id":     i.TripID,
		"driver_id":   i.DriverID,
		"type":        string(i.Type),
		"severity":    string(i.Severity),
		"description": i.Description,
		"status":      string(i.Status),
	}
	result, err := scanIssue(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Issue{}, fmt.Errorf("repo.IssueRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgIssueRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Issue, error) {
	q := `SELECT ` + issueColumns + ` FROM issues WHERE id = @id`

	result, err := scanIssue(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Issue{}, fmt.Errorf("repo.IssueRepo.GetByID: %w", mapPgError(err))
	}
	return result, nil
}

func (r *pgIssueRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Issue, error) {
	q := `SELECT ` + issueColumns + ` FROM issues WHERE trip_id = @trip_id ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("repo.IssueRepo.ListByTrip: %w", err)
	}
	issues, err := collect(rows, scanIssue)
	if err != nil {
		return nil, fmt.Errorf("repo.IssueRepo.ListByTrip: %w", err)
	}
	return issues, nil
}

func (r *pgIssueRepo) Update(ctx context.Context, i domain.Issue) (domain.Issue, error) {
	q := `
		UPDATE issues
		SET status      = @status,
		    resolution  = @resolution,
		    resolved_at = @resolved_at,
		    updated_at  = now()
		WHERE id = @id
		RETURNING ` + issueColumns

	args := pgx.NamedArgs{
		"id":          i.ID,
		"status":      string(i.Status),
		"resolution":  i.Resolution,
		"resolved_at": i.ResolvedAt,
	}
	result, err := scanIssue(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Issue{}, fmt.Errorf("repo.IssueRepo.Update: %w", mapPgError(err))
	}
	return result, nil
}

func scanIssue(s scanner) (domain.Issue, error) {
	var (
		i                     domain.Issue
		id, tripID, driverID  pgtype.UUID
		typ, severity, status string
		resolution            pgtype.Text
		resolvedAt            pgtype.Timestamptz
	)
	if err := s.Scan(&id, &tripID, &driverID, &typ, &severity, &i.Description, &status, &resolution,
		&i.CreatedAt, &i.UpdatedAt, &resolvedAt); err != nil {
		return domain.Issue{}, err
	}
	i.ID = uuid.UUID(id.Bytes)
	i.TripID = uuid.UUID(tripID.Bytes)
	i.DriverID = uuid.UUID(driverID.Bytes)
	i.Type = domain.IssueType(typ)
	i.Severity = domain.Severity(severity)
	i.Status = domain.IssueStatus(status)
	i.Resolution = textPtr(resolution)
	i.ResolvedAt = timePtr(resolvedAt)
	return i, nil
}
