package handler

import (
	"net/http"

	"github.com/pkordes/fleetops/internal/domain"
)

type issueRequest struct {
	Type        domain.IssueType `json:"type"`
	Severity    domain.Severity  `json:"severity"`
	Description string           `json:"description"`
}

// ReportIssue handles POST /trips/{id}/issues.
func (s *Server) ReportIssue(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.authorizedTrip(w, r)
	if !ok {
		return
	}
	var body issueRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := s.issues.Report(r.Context(), domain.Issue{
		TripID:      trip.ID,
		Type:        body.Type,
		Severity:    body.Severity,
		Description: body.Description,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListTripIssues handles GET /trips/{id}/issues.
func (s *Server) ListTripIssues(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.authorizedTrip(w, r)
	if !ok {
		return
	}
	issues, err := s.issues.ListByTrip(r.Context(), trip.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(issues))
}

// GetIssue handles GET /issues/{id}.
func (s *Server) GetIssue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	issue, err := s.issues.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// ChangeIssueStatus handles POST /issues/{id}/status.
func (s *Server) ChangeIssueStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body statusRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	issue, err := s.issues.ChangeStatus(r.Context(), id, domain.IssueStatus(body.Status), body.Resolution)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}
