package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/fleetops/internal/dispatch"
	"github.com/pkordes/fleetops/internal/domain"
)

// window binds ?start (required, RFC 3339) and ?end (optional).
func window(r *http.Request) (dispatch.Window, error) {
	var (
		start time.Time
		end   *time.Time
	)
	if err := query(r, "start", true, &start); err != nil {
		return dispatch.Window{}, err
	}
	if err := query(r, "end", false, &end); err != nil {
		return dispatch.Window{}, err
	}
	return dispatch.NewWindow(start, end)
}

// GetAvailability handles GET /availability?kind&start&end.
func (s *Server) GetAvailability(w http.ResponseWriter, r *http.Request) {
	var kind string
	if err := query(r, "kind", true, &kind); err != nil {
		s.fail(w, r, err)
		return
	}
	win, err := window(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.scheduling.FindAvailable(r.Context(), domain.ResourceKind(kind), win)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SuggestDrivers handles GET /candidates/drivers?start&end.
func (s *Server) SuggestDrivers(w http.ResponseWriter, r *http.Request) {
	win, err := window(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cands, err := s.scheduling.SuggestDrivers(r.Context(), win)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(cands))
}

// SuggestVehicles handles GET /candidates/vehicles?start&end&weight&volume.
func (s *Server) SuggestVehicles(w http.ResponseWriter, r *http.Request) {
	win, err := window(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req dispatch.Requirements
	if err := query(r, "weight", false, &req.Weight); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := query(r, "volume", false, &req.Volume); err != nil {
		s.fail(w, r, err)
		return
	}
	cands, err := s.scheduling.SuggestVehicles(r.Context(), win, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(cands))
}
