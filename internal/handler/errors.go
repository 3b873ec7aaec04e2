package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/pkordes/fleetops/internal/domain"
)

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// callPrefix matches the "pkg.Type.Method: " chain that services and repos
// prepend when wrapping errors.
var callPrefix = regexp.MustCompile(`^(?:[a-z]+(?:\.[A-Za-z]+){1,2}: )+`)

// classify maps an error onto an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusInternalServerError, "internal_error"
}

// publicMessage strips call-site prefixes and sentinel text from err so the
// client sees e.g. "departure is required" rather than the wrapped chain.
func publicMessage(err error) string {
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return fmt.Sprintf("%s cannot move from %q to %q", te.Entity, te.From, te.To)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)
	}
	msg := callPrefix.ReplaceAllString(err.Error(), "")
	for _, sentinel := range []error{domain.ErrValidation, domain.ErrConflict, domain.ErrForbidden} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return strings.Replace(msg, ": "+domain.ErrNotFound.Error(), " not found", 1)
}

// fail writes err as the API error envelope. Unclassified errors are logged
// and reported as a bare 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := "internal server error"
	if status == http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		msg = publicMessage(err)
	}
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into dst. Unknown fields and trailing
// data are rejected as validation errors; an oversized body keeps its
// *http.MaxBytesError so it maps to 413.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("%w: request body is required", domain.ErrValidation)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: invalid request body: trailing data", domain.ErrValidation)
	}
	return nil
}
