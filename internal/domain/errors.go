package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing required field, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConflict is returned when a write loses an optimistic-concurrency check
// (e.g. the shipment was assigned by someone else between read and write) or
// would violate a uniqueness or scheduling constraint.
// Callers may retry with fresh data. Handlers map it to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidTransition is returned when a status change is not permitted from
// the current state. It is always wrapped by a *TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrForbidden is returned by the caller layer when the principal may not act
// on the resource. Handlers map it to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// TransitionError names the entity and the refused state change.
// errors.Is(err, ErrInvalidTransition) holds for every TransitionError.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move from %q to %q", ErrInvalidTransition, e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
