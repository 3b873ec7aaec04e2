// Package service contains the business logic for the FleetOps API.
// Services validate inputs, enforce business rules, and orchestrate repo calls
// inside explicit units of work. No SQL lives here: services depend on the
// repo.Store interface, and the scheduling rules themselves live in package
// dispatch.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/notify"
	"github.com/pkordes/fleetops/internal/repo"
)

// notifyTimeout bounds the post-commit notification fan-out of one request.
const notifyTimeout = 5 * time.Second

// Option customises a service at construction.
type Option func(*base)

// WithNotifier sets where domain events are published. Default: notify.Nop.
func WithNotifier(n notify.Notifier) Option {
	return func(b *base) { b.notifier = n }
}

// WithLogger sets the service logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *base) { b.log = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// base holds the collaborators shared by every service.
type base struct {
	store    repo.Store
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func newBase(store repo.Store, opts []Option) base {
	b := base{
		store:    store,
		notifier: notify.Nop,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// emit publishes events once the caller's transaction has committed. The
// request context may already be cancelled by then, so delivery runs on a
// detached context with its own deadline. Failures are logged and dropped.
func (b *base) emit(ctx context.Context, events ...notify.Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, e := range events {
		if err := b.notifier.Notify(ctx, e); err != nil {
			b.log.WarnContext(ctx, "notification failed",
				"event_type", e.Type,
				"entity_id", e.EntityID,
				"error", err,
			)
		}
	}
}

func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}
	return nil
}

func requireNonNegative(field string, v *float64) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrValidation, field)
	}
	return nil
}
