// Package notify publishes domain events to interested parties (clients,
// drivers, operators). Delivery is best effort: callers emit events after
// their transaction commits and only log a failed Notify.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event. It doubles as the AMQP routing key.
type EventType string

const (
	TripStatusChanged     EventType = "trip.status_changed"
	ShipmentStatusChanged EventType = "shipment.status_changed"
	ShipmentAssigned      EventType = "shipment.assigned"
	IssueReported         EventType = "issue.reported"
	IssueResolved         EventType = "issue.resolved"
)

// Event is the envelope published for every domain change.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       EventType      `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Recipients []string       `json:"recipients,omitempty"` // identity-provider subjects
	Data       map[string]any `json:"data,omitempty"`
}

// NewEvent stamps a fresh event id and time.
func NewEvent(typ EventType, entityID uuid.UUID, at time.Time, data map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		OccurredAt: at.UTC(),
		EntityID:   entityID,
		Data:       data,
	}
}

// Notifier delivers an event somewhere.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

// Nop discards every event.
var Nop Notifier = NotifierFunc(func(context.Context, Event) error { return nil })

// LogNotifier writes each event as a structured log line.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier constructs a LogNotifier writing to log.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) error {
	n.log.LogAttrs(ctx, slog.LevelInfo, "event",
		slog.String("event_id", e.ID.String()),
		slog.String("type", string(e.Type)),
		slog.String("entity_id", e.EntityID.String()),
		slog.Any("recipients", e.Recipients),
		slog.Any("data", e.Data),
	)
	return nil
}

// Fanout delivers every event to all of its notifiers, even when some fail,
// and joins the failures.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
