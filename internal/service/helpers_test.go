package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/fleetops/internal/notify"
	"github.com/pkordes/fleetops/internal/service"
)

func ptr[T any](v T) *T { return &v }

func at(day, hour int) time.Time {
	return time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
}

var fixedNow = at(10, 9)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder is a notify.Notifier that keeps every event it receives.
type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func opts(rec *recorder) []service.Option {
	return []service.Option{
		service.WithLogger(quietLogger()),
		service.WithNotifier(rec),
		service.WithClock(func() time.Time { return fixedNow }),
	}
}
