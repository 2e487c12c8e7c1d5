// Package notify turns JobFailed/JobTimedOut engine events into outbound
// webhook POSTs and emails. It sits entirely outside the engine: a notifier
// is just another subscriber on the event bus and can be slow, flaky, or
// absent without affecting scheduling.
package notify

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/engine"
)

// Sink delivers one notification for one event. WebhookNotifier and
// EmailNotifier both implement it.
type Sink interface {
	Notify(ctx context.Context, ev domain.EngineEvent) error
}

// Dispatcher drains an engine event subscription and fans failure/timeout
// events out to every configured Sink, logging rather than propagating
// delivery errors — a dead webhook endpoint must never affect the
// scheduler loop that published the event.
type Dispatcher struct {
	sub    *engine.Subscription
	sinks  []Sink
	logger *slog.Logger
}

func NewDispatcher(sub *engine.Subscription, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sub: sub, sinks: sinks, logger: logger.With("component", "notify.dispatcher")}
}

// Run drains events until ctx is cancelled or the subscription is closed.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.sub.Events():
			if !ok {
				return
			}
			if ev.Detail == "lagged" {
				d.logger.WarnContext(ctx, "dropped events while catching up on the event bus")
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev domain.EngineEvent) {
	if ev.Type != domain.JobFailed && ev.Type != domain.JobTimedOut {
		return
	}
	for _, sink := range d.sinks {
		if err := sink.Notify(ctx, ev); err != nil {
			d.logger.ErrorContext(ctx, "notification delivery failed", "job_name", ev.JobName, "run_id", ev.RunID, "error", err)
		}
	}
}
