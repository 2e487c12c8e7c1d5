// Package usecase is the facade the CLI and the HTTP gateway both sit on top
// of. It owns validation and the add/enable/disable orchestration the raw
// store interface doesn't do on its own (computing next_run eagerly instead
// of waiting for the next restart's priming pass); everything else is a
// thin, typed pass-through to the store or the running engine.
package usecase

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/cronhost/internal/engine"
	"github.com/ErlanBelekov/cronhost/internal/store"
)

// Engine is the subset of *engine.Host the facade depends on. Scoped to an
// interface so tests can substitute a fake without spinning up a real
// scheduler loop.
type Engine interface {
	TriggerNow(ctx context.Context, jobName string) (int64, error)
	Status(ctx context.Context) (engine.Status, error)
	Subscribe() *engine.Subscription
}

// Facade is the single entry point cmd/cronhostd constructs once and hands
// down to the HTTP gateway; cmd/cronhostctl reaches it only through that
// gateway's REST API.
type Facade struct {
	store  store.Store
	engine Engine
	logger *slog.Logger
}

func New(st store.Store, eng Engine, logger *slog.Logger) *Facade {
	return &Facade{store: st, engine: eng, logger: logger.With("component", "usecase")}
}
