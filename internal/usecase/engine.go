package usecase

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/engine"
)

// Trigger runs a job immediately, bypassing its schedule, and returns the
// resulting run once it has finished: the engine's TriggerNow waits for the
// run to complete before reporting its id.
func (f *Facade) Trigger(ctx context.Context, jobName string) (*domain.Run, error) {
	runID, err := f.engine.TriggerNow(ctx, jobName)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	return f.store.GetRun(ctx, runID)
}

func (f *Facade) Status(ctx context.Context) (engine.Status, error) {
	return f.engine.Status(ctx)
}

// SubscribeEvents returns a live feed of engine lifecycle and job events.
// Callers must Close the subscription when done.
func (f *Facade) SubscribeEvents() *engine.Subscription {
	return f.engine.Subscribe()
}
