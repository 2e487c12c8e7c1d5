package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

func (f *Facade) ListRuns(ctx context.Context, filter domain.RunFilter) ([]*domain.Run, error) {
	return f.store.ListRuns(ctx, filter)
}

func (f *Facade) GetRun(ctx context.Context, id int64) (*domain.Run, error) {
	return f.store.GetRun(ctx, id)
}

// LastRunFor reports the most recently started run for a job, or
// domain.ErrRunNotFound if the job has never run.
func (f *Facade) LastRunFor(ctx context.Context, jobName string) (*domain.Run, error) {
	runs, err := f.store.ListRuns(ctx, domain.RunFilter{JobName: jobName, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("last run for: %w", err)
	}
	if len(runs) == 0 {
		return nil, domain.ErrRunNotFound
	}
	return runs[0], nil
}

// PurgeRuns is the manual retention trigger the CLI exposes alongside the
// reaper's own periodic sweep.
func (f *Facade) PurgeRuns(ctx context.Context, horizon time.Duration) (int, error) {
	n, err := f.store.PurgeRunsOlderThan(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("purge runs: %w", err)
	}
	return n, nil
}
