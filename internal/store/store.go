// Package store defines the persistence contract the engine depends on.
// UseCase-style code depends on this interface, not a concrete driver —
// the engine never imports database/sql directly.
package store

import (
	"context"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

// Store is the engine's only path to durable state. Every mutation is
// serialized behind a single writer lock; readers may proceed concurrently
// with each other and always observe either the pre- or post-state of a
// writer, never a partial state.
type Store interface {
	AddJob(ctx context.Context, job *domain.Job) (*domain.Job, error)
	GetJob(ctx context.Context, name string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error)
	UpdateJob(ctx context.Context, name string, patch domain.JobPatch) (*domain.Job, error)
	DeleteJob(ctx context.Context, name string, purgeRuns bool) error
	SetNextRun(ctx context.Context, name string, next *time.Time) error
	SetLastRun(ctx context.Context, name string, last time.Time) error

	CreateRun(ctx context.Context, run *domain.Run) (*domain.Run, error)
	CompleteRun(ctx context.Context, id int64, outcome domain.RunOutcome) error
	GetRun(ctx context.Context, id int64) (*domain.Run, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]*domain.Run, error)

	// DueJobs returns enabled jobs whose next_run is <= asOf, ordered by
	// next_run ascending then name ascending (deterministic tie-break).
	DueJobs(ctx context.Context, asOf time.Time) ([]*domain.Job, error)

	// ListTags returns the distinct set of tags across all jobs.
	ListTags(ctx context.Context) ([]string, error)

	ReconcileOrphans(ctx context.Context) (int, error)
	PurgeRunsOlderThan(ctx context.Context, horizon time.Duration) (int, error)

	// Ping satisfies health.Pinger.
	Ping(ctx context.Context) error
	Close() error
}
