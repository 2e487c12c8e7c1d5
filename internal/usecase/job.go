package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/cronexpr"
	"github.com/ErlanBelekov/cronhost/internal/domain"
)

// AddJobInput carries the user-supplied fields for add_job. TimeoutSeconds
// of zero takes domain.DefaultTimeoutSeconds; Enabled defaults to true.
type AddJobInput struct {
	Name           string
	Cron           string
	Command        string
	WorkingDir     string
	TimeoutSeconds int
	Tags           []string
	Enabled        *bool
}

func (f *Facade) AddJob(ctx context.Context, input AddJobInput) (*domain.Job, error) {
	expr, err := cronexpr.Parse(input.Cron)
	if err != nil {
		return nil, err
	}

	timeout := input.TimeoutSeconds
	if timeout == 0 {
		timeout = domain.DefaultTimeoutSeconds
	}
	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	job, err := f.store.AddJob(ctx, &domain.Job{
		Name:           input.Name,
		Cron:           input.Cron,
		Command:        input.Command,
		WorkingDir:     input.WorkingDir,
		TimeoutSeconds: timeout,
		Tags:           input.Tags,
		Enabled:        enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}

	if !enabled {
		return job, nil
	}
	if err := f.seedNextRun(ctx, job.Name, expr); err != nil {
		return nil, fmt.Errorf("add job: %w", err)
	}
	return f.store.GetJob(ctx, job.Name)
}

func (f *Facade) GetJob(ctx context.Context, name string) (*domain.Job, error) {
	return f.store.GetJob(ctx, name)
}

func (f *Facade) ListJobs(ctx context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	return f.store.ListJobs(ctx, filter)
}

func (f *Facade) UpdateJob(ctx context.Context, name string, patch domain.JobPatch) (*domain.Job, error) {
	job, err := f.store.UpdateJob(ctx, name, patch)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}

	// A cron change needs next_run recomputed against the new schedule even
	// if the job was already enabled; an enable flip needs one seeded from
	// scratch since disabling clears it.
	switch {
	case !job.Enabled:
		return job, nil
	case patch.Cron != nil, patch.Enabled != nil && *patch.Enabled:
		expr, err := cronexpr.Parse(job.Cron)
		if err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
		if err := f.seedNextRun(ctx, job.Name, expr); err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
		return f.store.GetJob(ctx, job.Name)
	default:
		return job, nil
	}
}

func (f *Facade) EnableJob(ctx context.Context, name string) (*domain.Job, error) {
	enabled := true
	return f.UpdateJob(ctx, name, domain.JobPatch{Enabled: &enabled})
}

func (f *Facade) DisableJob(ctx context.Context, name string) (*domain.Job, error) {
	if _, err := f.store.GetJob(ctx, name); err != nil {
		return nil, err
	}
	enabled := false
	job, err := f.store.UpdateJob(ctx, name, domain.JobPatch{Enabled: &enabled})
	if err != nil {
		return nil, fmt.Errorf("disable job: %w", err)
	}
	// A disabled job is never due, but clearing next_run keeps get_job
	// honest rather than reporting a schedule that will never fire.
	if err := f.store.SetNextRun(ctx, name, nil); err != nil {
		return nil, fmt.Errorf("disable job: %w", err)
	}
	job.NextRun = nil
	return job, nil
}

func (f *Facade) DeleteJob(ctx context.Context, name string, purgeRuns bool) error {
	if err := f.store.DeleteJob(ctx, name, purgeRuns); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (f *Facade) ListTags(ctx context.Context) ([]string, error) {
	return f.store.ListTags(ctx)
}

// ValidateCron is a dry-run syntax check, used by the CLI before add_job so
// a bad expression is rejected without ever touching the store.
func (f *Facade) ValidateCron(expr string) error {
	_, err := cronexpr.Parse(expr)
	return err
}

func (f *Facade) seedNextRun(ctx context.Context, jobName string, expr *cronexpr.Expr) error {
	next, ok := expr.Next(time.Now().UTC())
	if !ok {
		return f.store.SetNextRun(ctx, jobName, nil)
	}
	return f.store.SetNextRun(ctx, jobName, &next)
}
