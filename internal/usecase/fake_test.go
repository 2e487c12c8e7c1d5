package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/engine"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is a minimal in-memory store.Store, mirroring the shape used to
// exercise the scheduler without a real database.
type fakeStore struct {
	mu     sync.Mutex
	jobs   map[string]*domain.Job
	runs   map[int64]*domain.Run
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*domain.Job), runs: make(map[int64]*domain.Run)}
}

func (s *fakeStore) AddJob(_ context.Context, job *domain.Job) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return nil, domain.ErrDuplicateName
	}
	s.nextID++
	cp := *job
	cp.ID = s.nextID
	now := time.Now().UTC()
	cp.CreatedAt, cp.UpdatedAt = now, now
	s.jobs[job.Name] = &cp
	out := cp
	return &out, nil
}

func (s *fakeStore) GetJob(_ context.Context, name string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	out := *j
	return &out, nil
}

func (s *fakeStore) ListJobs(_ context.Context, filter domain.JobFilter) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, j := range s.jobs {
		if filter.Enabled != nil && j.Enabled != *filter.Enabled {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (s *fakeStore) UpdateJob(_ context.Context, name string, patch domain.JobPatch) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if patch.Cron != nil {
		j.Cron = *patch.Cron
	}
	if patch.Command != nil {
		j.Command = *patch.Command
	}
	if patch.WorkingDir != nil {
		j.WorkingDir = *patch.WorkingDir
	}
	if patch.TimeoutSeconds != nil {
		j.TimeoutSeconds = *patch.TimeoutSeconds
	}
	if patch.Tags != nil {
		j.Tags = patch.Tags
	}
	if patch.Enabled != nil {
		j.Enabled = *patch.Enabled
	}
	j.UpdatedAt = time.Now().UTC()
	out := *j
	return &out, nil
}

func (s *fakeStore) DeleteJob(_ context.Context, name string, purgeRuns bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; !ok {
		return domain.ErrJobNotFound
	}
	delete(s.jobs, name)
	if purgeRuns {
		for id, r := range s.runs {
			if r.JobName == name {
				delete(s.runs, id)
			}
		}
	}
	return nil
}

func (s *fakeStore) SetNextRun(_ context.Context, name string, next *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return domain.ErrJobNotFound
	}
	j.NextRun = next
	return nil
}

func (s *fakeStore) SetLastRun(_ context.Context, name string, last time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return domain.ErrJobNotFound
	}
	j.LastRun = &last
	return nil
}

func (s *fakeStore) CreateRun(_ context.Context, run *domain.Run) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *run
	cp.ID = s.nextID
	s.runs[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *fakeStore) CompleteRun(_ context.Context, id int64, outcome domain.RunOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return domain.ErrRunNotFound
	}
	ended := outcome.EndedAt
	exit := outcome.ExitCode
	r.EndedAt = &ended
	r.ExitCode = &exit
	r.Stdout = outcome.Stdout
	r.Stderr = outcome.Stderr
	r.TimedOut = outcome.TimedOut
	return nil
}

func (s *fakeStore) GetRun(_ context.Context, id int64) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	out := *r
	return &out, nil
}

func (s *fakeStore) ListRuns(_ context.Context, filter domain.RunFilter) ([]*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Run
	for _, r := range s.runs {
		if filter.JobName != "" && r.JobName != filter.JobName {
			continue
		}
		if filter.FailedOnly && r.Success() {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *fakeStore) DueJobs(_ context.Context, asOf time.Time) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Job
	for _, j := range s.jobs {
		if j.Enabled && j.NextRun != nil && !j.NextRun.After(asOf) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStore) ListTags(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	for _, j := range s.jobs {
		for _, tag := range j.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *fakeStore) ReconcileOrphans(_ context.Context) (int, error) { return 0, nil }

func (s *fakeStore) PurgeRunsOlderThan(_ context.Context, horizon time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-horizon)
	n := 0
	for id, r := range s.runs {
		if r.StartedAt.Before(cutoff) {
			delete(s.runs, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Ping(context.Context) error { return nil }
func (s *fakeStore) Close() error               { return nil }

// fakeEngine is a function-field fake for usecase.Engine, in the teacher's
// closure style.
type fakeEngine struct {
	triggerNow func(ctx context.Context, jobName string) (int64, error)
	status     func(ctx context.Context) (engine.Status, error)
	subscribe  func() *engine.Subscription
}

func (e *fakeEngine) TriggerNow(ctx context.Context, jobName string) (int64, error) {
	return e.triggerNow(ctx, jobName)
}

func (e *fakeEngine) Status(ctx context.Context) (engine.Status, error) {
	if e.status == nil {
		return engine.Status{}, nil
	}
	return e.status(ctx)
}

func (e *fakeEngine) Subscribe() *engine.Subscription {
	return e.subscribe()
}
