package engine

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/cronexpr"
	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/metrics"
	"github.com/ErlanBelekov/cronhost/internal/runctx"
	"github.com/ErlanBelekov/cronhost/internal/store"
)

// ErrAlreadyRunning is returned by TriggerNow when the job already has a
// run in flight; the scheduler never lets the same job overlap itself.
var ErrAlreadyRunning = errors.New("job already has a run in flight")

// State is the scheduler loop's coarse lifecycle phase, surfaced through
// Status for operators and tests.
type State string

const (
	StateIdle        State = "idle"
	StatePriming     State = "priming"
	StateTicking     State = "ticking"
	StateDispatching State = "dispatching"
	StateDraining    State = "draining"
	StateStopped     State = "stopped"
)

// Scheduler is the engine's tick loop: it reconciles orphaned runs on
// startup, polls the store for due jobs every tick, and dispatches each one
// to the executor on its own goroutine, bounded by a worker pool. It never
// backfills missed firings — a job that was due while the scheduler was
// down fires once on the next tick and has its next_run recomputed from
// the current time, not from the missed slot.
type Scheduler struct {
	store    store.Store
	executor *Executor
	bus      *EventBus
	logger   *slog.Logger

	tickInterval time.Duration
	sem          chan struct{}

	mu       sync.Mutex
	state    State
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

type SchedulerConfig struct {
	TickInterval      time.Duration
	MaxConcurrentRuns int
}

func NewScheduler(st store.Store, executor *Executor, bus *EventBus, logger *slog.Logger, cfg SchedulerConfig) *Scheduler {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 10
	}
	return &Scheduler{
		store:        st,
		executor:     executor,
		bus:          bus,
		logger:       logger.With("component", "scheduler"),
		tickInterval: cfg.TickInterval,
		sem:          make(chan struct{}, cfg.MaxConcurrentRuns),
		state:        StateIdle,
		inFlight:     make(map[string]struct{}),
	}
}

// Run blocks until ctx is cancelled, primes on entry, then polls for due
// jobs every tick until told to stop, at which point it drains every
// in-flight run before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.setState(StatePriming)
	if err := s.prime(ctx); err != nil {
		return err
	}
	s.bus.Publish(domain.EngineEvent{Type: domain.EngineStarted, Timestamp: time.Now().UTC()})
	s.setState(StateTicking)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.bus.Publish(domain.EngineEvent{Type: domain.EngineStopping, Timestamp: time.Now().UTC()})
			s.setState(StateDraining)
			s.wg.Wait()
			s.setState(StateStopped)
			s.bus.Publish(domain.EngineEvent{Type: domain.EngineStopped, Timestamp: time.Now().UTC()})
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// prime reconciles runs orphaned by an unclean shutdown and seeds next_run
// for any enabled job that doesn't have one yet.
func (s *Scheduler) prime(ctx context.Context) error {
	n, err := s.store.ReconcileOrphans(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WarnContext(ctx, "reconciled orphaned runs from prior shutdown", "count", n)
		metrics.ReaperRescuedTotal.WithLabelValues("reconcile_orphan").Add(float64(n))
	}

	jobs, err := s.store.ListJobs(ctx, domain.JobFilter{})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, job := range jobs {
		if !job.Enabled || job.NextRun != nil {
			continue
		}
		if err := s.scheduleNext(ctx, job, now); err != nil {
			s.logger.ErrorContext(ctx, "priming next_run failed", "job_name", job.Name, "error", err)
		}
	}
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now().UTC()
	due, err := s.store.DueJobs(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "due jobs query failed", "error", err)
		return
	}

	for _, job := range due {
		if job.NextRun != nil {
			metrics.JobPickupLatency.Observe(now.Sub(*job.NextRun).Seconds())
		}

		if !s.claim(job.Name) {
			metrics.JobsSkippedTotal.Inc()
			s.bus.Publish(domain.EngineEvent{
				Type: domain.JobSkipped, JobName: job.Name, Timestamp: now,
				Detail: "already running",
			})
			continue
		}

		if err := s.scheduleNext(ctx, job, now); err != nil {
			s.logger.ErrorContext(ctx, "recompute next_run failed", "job_name", job.Name, "error", err)
		}

		s.wg.Add(1)
		go func(j *domain.Job) {
			defer s.wg.Done()
			defer s.release(j.Name)
			s.dispatch(ctx, j, domain.TriggerSchedule)
		}(job)
	}
}

// TriggerNow runs job immediately regardless of its schedule. It honors the
// same overlap guard as the tick loop.
func (s *Scheduler) TriggerNow(ctx context.Context, jobName string) (*domain.Run, error) {
	job, err := s.store.GetJob(ctx, jobName)
	if err != nil {
		return nil, err
	}
	if !s.claim(jobName) {
		return nil, ErrAlreadyRunning
	}

	s.wg.Add(1)
	runCh := make(chan *domain.Run, 1)
	go func() {
		defer s.wg.Done()
		defer s.release(jobName)
		runCh <- s.dispatch(ctx, job, domain.TriggerManual)
	}()
	return <-runCh, nil
}

func (s *Scheduler) scheduleNext(ctx context.Context, job *domain.Job, after time.Time) error {
	expr, err := cronexpr.Parse(job.Cron)
	if err != nil {
		return err
	}
	next, ok := expr.Next(after)
	if !ok {
		return s.store.SetNextRun(ctx, job.Name, nil)
	}
	return s.store.SetNextRun(ctx, job.Name, &next)
}

func (s *Scheduler) dispatch(ctx context.Context, job *domain.Job, trigger domain.Trigger) *domain.Run {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil
	}

	run, err := s.store.CreateRun(ctx, &domain.Run{
		JobID: job.ID, JobName: job.Name, StartedAt: time.Now().UTC(), Trigger: trigger,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "create run failed", "job_name", job.Name, "error", err)
		return nil
	}
	if err := s.store.SetLastRun(ctx, job.Name, run.StartedAt); err != nil {
		s.logger.ErrorContext(ctx, "set last run failed", "job_name", job.Name, "error", err)
	}

	s.bus.Publish(domain.EngineEvent{Type: domain.JobStarted, JobName: job.Name, RunID: run.ID, Timestamp: run.StartedAt})

	metrics.JobsInFlight.Inc()
	result := s.executor.Run(runctx.WithRun(ctx, strconv.FormatInt(run.ID, 10), job.Name), job)
	metrics.JobsInFlight.Dec()

	outcome := domain.RunOutcome{
		EndedAt:  time.Now().UTC(),
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
		TimedOut: result.TimedOut,
	}
	if err := s.store.CompleteRun(ctx, run.ID, outcome); err != nil {
		s.logger.ErrorContext(ctx, "complete run failed", "job_name", job.Name, "run_id", run.ID, "error", err)
	}

	evType := domain.JobCompleted
	detail := ""
	switch {
	case result.Err != nil:
		evType = domain.JobFailed
		detail = result.Err.Error()
	case result.TimedOut:
		evType = domain.JobTimedOut
	case result.ExitCode != 0:
		evType = domain.JobFailed
		detail = "nonzero exit code"
	}
	outcomeLabel := string(evType)
	metrics.JobExecutionDuration.WithLabelValues(outcomeLabel).Observe(outcome.EndedAt.Sub(run.StartedAt).Seconds())
	metrics.JobsCompletedTotal.WithLabelValues(outcomeLabel).Inc()
	s.bus.Publish(domain.EngineEvent{Type: evType, JobName: job.Name, RunID: run.ID, Timestamp: outcome.EndedAt, Detail: detail})

	return run
}

func (s *Scheduler) claim(jobName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[jobName]; busy {
		return false
	}
	s.inFlight[jobName] = struct{}{}
	return true
}

func (s *Scheduler) release(jobName string) {
	s.mu.Lock()
	delete(s.inFlight, jobName)
	s.mu.Unlock()
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State reports the loop's coarse phase. Priming/Draining/Stopped are
// recorded explicitly by Run; between those, the loop is reported as
// Dispatching whenever a run is in flight and Ticking otherwise, since
// dispatch happens concurrently across goroutines rather than as a single
// step of the loop.
func (s *Scheduler) State() State {
	s.mu.Lock()
	st := s.state
	inFlight := len(s.inFlight)
	s.mu.Unlock()

	if st == StateTicking && inFlight > 0 {
		return StateDispatching
	}
	return st
}

func (s *Scheduler) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inFlight)
}
