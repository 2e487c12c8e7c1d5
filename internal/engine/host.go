package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/metrics"
	"github.com/ErlanBelekov/cronhost/internal/store"
)

// Host owns the engine's full lifecycle: the scheduler loop, the event bus,
// and the store the rest of the process depends on. It is the one thing
// cmd/cronhostd constructs and the one thing usecase handlers hold a
// reference to.
type Host struct {
	store     store.Store
	scheduler *Scheduler
	reaper    *Reaper
	bus       *EventBus
	logger    *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	reaperWg  sync.WaitGroup
	started   bool
	startErr  error
	startedAt time.Time
}

type Config struct {
	TickInterval      time.Duration
	MaxConcurrentRuns int
	RetentionInterval time.Duration
	RetentionHorizon  time.Duration
	// LogDir, when set, additionally tees each run's stdout/stderr to
	// rotated per-job files under it.
	LogDir string
}

func DefaultConfig() Config {
	return Config{
		TickInterval:      time.Second,
		MaxConcurrentRuns: 10,
		RetentionInterval: time.Hour,
		RetentionHorizon:  30 * 24 * time.Hour,
	}
}

func NewHost(st store.Store, logger *slog.Logger, cfg Config) *Host {
	bus := NewEventBus()
	var executor *Executor
	if cfg.LogDir != "" {
		executor = NewExecutorWithLogDir(logger, cfg.LogDir)
	} else {
		executor = NewExecutor(logger)
	}
	scheduler := NewScheduler(st, executor, bus, logger, SchedulerConfig{
		TickInterval:      cfg.TickInterval,
		MaxConcurrentRuns: cfg.MaxConcurrentRuns,
	})
	reaper := NewReaper(st, logger, cfg.RetentionInterval, cfg.RetentionHorizon)
	return &Host{
		store:     st,
		scheduler: scheduler,
		reaper:    reaper,
		bus:       bus,
		logger:    logger.With("component", "host"),
	}
}

// Start launches the scheduler loop in the background. It is idempotent:
// calling it again while already running is a no-op.
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})
	h.started = true
	h.startedAt = time.Now().UTC()

	go func() {
		defer close(h.done)
		if err := h.scheduler.Run(runCtx); err != nil {
			h.logger.Error("scheduler loop exited with error", "error", err)
			h.mu.Lock()
			h.startErr = err
			h.mu.Unlock()
		}
	}()

	h.reaperWg.Add(1)
	go func() {
		defer h.reaperWg.Done()
		h.reaper.Start(runCtx)
	}()

	metrics.EngineStartTime.SetToCurrentTime()
	h.logger.Info("engine started")
	return nil
}

// Stop cancels the scheduler loop and waits for in-flight runs to drain, up
// to timeout. It is idempotent and safe to call even if Start was never
// called.
func (h *Host) Stop(timeout time.Duration) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return nil
	}
	cancel := h.cancel
	done := h.done
	h.started = false
	h.mu.Unlock()

	cancel()
	select {
	case <-done:
		h.reaperWg.Wait()
		metrics.EngineShutdownsTotal.Inc()
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("engine did not drain within %s", timeout)
	}
}

// Status is a point-in-time snapshot of the engine for health/status
// endpoints.
type Status struct {
	State         State `json:"state"`
	InFlightRuns  int   `json:"in_flight_runs"`
	SubscriberErr error `json:"subscriber_err,omitempty"`

	IsRunning     bool    `json:"is_running"`
	TotalJobs     int     `json:"total_jobs"`
	EnabledJobs   int     `json:"enabled_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Status reports the engine's current lifecycle state, job counts pulled
// from the store, and how long it's been running. It queries the store on
// every call rather than caching counts, since AddJob/DeleteJob/UpdateJob
// all happen outside the scheduler loop.
func (h *Host) Status(ctx context.Context) (Status, error) {
	h.mu.Lock()
	running := h.started
	startedAt := h.startedAt
	h.mu.Unlock()

	jobs, err := h.store.ListJobs(ctx, domain.JobFilter{})
	if err != nil {
		return Status{}, fmt.Errorf("status: list jobs: %w", err)
	}
	enabled := 0
	for _, j := range jobs {
		if j.Enabled {
			enabled++
		}
	}

	var uptime float64
	if running {
		uptime = time.Since(startedAt).Seconds()
	}

	return Status{
		State:         h.scheduler.State(),
		InFlightRuns:  h.scheduler.InFlightCount(),
		IsRunning:     running,
		TotalJobs:     len(jobs),
		EnabledJobs:   enabled,
		RunningJobs:   h.scheduler.InFlightCount(),
		UptimeSeconds: uptime,
	}, nil
}

// Store exposes read access to the engine's persistence layer. Writers
// should go through usecase operations instead, which validate before
// mutating; this accessor exists for read-only facades (list/get/status).
func (h *Host) Store() store.Store { return h.store }

// TriggerNow runs a job immediately, bypassing its schedule.
func (h *Host) TriggerNow(ctx context.Context, jobName string) (int64, error) {
	run, err := h.scheduler.TriggerNow(ctx, jobName)
	if err != nil {
		return 0, err
	}
	if run == nil {
		return 0, fmt.Errorf("job %s: run did not start", jobName)
	}
	return run.ID, nil
}

// Subscribe returns a live feed of engine events (job starts, completions,
// lifecycle transitions). Callers must Close the subscription when done.
func (h *Host) Subscribe() *Subscription { return h.bus.Subscribe() }
