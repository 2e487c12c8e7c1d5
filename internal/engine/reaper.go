package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/metrics"
	"github.com/ErlanBelekov/cronhost/internal/store"
)

// Reaper runs alongside the scheduler on its own ticker, purging run history
// past its retention horizon. Orphaned-run reconciliation happens exactly
// once, in Scheduler.prime at startup — a periodic sweep would force-close
// any run still legitimately executing past one reaper interval.
type Reaper struct {
	store    store.Store
	logger   *slog.Logger
	interval time.Duration
	horizon  time.Duration
}

func NewReaper(st store.Store, logger *slog.Logger, interval, horizon time.Duration) *Reaper {
	return &Reaper{
		store:    st,
		logger:   logger.With("component", "reaper"),
		interval: interval,
		horizon:  horizon,
	}
}

func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started", "interval", r.interval, "retention_horizon", r.horizon)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper shut down")
			return
		case <-ticker.C:
			r.reap(ctx)
		}
	}
}

func (r *Reaper) reap(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.ReaperCycleDuration.Observe(time.Since(start).Seconds()) }()

	if r.horizon <= 0 {
		return
	}
	purged, err := r.store.PurgeRunsOlderThan(ctx, r.horizon)
	if err != nil {
		r.logger.ErrorContext(ctx, "purge old runs failed", "error", err)
		return
	}
	if purged > 0 {
		r.logger.InfoContext(ctx, "purged runs past retention horizon", "count", purged)
		metrics.ReaperRescuedTotal.WithLabelValues("purge_run").Add(float64(purged))
	}
}
