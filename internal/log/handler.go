package log

import (
	"context"
	"log/slog"

	"github.com/ErlanBelekov/cronhost/internal/requestid"
	"github.com/ErlanBelekov/cronhost/internal/runctx"
)

// ContextHandler wraps an slog.Handler and automatically extracts
// correlation ids from the context of each log record: request_id for
// HTTP handlers, run_id/job_name for anything logging on behalf of a
// scheduled or triggered run.
type ContextHandler struct {
	inner slog.Handler
}

// NewContextHandler returns a handler that enriches every record with
// context values before delegating to inner.
func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if runID, jobName, ok := runctx.FromContext(ctx); ok {
		if runID != "" {
			r.AddAttrs(slog.String("run_id", runID))
		}
		if jobName != "" {
			r.AddAttrs(slog.String("job_name", jobName))
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
