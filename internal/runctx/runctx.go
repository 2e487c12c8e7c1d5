// Package runctx carries a run's identity through context.Context so that
// any logger wrapped with log.NewContextHandler picks up run_id and
// job_name automatically, the same way internal/requestid does for HTTP
// request ids.
package runctx

import "context"

type ctxKey struct{}

type runInfo struct {
	runID   string
	jobName string
}

// WithRun returns a copy of ctx carrying runID and jobName.
func WithRun(ctx context.Context, runID, jobName string) context.Context {
	return context.WithValue(ctx, ctxKey{}, runInfo{runID: runID, jobName: jobName})
}

// FromContext extracts the run id and job name attached to ctx, if any.
func FromContext(ctx context.Context) (runID, jobName string, ok bool) {
	info, ok := ctx.Value(ctxKey{}).(runInfo)
	if !ok {
		return "", "", false
	}
	return info.runID, info.jobName, true
}
