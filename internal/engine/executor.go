package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/joblog"
)

// maxCapturedBytes bounds stdout/stderr retained per run so a chatty job
// cannot grow the store without limit.
const maxCapturedBytes = 1 << 20 // 1 MiB

// killGrace is how long a timed-out or cancelled job gets to exit after
// SIGTERM before the executor escalates to SIGKILL.
const killGrace = 5 * time.Second

// Executor spawns a job's command as a child process, captures its output,
// and enforces the job's timeout by killing the whole process tree.
type Executor struct {
	logger *slog.Logger
	logs   joblog.Config
}

// NewExecutor builds an executor whose bounded in-memory capture is the only
// place a run's output lives.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{logger: logger.With("component", "executor")}
}

// NewExecutorWithLogDir additionally tees each run's stdout/stderr to
// rotated files under dir, named after the job.
func NewExecutorWithLogDir(logger *slog.Logger, dir string) *Executor {
	return &Executor{
		logger: logger.With("component", "executor"),
		logs:   joblog.Config{Dir: dir},
	}
}

// ExecutionResult is the outcome of one command invocation.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Err      error
}

// Run executes job.Command in job.WorkingDir, bounded by job.TimeoutSeconds.
// It blocks until the command exits, is killed for timing out, or ctx is
// cancelled (engine shutdown), whichever happens first.
func (e *Executor) Run(ctx context.Context, job *domain.Job) ExecutionResult {
	timeout := time.Duration(job.TimeoutSeconds) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := shellCommand(runCtx, job.Command)
	if job.WorkingDir != "" {
		cmd.Dir = job.WorkingDir
	}
	configureProcAttrs(cmd)

	stdout := newBoundedBuffer(maxCapturedBytes)
	stderr := newBoundedBuffer(maxCapturedBytes)

	if e.logs.Dir != "" {
		fileOut, fileErr := e.logs.Writers(job.Name)
		defer fileOut.Close()
		defer fileErr.Close()
		cmd.Stdout = io.MultiWriter(stdout, fileOut)
		cmd.Stderr = io.MultiWriter(stderr, fileErr)
	} else {
		cmd.Stdout = stdout
		cmd.Stderr = stderr
	}

	e.logger.InfoContext(ctx, "run started", "job_name", job.Name, "command", job.Command)

	if err := cmd.Start(); err != nil {
		spawnErr := &domain.ExecutionFailureError{Command: job.Command, Err: err}
		return ExecutionResult{ExitCode: -1, Stderr: spawnErr.Error(), Err: spawnErr}
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	select {
	case err := <-waitErr:
		result := resultFromWait(err, stdout, stderr, false)
		e.logger.InfoContext(ctx, "run finished", "job_name", job.Name, "exit_code", result.ExitCode)
		return result
	case <-runCtx.Done():
		timedOut := ctx.Err() == nil // context.DeadlineExceeded means our own timeout fired, not a parent cancel
		e.logger.WarnContext(ctx, "run exceeded timeout or was cancelled", "job_name", job.Name, "timed_out", timedOut)
		terminateTree(cmd, terminateSignal())
		select {
		case err := <-waitErr:
			return shutdownAwareResult(err, stdout, stderr, timedOut)
		case <-time.After(killGrace):
			terminateTree(cmd, killSignal())
			<-waitErr
			return shutdownAwareResult(nil, stdout, stderr, timedOut)
		}
	}
}

// shutdownAwareResult builds the ExecutionResult for a run that was killed
// via runCtx.Done(). A job-level timeout reports exit_code -1 with TimedOut
// set and whatever output was captured; a run killed because the engine
// itself is shutting down always
// reports exit_code -1 with a fixed stderr marker, regardless of what the
// process managed to write or exit with before the signal reached it.
func shutdownAwareResult(waitErr error, stdout, stderr *boundedBuffer, timedOut bool) ExecutionResult {
	if !timedOut {
		return ExecutionResult{
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   "Interrupted by shutdown",
		}
	}
	return resultFromWait(waitErr, stdout, stderr, timedOut)
}

func resultFromWait(waitErr error, stdout, stderr *boundedBuffer, timedOut bool) ExecutionResult {
	exitCode := 0
	if ee, ok := asExitError(waitErr); ok {
		exitCode = ee.ExitCode()
	} else if waitErr != nil && !timedOut {
		return ExecutionResult{Err: fmt.Errorf("wait command: %w", waitErr), Stdout: stdout.String(), Stderr: stderr.String()}
	}
	if timedOut {
		exitCode = -1
	}
	return ExecutionResult{
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: timedOut,
	}
}

// boundedBuffer caps how many bytes of process output it retains, appending
// a truncation marker once the limit is hit instead of growing forever.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() >= b.limit {
		b.truncated = true
		return len(p), nil
	}
	room := b.limit - b.buf.Len()
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + "\n... output truncated ..."
	}
	return b.buf.String()
}
