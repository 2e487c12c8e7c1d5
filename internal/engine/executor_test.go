package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

func testExecutor() *Executor {
	return NewExecutor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecutor_RunSuccess(t *testing.T) {
	e := testExecutor()
	job := &domain.Job{Name: "echo", Command: "echo hello", TimeoutSeconds: 5}

	result := e.Run(context.Background(), job)
	if result.Err != nil {
		t.Fatalf("run returned error: %v", result.Err)
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	if strings.TrimSpace(result.Stdout) != "hello" {
		t.Errorf("stdout = %q, want %q", result.Stdout, "hello")
	}
	if result.TimedOut {
		t.Errorf("should not have timed out")
	}
}

func TestExecutor_RunNonZeroExit(t *testing.T) {
	e := testExecutor()
	job := &domain.Job{Name: "fail", Command: "exit 3", TimeoutSeconds: 5}

	result := e.Run(context.Background(), job)
	if result.Err != nil {
		t.Fatalf("run returned error: %v", result.Err)
	}
	if result.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", result.ExitCode)
	}
}

func TestExecutor_TimeoutKillsProcess(t *testing.T) {
	e := testExecutor()
	job := &domain.Job{Name: "slow", Command: "sleep 30", TimeoutSeconds: 1}

	start := time.Now()
	result := e.Run(context.Background(), job)
	elapsed := time.Since(start)

	if !result.TimedOut {
		t.Fatalf("expected timeout, got result %+v", result)
	}
	if elapsed > 10*time.Second {
		t.Fatalf("executor took too long to kill timed-out process: %s", elapsed)
	}
}

func TestExecutor_StderrCaptured(t *testing.T) {
	e := testExecutor()
	job := &domain.Job{Name: "err", Command: "echo oops 1>&2", TimeoutSeconds: 5}

	result := e.Run(context.Background(), job)
	if strings.TrimSpace(result.Stderr) != "oops" {
		t.Errorf("stderr = %q, want %q", result.Stderr, "oops")
	}
}

func TestBoundedBuffer_Truncates(t *testing.T) {
	b := newBoundedBuffer(8)
	_, _ = b.Write([]byte("0123456789"))
	out := b.String()
	if !strings.HasPrefix(out, "01234567") {
		t.Errorf("unexpected prefix: %q", out)
	}
	if !strings.Contains(out, "truncated") {
		t.Errorf("expected truncation marker, got %q", out)
	}
}
