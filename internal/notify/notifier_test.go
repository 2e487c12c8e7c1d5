package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
	"github.com/ErlanBelekov/cronhost/internal/engine"
	"github.com/ErlanBelekov/cronhost/internal/notify"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []domain.EngineEvent
	fail error
}

func (s *recordingSink) Notify(_ context.Context, ev domain.EngineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, ev)
	return s.fail
}

func (s *recordingSink) events() []domain.EngineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EngineEvent, len(s.got))
	copy(out, s.got)
	return out
}

func TestDispatcher_OnlyForwardsFailureAndTimeout(t *testing.T) {
	bus := engine.NewEventBus()
	sub := bus.Subscribe()
	sink := &recordingSink{}
	d := notify.NewDispatcher(sub, discardLogger(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()

	bus.Publish(domain.EngineEvent{Type: domain.JobStarted, JobName: "a"})
	bus.Publish(domain.EngineEvent{Type: domain.JobCompleted, JobName: "a"})
	bus.Publish(domain.EngineEvent{Type: domain.JobFailed, JobName: "b"})
	bus.Publish(domain.EngineEvent{Type: domain.JobTimedOut, JobName: "c"})

	deadline := time.After(2 * time.Second)
	for len(sink.events()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("dispatcher forwarded %d events, want 2", len(sink.events()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	got := sink.events()
	if len(got) != 2 || got[0].JobName != "b" || got[1].JobName != "c" {
		t.Fatalf("unexpected forwarded events: %+v", got)
	}
}

func TestDispatcher_FailingSinkDoesNotStopDrain(t *testing.T) {
	bus := engine.NewEventBus()
	sub := bus.Subscribe()
	failing := &recordingSink{fail: errors.New("endpoint down")}
	d := notify.NewDispatcher(sub, discardLogger(), failing)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { d.Run(ctx); close(done) }()

	bus.Publish(domain.EngineEvent{Type: domain.JobFailed, JobName: "flaky-1"})
	bus.Publish(domain.EngineEvent{Type: domain.JobFailed, JobName: "flaky-2"})

	deadline := time.After(2 * time.Second)
	for len(failing.events()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d events delivered despite sink errors", len(failing.events()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
