package engine

import (
	"testing"
	"time"

	"github.com/ErlanBelekov/cronhost/internal/domain"
)

func TestEventBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(domain.EngineEvent{Type: domain.JobStarted, JobName: "backup"})

	select {
	case ev := <-sub.Events():
		if ev.JobName != "backup" {
			t.Errorf("job name = %q, want backup", ev.JobName)
		}
		if ev.Sequence == 0 {
			t.Errorf("expected a nonzero sequence number")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBus_SequenceIncreasesMonotonically(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(domain.EngineEvent{Type: domain.JobStarted})
	bus.Publish(domain.EngineEvent{Type: domain.JobCompleted})

	first := <-sub.Events()
	second := <-sub.Events()
	if second.Sequence <= first.Sequence {
		t.Errorf("sequence did not increase: %d then %d", first.Sequence, second.Sequence)
	}
}

func TestEventBus_SlowSubscriberEvictsOldestAndMarksNextDeliveryLagged(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer sub.Close()

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		bus.Publish(domain.EngineEvent{Type: domain.SchedulerTick})
	}

	// The buffer holds the newest subscriberBuffer events, not the oldest;
	// the first one still queued should be the (total-subscriberBuffer+1)'th
	// published, i.e. sequence number total-subscriberBuffer+1.
	first := <-sub.Events()
	wantSeq := uint64(total - subscriberBuffer + 1)
	if first.Sequence != wantSeq {
		t.Errorf("sequence = %d, want %d (oldest event should have been evicted, not the newest)", first.Sequence, wantSeq)
	}

	// Events queued before the first eviction come through unchanged; the
	// event published into the slot that eviction freed (sequence
	// subscriberBuffer+1) is the next delivery after it and carries the marker.
	next := first
	for next.Sequence < uint64(subscriberBuffer+1) {
		next = <-sub.Events()
	}
	if next.Detail != "lagged" {
		t.Fatalf("expected first event delivered after an eviction to carry Detail=lagged, got %q", next.Detail)
	}
}

func TestEventBus_UnaffectedSubscriberNotLagged(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(domain.EngineEvent{Type: domain.JobStarted})
	ev := <-sub.Events()
	if ev.Detail == "lagged" {
		t.Fatal("did not expect lagged marker before any overflow")
	}
}

func TestEventBus_CloseStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe()
	sub.Close()

	bus.Publish(domain.EngineEvent{Type: domain.JobStarted})

	_, ok := <-sub.Events()
	if ok {
		t.Fatal("expected closed channel after Close")
	}
}
