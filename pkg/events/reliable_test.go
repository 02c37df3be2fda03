package events

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruslano69/tablemapper/pkg/resilience"
	"github.com/ruslano69/tablemapper/pkg/retry"
)

// flakyPublisher падает первые fails вызовов
type flakyPublisher struct {
	recordingPublisher
	fails int
	calls int
}

func (p *flakyPublisher) Publish(ctx context.Context, ev ChangeEvent) error {
	p.calls++
	if p.calls <= p.fails {
		return errors.New("broker unavailable")
	}
	return p.recordingPublisher.Publish(ctx, ev)
}

func fastRetry(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, InitialDelay: time.Millisecond, Backoff: retry.BackoffConstant}
}

func TestReliable_RetriesUntilDelivered(t *testing.T) {
	inner := &flakyPublisher{fails: 2}
	r, err := NewReliable(inner, DeliveryConfig{Retry: fastRetry(3)})
	if err != nil {
		t.Fatalf("NewReliable failed: %v", err)
	}

	if err := r.Publish(context.Background(), NewChangeEvent(insertEvent())); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if inner.calls != 3 || len(inner.events) != 1 {
		t.Errorf("calls = %d, delivered = %d", inner.calls, len(inner.events))
	}
}

func TestReliable_DeadLetter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events-dlq.json")
	inner := &flakyPublisher{fails: 100}

	r, err := NewReliable(inner, DeliveryConfig{
		Retry: fastRetry(2),
		DLQ:   retry.DLQConfig{Path: path},
	})
	if err != nil {
		t.Fatalf("NewReliable failed: %v", err)
	}

	ev := NewChangeEvent(insertEvent())
	if err := r.Publish(context.Background(), ev); err == nil {
		t.Fatal("expected delivery error")
	}

	entries := r.DLQ().Entries()
	if len(entries) != 1 {
		t.Fatalf("DLQ size = %d, want 1", len(entries))
	}
	if entries[0].Attempts != 2 || entries[0].Reason != "max_attempts_exceeded" {
		t.Errorf("DLQ entry = %+v", entries[0])
	}
	if stored, ok := entries[0].Data.(ChangeEvent); !ok || stored.ID != ev.ID {
		t.Errorf("DLQ data = %#v", entries[0].Data)
	}
}

func TestReliable_CircuitOpen(t *testing.T) {
	inner := &flakyPublisher{fails: 100}

	r, err := NewReliable(inner, DeliveryConfig{
		Breaker: resilience.Config{MaxFailures: 2, Timeout: time.Hour},
		DLQ:     retry.DLQConfig{Path: filepath.Join(t.TempDir(), "dlq.json")},
	})
	if err != nil {
		t.Fatalf("NewReliable failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r.Publish(ctx, NewChangeEvent(insertEvent()))
	}

	if inner.calls != 2 {
		t.Errorf("broker called %d times, want 2 before the breaker opened", inner.calls)
	}

	entries := r.DLQ().Entries()
	if len(entries) != 3 || entries[2].Reason != "circuit_open" || entries[0].Reason != "failed" {
		t.Errorf("DLQ entries = %+v", entries)
	}
}

func TestNew_WithDelivery(t *testing.T) {
	cfg := Config{
		Type:     "redis",
		Address:  "localhost:6379",
		Delivery: &DeliveryConfig{Retry: fastRetry(2)},
	}

	p, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer p.Close()

	if _, ok := p.(*Reliable); !ok {
		t.Errorf("publisher = %T, want *Reliable", p)
	}

	cfg.Delivery = &DeliveryConfig{Retry: retry.Config{Jitter: 2}}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error for invalid retry config")
	}
}
