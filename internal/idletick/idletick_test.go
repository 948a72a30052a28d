package idletick

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRejectsInvalidCronExpression(t *testing.T) {
	if _, err := New("not a cron expression", func(ctx context.Context) {}, nil); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
}

func TestNewAcceptsValidCronExpression(t *testing.T) {
	s, err := New("@every 1h", func(ctx context.Context) {}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected a non-nil Scheduler")
	}
}

func TestEmptyCronExprDisablesScheduling(t *testing.T) {
	var fired atomic.Bool
	s, err := New("", func(ctx context.Context) { fired.Store(true) }, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	if fired.Load() {
		t.Error("an empty cron expression should never fire the tick function")
	}
}

func TestStopBeforeStartIsSafe(t *testing.T) {
	s, err := New("@every 1h", func(ctx context.Context) {}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}

func TestScheduledTickFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	s, err := New("@every 10ms", func(ctx context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected the tick function to fire within 2s")
	}
}
