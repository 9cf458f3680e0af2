package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestScheduleRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(nil, nil)
	if err := s.Schedule("not a cron", func(time.Time) {}); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
	if err := s.Schedule("*/5 * * * *", func(time.Time) {}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := s.Schedule("@hourly", nil); err != nil {
		t.Fatalf("nil job should be ignored: %v", err)
	}
	if s.Entries() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Entries())
	}
}

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(time.UTC, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
