package usecase

import (
	"context"
	"testing"
	"time"

	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
)

type manualDriver struct {
	jobs    map[string]func(time.Time)
	started bool
}

func (d *manualDriver) Schedule(spec string, job func(time.Time)) error {
	if d.jobs == nil {
		d.jobs = map[string]func(time.Time){}
	}
	d.jobs[spec] = job
	return nil
}

func (d *manualDriver) Start(context.Context) error { d.started = true; return nil }
func (d *manualDriver) Stop(context.Context) error  { d.started = false; return nil }

func TestSchedulerRunsJobsForEveryGroup(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	notifier := &recordingNotifier{}
	svc := NewNotificationService(NotificationDeps{Items: fx.store, Watermarks: fx.store, Notifiers: []ports.Notifier{notifier}})
	groups := func() []domain.Group { return []domain.Group{{ID: "default"}} }

	driver := &manualDriver{}
	s := NewScheduler(driver, fx.pipeline, svc, groups, nil)
	if err := s.Start(context.Background(), ScheduleSpec{Crawl: "crawl", Notify: "notify"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !driver.started || len(driver.jobs) != 2 {
		t.Fatalf("expected two jobs and a started driver, got %+v", driver)
	}

	driver.jobs["crawl"](time.Now())
	items, err := fx.store.ListByGroup(context.Background(), "default", 0)
	if err != nil || len(items) != 3 {
		t.Fatalf("expected crawl job to store 3 items, got %d (%v)", len(items), err)
	}

	driver.jobs["notify"](time.Now())
	// Two of the three stored items carry a publish date.
	if notifier.count() != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifier.count())
	}

	if err := s.Stop(context.Background()); err != nil || driver.started {
		t.Fatalf("Stop: %v", err)
	}
}
