package usecase

import (
	"context"
	"log/slog"
	"time"

	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
)

// ScheduleSpec holds the cron expressions of the recurring jobs. An empty spec disables that job.
type ScheduleSpec struct {
	Crawl  string
	Notify string
}

// Scheduler wires the cron driver with the ingest and notification use cases.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	notifier *NotificationService
	groups   func() []domain.Group
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs over every group returned by groups.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, notifier *NotificationService, groups func() []domain.Group, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, pipeline: pipeline, notifier: notifier, groups: groups, logger: logger}
}

// Start registers the jobs with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context, spec ScheduleSpec) error {
	if s.driver == nil || s.groups == nil {
		return nil
	}

	if spec.Crawl != "" && s.pipeline != nil {
		if err := s.driver.Schedule(spec.Crawl, func(time.Time) { s.CrawlAll(ctx) }); err != nil {
			return err
		}
	}
	if spec.Notify != "" && s.notifier != nil {
		if err := s.driver.Schedule(spec.Notify, func(time.Time) { s.NotifyAll(ctx) }); err != nil {
			return err
		}
	}

	return s.driver.Start(ctx)
}

// CrawlAll runs the group ingest for each group; one group's failure does not stop the others.
func (s *Scheduler) CrawlAll(ctx context.Context) {
	for _, g := range s.groups() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.pipeline.RunGroup(ctx, g.ID); err != nil && s.logger != nil {
			s.logger.Error("scheduled crawl failed", "group", g.ID, "error", err)
		}
	}
}

// NotifyAll runs the notification gate for each group.
func (s *Scheduler) NotifyAll(ctx context.Context) {
	for _, g := range s.groups() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.notifier.Run(ctx, g.ID); err != nil && s.logger != nil {
			s.logger.Error("scheduled notification failed", "group", g.ID, "error", err)
		}
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
