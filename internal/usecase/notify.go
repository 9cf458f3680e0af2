package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"PressWatch/internal/domain"
	"PressWatch/internal/metrics"
	"PressWatch/internal/ports"
)

// NotificationDeps wires the notification service.
type NotificationDeps struct {
	Items      ports.ItemRepository
	Watermarks ports.WatermarkRepository
	Notifiers  []ports.Notifier
	MaxPerRun  int
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// NotificationService runs the notification gate for a group and hands the selection to notifiers.
// Runs for the same group are serialized; different groups proceed independently.
type NotificationService struct {
	items      ports.ItemRepository
	watermarks ports.WatermarkRepository
	notifiers  []ports.Notifier
	maxPerRun  int
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NotifyReport describes one notification run.
type NotifyReport struct {
	GroupID   string
	Previous  *time.Time
	Watermark *time.Time
	Notified  []domain.KnownItem
	Skipped   int
	// DeliveryFailures counts (item, notifier) pairs that failed.
	DeliveryFailures int
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDeps) *NotificationService {
	if deps.MaxPerRun <= 0 {
		deps.MaxPerRun = domain.DefaultMaxPerRun
	}
	return &NotificationService{
		items:      deps.Items,
		watermarks: deps.Watermarks,
		notifiers:  deps.Notifiers,
		maxPerRun:  deps.MaxPerRun,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		locks:      map[string]*sync.Mutex{},
	}
}

// Run decides what to notify for groupID, persists the advanced watermark and then delivers.
// The watermark is stored before delivery, so an item is offered at most once even if delivery fails.
func (s *NotificationService) Run(ctx context.Context, groupID string) (NotifyReport, error) {
	report := NotifyReport{GroupID: groupID}
	if s.items == nil || s.watermarks == nil {
		return report, fmt.Errorf("notification stores: %w", domain.ErrMisconfigured)
	}

	lock := s.groupLock(groupID)
	lock.Lock()
	defer lock.Unlock()

	wm, err := s.watermarks.GetWatermark(ctx, groupID)
	if err != nil {
		return report, fmt.Errorf("read watermark %s: %w", groupID, err)
	}
	report.Previous = wm.LastNotifiedAt
	report.Watermark = wm.LastNotifiedAt

	items, err := s.items.ListByGroup(ctx, groupID, 0)
	if err != nil {
		return report, fmt.Errorf("list items %s: %w", groupID, err)
	}

	decision := domain.DecideNotifications(wm.LastNotifiedAt, items, s.maxPerRun)
	if !decision.Advanced() {
		s.debug("nothing to notify", "group", groupID)
		return report, nil
	}

	if err := s.watermarks.AdvanceWatermark(ctx, groupID, *decision.Next); err != nil {
		return report, fmt.Errorf("advance watermark %s: %w", groupID, err)
	}
	report.Watermark = decision.Next
	report.Notified = decision.ToNotify
	report.Skipped = decision.Skipped

	if decision.Skipped > 0 {
		s.warn("notification cap reached, older items will not be offered",
			"group", groupID, "notified", len(decision.ToNotify), "skipped", decision.Skipped, "max_per_run", s.maxPerRun)
	}

	for _, item := range decision.ToNotify {
		for _, n := range s.notifiers {
			if err := n.Notify(ctx, groupID, item); err != nil {
				report.DeliveryFailures++
				s.warn("delivery failed", "group", groupID, "url", item.URL, "error", err)
			}
		}
	}

	s.metrics.Notified(groupID, len(decision.ToNotify), decision.Skipped)
	s.info("notification run finished",
		"group", groupID,
		"notified", len(decision.ToNotify),
		"skipped", decision.Skipped,
		"watermark", domain.FormatInstant(*decision.Next),
	)
	return report, nil
}

func (s *NotificationService) groupLock(groupID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[groupID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[groupID] = lock
	}
	return lock
}

func (s *NotificationService) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *NotificationService) info(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *NotificationService) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
