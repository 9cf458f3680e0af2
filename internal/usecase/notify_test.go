package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PressWatch/internal/domain"
	"PressWatch/internal/infrastructure/storage"
	"PressWatch/internal/ports"
)

type recordingNotifier struct {
	mu    sync.Mutex
	items []domain.KnownItem
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, _ string, item domain.KnownItem) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

func seed(t *testing.T, store *storage.MemoryRepository, group string, days ...string) {
	t.Helper()
	for _, d := range days {
		var at time.Time
		if d != "" {
			var err error
			at, err = time.Parse("2006-01-02", d)
			if err != nil {
				t.Fatalf("parse %s: %v", d, err)
			}
		}
		url := "https://example.com/" + group + "/" + d
		if d == "" {
			url = "https://example.com/" + group + "/undated"
		}
		item := domain.KnownItem{GroupID: group, ItemID: domain.ItemID(url), URL: url, Title: d, PublishedAt: at}
		if err := store.Upsert(context.Background(), item); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestNotificationRunRespectsCapAndAdvancesOnce(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	seed(t, store, "g", "2024-01-01", "2024-02-01", "2024-03-01", "")
	notifier := &recordingNotifier{}
	svc := NewNotificationService(NotificationDeps{Items: store, Watermarks: store, Notifiers: []ports.Notifier{notifier}, MaxPerRun: 2})

	report, err := svc.Run(context.Background(), "g")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Notified) != 2 || report.Notified[0].Title != "2024-03-01" || report.Notified[1].Title != "2024-02-01" {
		t.Fatalf("unexpected selection %+v", report.Notified)
	}
	if report.Skipped != 1 {
		t.Fatalf("expected 1 skipped, got %d", report.Skipped)
	}
	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if report.Watermark == nil || !report.Watermark.Equal(march) {
		t.Fatalf("expected watermark %v, got %v", march, report.Watermark)
	}

	wm, _ := store.GetWatermark(context.Background(), "g")
	if wm.LastNotifiedAt == nil || !wm.LastNotifiedAt.Equal(march) {
		t.Fatalf("watermark not persisted: %v", wm.LastNotifiedAt)
	}

	again, err := svc.Run(context.Background(), "g")
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(again.Notified) != 0 || !again.Watermark.Equal(march) {
		t.Fatalf("expected no-op rerun, got %+v", again)
	}
	if notifier.count() != 2 {
		t.Fatalf("expected 2 deliveries in total, got %d", notifier.count())
	}
}

func TestNotificationRunDeliveryFailureStillAdvances(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	seed(t, store, "g", "2024-03-01")
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	svc := NewNotificationService(NotificationDeps{Items: store, Watermarks: store, Notifiers: []ports.Notifier{notifier}})

	report, err := svc.Run(context.Background(), "g")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DeliveryFailures != 1 {
		t.Fatalf("expected 1 delivery failure, got %d", report.DeliveryFailures)
	}

	again, _ := svc.Run(context.Background(), "g")
	if len(again.Notified) != 0 {
		t.Fatalf("item must not be offered twice, got %+v", again.Notified)
	}
}

func TestNotificationRunsAreSerializedPerGroup(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryRepository()
	seed(t, store, "g", "2024-01-01", "2024-02-01")
	seed(t, store, "h", "2024-01-15")
	notifier := &recordingNotifier{}
	svc := NewNotificationService(NotificationDeps{Items: store, Watermarks: store, Notifiers: []ports.Notifier{notifier}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(group string) {
			defer wg.Done()
			if _, err := svc.Run(context.Background(), group); err != nil {
				t.Errorf("Run %s: %v", group, err)
			}
		}([]string{"g", "h"}[i%2])
	}
	wg.Wait()

	if notifier.count() != 3 {
		t.Fatalf("expected each item delivered once (3), got %d", notifier.count())
	}
}

func TestNotificationRunWithoutStores(t *testing.T) {
	t.Parallel()

	_, err := NewNotificationService(NotificationDeps{}).Run(context.Background(), "g")
	if !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}
