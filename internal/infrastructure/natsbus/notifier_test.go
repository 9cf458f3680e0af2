package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"PressWatch/internal/domain"
)

type recorder struct {
	msgs []*nats.Msg
	err  error
}

func (r *recorder) PublishMsg(msg *nats.Msg) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestNotifyPublishesEvent(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	n := NewNotifier(rec, "presswatch.items")
	item := domain.KnownItem{
		ItemID:      "id-1",
		SourceID:    "acme",
		SourceName:  "ACME",
		Title:       "Launch",
		URL:         "https://acme.example.com/1",
		PublishedAt: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := n.Notify(context.Background(), "default", item); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(rec.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(rec.msgs))
	}

	msg := rec.msgs[0]
	if msg.Subject != "presswatch.items.default" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.Header.Get(HeaderGroup) != "default" {
		t.Fatalf("missing group header")
	}

	var event ItemEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.ItemID != "id-1" || event.PublishedAt == nil || !event.PublishedAt.Equal(item.PublishedAt) {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNotifyOmitsUnknownDate(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	if err := NewNotifier(rec, "s").Notify(context.Background(), "g", domain.KnownItem{URL: "u"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	var event map[string]any
	if err := json.Unmarshal(rec.msgs[0].Data, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if _, ok := event["publishedAt"]; ok {
		t.Fatalf("expected publishedAt to be omitted, got %v", event["publishedAt"])
	}
}

func TestNotifyPropagatesPublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("nats: connection closed")
	err := NewNotifier(&recorder{err: boom}, "s").Notify(context.Background(), "g", domain.KnownItem{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected publish error, got %v", err)
	}

	if err := NewNotifier(nil, "s").Notify(context.Background(), "g", domain.KnownItem{}); !errors.Is(err, domain.ErrMisconfigured) {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestNotifyRejectsUnsafeGroupID(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	n := NewNotifier(rec, "presswatch.items")
	for _, id := range []string{"", "a.b", "news.*", "all>", "two words"} {
		err := n.Notify(context.Background(), id, domain.KnownItem{URL: "https://acme.example.com/news/1"})
		if !errors.Is(err, domain.ErrValidationFailed) {
			t.Fatalf("group %q: expected ErrValidationFailed, got %v", id, err)
		}
	}
	if len(rec.msgs) != 0 {
		t.Fatalf("nothing should be published, got %d messages", len(rec.msgs))
	}
}
