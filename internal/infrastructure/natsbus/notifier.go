// Package natsbus publishes selected items to NATS so downstream consumers (push senders, mailers)
// can fan them out.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"PressWatch/internal/domain"
	"PressWatch/internal/ports"
)

// HeaderGroup carries the group id on every message.
const HeaderGroup = "Presswatch-Group"

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// ItemEvent is the JSON body of a notification message.
type ItemEvent struct {
	GroupID     string                 `json:"groupId"`
	ItemID      string                 `json:"itemId"`
	SourceID    string                 `json:"sourceId"`
	SourceName  string                 `json:"sourceName"`
	Title       string                 `json:"title"`
	URL         string                 `json:"url"`
	PublishedAt *time.Time             `json:"publishedAt,omitempty"`
	SummaryText string                 `json:"summaryText,omitempty"`
	Glossary    []domain.GlossaryEntry `json:"glossary,omitempty"`
}

// Notifier publishes one message per item on subject.<groupID>.
type Notifier struct {
	conn    publisher
	subject string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wraps an established connection.
func NewNotifier(conn publisher, subject string) *Notifier {
	return &Notifier{conn: conn, subject: subject}
}

// Connect dials url and returns a notifier plus the connection for shutdown.
func Connect(url, subject string) (*Notifier, *nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("presswatch"))
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return NewNotifier(nc, subject), nc, nil
}

func (n *Notifier) Notify(_ context.Context, groupID string, item domain.KnownItem) error {
	if n == nil || n.conn == nil || n.subject == "" {
		return fmt.Errorf("nats notifier: %w", domain.ErrMisconfigured)
	}
	if !domain.GroupIDPattern.MatchString(groupID) {
		return fmt.Errorf("nats subject token %q: %w", groupID, domain.ErrValidationFailed)
	}

	event := ItemEvent{
		GroupID:     groupID,
		ItemID:      item.ItemID,
		SourceID:    item.SourceID,
		SourceName:  item.SourceName,
		Title:       item.Title,
		URL:         item.URL,
		SummaryText: item.SummaryText,
		Glossary:    item.Glossary,
	}
	if item.HasPublishedAt() {
		at := item.PublishedAt.UTC()
		event.PublishedAt = &at
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal item event: %w", err)
	}

	msg := &nats.Msg{
		Subject: n.subject + "." + groupID,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(HeaderGroup, groupID)

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}
