package ports

import (
	"context"
	"time"

	"PressWatch/internal/domain"
)

// FetchResponse mirrors what a plain HTTP GET reports.
type FetchResponse struct {
	OK     bool
	Status int
	Body   string
}

// Fetcher retrieves pages. Transport failures are errors; non-2xx statuses come back with OK unset.
type Fetcher interface {
	Get(ctx context.Context, url string) (FetchResponse, error)
}

// ItemRepository persists known items per group.
type ItemRepository interface {
	// Upsert writes the record keyed by (group, item id); writing the same item twice overwrites it.
	Upsert(ctx context.Context, item domain.KnownItem) error
	// ListByGroup returns the group's items newest first; limit <= 0 means all.
	ListByGroup(ctx context.Context, groupID string, limit int) ([]domain.KnownItem, error)
	// Get returns domain.ErrNotFound when the item does not exist.
	Get(ctx context.Context, groupID, itemID string) (domain.KnownItem, error)
	// KnownURLs reports which of urls the group already stores.
	KnownURLs(ctx context.Context, groupID string, urls []string) (map[string]struct{}, error)
}

// WatermarkRepository keeps the per-group notification boundary.
type WatermarkRepository interface {
	GetWatermark(ctx context.Context, groupID string) (domain.Watermark, error)
	// AdvanceWatermark stores at unless the stored value is already later or equal.
	AdvanceWatermark(ctx context.Context, groupID string, at time.Time) error
}

// Summarizer turns article text into a summary and glossary.
type Summarizer interface {
	Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error)
}

// Notifier delivers one selected item to subscribers.
type Notifier interface {
	Notify(ctx context.Context, groupID string, item domain.KnownItem) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Schedule(spec string, job func(time.Time)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
