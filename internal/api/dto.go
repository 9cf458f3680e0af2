package api

import (
	"errors"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"PressWatch/internal/dateparse"
	"PressWatch/internal/domain"
	"PressWatch/internal/usecase"
)

const (
	defaultGroupID = "default"
	maxListLimit   = 500
)

// listQuery is the query string of GET /groups/{groupId}/items.
type listQuery struct {
	GroupID  string `json:"groupId"`
	RawLimit string `json:"limit"`
	Limit    int    `json:"-"`
}

func (q *listQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.GroupID, validation.Required),
		validation.Field(&q.RawLimit, validation.By(func(any) error {
			if q.RawLimit == "" {
				return nil
			}
			n, err := strconv.Atoi(q.RawLimit)
			if err != nil || n < 1 || n > maxListLimit {
				return errors.New("must be an integer between 1 and 500")
			}
			q.Limit = n
			return nil
		})),
	)
}

// crawlRequest is the body of POST /crawl.
type crawlRequest struct {
	SourceID string `json:"sourceId"`
	GroupID  string `json:"groupId"`
}

func (c *crawlRequest) Validate() error {
	c.SourceID = strings.TrimSpace(c.SourceID)
	c.GroupID = strings.TrimSpace(c.GroupID)
	if c.GroupID == "" {
		c.GroupID = defaultGroupID
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceID, validation.Required),
		validation.Field(&c.GroupID, validation.Required),
	)
}

type glossaryEntry struct {
	Term        string `json:"term"`
	Reading     string `json:"reading,omitempty"`
	Description string `json:"description"`
}

func (g glossaryEntry) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Term, validation.Required),
		validation.Field(&g.Description, validation.Required),
	)
}

// saveItemRequest is the body of PUT /groups/{groupId}/items.
type saveItemRequest struct {
	SourceID    string          `json:"sourceId"`
	SourceName  string          `json:"sourceName"`
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	PublishedAt string          `json:"publishedAt"`
	SummaryText string          `json:"summaryText"`
	Glossary    []glossaryEntry `json:"glossary"`

	publishedAt time.Time
}

func (s *saveItemRequest) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.SourceID, validation.Required),
		validation.Field(&s.SourceName, validation.Required),
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.URL, validation.Required, is.URL),
		validation.Field(&s.PublishedAt, validation.By(func(any) error {
			if strings.TrimSpace(s.PublishedAt) == "" {
				return nil
			}
			at, err := dateparse.Normalize(s.PublishedAt)
			if err != nil {
				return errors.New("must be a recognizable date")
			}
			s.publishedAt = at
			return nil
		})),
		validation.Field(&s.Glossary),
	)
}

func (s *saveItemRequest) item(groupID string) domain.KnownItem {
	glossary := make([]domain.GlossaryEntry, 0, len(s.Glossary))
	for _, g := range s.Glossary {
		glossary = append(glossary, domain.GlossaryEntry(g))
	}
	return domain.KnownItem{
		GroupID:     groupID,
		SourceID:    s.SourceID,
		SourceName:  s.SourceName,
		Title:       s.Title,
		URL:         s.URL,
		PublishedAt: s.publishedAt,
		SummaryText: s.SummaryText,
		Glossary:    glossary,
	}
}

// summarizeRequest is the body of POST /summarize.
type summarizeRequest struct {
	Title       string `json:"title"`
	SourceName  string `json:"sourceName"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Body        string `json:"body"`
}

func (s *summarizeRequest) Validate() error {
	s.Title = strings.TrimSpace(s.Title)
	s.SourceName = strings.TrimSpace(s.SourceName)
	s.URL = strings.TrimSpace(s.URL)
	s.PublishedAt = strings.TrimSpace(s.PublishedAt)
	s.Body = strings.TrimSpace(s.Body)
	return validation.ValidateStruct(s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.SourceName, validation.Required),
		validation.Field(&s.URL, validation.Required),
		validation.Field(&s.Body, validation.Required),
	)
}

func (s *summarizeRequest) request() domain.SummaryRequest {
	return domain.SummaryRequest{
		Title:       s.Title,
		SourceName:  s.SourceName,
		URL:         s.URL,
		PublishedAt: s.PublishedAt,
		Body:        s.Body,
	}
}

type itemSummary struct {
	ID          string  `json:"id"`
	SourceName  string  `json:"sourceName"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	PublishedAt *string `json:"publishedAt"`
	SummaryText string  `json:"summaryText"`
	IsNew       bool    `json:"isNew"`
}

type itemList struct {
	GroupID string        `json:"groupId"`
	Items   []itemSummary `json:"items"`
}

type itemDetail struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"groupId"`
	SourceID    string          `json:"sourceId"`
	SourceName  string          `json:"sourceName"`
	Title       string          `json:"title"`
	URL         string          `json:"url"`
	PublishedAt *string         `json:"publishedAt"`
	SummaryText string          `json:"summaryText"`
	Glossary    []glossaryEntry `json:"glossary"`
	IsNew       bool            `json:"isNew"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type failedSource struct {
	SourceID string `json:"sourceId"`
	Error    string `json:"error"`
}

type ingestResponse struct {
	GroupID       string         `json:"groupId"`
	SourceID      string         `json:"sourceId,omitempty"`
	Candidates    int            `json:"candidates"`
	New           int            `json:"new"`
	Saved         int            `json:"saved"`
	Summarized    int            `json:"summarized"`
	StoreFailures int            `json:"storeFailures"`
	FailedSources []failedSource `json:"failedSources"`
	Error         string         `json:"error,omitempty"`
}

type notifyResponse struct {
	GroupID          string        `json:"groupId"`
	Notified         []itemSummary `json:"notified"`
	Skipped          int           `json:"skipped"`
	DeliveryFailures int           `json:"deliveryFailures"`
	Watermark        *string       `json:"watermark"`
}

type summarizeResponse struct {
	SummaryText string          `json:"summaryText"`
	Glossary    []glossaryEntry `json:"glossary"`
}

func instantPtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := domain.FormatInstant(t)
	return &s
}

func summaryText(item domain.KnownItem) string {
	if item.SummaryText == "" {
		return domain.PendingSummary
	}
	return item.SummaryText
}

func toGlossary(entries []domain.GlossaryEntry) []glossaryEntry {
	out := make([]glossaryEntry, 0, len(entries))
	for _, g := range entries {
		out = append(out, glossaryEntry(g))
	}
	return out
}

func toSummary(item domain.KnownItem, now time.Time, window time.Duration) itemSummary {
	return itemSummary{
		ID:          item.ItemID,
		SourceName:  item.SourceName,
		Title:       item.Title,
		URL:         item.URL,
		PublishedAt: instantPtr(item.PublishedAt),
		SummaryText: summaryText(item),
		IsNew:       domain.IsFresh(item.PublishedAt, now, window),
	}
}

func toDetail(item domain.KnownItem, now time.Time, window time.Duration) itemDetail {
	return itemDetail{
		ID:          item.ItemID,
		GroupID:     item.GroupID,
		SourceID:    item.SourceID,
		SourceName:  item.SourceName,
		Title:       item.Title,
		URL:         item.URL,
		PublishedAt: instantPtr(item.PublishedAt),
		SummaryText: summaryText(item),
		Glossary:    toGlossary(item.Glossary),
		IsNew:       domain.IsFresh(item.PublishedAt, now, window),
		CreatedAt:   domain.FormatInstant(item.CreatedAt),
		UpdatedAt:   domain.FormatInstant(item.UpdatedAt),
	}
}

func toIngestResponse(report usecase.IngestReport, sourceID string) ingestResponse {
	resp := ingestResponse{
		GroupID:       report.GroupID,
		SourceID:      sourceID,
		Candidates:    report.CandidateCount,
		New:           report.New,
		Saved:         report.Saved,
		Summarized:    report.Summarized,
		StoreFailures: report.StoreFailures,
		FailedSources: make([]failedSource, 0, len(report.FailedSources)),
	}
	for _, f := range report.FailedSources {
		resp.FailedSources = append(resp.FailedSources, failedSource{SourceID: f.SourceID, Error: f.Err.Error()})
	}
	return resp
}
