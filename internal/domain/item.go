package domain

import "time"

// Candidate is an ephemeral extraction result, not yet deduplicated or persisted.
type Candidate struct {
	URL   string
	Title string
	// RawPublishedAt is the trimmed date text found on the listing page, if any.
	RawPublishedAt string
	// PublishedAt is the canonical instant; zero when the raw text was not recognized.
	PublishedAt time.Time
}

// HasPublishedAt reports whether the candidate carries a recognized publish instant.
func (c Candidate) HasPublishedAt() bool {
	return !c.PublishedAt.IsZero()
}

// GlossaryEntry explains one technical term found in an item.
type GlossaryEntry struct {
	Term        string `json:"term"`
	Reading     string `json:"reading,omitempty"`
	Description string `json:"description"`
}

// KnownItem is the persisted record for an item that survived deduplication.
type KnownItem struct {
	GroupID     string
	SourceID    string
	SourceName  string
	ItemID      string
	Title       string
	URL         string
	PublishedAt time.Time // zero means unknown
	SummaryText string
	Glossary    []GlossaryEntry
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPublishedAt reports whether the record carries a recognized publish instant.
func (k KnownItem) HasPublishedAt() bool {
	return !k.PublishedAt.IsZero()
}

// Watermark is the notification boundary of a group. A nil LastNotifiedAt means nothing was ever notified.
type Watermark struct {
	GroupID        string
	LastNotifiedAt *time.Time
}

// PendingSummary is shown in place of a summary the summarizer has not back-filled yet.
const PendingSummary = "Summary not generated yet."
