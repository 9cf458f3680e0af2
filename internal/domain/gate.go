package domain

import (
	"sort"
	"time"
)

// DefaultMaxPerRun caps how many items a single notification run offers.
const DefaultMaxPerRun = 20

// Decision is the outcome of one notification gate evaluation.
type Decision struct {
	ToNotify []KnownItem
	// Next is the watermark to persist; it equals the previous one when ToNotify is empty.
	Next *time.Time
	// Skipped counts eligible items dropped by the per-run cap. They are older than Next and
	// will not be offered again.
	Skipped int
}

// Advanced reports whether the decision moves the watermark.
func (d Decision) Advanced() bool {
	return len(d.ToNotify) > 0
}

// DecideNotifications selects the items to notify now and the next watermark.
// Undated items are never eligible. maxPerRun <= 0 falls back to DefaultMaxPerRun.
func DecideNotifications(lastNotifiedAt *time.Time, items []KnownItem, maxPerRun int) Decision {
	if maxPerRun <= 0 {
		maxPerRun = DefaultMaxPerRun
	}

	eligible := make([]KnownItem, 0, len(items))
	for _, item := range items {
		if !item.HasPublishedAt() {
			continue
		}
		if lastNotifiedAt != nil && !item.PublishedAt.After(*lastNotifiedAt) {
			continue
		}
		eligible = append(eligible, item)
	}

	if len(eligible) == 0 {
		return Decision{Next: lastNotifiedAt}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].PublishedAt.After(eligible[j].PublishedAt)
	})

	limited := eligible
	if len(limited) > maxPerRun {
		limited = limited[:maxPerRun]
	}

	next := limited[0].PublishedAt
	return Decision{
		ToNotify: limited,
		Next:     &next,
		Skipped:  len(eligible) - len(limited),
	}
}
