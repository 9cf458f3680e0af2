package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	partitionPrefix = "group:"
	sortPrefix      = "published:"
	itemSegment     = ":item:"

	// SortKeyPrefix is the range every item sort key starts with.
	SortKeyPrefix = sortPrefix

	// instantLayout is fixed width so lexicographic order equals chronological order.
	instantLayout = "2006-01-02T15:04:05.000Z"

	// UnknownInstant stands in for a missing publish date and sorts before every real instant.
	UnknownInstant = "0000-00-00T00:00:00.000Z"
)

// ItemID derives the stable identity of an item from its URL. Same URL, same id, forever.
func ItemID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// PartitionKey addresses every item of a group.
func PartitionKey(groupID string) string {
	return partitionPrefix + groupID
}

// SortKey orders items inside a group chronologically by publish instant, then by id.
func SortKey(publishedAt time.Time, itemID string) string {
	return sortPrefix + FormatInstant(publishedAt) + itemSegment + itemID
}

// FormatInstant renders t as the canonical UTC string, or UnknownInstant for the zero time.
func FormatInstant(t time.Time) string {
	if t.IsZero() {
		return UnknownInstant
	}
	return t.UTC().Format(instantLayout)
}

// ParseInstant is the inverse of FormatInstant.
func ParseInstant(s string) (time.Time, error) {
	if s == "" || s == UnknownInstant {
		return time.Time{}, nil
	}
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// SplitSortKey recovers the instant and item id encoded in a sort key.
func SplitSortKey(sk string) (instant, itemID string, ok bool) {
	rest, found := strings.CutPrefix(sk, sortPrefix)
	if !found {
		return "", "", false
	}
	instant, itemID, found = strings.Cut(rest, itemSegment)
	if !found {
		return "", "", false
	}
	return instant, itemID, true
}
