// Package dateparse turns the date strings found on listing pages into canonical UTC instants.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"PressWatch/internal/domain"
)

// ErrNotRecognized is returned for empty or unparseable input.
var ErrNotRecognized = domain.ErrNotRecognized

// referenceZone is where local-date-only listings are published.
var referenceZone = time.FixedZone("JST", 9*60*60)

var (
	// whitespace includes U+3000 (ideographic space).
	whitespace = regexp.MustCompile(`[\s\x{3000}]+`)
	kanjiDate  = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	dottedDate = regexp.MustCompile(`^(\d{4})[./](\d{1,2})[./](\d{1,2})`)
)

var standardLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Normalize converts raw into a canonical UTC instant or returns ErrNotRecognized. It never guesses "now".
func Normalize(raw string) (time.Time, error) {
	return NormalizeWithHint(raw, "", nil)
}

// NormalizeWithHint tries layout (a Go reference layout, interpreted in loc) before the default strategies.
// A nil loc means the reference zone.
func NormalizeWithHint(raw, layout string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrNotRecognized
	}
	if loc == nil {
		loc = referenceZone
	}

	if layout != "" {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}

	if t, ok := parseStandard(raw); ok {
		return t, nil
	}

	compact := whitespace.ReplaceAllString(raw, "")
	if m := kanjiDate.FindStringSubmatch(compact); m != nil {
		return localMidnight(m[1], m[2], m[3])
	}
	if m := dottedDate.FindStringSubmatch(compact); m != nil {
		return localMidnight(m[1], m[2], m[3])
	}

	return time.Time{}, ErrNotRecognized
}

// parseStandard accepts RFC 3339 / ISO 8601 style timestamps. Offset-less values are read as UTC.
func parseStandard(raw string) (time.Time, bool) {
	for _, layout := range standardLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func localMidnight(year, month, day string) (time.Time, error) {
	y, errY := strconv.Atoi(year)
	m, errM := strconv.Atoi(month)
	d, errD := strconv.Atoi(day)
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, ErrNotRecognized
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, ErrNotRecognized
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, referenceZone)
	// time.Date normalizes overflow such as Feb 30; reject instead of rolling over.
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, ErrNotRecognized
	}
	return t.UTC(), nil
}
