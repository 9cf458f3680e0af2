package dateparse

import (
	"errors"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"kanji with weekday", "2024年 12月 2日（月）", time.Date(2024, time.December, 1, 15, 0, 0, 0, time.UTC)},
		{"kanji compact", "2025年1月9日", time.Date(2025, time.January, 8, 15, 0, 0, 0, time.UTC)},
		{"kanji ideographic space", "2024年　12月　2日", time.Date(2024, time.December, 1, 15, 0, 0, 0, time.UTC)},
		{"kanji with suffix", "2025年12月26日発表", time.Date(2025, time.December, 25, 15, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", "2024-03-01T09:00:00+09:00", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{"rfc3339 zulu millis", "2024-03-01T00:00:00.000Z", time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)},
		{"iso date", "2024-02-01", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{"dotted", "2024.05.07", time.Date(2024, time.May, 6, 15, 0, 0, 0, time.UTC)},
		{"surrounding space", "  2024-02-01T10:00:00Z ", time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tc.raw)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tc.raw, err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("Normalize(%q) = %v, want %v", tc.raw, got, tc.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("expected UTC location, got %v", got.Location())
			}
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "not a date", "2024年2月30日", "2024年13月1日"} {
		if _, err := Normalize(raw); !errors.Is(err, ErrNotRecognized) {
			t.Fatalf("Normalize(%q): expected ErrNotRecognized, got %v", raw, err)
		}
	}
}

func TestNormalizeWithHint(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	got, err := NormalizeWithHint("March 4, 2024", "January 2, 2006", ny)
	if err != nil {
		t.Fatalf("NormalizeWithHint error: %v", err)
	}
	want := time.Date(2024, time.March, 4, 5, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	// A hint that does not match falls through to the default strategies.
	got, err = NormalizeWithHint("2024年 12月 2日", "January 2, 2006", ny)
	if err != nil {
		t.Fatalf("fallback error: %v", err)
	}
	if !got.Equal(time.Date(2024, time.December, 1, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected fallback result %v", got)
	}
}
