package domain

import "time"

// DefaultFreshWindow is how long after publication an item is flagged as new.
const DefaultFreshWindow = 48 * time.Hour

// IsFresh reports whether publishedAt is known, not in the future and within window of now.
func IsFresh(publishedAt, now time.Time, window time.Duration) bool {
	if publishedAt.IsZero() {
		return false
	}
	age := now.Sub(publishedAt)
	return age >= 0 && age <= window
}
