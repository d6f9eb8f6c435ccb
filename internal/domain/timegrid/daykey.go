package timegrid

import (
	"fmt"
	"time"
)

// DayKey identifies a calendar day as "YYYY-MM-DD" in local time.
// Lexicographic ordering of day keys matches chronological ordering, so keys
// can be compared with < and > directly.
type DayKey string

// KeyFor builds the day key for t using t's own location.
func KeyFor(t time.Time) DayKey {
	return DayKey(fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day()))
}

// ParseDayKey validates s and returns it as a DayKey.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", s, err)
	}
	// Round-trip guards against out-of-range components like 2024-02-31,
	// which time.Parse normalizes instead of rejecting.
	if KeyFor(t) != DayKey(s) {
		return "", fmt.Errorf("invalid day key %q", s)
	}
	return DayKey(s), nil
}

// Before reports whether k is strictly earlier than other.
func (k DayKey) Before(other DayKey) bool { return k < other }

// IsPastOf reports whether k denotes a day strictly before the day of now.
// Past days are locked against edits.
func (k DayKey) IsPastOf(now time.Time) bool {
	return KeyFor(now) > k
}

// IsToday reports whether k is the day of now.
func (k DayKey) IsToday(now time.Time) bool {
	return KeyFor(now) == k
}

// String returns the raw key.
func (k DayKey) String() string { return string(k) }
