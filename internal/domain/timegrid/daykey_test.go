package timegrid

import (
	"sort"
	"testing"
	"time"
)

func TestKeyFor(t *testing.T) {
	d := time.Date(2024, time.March, 7, 23, 59, 0, 0, time.Local)
	if got := KeyFor(d); got != "2024-03-07" {
		t.Errorf("KeyFor = %q, want %q", got, "2024-03-07")
	}
}

func TestParseDayKey(t *testing.T) {
	if _, err := ParseDayKey("2024-03-07"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	for _, bad := range []string{"", "2024-3-7", "2024-02-31", "not-a-date", "2024-13-01"} {
		if _, err := ParseDayKey(bad); err == nil {
			t.Errorf("ParseDayKey(%q) accepted, want error", bad)
		}
	}
}

func TestDayKeyOrderingMatchesChronology(t *testing.T) {
	start := time.Date(2023, time.December, 25, 12, 0, 0, 0, time.Local)
	var keys []string
	for i := 0; i < 20; i++ {
		keys = append(keys, string(KeyFor(start.AddDate(0, 0, i))))
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("keys across a year boundary are not lexicographically sorted: %v", keys)
	}
}

func TestPastAndToday(t *testing.T) {
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local)
	if !DayKey("2024-03-09").IsPastOf(now) {
		t.Error("yesterday not flagged past")
	}
	if DayKey("2024-03-10").IsPastOf(now) {
		t.Error("today flagged past")
	}
	if DayKey("2024-03-11").IsPastOf(now) {
		t.Error("tomorrow flagged past")
	}
	if !DayKey("2024-03-10").IsToday(now) {
		t.Error("today not recognized")
	}
}
