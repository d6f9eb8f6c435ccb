// Package timegrid holds the half-hour activity grid model and the pure
// derivation functions built on it: daily totals, weekly/monthly/yearly
// rollups, and wasted-time pattern detection. Nothing in this package does
// I/O; persistence and sync live in the store and system layers.
package timegrid

import "strings"

// Main activity labels. A half slot holds exactly one of these, a MISC-*
// label, or the empty string (unassigned).
const (
	Studying = "Studying"
	Sleeping = "Sleeping"
	Wasted   = "Wasted"
)

// MiscPrefix marks miscellaneous sub-activity labels ("MISC-GYM" etc.).
const MiscPrefix = "MISC-"

// MiscActivities is the fixed set of miscellaneous activities offered by the
// tracker, in menu order.
var MiscActivities = []string{
	"MISC-BREAK",
	"MISC-GYM",
	"MISC-WOKE_UP",
	"MISC-BREAKFAST",
	"MISC-LUNCH",
	"MISC-DINNER",
}

// API-transient sentinels. They may arrive on the wire as slot values but are
// never written into a grid: SentinelMisc toggles the client's MISC menu and
// SentinelBack clears the slot.
const (
	SentinelMisc = "MISC"
	SentinelBack = "Back"
)

// IsMisc reports whether label is a miscellaneous sub-activity.
func IsMisc(label string) bool {
	return strings.HasPrefix(label, MiscPrefix)
}

// ValidActivity reports whether label is a committable half-slot value:
// empty (unassigned), one of the main labels, or a known MISC-* label.
// The transient sentinels are not valid committed values.
func ValidActivity(label string) bool {
	switch label {
	case "", Studying, Sleeping, Wasted:
		return true
	}
	for _, m := range MiscActivities {
		if label == m {
			return true
		}
	}
	return false
}

// postMiscPatterns maps a miscellaneous activity to the wasted-time pattern
// recorded when a Wasted half slot immediately follows it.
var postMiscPatterns = map[string]string{
	"MISC-GYM":       "Post Gym",
	"MISC-LUNCH":     "Post Lunch",
	"MISC-BREAKFAST": "Post Breakfast",
	"MISC-DINNER":    "Post Dinner",
	"MISC-BREAK":     "Post BREAK",
	"MISC-WOKE_UP":   "Post Wakeup",
}
