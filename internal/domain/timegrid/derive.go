package timegrid

// halfHours credits 0.5 if the half-slot value v equals target.
func halfHours(v, target string) float64 {
	if v == target {
		return 0.5
	}
	return 0
}

// CountMiscHours sums the hours spent on MISC-* activities in a grid.
func CountMiscHours(g DayGrid) float64 {
	var misc float64
	for _, s := range g {
		if IsMisc(s.First) {
			misc += 0.5
		}
		if IsMisc(s.Second) {
			misc += 0.5
		}
	}
	return misc
}

// DayDerived is the full derived view of one day's grid.
type DayDerived struct {
	Totals
	MiscHours float64 `json:"miscHours"`
	Accounted float64 `json:"accounted"`
	Overflow  bool    `json:"overflow"`
}

// overflowEpsilon absorbs floating-point error from summing half-hour
// credits. The exact value 0.001 is load-bearing for reproducibility.
const overflowEpsilon = 0.001

// DeriveTotals computes the daily totals for a grid: each half slot credits
// 0.5 hours to its category, MISC-* halves accumulate separately, and
// accounted is the sum of all four. Overflow is flagged when accounted
// exceeds 24 beyond the epsilon; a well-formed grid can never trip it, so it
// exists purely to surface malformed data.
func DeriveTotals(g DayGrid) DayDerived {
	var d DayDerived
	for _, s := range g {
		d.Study += halfHours(s.First, Studying) + halfHours(s.Second, Studying)
		d.Sleep += halfHours(s.First, Sleeping) + halfHours(s.Second, Sleeping)
		d.Wasted += halfHours(s.First, Wasted) + halfHours(s.Second, Wasted)
	}
	d.MiscHours = CountMiscHours(g)
	d.Accounted = d.Study + d.Sleep + d.Wasted + d.MiscHours
	d.Overflow = d.Accounted > float64(HoursPerDay)+overflowEpsilon
	return d
}

// preSleepStart / preSleepEnd bound the "pre-sleep" detection window. The
// original condition is literally hour < 22 || hour < 4, which reduces to
// hour < 22 and never fires at 22:00–23:59. Kept as written for
// compatibility; see the pattern tests documenting the quirk.
const (
	preSleepStart = 22
	preSleepEnd   = 4
)

// AutoPatterns walks a day's grid hour by hour and derives wasted-time
// patterns for every half slot marked Wasted:
//
//   - the first half is matched against the previous activity carried in
//     from earlier hours (second half of an hour wins over the first; an
//     hour with both halves empty resets the carry),
//   - the second half is matched against the same hour's first half only,
//   - a Wasted half following a known MISC-* activity yields its mapped
//     "Post ..." pattern, otherwise the pre-sleep window yields "Pre Sleep".
//
// The result is deduplicated preserving first-occurrence order. A nil grid is
// treated as all-unassigned.
func AutoPatterns(g DayGrid) []string {
	if g == nil {
		g = NewDayGrid()
	}
	var out []string
	add := func(p string) {
		for _, have := range out {
			if have == p {
				return
			}
		}
		out = append(out, p)
	}
	prev := ""
	for h := 0; h < len(g) && h < HoursPerDay; h++ {
		first, second := g[h].First, g[h].Second
		if first == Wasted {
			if p, ok := postMiscPatterns[prev]; ok {
				add(p)
			} else if h < preSleepStart || h < preSleepEnd {
				add("Pre Sleep")
			}
		}
		if second == Wasted {
			if p, ok := postMiscPatterns[first]; ok {
				add(p)
			} else if h < preSleepStart || h < preSleepEnd {
				add("Pre Sleep")
			}
		}
		if second != "" {
			prev = second
		} else {
			prev = first
		}
	}
	return out
}

// Recompute derives totals and auto patterns for every day present in the
// grid map. The grid is authoritative: results overwrite whatever totals or
// patterns the caller held for those days.
func Recompute(grids map[DayKey]DayGrid) (map[DayKey]Totals, map[DayKey][]string) {
	daily := make(map[DayKey]Totals, len(grids))
	patterns := make(map[DayKey][]string, len(grids))
	for k, g := range grids {
		d := DeriveTotals(g)
		daily[k] = d.Totals
		patterns[k] = AutoPatterns(g)
	}
	return daily, patterns
}
