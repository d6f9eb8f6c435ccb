package timegrid

// HoursPerDay is the number of hour slots in a day grid.
const HoursPerDay = 24

// Half addresses one of the two half-hour positions within an hour slot.
type Half string

const (
	FirstHalf  Half = "first"  // minutes 0–29
	SecondHalf Half = "second" // minutes 30–59
)

// ValidHalf reports whether h is a known half position.
func ValidHalf(h Half) bool { return h == FirstHalf || h == SecondHalf }

// HourSlot is one hour of one day at half-hour resolution. Empty strings mean
// unassigned. WastedReason is a free-text note on why time was wasted during
// this hour, independent of which half carries the Wasted label.
type HourSlot struct {
	First        string `json:"first" bson:"first"`
	Second       string `json:"second" bson:"second"`
	WastedReason string `json:"wastedReason,omitempty" bson:"wasted_reason,omitempty"`
}

// Half returns the value at position h.
func (s HourSlot) Half(h Half) string {
	if h == SecondHalf {
		return s.Second
	}
	return s.First
}

// SetHalf sets the value at position h.
func (s *HourSlot) SetHalf(h Half, v string) {
	if h == SecondHalf {
		s.Second = v
	} else {
		s.First = v
	}
}

// IsEmpty reports whether the slot carries no data at all.
func (s HourSlot) IsEmpty() bool {
	return s.First == "" && s.Second == "" && s.WastedReason == ""
}

// DayGrid is the ordered sequence of hour slots for one day, index = hour.
type DayGrid []HourSlot

// NewDayGrid returns an all-unassigned 24-slot grid.
func NewDayGrid() DayGrid {
	return make(DayGrid, HoursPerDay)
}

// Normalize pads or truncates g to exactly 24 slots. Imported and remote data
// passes through here so the rest of the code can index hours directly.
func (g DayGrid) Normalize() DayGrid {
	if len(g) == HoursPerDay {
		return g
	}
	out := NewDayGrid()
	copy(out, g)
	return out
}

// IsEmpty reports whether no slot in the grid carries data.
func (g DayGrid) IsEmpty() bool {
	for _, s := range g {
		if !s.IsEmpty() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the grid.
func (g DayGrid) Clone() DayGrid {
	if g == nil {
		return nil
	}
	out := make(DayGrid, len(g))
	copy(out, g)
	return out
}

// Totals is the per-day {study, sleep, wasted} hour sums, half-hour granular.
type Totals struct {
	Study  float64 `json:"study" bson:"study"`
	Sleep  float64 `json:"sleep" bson:"sleep"`
	Wasted float64 `json:"wasted" bson:"wasted"`
}

// IsZero reports whether all three categories are zero.
func (t Totals) IsZero() bool {
	return t.Study == 0 && t.Sleep == 0 && t.Wasted == 0
}

// Bundle is the full exportable state: daily totals, activity grids, wasted
// patterns, and reflections, each keyed by day. The JSON field names are the
// wire and export format; the bson tags are the live-document format.
type Bundle struct {
	Daily       map[DayKey]Totals   `json:"dailyData" bson:"daily_data"`
	Grid        map[DayKey]DayGrid  `json:"hourlyData" bson:"hourly_data"`
	Patterns    map[DayKey][]string `json:"wastedPatterns" bson:"wasted_patterns"`
	Reflections map[DayKey]string   `json:"reflections" bson:"reflections"`
}

// NewBundle returns a bundle with all four maps allocated and empty.
func NewBundle() Bundle {
	return Bundle{
		Daily:       map[DayKey]Totals{},
		Grid:        map[DayKey]DayGrid{},
		Patterns:    map[DayKey][]string{},
		Reflections: map[DayKey]string{},
	}
}

// IsEmpty reports whether all four maps are empty. An empty bundle is never
// published to the live document (publish guard against wiping remote state).
func (b Bundle) IsEmpty() bool {
	return len(b.Daily) == 0 && len(b.Grid) == 0 &&
		len(b.Patterns) == 0 && len(b.Reflections) == 0
}

// Normalize allocates any nil maps and pads every grid to 24 slots.
func (b Bundle) Normalize() Bundle {
	if b.Daily == nil {
		b.Daily = map[DayKey]Totals{}
	}
	if b.Grid == nil {
		b.Grid = map[DayKey]DayGrid{}
	}
	if b.Patterns == nil {
		b.Patterns = map[DayKey][]string{}
	}
	if b.Reflections == nil {
		b.Reflections = map[DayKey]string{}
	}
	for k, g := range b.Grid {
		b.Grid[k] = g.Normalize()
	}
	return b
}

// Clone returns a deep copy of the bundle.
func (b Bundle) Clone() Bundle {
	out := NewBundle()
	for k, v := range b.Daily {
		out.Daily[k] = v
	}
	for k, g := range b.Grid {
		out.Grid[k] = g.Clone()
	}
	for k, p := range b.Patterns {
		out.Patterns[k] = append([]string(nil), p...)
	}
	for k, r := range b.Reflections {
		out.Reflections[k] = r
	}
	return out
}
