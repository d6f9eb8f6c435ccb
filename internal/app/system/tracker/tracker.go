// Package tracker owns the in-memory tracking state for one identity: the
// activity grid, daily totals, wasted-time patterns, and reflections, with
// guarded mutation entry points. Every committed mutation synchronously
// recomputes the derived state for the touched day and hands a snapshot to
// the OnChange hook, which drives the local persistence mirror and the sync
// coordinator.
package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

var (
	// ErrReadOnly rejects mutations on a read-only tracker (viewer in
	// live-shared mode).
	ErrReadOnly = errors.New("tracker is read-only in live mode; switch to your private tracker to edit")

	// ErrPastDay rejects edits to days that have already elapsed.
	ErrPastDay = errors.New("cannot edit past days")

	// ErrGridDerived rejects manual totals for a day whose grid has entries;
	// grid-derived totals take precedence and manual input would be
	// silently overwritten on the next recompute.
	ErrGridDerived = errors.New("daily totals for this day are derived from the hourly grid")

	// ErrInvalidImport rejects malformed import documents; state is left
	// untouched.
	ErrInvalidImport = errors.New("import failed: invalid JSON")
)

// TotalKind names a manually enterable totals category.
type TotalKind string

const (
	KindStudy  TotalKind = "study"
	KindSleep  TotalKind = "sleep"
	KindWasted TotalKind = "wasted"
)

// Tracker is the application-state struct for one identity's data. Wasted
// patterns are held as two lists per day — auto-detected and manual — and
// concatenated at read time, so recomputing the auto portion after a grid
// edit can never discard a manually entered pattern.
type Tracker struct {
	mu          sync.Mutex
	daily       map[timegrid.DayKey]timegrid.Totals
	grid        map[timegrid.DayKey]timegrid.DayGrid
	auto        map[timegrid.DayKey][]string
	manual      map[timegrid.DayKey][]string
	reflections map[timegrid.DayKey]string

	readOnly bool
	now      func() time.Time

	// OnChange receives a snapshot after every committed mutation. It is
	// invoked outside the tracker lock.
	OnChange func(timegrid.Bundle)
}

// New creates a writable tracker hydrated from b.
func New(b timegrid.Bundle) *Tracker {
	t := &Tracker{now: time.Now}
	t.hydrate(b)
	return t
}

// NewReadOnly creates a read-only tracker (the live mirror). Its state can
// only change through ReplaceAll.
func NewReadOnly() *Tracker {
	t := New(timegrid.NewBundle())
	t.readOnly = true
	return t
}

// ReadOnly reports whether mutations are rejected.
func (t *Tracker) ReadOnly() bool { return t.readOnly }

// SetClock overrides the time source, for tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// hydrate loads b, reconstructing the auto/manual pattern split: for days
// with a grid the auto list is recomputed and any stored patterns not in it
// are treated as manual; days without a grid keep all patterns as manual.
func (t *Tracker) hydrate(b timegrid.Bundle) {
	b = b.Clone().Normalize()
	t.daily = b.Daily
	t.grid = b.Grid
	t.reflections = b.Reflections
	t.auto = map[timegrid.DayKey][]string{}
	t.manual = map[timegrid.DayKey][]string{}
	for k, stored := range b.Patterns {
		if g, ok := t.grid[k]; ok && !g.IsEmpty() {
			auto := timegrid.AutoPatterns(g)
			t.auto[k] = auto
			t.manual[k] = subtract(stored, auto)
		} else {
			t.manual[k] = append([]string(nil), stored...)
		}
	}
	for k, g := range t.grid {
		if _, ok := t.auto[k]; !ok && !g.IsEmpty() {
			t.auto[k] = timegrid.AutoPatterns(g)
		}
	}
}

// subtract returns the elements of list not present in remove, preserving
// order.
func subtract(list, remove []string) []string {
	var out []string
	for _, s := range list {
		found := false
		for _, r := range remove {
			if s == r {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

// combined returns the read-time pattern view for a day: auto entries first,
// then manual, deduplicated preserving first occurrence.
func (t *Tracker) combined(k timegrid.DayKey) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range [][]string{t.auto[k], t.manual[k]} {
		for _, p := range list {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// snapshotLocked builds the exportable bundle. Caller holds t.mu.
func (t *Tracker) snapshotLocked() timegrid.Bundle {
	b := timegrid.NewBundle()
	for k, v := range t.daily {
		b.Daily[k] = v
	}
	for k, g := range t.grid {
		b.Grid[k] = g.Clone()
	}
	for k := range t.auto {
		if p := t.combined(k); len(p) > 0 {
			b.Patterns[k] = p
		}
	}
	for k := range t.manual {
		if _, done := b.Patterns[k]; done {
			continue
		}
		if p := t.combined(k); len(p) > 0 {
			b.Patterns[k] = p
		}
	}
	for k, r := range t.reflections {
		b.Reflections[k] = r
	}
	return b
}

// Snapshot returns a deep copy of the current bundle.
func (t *Tracker) Snapshot() timegrid.Bundle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// commit fires OnChange with a snapshot taken under the lock.
func (t *Tracker) commit(snap timegrid.Bundle) {
	if t.OnChange != nil {
		t.OnChange(snap)
	}
}

// guardWrite enforces the read-only and (when day is non-empty) past-day
// locks. Caller holds t.mu.
func (t *Tracker) guardWrite(day timegrid.DayKey, lockPast bool) error {
	if t.readOnly {
		return ErrReadOnly
	}
	if lockPast && day.IsPastOf(t.now()) {
		return ErrPastDay
	}
	return nil
}

// recomputeDayLocked re-derives totals and auto patterns for day from its
// grid. Caller holds t.mu.
func (t *Tracker) recomputeDayLocked(day timegrid.DayKey) {
	g := t.grid[day]
	d := timegrid.DeriveTotals(g)
	t.daily[day] = d.Totals
	t.auto[day] = timegrid.AutoPatterns(g)
}

// SetHalfSlot assigns an activity to one half of one hour. The sentinel
// "MISC" commits nothing (it toggles the client's menu mode); "Back" clears
// the half. Past days and read-only sessions are rejected.
func (t *Tracker) SetHalfSlot(day timegrid.DayKey, hour int, half timegrid.Half, value string) error {
	t.mu.Lock()
	if err := t.guardWrite(day, true); err != nil {
		t.mu.Unlock()
		return err
	}
	if hour < 0 || hour >= timegrid.HoursPerDay {
		t.mu.Unlock()
		return fmt.Errorf("hour %d out of range", hour)
	}
	if !timegrid.ValidHalf(half) {
		t.mu.Unlock()
		return fmt.Errorf("invalid half %q", half)
	}
	if value == timegrid.SentinelMisc {
		// Menu-mode toggle is client view-state, never persisted.
		t.mu.Unlock()
		return nil
	}
	if value == timegrid.SentinelBack {
		value = ""
	}
	if !timegrid.ValidActivity(value) {
		t.mu.Unlock()
		return fmt.Errorf("invalid activity %q", value)
	}

	g, ok := t.grid[day]
	if !ok {
		g = timegrid.NewDayGrid()
		t.grid[day] = g
	}
	g[hour].SetHalf(half, value)
	t.recomputeDayLocked(day)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// SetWastedReason records (or, with an empty reason, clears) the wasted-time
// note on an hour slot. Derived state for the day is recomputed as with any
// grid mutation.
func (t *Tracker) SetWastedReason(day timegrid.DayKey, hour int, reason string) error {
	t.mu.Lock()
	if err := t.guardWrite(day, true); err != nil {
		t.mu.Unlock()
		return err
	}
	if hour < 0 || hour >= timegrid.HoursPerDay {
		t.mu.Unlock()
		return fmt.Errorf("hour %d out of range", hour)
	}

	g, ok := t.grid[day]
	if !ok {
		g = timegrid.NewDayGrid()
		t.grid[day] = g
	}
	g[hour].WastedReason = reason
	t.recomputeDayLocked(day)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// SetManualTotal sets one category of a day's totals directly. Only days
// with no grid entries accept manual totals; once a grid exists the day is
// grid-derived and stays that way until the grid is cleared. Manual totals
// are deliberately not past-day locked — backfilling summary numbers for
// days that predate hourly tracking is their whole purpose.
func (t *Tracker) SetManualTotal(day timegrid.DayKey, kind TotalKind, value float64) error {
	t.mu.Lock()
	if err := t.guardWrite(day, false); err != nil {
		t.mu.Unlock()
		return err
	}
	if g, ok := t.grid[day]; ok && !g.IsEmpty() {
		t.mu.Unlock()
		return ErrGridDerived
	}
	if value < 0 {
		value = 0
	}
	cur := t.daily[day]
	switch kind {
	case KindStudy:
		cur.Study = value
	case KindSleep:
		cur.Sleep = value
	case KindWasted:
		cur.Wasted = value
	default:
		t.mu.Unlock()
		return fmt.Errorf("unknown totals kind %q", kind)
	}
	t.daily[day] = cur
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// AddPattern appends a manually entered wasted-time pattern for a day.
// Empty text is a no-op.
func (t *Tracker) AddPattern(day timegrid.DayKey, text string) error {
	t.mu.Lock()
	if err := t.guardWrite(day, false); err != nil {
		t.mu.Unlock()
		return err
	}
	if text == "" {
		t.mu.Unlock()
		return nil
	}
	t.manual[day] = append(t.manual[day], text)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// RemovePattern deletes the pattern at index in the day's combined list.
// Removing an auto-detected entry only lasts until the next grid edit
// re-derives it; removing a manual entry is permanent.
func (t *Tracker) RemovePattern(day timegrid.DayKey, index int) error {
	t.mu.Lock()
	if err := t.guardWrite(day, false); err != nil {
		t.mu.Unlock()
		return err
	}
	combined := t.combined(day)
	if index < 0 || index >= len(combined) {
		t.mu.Unlock()
		return fmt.Errorf("pattern index %d out of range", index)
	}
	target := combined[index]
	if !removeFirst(&t.manual, day, target) {
		removeFirst(&t.auto, day, target)
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// removeFirst drops the first occurrence of target from m[day], reporting
// whether anything was removed.
func removeFirst(m *map[timegrid.DayKey][]string, day timegrid.DayKey, target string) bool {
	list := (*m)[day]
	for i, p := range list {
		if p == target {
			(*m)[day] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// SetReflection sets the free-text reflection for a day. Reflections are
// only editable for today and future days. An empty text clears the entry.
func (t *Tracker) SetReflection(day timegrid.DayKey, text string) error {
	t.mu.Lock()
	if err := t.guardWrite(day, true); err != nil {
		t.mu.Unlock()
		return err
	}
	if text == "" {
		delete(t.reflections, day)
	} else {
		t.reflections[day] = text
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// DayView is the derived state served for one day.
type DayView struct {
	Totals      timegrid.Totals  `json:"totals"`
	MiscHours   float64          `json:"miscHours"`
	Accounted   float64          `json:"accounted"`
	Overflow    bool             `json:"overflow"`
	GridDerived bool             `json:"gridDerived"`
	Grid        timegrid.DayGrid `json:"grid,omitempty"`
	Patterns    []string         `json:"patterns"`
	Reflection  string           `json:"reflection"`
}

// Day returns the derived view of one day: grid-derived totals when the day
// has a grid, the manual totals otherwise.
func (t *Tracker) Day(day timegrid.DayKey) DayView {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := DayView{Patterns: t.combined(day), Reflection: t.reflections[day]}
	if g, ok := t.grid[day]; ok {
		d := timegrid.DeriveTotals(g)
		v.Totals = d.Totals
		v.MiscHours = d.MiscHours
		v.Accounted = d.Accounted
		v.Overflow = d.Overflow
		v.GridDerived = true
		v.Grid = g.Clone()
		return v
	}
	base := t.daily[day]
	v.Totals = base
	v.Accounted = base.Study + base.Sleep + base.Wasted
	return v
}

// Export serializes the full bundle as the pretty-printed backup document.
func (t *Tracker) Export() ([]byte, error) {
	return json.MarshalIndent(t.Snapshot(), "", "  ")
}

// Import replaces the whole state with the decoded document. If the document
// carries an hourly grid, totals and patterns are recomputed from it for
// every day present (the grid is authoritative over whatever totals the
// document also carries). Malformed input changes nothing.
func (t *Tracker) Import(data []byte) error {
	var in timegrid.Bundle
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	t.mu.Lock()
	if t.readOnly {
		t.mu.Unlock()
		return ErrReadOnly
	}
	t.applyLocked(in.Normalize(), true)
	snap := t.snapshotLocked()
	t.mu.Unlock()

	t.commit(snap)
	return nil
}

// ReplaceAll overwrites the state wholesale with a remote snapshot. Used by
// the sync coordinator when the live document is authoritative; it bypasses
// the read-only gate and does not fire OnChange (the coordinator decides
// what, if anything, to do with the applied state).
func (t *Tracker) ReplaceAll(b timegrid.Bundle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hydrate(b)
}

// applyLocked installs in as the new state, recomputing grid days when
// recompute is set. Caller holds t.mu.
func (t *Tracker) applyLocked(in timegrid.Bundle, recompute bool) {
	t.hydrate(in)
	if !recompute {
		return
	}
	for k, g := range t.grid {
		if !g.IsEmpty() {
			d := timegrid.DeriveTotals(g)
			t.daily[k] = d.Totals
			t.auto[k] = timegrid.AutoPatterns(g)
		}
	}
}
