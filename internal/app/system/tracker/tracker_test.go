package tracker

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dalemusser/stratatrack/internal/domain/timegrid"
)

// fixedNow pins the clock to mid-morning on 2024-03-10 local time.
func fixedNow() time.Time {
	return time.Date(2024, time.March, 10, 9, 30, 0, 0, time.Local)
}

const (
	today     = timegrid.DayKey("2024-03-10")
	yesterday = timegrid.DayKey("2024-03-09")
	tomorrow  = timegrid.DayKey("2024-03-11")
)

func newTestTracker() *Tracker {
	t := New(timegrid.NewBundle())
	t.SetClock(fixedNow)
	return t
}

func TestSetHalfSlot(t *testing.T) {
	t.Run("mutation recomputes the day", func(t *testing.T) {
		tr := newTestTracker()
		if err := tr.SetHalfSlot(today, 7, timegrid.FirstHalf, "MISC-BREAKFAST"); err != nil {
			t.Fatalf("set first half: %v", err)
		}
		if err := tr.SetHalfSlot(today, 7, timegrid.SecondHalf, timegrid.Wasted); err != nil {
			t.Fatalf("set second half: %v", err)
		}

		v := tr.Day(today)
		if v.Totals.Wasted != 0.5 || v.Totals.Study != 0 || v.Totals.Sleep != 0 {
			t.Errorf("totals = %+v, want wasted 0.5", v.Totals)
		}
		if v.MiscHours != 0.5 {
			t.Errorf("miscHours = %v, want 0.5", v.MiscHours)
		}
		if v.Accounted != 1.0 {
			t.Errorf("accounted = %v, want 1.0", v.Accounted)
		}
		if want := []string{"Post Breakfast"}; !reflect.DeepEqual(v.Patterns, want) {
			t.Errorf("patterns = %v, want %v", v.Patterns, want)
		}
	})

	t.Run("past day locked", func(t *testing.T) {
		tr := newTestTracker()
		err := tr.SetHalfSlot(yesterday, 10, timegrid.FirstHalf, timegrid.Studying)
		if !errors.Is(err, ErrPastDay) {
			t.Errorf("err = %v, want ErrPastDay", err)
		}
		if !tr.Snapshot().IsEmpty() {
			t.Error("rejected edit mutated state")
		}
	})

	t.Run("today and future days editable", func(t *testing.T) {
		tr := newTestTracker()
		for _, day := range []timegrid.DayKey{today, tomorrow} {
			if err := tr.SetHalfSlot(day, 10, timegrid.FirstHalf, timegrid.Studying); err != nil {
				t.Errorf("edit %s: %v", day, err)
			}
		}
	})

	t.Run("sentinels", func(t *testing.T) {
		tr := newTestTracker()
		// Bare MISC toggles client menu mode; nothing is committed.
		if err := tr.SetHalfSlot(today, 5, timegrid.FirstHalf, timegrid.SentinelMisc); err != nil {
			t.Fatalf("MISC sentinel: %v", err)
		}
		if !tr.Snapshot().IsEmpty() {
			t.Error("MISC sentinel was persisted")
		}

		// Back clears the slot.
		if err := tr.SetHalfSlot(today, 5, timegrid.FirstHalf, timegrid.Studying); err != nil {
			t.Fatal(err)
		}
		if err := tr.SetHalfSlot(today, 5, timegrid.FirstHalf, timegrid.SentinelBack); err != nil {
			t.Fatalf("Back sentinel: %v", err)
		}
		if v := tr.Day(today); v.Totals.Study != 0 {
			t.Errorf("study = %v after Back, want 0", v.Totals.Study)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		tr := newTestTracker()
		if err := tr.SetHalfSlot(today, 24, timegrid.FirstHalf, timegrid.Studying); err == nil {
			t.Error("hour 24 accepted")
		}
		if err := tr.SetHalfSlot(today, 3, "third", timegrid.Studying); err == nil {
			t.Error("bogus half accepted")
		}
		if err := tr.SetHalfSlot(today, 3, timegrid.FirstHalf, "Napping"); err == nil {
			t.Error("unknown activity accepted")
		}
	})

	t.Run("read-only rejected", func(t *testing.T) {
		tr := NewReadOnly()
		tr.SetClock(fixedNow)
		err := tr.SetHalfSlot(today, 7, timegrid.FirstHalf, timegrid.Studying)
		if !errors.Is(err, ErrReadOnly) {
			t.Errorf("err = %v, want ErrReadOnly", err)
		}
	})
}

func TestSetWastedReason(t *testing.T) {
	tr := newTestTracker()
	if err := tr.SetWastedReason(today, 7, "doomscrolling"); err != nil {
		t.Fatalf("set reason: %v", err)
	}
	if got := tr.Day(today).Grid[7].WastedReason; got != "doomscrolling" {
		t.Errorf("reason = %q", got)
	}

	if err := tr.SetWastedReason(today, 7, ""); err != nil {
		t.Fatalf("clear reason: %v", err)
	}
	if got := tr.Day(today).Grid[7].WastedReason; got != "" {
		t.Errorf("reason = %q after clear, want empty", got)
	}

	if err := tr.SetWastedReason(yesterday, 7, "x"); !errors.Is(err, ErrPastDay) {
		t.Errorf("past day err = %v, want ErrPastDay", err)
	}
}

func TestManualTotals(t *testing.T) {
	tr := newTestTracker()

	// Manual entry for a day with no grid, including past days.
	if err := tr.SetManualTotal(yesterday, KindStudy, 4); err != nil {
		t.Fatalf("manual total: %v", err)
	}
	if v := tr.Day(yesterday); v.Totals.Study != 4 || v.GridDerived {
		t.Errorf("day = %+v, want manual study 4", v)
	}

	// Once the grid has entries the day is grid-derived.
	if err := tr.SetHalfSlot(today, 8, timegrid.FirstHalf, timegrid.Studying); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetManualTotal(today, KindSleep, 8); !errors.Is(err, ErrGridDerived) {
		t.Errorf("err = %v, want ErrGridDerived", err)
	}
	if v := tr.Day(today); v.Totals.Study != 0.5 || v.Totals.Sleep != 0 {
		t.Errorf("grid-derived totals clobbered: %+v", v.Totals)
	}

	if err := tr.SetManualTotal(yesterday, TotalKind("naps"), 1); err == nil {
		t.Error("unknown kind accepted")
	}
}

func TestManualPatternsSurviveRecompute(t *testing.T) {
	tr := newTestTracker()
	if err := tr.AddPattern(today, "Phone in bed"); err != nil {
		t.Fatal(err)
	}

	// Grid edits re-derive the auto portion without touching manual entries.
	if err := tr.SetHalfSlot(today, 2, timegrid.FirstHalf, "MISC-GYM"); err != nil {
		t.Fatal(err)
	}
	if err := tr.SetHalfSlot(today, 2, timegrid.SecondHalf, timegrid.Wasted); err != nil {
		t.Fatal(err)
	}

	want := []string{"Post Gym", "Phone in bed"}
	if got := tr.Day(today).Patterns; !reflect.DeepEqual(got, want) {
		t.Errorf("patterns = %v, want %v", got, want)
	}

	// Another edit recomputes again; the manual entry still survives.
	if err := tr.SetHalfSlot(today, 9, timegrid.FirstHalf, timegrid.Studying); err != nil {
		t.Fatal(err)
	}
	if got := tr.Day(today).Patterns; !reflect.DeepEqual(got, want) {
		t.Errorf("patterns after second edit = %v, want %v", got, want)
	}
}

func TestRemovePattern(t *testing.T) {
	tr := newTestTracker()
	tr.AddPattern(today, "a")
	tr.AddPattern(today, "b")

	if err := tr.RemovePattern(today, 0); err != nil {
		t.Fatal(err)
	}
	if got := tr.Day(today).Patterns; !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("patterns = %v, want [b]", got)
	}
	if err := tr.RemovePattern(today, 5); err == nil {
		t.Error("out-of-range index accepted")
	}
}

func TestReflections(t *testing.T) {
	tr := newTestTracker()
	if err := tr.SetReflection(today, "went ok"); err != nil {
		t.Fatal(err)
	}
	if got := tr.Day(today).Reflection; got != "went ok" {
		t.Errorf("reflection = %q", got)
	}
	if err := tr.SetReflection(yesterday, "rewrite history"); !errors.Is(err, ErrPastDay) {
		t.Errorf("past reflection err = %v, want ErrPastDay", err)
	}
	if err := tr.SetReflection(today, ""); err != nil {
		t.Fatal(err)
	}
	if got := tr.Day(today).Reflection; got != "" {
		t.Errorf("reflection = %q after clear", got)
	}
}

func TestReadOnlyRejectsEverything(t *testing.T) {
	tr := NewReadOnly()
	tr.SetClock(fixedNow)
	before := tr.Snapshot()

	checks := map[string]error{
		"SetHalfSlot":     tr.SetHalfSlot(today, 1, timegrid.FirstHalf, timegrid.Studying),
		"SetWastedReason": tr.SetWastedReason(today, 1, "x"),
		"SetManualTotal":  tr.SetManualTotal(today, KindStudy, 1),
		"AddPattern":      tr.AddPattern(today, "x"),
		"SetReflection":   tr.SetReflection(today, "x"),
		"Import":          tr.Import([]byte(`{"dailyData":{"2024-03-10":{"study":1,"sleep":0,"wasted":0}}}`)),
	}
	for op, err := range checks {
		if !errors.Is(err, ErrReadOnly) {
			t.Errorf("%s err = %v, want ErrReadOnly", op, err)
		}
	}
	if !reflect.DeepEqual(tr.Snapshot(), before) {
		t.Error("read-only tracker state changed")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Run("manual-only bundle round-trips exactly", func(t *testing.T) {
		tr := newTestTracker()
		tr.SetManualTotal(today, KindStudy, 4)
		tr.SetManualTotal(today, KindSleep, 6)
		tr.AddPattern(today, "Slow morning")
		tr.SetReflection(today, "fine")

		raw, err := tr.Export()
		if err != nil {
			t.Fatal(err)
		}

		other := newTestTracker()
		if err := other.Import(raw); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(other.Snapshot(), tr.Snapshot()) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", other.Snapshot(), tr.Snapshot())
		}
	})

	t.Run("grid bundle recomputes and is idempotent", func(t *testing.T) {
		tr := newTestTracker()
		tr.SetHalfSlot(today, 7, timegrid.FirstHalf, "MISC-BREAKFAST")
		tr.SetHalfSlot(today, 7, timegrid.SecondHalf, timegrid.Wasted)

		// Export carries totals too; tamper with them so only the grid can
		// explain the post-import values.
		raw, _ := tr.Export()
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatal(err)
		}
		doc["dailyData"] = json.RawMessage(`{"2024-03-10":{"study":99,"sleep":99,"wasted":99}}`)
		tampered, _ := json.Marshal(doc)

		other := newTestTracker()
		if err := other.Import(tampered); err != nil {
			t.Fatal(err)
		}
		v := other.Day(today)
		if v.Totals.Wasted != 0.5 || v.Totals.Study != 0 {
			t.Errorf("imported totals = %+v, want recomputed from grid", v.Totals)
		}

		// Importing the re-export yields the same state.
		again, _ := other.Export()
		third := newTestTracker()
		if err := third.Import(again); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(third.Snapshot(), other.Snapshot()) {
			t.Error("recompute on import is not idempotent")
		}
	})

	t.Run("malformed import changes nothing", func(t *testing.T) {
		tr := newTestTracker()
		tr.SetManualTotal(today, KindStudy, 2)
		before := tr.Snapshot()

		if err := tr.Import([]byte(`{"dailyData": [1,2,3`)); !errors.Is(err, ErrInvalidImport) {
			t.Errorf("err = %v, want ErrInvalidImport", err)
		}
		if !reflect.DeepEqual(tr.Snapshot(), before) {
			t.Error("failed import mutated state")
		}
	})
}

func TestReplaceAllBypassesReadOnly(t *testing.T) {
	tr := NewReadOnly()
	tr.SetClock(fixedNow)

	b := timegrid.NewBundle()
	g := timegrid.NewDayGrid()
	g[7] = timegrid.HourSlot{First: "MISC-BREAKFAST", Second: timegrid.Wasted}
	b.Grid[today] = g
	b.Daily[today] = timegrid.Totals{Wasted: 0.5}
	b.Patterns[today] = []string{"Post Breakfast", "My own note"}

	tr.ReplaceAll(b)
	v := tr.Day(today)
	if v.Totals.Wasted != 0.5 {
		t.Errorf("totals = %+v", v.Totals)
	}
	// Stored patterns beyond the recomputed auto set survive as manual.
	want := []string{"Post Breakfast", "My own note"}
	if !reflect.DeepEqual(v.Patterns, want) {
		t.Errorf("patterns = %v, want %v", v.Patterns, want)
	}
}

func TestOnChangeFiresPerCommit(t *testing.T) {
	tr := newTestTracker()
	var snaps []timegrid.Bundle
	tr.OnChange = func(b timegrid.Bundle) { snaps = append(snaps, b) }

	tr.SetHalfSlot(today, 1, timegrid.FirstHalf, timegrid.Studying)
	tr.SetHalfSlot(yesterday, 1, timegrid.FirstHalf, timegrid.Studying) // rejected
	tr.SetHalfSlot(today, 1, timegrid.FirstHalf, timegrid.SentinelMisc) // no-op
	tr.AddPattern(today, "x")

	if len(snaps) != 2 {
		t.Fatalf("OnChange fired %d times, want 2", len(snaps))
	}
	if snaps[0].Daily[today].Study != 0.5 {
		t.Errorf("first snapshot totals = %+v", snaps[0].Daily[today])
	}
}
