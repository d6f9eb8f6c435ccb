package timegrid

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// WeekBucket is one row of the weekly report. Averages are formatted to two
// decimal places and totals to one, matching the report views.
type WeekBucket struct {
	WeekNum     int    `json:"weekNum"`
	Days        int    `json:"days"`
	AvgStudy    string `json:"avgStudy"`
	AvgSleep    string `json:"avgSleep"`
	AvgWasted   string `json:"avgWasted"`
	TotalStudy  string `json:"totalStudy"`
	TotalSleep  string `json:"totalSleep"`
	TotalWasted string `json:"totalWasted"`
}

// daysInMonth returns the number of calendar days in the given month.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
}

// WeeklyReport partitions a month's days into buckets that close on each
// Sunday and at the final day of the month, then averages and sums each
// bucket. Days with no totals entry count as zero.
func WeeklyReport(year int, month time.Month, daily map[DayKey]Totals) []WeekBucket {
	dim := daysInMonth(year, month)
	var weeks []WeekBucket
	var cur []Totals
	num := 1
	for d := 1; d <= dim; d++ {
		day := time.Date(year, month, d, 0, 0, 0, 0, time.Local)
		v := daily[KeyFor(day)]
		cur = append(cur, v)
		if day.Weekday() == time.Sunday || d == dim {
			var t Totals
			for _, c := range cur {
				t.Study += c.Study
				t.Sleep += c.Sleep
				t.Wasted += c.Wasted
			}
			n := float64(len(cur))
			weeks = append(weeks, WeekBucket{
				WeekNum:     num,
				Days:        len(cur),
				AvgStudy:    fmt.Sprintf("%.2f", t.Study/n),
				AvgSleep:    fmt.Sprintf("%.2f", t.Sleep/n),
				AvgWasted:   fmt.Sprintf("%.2f", t.Wasted/n),
				TotalStudy:  fmt.Sprintf("%.1f", t.Study),
				TotalSleep:  fmt.Sprintf("%.1f", t.Sleep),
				TotalWasted: fmt.Sprintf("%.1f", t.Wasted),
			})
			num++
			cur = cur[:0]
		}
	}
	return weeks
}

// MonthAverages holds per-category averages formatted to two decimals.
type MonthAverages struct {
	Study  string `json:"study"`
	Sleep  string `json:"sleep"`
	Wasted string `json:"wasted"`
}

// MonthReport is the monthly rollup. DaysTracked counts only days with a
// totals entry; days without one do not dilute the averages.
type MonthReport struct {
	Totals      Totals        `json:"totals"`
	Averages    MonthAverages `json:"averages"`
	DaysTracked int           `json:"daysTracked"`
	DaysInMonth int           `json:"daysInMonth"`
}

// MonthlyReport sums the tracked days of a month and averages over them.
// With nothing tracked the averages read "0.00".
func MonthlyReport(year int, month time.Month, daily map[DayKey]Totals) MonthReport {
	dim := daysInMonth(year, month)
	var t Totals
	days := 0
	for d := 1; d <= dim; d++ {
		k := KeyFor(time.Date(year, month, d, 0, 0, 0, 0, time.Local))
		if v, ok := daily[k]; ok {
			t.Study += v.Study
			t.Sleep += v.Sleep
			t.Wasted += v.Wasted
			days++
		}
	}
	avg := MonthAverages{Study: "0.00", Sleep: "0.00", Wasted: "0.00"}
	if days > 0 {
		n := float64(days)
		avg = MonthAverages{
			Study:  fmt.Sprintf("%.2f", t.Study/n),
			Sleep:  fmt.Sprintf("%.2f", t.Sleep/n),
			Wasted: fmt.Sprintf("%.2f", t.Wasted/n),
		}
	}
	return MonthReport{Totals: t, Averages: avg, DaysTracked: days, DaysInMonth: dim}
}

// YearReport rolls up the twelve monthly reports of a year.
type YearReport struct {
	Months      []MonthReport `json:"months"`
	Totals      Totals        `json:"totals"`
	DaysTracked int           `json:"daysTracked"`
}

// YearlyReport computes every month's report for a year plus year totals.
func YearlyReport(year int, daily map[DayKey]Totals) YearReport {
	out := YearReport{Months: make([]MonthReport, 0, 12)}
	for m := time.January; m <= time.December; m++ {
		mr := MonthlyReport(year, m, daily)
		out.Months = append(out.Months, mr)
		out.Totals.Study += mr.Totals.Study
		out.Totals.Sleep += mr.Totals.Sleep
		out.Totals.Wasted += mr.Totals.Wasted
		out.DaysTracked += mr.DaysTracked
	}
	return out
}

// PatternCount is one row of the all-time pattern analysis.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// PatternAnalysis case-folds every pattern across all days, counts
// occurrences, and returns them in descending count order. Ties keep the
// order patterns were first encountered, iterating days in key order so the
// result is deterministic.
func PatternAnalysis(patterns map[DayKey][]string) []PatternCount {
	keys := make([]DayKey, 0, len(patterns))
	for k := range patterns {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	counts := map[string]int{}
	var order []string
	for _, k := range keys {
		for _, p := range patterns[k] {
			folded := strings.ToLower(p)
			if _, seen := counts[folded]; !seen {
				order = append(order, folded)
			}
			counts[folded]++
		}
	}

	out := make([]PatternCount, 0, len(order))
	for _, p := range order {
		out = append(out, PatternCount{Pattern: p, Count: counts[p]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
