// Package stats computes profit aggregates and bankroll curves over session
// collections.
//
// Range selection follows a strategy registry: every selector maps to a
// function that derives the window start from a caller supplied "now". Two
// vocabularies exist. ChartRange is calendar relative (one month back is not
// thirty days back) and ExportRange counts fixed days. They are kept apart on
// purpose and never translated into each other.
package stats

import (
	"strings"
	"time"

	"pokertracker/internal/core"
)

// ChartRange selects the dashboard and chart window.
type ChartRange string

const (
	RangeWeek    ChartRange = "week"
	RangeMonth   ChartRange = "month"
	RangeQuarter ChartRange = "quarter"
	RangeYear    ChartRange = "year"
	RangeAll     ChartRange = "all"
)

// ExportRange selects the export window.
type ExportRange string

const (
	Export7Days  ExportRange = "7days"
	Export30Days ExportRange = "30days"
	Export90Days ExportRange = "90days"
	Export1Year  ExportRange = "1year"
	ExportAll    ExportRange = "all"
)

// WindowFunc returns the inclusive lower bound for now. ok is false when the
// window is unbounded.
type WindowFunc func(now time.Time) (start time.Time, ok bool)

func unbounded(time.Time) (time.Time, bool) { return time.Time{}, false }

func calendarBack(years, months, days int) WindowFunc {
	return func(now time.Time) (time.Time, bool) {
		return now.AddDate(-years, -months, -days), true
	}
}

func daysBack(n int) WindowFunc {
	return func(now time.Time) (time.Time, bool) {
		return now.AddDate(0, 0, -n), true
	}
}

var chartWindows = map[ChartRange]WindowFunc{
	RangeWeek:    calendarBack(0, 0, 7),
	RangeMonth:   calendarBack(0, 1, 0),
	RangeQuarter: calendarBack(0, 3, 0),
	RangeYear:    calendarBack(1, 0, 0),
	RangeAll:     unbounded,
}

var exportWindows = map[ExportRange]WindowFunc{
	Export7Days:  daysBack(7),
	Export30Days: daysBack(30),
	Export90Days: daysBack(90),
	Export1Year:  daysBack(365),
	ExportAll:    unbounded,
}

// ChartRanges lists the chart selectors from narrowest to widest.
func ChartRanges() []ChartRange {
	return []ChartRange{RangeWeek, RangeMonth, RangeQuarter, RangeYear, RangeAll}
}

// ExportRanges lists the export selectors from narrowest to widest.
func ExportRanges() []ExportRange {
	return []ExportRange{Export7Days, Export30Days, Export90Days, Export1Year, ExportAll}
}

// ParseChartRange never fails: anything unrecognized selects all sessions.
func ParseChartRange(s string) ChartRange {
	r := ChartRange(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := chartWindows[r]; !ok {
		return RangeAll
	}
	return r
}

// ParseExportRange never fails: anything unrecognized selects all sessions.
func ParseExportRange(s string) ExportRange {
	r := ExportRange(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := exportWindows[r]; !ok {
		return ExportAll
	}
	return r
}

// Start returns the first included date, or false for an unbounded window.
func (r ChartRange) Start(now time.Time) (core.Date, bool) {
	return windowStart(chartWindows[ParseChartRange(string(r))], now)
}

// Start returns the first included date, or false for an unbounded window.
func (r ExportRange) Start(now time.Time) (core.Date, bool) {
	return windowStart(exportWindows[ParseExportRange(string(r))], now)
}

func windowStart(fn WindowFunc, now time.Time) (core.Date, bool) {
	start, ok := fn(now)
	if !ok {
		return core.Date{}, false
	}
	return core.DateOf(start), true
}

// Filter keeps the sessions dated on or after the chart window start.
func (r ChartRange) Filter(sessions []core.Session, now time.Time) []core.Session {
	start, ok := r.Start(now)
	return filterFrom(sessions, start, ok)
}

// Filter keeps the sessions dated on or after the export window start.
func (r ExportRange) Filter(sessions []core.Session, now time.Time) []core.Session {
	start, ok := r.Start(now)
	return filterFrom(sessions, start, ok)
}

// filterFrom returns a new slice in input order. Future dates pass.
func filterFrom(sessions []core.Session, start core.Date, bounded bool) []core.Session {
	out := make([]core.Session, 0, len(sessions))
	for _, s := range sessions {
		if bounded && s.Date.IsBefore(start) {
			continue
		}
		out = append(out, s)
	}
	return out
}
