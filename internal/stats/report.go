package stats

import (
	"time"

	"pokertracker/internal/core"
)

// Report bundles everything the dashboard shows for one range.
type Report struct {
	Range    ChartRange
	Sessions []core.Session
	Stats    core.Stats
	Series   []core.ChartPoint
}

// Compute filters sessions to r and derives stats and the bankroll curve
// from the same filtered set.
func Compute(sessions []core.Session, r ChartRange, now time.Time) Report {
	r = ParseChartRange(string(r))
	filtered := r.Filter(sessions, now)
	return Report{
		Range:    r,
		Sessions: filtered,
		Stats:    Aggregate(filtered),
		Series:   CumulativeSeries(filtered),
	}
}
