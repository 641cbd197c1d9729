package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"pokertracker/internal/core"
)

var minutesPerHour = decimal.NewFromInt(60)

// Aggregate summarizes whatever collection it is given. It never filters.
func Aggregate(sessions []core.Session) core.Stats {
	total := decimal.Zero
	minutes := 0
	for _, s := range sessions {
		total = total.Add(s.Profit().Amount)
		minutes += s.DurationMinutes
	}

	st := core.Stats{
		TotalProfit:   core.Money{Amount: total},
		TotalSessions: len(sessions),
		TotalMinutes:  minutes,
		TotalHours:    core.Hours(minutes),
		HourlyRate:    core.Money{Amount: decimal.Zero},
	}
	// profit*60/minutes avoids dividing by a repeating hours fraction
	if minutes > 0 {
		st.HourlyRate = core.Money{Amount: total.Mul(minutesPerHour).Div(decimal.NewFromInt(int64(minutes)))}
	}
	return st
}

// CumulativeSeries emits one point per session in date order, each carrying
// the running profit after that session. Sessions sharing a date keep their
// input order.
func CumulativeSeries(sessions []core.Session) []core.ChartPoint {
	sorted := make([]core.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.IsBefore(sorted[j].Date)
	})

	points := make([]core.ChartPoint, 0, len(sorted))
	running := decimal.Zero
	for _, s := range sorted {
		p := s.Profit()
		running = running.Add(p.Amount)
		points = append(points, core.ChartPoint{
			SessionID:  s.ID.String(),
			Date:       s.Date,
			Label:      s.Date.String(),
			Profit:     p,
			Cumulative: core.Money{Amount: running},
		})
	}
	return points
}
