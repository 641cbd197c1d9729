package core

import "github.com/shopspring/decimal"

// Stats summarizes a collection of sessions.
type Stats struct {
	TotalProfit   Money
	TotalSessions int
	TotalMinutes  int
	// TotalHours is TotalMinutes/60, unrounded.
	TotalHours Money
	// HourlyRate is zero when no time was played.
	HourlyRate Money
}

// ChartPoint is one step of the cumulative bankroll curve.
type ChartPoint struct {
	SessionID  string
	Date       Date
	Label      string
	Profit     Money
	Cumulative Money
}

// HoursFloat rounds total hours to one decimal for display.
func (s Stats) HoursFloat() float64 {
	return s.TotalHours.Amount.Round(1).InexactFloat64()
}

// ZeroStats is the summary of an empty collection.
func ZeroStats() Stats {
	zero := Money{Amount: decimal.Zero}
	return Stats{TotalProfit: zero, TotalHours: zero, HourlyRate: zero}
}
