package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"pokertracker/internal/core"
)

// FormatMoney renders an amount with thousands separators, e.g. 1,234.50.
func FormatMoney(m core.Money) string {
	return humanize.FormatFloat("#,###.##", m.Float64())
}

// FormatProfit is FormatMoney with an explicit sign for gains.
func FormatProfit(m core.Money) string {
	if m.Amount.IsPositive() {
		return "+" + FormatMoney(m)
	}
	return FormatMoney(m)
}

// FormatHours renders minutes as hours with one decimal.
func FormatHours(minutes int) string {
	return fmt.Sprintf("%.1fh", float64(minutes)/60)
}

// Ago renders t relative to now, e.g. "3 days ago".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
