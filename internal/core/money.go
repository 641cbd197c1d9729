// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals. Binary floating point is only used when a
// value leaves the system for display or a spreadsheet cell.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal currency amount.
type Money struct {
	Amount decimal.Decimal
}

var sixty = decimal.NewFromInt(60)

// NewMoney builds Money from a whole number of cents.
func NewMoney(cents int64) Money {
	return Money{Amount: decimal.New(cents, -2)}
}

// MustMoney parses s and panics on failure. Intended for tests and constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{Amount: d}
}

// Profit returns cashOut - (buyIn + rebuy). It never fails.
func Profit(buyIn, rebuy, cashOut Money) Money {
	return Money{Amount: cashOut.Amount.Sub(buyIn.Amount.Add(rebuy.Amount))}
}

// Hours converts minutes to fractional hours without rounding to display precision.
func Hours(minutes int) Money {
	return Money{Amount: decimal.NewFromInt(int64(minutes)).Div(sixty)}
}

func (m Money) Add(o Money) Money { return Money{Amount: m.Amount.Add(o.Amount)} }

func (m Money) Sub(o Money) Money { return Money{Amount: m.Amount.Sub(o.Amount)} }

func (m Money) IsZero() bool { return m.Amount.IsZero() }

func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal compares by value, so 50.1 equals 50.10.
func (m Money) Equal(o Money) bool { return m.Amount.Equal(o.Amount) }

// String renders the amount with exactly two fractional digits.
func (m Money) String() string { return m.Amount.StringFixed(2) }

// Float64 is for display and spreadsheet cells only.
func (m Money) Float64() float64 { return m.Amount.InexactFloat64() }

func (m Money) Validate() error {
	if m.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Money{}
		return nil
	}
	parsed, err := ParseAmount(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseAmount converts a decimal string to Money rounded half-up to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is a
// valid amount (a session can cash out nothing). Signs and empty input are
// rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35
//	ParseAmount("0")      -> 0.00
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "-") {
		return Money{}, ErrNegativeAmount
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") || (intPart == "" && fracPart == "") {
		return Money{}, ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	if intPart == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d.Round(2)}, nil
}
