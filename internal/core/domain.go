package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage format of a session date.
const DateLayout = "2006-01-02"

const (
	MaxNotesLength   = 2000
	MinUsernameLen   = 3
	MaxUsernameLen   = 50
	MinPasswordLen   = 8
	MaxSessionMinute = 7 * 24 * 60
)

type (
	// Date is a calendar date without a time of day, always stored at UTC midnight.
	Date struct {
		time.Time
	}

	Session struct {
		ID              uuid.UUID
		OwnerID         uuid.UUID
		Date            Date
		DurationMinutes int
		BuyIn           Money
		Rebuy           Money
		CashOut         Money
		Notes           *string
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// SessionUpdate carries a partial update. Nil fields keep the stored value.
	SessionUpdate struct {
		Date            *Date
		DurationMinutes *int
		BuyIn           *Money
		Rebuy           *Money
		CashOut         *Money
		Notes           *string
		// ClearNotes drops stored notes when Notes is nil.
		ClearNotes bool
	}

	User struct {
		ID                uuid.UUID
		Email             string
		Username          string
		PasswordHash      string
		CookieConsent     bool
		CookieConsentDate *time.Time
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// UserInput is the registration payload before hashing.
	UserInput struct {
		Email    string
		Username string
		Password string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("negative amount")
	ErrNotesTooLong    = errors.New("notes too long")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidUsername = errors.New("invalid username")
	ErrWeakPassword    = errors.New("password too short")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the time of day of t, keeping the calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// IsBefore reports whether d is an earlier calendar date than o.
func (d Date) IsBefore(o Date) bool {
	return d.Time.Before(o.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Profit is cash out minus everything put on the table.
func (s Session) Profit() Money {
	return Profit(s.BuyIn, s.Rebuy, s.CashOut)
}

// Hours returns the unrounded duration in hours.
func (s Session) Hours() Money {
	return Hours(s.DurationMinutes)
}

// NotesText returns the notes or an empty string.
func (s Session) NotesText() string {
	if s.Notes == nil {
		return ""
	}
	return *s.Notes
}

func (s Session) Validate() error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	if s.DurationMinutes <= 0 || s.DurationMinutes > MaxSessionMinute {
		return fmt.Errorf("%w: %d minutes (must be between 1 and %d)", ErrInvalidDuration, s.DurationMinutes, MaxSessionMinute)
	}
	amounts := []struct {
		name  string
		value Money
	}{{"buy-in", s.BuyIn}, {"rebuy", s.Rebuy}, {"cash out", s.CashOut}}
	for _, a := range amounts {
		if err := a.value.Validate(); err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
	}
	if s.Notes != nil && len(*s.Notes) > MaxNotesLength {
		return fmt.Errorf("%w (max %d characters)", ErrNotesTooLong, MaxNotesLength)
	}
	return nil
}

// Apply returns s with every non-nil field of u replaced.
func (u SessionUpdate) Apply(s Session) Session {
	if u.Date != nil {
		s.Date = *u.Date
	}
	if u.DurationMinutes != nil {
		s.DurationMinutes = *u.DurationMinutes
	}
	if u.BuyIn != nil {
		s.BuyIn = *u.BuyIn
	}
	if u.Rebuy != nil {
		s.Rebuy = *u.Rebuy
	}
	if u.CashOut != nil {
		s.CashOut = *u.CashOut
	}
	switch {
	case u.Notes != nil:
		notes := *u.Notes
		s.Notes = &notes
	case u.ClearNotes:
		s.Notes = nil
	}
	return s
}

func (in UserInput) Validate() error {
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil || addr.Address != strings.TrimSpace(in.Email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, in.Email)
	}
	if n := len(strings.TrimSpace(in.Username)); n < MinUsernameLen || n > MaxUsernameLen {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidUsername, MinUsernameLen, MaxUsernameLen)
	}
	return ValidatePassword(in.Password)
}

// ValidatePassword checks the minimum password policy.
func ValidatePassword(p string) error {
	if len(p) < MinPasswordLen {
		return fmt.Errorf("%w (min %d characters)", ErrWeakPassword, MinPasswordLen)
	}
	return nil
}
