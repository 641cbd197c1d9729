package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func validSession() Session {
	return Session{
		Date:            NewDate(2025, 1, 1),
		DurationMinutes: 120,
		BuyIn:           MustMoney("100"),
		Rebuy:           MustMoney("0"),
		CashOut:         MustMoney("200"),
	}
}

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != NewDate(2024, 2, 29) {
		t.Fatalf("got %v", d)
	}
	if _, err := ParseDate("2024-02-30"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	got := DateOf(time.Date(2024, 3, 15, 23, 30, 0, 0, loc))
	if got != NewDate(2024, 3, 15) {
		t.Fatalf("DateOf kept the wrong calendar day: %v", got)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 1, 5))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-01-05"` {
		t.Fatalf("got %s", b)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2023-12-31"`), &d); err != nil {
		t.Fatal(err)
	}
	if d != NewDate(2023, 12, 31) {
		t.Fatalf("got %v", d)
	}
}

func TestSessionValidate(t *testing.T) {
	if err := validSession().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	longNotes := strings.Repeat("x", MaxNotesLength+1)
	tests := []struct {
		name   string
		mutate func(*Session)
		want   error
	}{
		{"zero date", func(s *Session) { s.Date = Date{} }, ErrInvalidDate},
		{"zero duration", func(s *Session) { s.DurationMinutes = 0 }, ErrInvalidDuration},
		{"negative duration", func(s *Session) { s.DurationMinutes = -5 }, ErrInvalidDuration},
		{"negative buy-in", func(s *Session) { s.BuyIn = MustMoney("-1") }, ErrNegativeAmount},
		{"negative rebuy", func(s *Session) { s.Rebuy = MustMoney("-0.01") }, ErrNegativeAmount},
		{"negative cash out", func(s *Session) { s.CashOut = MustMoney("-3") }, ErrNegativeAmount},
		{"notes too long", func(s *Session) { s.Notes = &longNotes }, ErrNotesTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSessionUpdateApply(t *testing.T) {
	notes := "old"
	s := validSession()
	s.Notes = &notes

	dur := 90
	cash := MustMoney("50")
	got := SessionUpdate{DurationMinutes: &dur, CashOut: &cash}.Apply(s)
	if got.DurationMinutes != 90 || !got.CashOut.Equal(cash) {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.BuyIn.Equal(s.BuyIn) || got.Date != s.Date || got.NotesText() != "old" {
		t.Fatalf("absent fields changed: %+v", got)
	}

	cleared := SessionUpdate{ClearNotes: true}.Apply(s)
	if cleared.Notes != nil {
		t.Fatalf("expected notes cleared, got %q", cleared.NotesText())
	}

	newNotes := "new"
	replaced := SessionUpdate{Notes: &newNotes}.Apply(s)
	newNotes = "mutated after apply"
	if replaced.NotesText() != "new" {
		t.Fatalf("notes should be copied, got %q", replaced.NotesText())
	}
}

func TestUserInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   UserInput
		want error
	}{
		{"ok", UserInput{Email: "a@example.com", Username: "alice", Password: "longenough"}, nil},
		{"bad email", UserInput{Email: "nope", Username: "alice", Password: "longenough"}, ErrInvalidEmail},
		{"display name email", UserInput{Email: "Alice <a@example.com>", Username: "alice", Password: "longenough"}, ErrInvalidEmail},
		{"short username", UserInput{Email: "a@example.com", Username: "al", Password: "longenough"}, ErrInvalidUsername},
		{"short password", UserInput{Email: "a@example.com", Username: "alice", Password: "short"}, ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
