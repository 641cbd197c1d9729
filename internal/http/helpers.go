package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/auth"
	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/services"
	"pokertracker/internal/stats"
	"pokertracker/internal/storage"
)

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid session id", ErrMalformedBody)
	}
	return id, nil
}

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidDuration,
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrNotesTooLong,
	core.ErrInvalidEmail,
	core.ErrInvalidUsername,
	core.ErrWeakPassword,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError is the only place errors become status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.FromContext(r.Context())

	switch {
	case errors.Is(err, ErrMalformedBody):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials):
		UnauthorizedError("Invalid credentials").Write(w)
	case errors.Is(err, auth.ErrInvalidToken):
		UnauthorizedError("Invalid or expired token").Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Resource not found").Write(w)
	case errors.Is(err, storage.ErrConflict):
		ConflictError("Email or username already registered").Write(w)
	case isValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		fields := log.NewFields().
			WithError(err).
			WithErrorType(log.ErrorTypeInternal).
			WithHTTPRequest(r.Method, r.URL.Path, "", "")
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		InternalServerError().Write(w)
	}
}

type sessionResponse struct {
	ID              uuid.UUID  `json:"id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	SessionDate     core.Date  `json:"session_date"`
	DurationMinutes int        `json:"duration_minutes"`
	BuyIn           core.Money `json:"buy_in_amount"`
	Rebuy           core.Money `json:"rebuy_amount"`
	CashOut         core.Money `json:"cash_out_amount"`
	Notes           *string    `json:"notes"`
	Profit          core.Money `json:"profit"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toSessionResponse(s core.Session) sessionResponse {
	return sessionResponse{
		ID:              s.ID,
		OwnerID:         s.OwnerID,
		SessionDate:     s.Date,
		DurationMinutes: s.DurationMinutes,
		BuyIn:           s.BuyIn,
		Rebuy:           s.Rebuy,
		CashOut:         s.CashOut,
		Notes:           s.Notes,
		Profit:          s.Profit(),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

type userResponse struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	CookieConsent     bool       `json:"cookie_consent"`
	CookieConsentDate *time.Time `json:"cookie_consent_date"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Email:             u.Email,
		Username:          u.Username,
		CookieConsent:     u.CookieConsent,
		CookieConsentDate: u.CookieConsentDate,
		CreatedAt:         u.CreatedAt,
	}
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

func toAuthResponse(res services.AuthResult) authResponse {
	return authResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: toUserResponse(res.User)}
}

type statsBody struct {
	TotalProfit   core.Money `json:"total_profit"`
	TotalSessions int        `json:"total_sessions"`
	TotalHours    float64    `json:"total_hours"`
	HourlyRate    core.Money `json:"hourly_rate"`
}

type chartPointBody struct {
	SessionID  string     `json:"session_id"`
	Date       core.Date  `json:"date"`
	Label      string     `json:"label"`
	Profit     core.Money `json:"profit"`
	Cumulative core.Money `json:"cumulative"`
}

type statsResponse struct {
	Range  stats.ChartRange `json:"range"`
	Stats  statsBody        `json:"stats"`
	Series []chartPointBody `json:"series"`
}

func toStatsResponse(rep stats.Report) statsResponse {
	series := make([]chartPointBody, 0, len(rep.Series))
	for _, p := range rep.Series {
		series = append(series, chartPointBody{
			SessionID:  p.SessionID,
			Date:       p.Date,
			Label:      p.Label,
			Profit:     p.Profit,
			Cumulative: p.Cumulative,
		})
	}
	return statsResponse{
		Range: rep.Range,
		Stats: statsBody{
			TotalProfit:   rep.Stats.TotalProfit,
			TotalSessions: rep.Stats.TotalSessions,
			TotalHours:    rep.Stats.HoursFloat(),
			HourlyRate:    rep.Stats.HourlyRate,
		},
		Series: series,
	}
}
