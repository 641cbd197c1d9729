// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request bodies.
// JSON and form-encoded bodies go through the same accessors, so handlers
// never care which one the client sent.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pokertracker/internal/core"
)

const maxBodyBytes = 1 << 20

// ErrMalformedBody marks input that could not be decoded at all.
var ErrMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to 1 MiB.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedBody, maxBodyBytes)
	}
	return p
}

// Parse decodes the body as JSON or form data. Every failure wraps
// ErrMalformedBody.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		if !errors.Is(p.err, ErrMalformedBody) {
			p.err = fmt.Errorf("%w: %v", ErrMalformedBody, p.err)
		}
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.isJSONContent() || trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		data := make(map[string]any)
		if err := dec.Decode(&data); err != nil {
			p.err = fmt.Errorf("%w: %v", ErrMalformedBody, err)
			return p.err
		}
		if dec.More() {
			p.err = fmt.Errorf("%w: trailing data after JSON object", ErrMalformedBody)
			return p.err
		}
		p.jsonData = data
		return nil
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", ErrMalformedBody, err)
		return p.err
	}
	p.formData = form
	return nil
}

func (p *RequestBodyParser) isJSONContent() bool {
	mediaType, _, err := mime.ParseMediaType(p.contentType)
	return err == nil && mediaType == "application/json"
}

// Has reports whether key was sent, even as null.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// IsNull reports whether key was sent as JSON null.
func (p *RequestBodyParser) IsNull(key string) bool {
	if p.jsonData == nil {
		return false
	}
	v, ok := p.jsonData[key]
	return ok && v == nil
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetBool accepts JSON booleans and the strings strconv.ParseBool knows.
func (p *RequestBodyParser) GetBool(key string) (bool, error) {
	if p.jsonData != nil {
		if b, ok := p.jsonData[key].(bool); ok {
			return b, nil
		}
	}
	b, err := strconv.ParseBool(p.Get(key))
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrMalformedBody, key)
	}
	return b, nil
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue renders a decoded JSON value. Numbers keep their literal text,
// so amounts never pass through float64.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// Session body fields.
const (
	fieldDate     = "session_date"
	fieldDuration = "duration_minutes"
	fieldBuyIn    = "buy_in_amount"
	fieldRebuy    = "rebuy_amount"
	fieldCashOut  = "cash_out_amount"
	fieldNotes    = "notes"
)

// ParseSessionCreate builds a new session from the body. Rebuy defaults to
// zero and notes may be omitted.
func ParseSessionCreate(p *RequestBodyParser) (core.Session, error) {
	if err := p.Parse(); err != nil {
		return core.Session{}, err
	}

	var s core.Session
	var err error

	if s.Date, err = parseDateField(p); err != nil {
		return core.Session{}, err
	}
	if s.DurationMinutes, err = parseDurationField(p); err != nil {
		return core.Session{}, err
	}
	if s.BuyIn, err = parseAmountField(p, fieldBuyIn); err != nil {
		return core.Session{}, err
	}
	if s.CashOut, err = parseAmountField(p, fieldCashOut); err != nil {
		return core.Session{}, err
	}
	s.Rebuy = core.NewMoney(0)
	if p.Has(fieldRebuy) && !p.IsNull(fieldRebuy) {
		if s.Rebuy, err = parseAmountField(p, fieldRebuy); err != nil {
			return core.Session{}, err
		}
	}
	if p.Has(fieldNotes) && !p.IsNull(fieldNotes) {
		notes := p.Get(fieldNotes)
		s.Notes = &notes
	}
	return s, nil
}

// ParseSessionUpdate collects only the fields present in the body. A JSON
// null for notes clears them; null elsewhere is ignored.
func ParseSessionUpdate(p *RequestBodyParser) (core.SessionUpdate, error) {
	if err := p.Parse(); err != nil {
		return core.SessionUpdate{}, err
	}

	var u core.SessionUpdate
	present := func(key string) bool { return p.Has(key) && !p.IsNull(key) }

	if present(fieldDate) {
		d, err := parseDateField(p)
		if err != nil {
			return core.SessionUpdate{}, err
		}
		u.Date = &d
	}
	if present(fieldDuration) {
		m, err := parseDurationField(p)
		if err != nil {
			return core.SessionUpdate{}, err
		}
		u.DurationMinutes = &m
	}
	amounts := []struct {
		key string
		dst **core.Money
	}{{fieldBuyIn, &u.BuyIn}, {fieldRebuy, &u.Rebuy}, {fieldCashOut, &u.CashOut}}
	for _, a := range amounts {
		if !present(a.key) {
			continue
		}
		m, err := parseAmountField(p, a.key)
		if err != nil {
			return core.SessionUpdate{}, err
		}
		*a.dst = &m
	}
	switch {
	case p.IsNull(fieldNotes):
		u.ClearNotes = true
	case p.Has(fieldNotes):
		notes := p.Get(fieldNotes)
		u.Notes = &notes
	}
	return u, nil
}

func parseDateField(p *RequestBodyParser) (core.Date, error) {
	raw := p.Get(fieldDate)
	if raw == "" {
		return core.Date{}, fmt.Errorf("%s: %w: required", fieldDate, core.ErrInvalidDate)
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, fmt.Errorf("%s: %w", fieldDate, err)
	}
	return d, nil
}

func parseDurationField(p *RequestBodyParser) (int, error) {
	raw := p.Get(fieldDuration)
	if raw == "" {
		return 0, fmt.Errorf("%s: %w: required", fieldDuration, core.ErrInvalidDuration)
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %q is not a whole number of minutes", fieldDuration, core.ErrInvalidDuration, raw)
	}
	return minutes, nil
}

func parseAmountField(p *RequestBodyParser, key string) (core.Money, error) {
	raw := p.Get(key)
	if raw == "" {
		return core.Money{}, fmt.Errorf("%s: %w: required", key, core.ErrInvalidAmount)
	}
	m, err := core.ParseAmount(raw)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s: %w", key, err)
	}
	return m, nil
}

// Query parameters are trimmed; an absent one is "".
func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
