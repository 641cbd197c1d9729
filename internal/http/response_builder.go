// Package http serves the JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses.
// Every handler writes through it so status, headers and the error envelope
// stay consistent.

package http

import (
	"encoding/json"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	hasPayload bool
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	b.hasPayload = true
	return b
}

// Write sends the built response. A payload that fails to encode becomes a
// bare 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if !b.hasPayload {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// errorBody is the envelope of every failed request.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message, details string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		JSON(errorBody{Error: message, Details: details})
}

func BadRequestError(details string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "Bad request", details)
}

func UnauthorizedError(details string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, "Unauthorized", details).
		Header("WWW-Authenticate", `Bearer realm="pokertracker"`)
}

func NotFoundError(details string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "Not found", details)
}

func ConflictError(details string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, "Conflict", details)
}

func UnprocessableEntityError(details string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, "Validation failed", details)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded", "Please try again later")
}

// InternalServerError never leaks the underlying error to the client.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "Internal server error", "")
}
