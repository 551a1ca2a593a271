// Package httputil writes the JSON error envelope shared by every non-page
// endpoint: {"error": code, "error_description": message}.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"donorhub/pkg/platform/sentinel"
)

// Code is the machine-readable error code in the envelope.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeRateLimited  Code = "rate_limited"
	CodeUnavailable  Code = "unavailable"
	CodeInternal     Code = "internal_error"
)

// Error is an error with a response code attached.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches code and message to err.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps a code to its HTTP status.
func Status(code Code) int {
	switch code {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// classify picks the code for err. Sentinel infrastructure errors map to
// their codes; anything unrecognised is internal.
func classify(err error) (Code, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, e.Message
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return CodeNotFound, "resource not found"
	case errors.Is(err, sentinel.ErrInvalidState):
		return CodeConflict, "request conflicts with current state"
	case errors.Is(err, sentinel.ErrUnavailable):
		return CodeUnavailable, "service temporarily unavailable"
	default:
		return CodeInternal, ""
	}
}

// WriteError writes err as a JSON envelope. Internal errors never expose a
// description.
func WriteError(w http.ResponseWriter, err error) {
	code, message := classify(err)
	body := map[string]string{"error": string(code)}
	if code != CodeInternal && message != "" {
		body["error_description"] = message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(Status(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
