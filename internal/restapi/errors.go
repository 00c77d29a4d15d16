package restapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failed API call. StatusCode classifies it (see the Is* helpers);
// Code and Message carry the server's error body when one was returned.
type Error struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newStatusError(statusCode int) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    lower(http.StatusText(statusCode)),
	}
}

// IsAuth reports whether err is a 401-class failure: invalid credentials or
// an expired or invalid token. Callers route to login on these.
func IsAuth(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsValidation reports a 400-class failure. Not retryable.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// IsPermission reports a 403-class failure.
func IsPermission(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsNotFound reports a 404-class failure, typically a stale reference such
// as a message that was already deleted.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports a 409-class failure, e.g. a duplicate registration.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, statusCode int) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == statusCode
	}

	return false
}
