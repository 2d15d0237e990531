package vt

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrNoAPIKey = errors.New("vt: no API key configured")

	// ErrDone is returned by Iterator.Next once the collection is
	// exhausted. Subsequent calls keep returning ErrDone.
	ErrDone = errors.New("vt: no more objects in collection")
)

// APIError represents an error returned by the VirusTotal API.
// Code carries the error code from the API's error envelope, for
// example "NotFoundError" or "QuotaExceededError".
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("vt: API error %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("vt: API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates a missing or rejected API key (401/403).
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("vt: authentication failed: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// NotFoundError indicates the requested resource was not found (404).
// For feeds a 404 means the requested time window has not been published
// yet; the Feed iterator retries it instead of failing.
type NotFoundError struct {
	APIError
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vt: resource not found: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *NotFoundError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// QuotaExceededError indicates the API request quota was exceeded (429).
type QuotaExceededError struct {
	APIError
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("vt: quota exceeded, retry after %s", e.RetryAfter)
	}
	return "vt: quota exceeded"
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *QuotaExceededError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ClientError indicates the request was malformed or rejected (other 4xx).
type ClientError struct {
	APIError
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("vt: client error %d: %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ClientError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ServerError indicates a server-side failure (5xx or unclassified non-2xx).
type ServerError struct {
	APIError
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("vt: server error %d: %s", e.StatusCode, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ServerError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// DecodeError indicates a response or record that violates the expected
// shape. It is fatal to the current fetch and never retried.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("vt: decoding response from %s: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("vt: decoding response: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// RetriesExhaustedError is returned by Feed.Next when a time window never
// became available within the configured retry budget. The feed cursor is
// not advanced; a later Next call retries the same window.
type RetriesExhaustedError struct {
	FeedType FeedType
	Cursor   string
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("vt: %s feed batch %s not available after %d attempts",
		e.FeedType, e.Cursor, e.Attempts)
}

// errorEnvelope is the API's error response format.
type errorEnvelope struct {
	Error APIError `json:"error"`
}

// parseAPIError converts a non-200 HTTP response into the appropriate
// error type. Client errors carry the code and message from the error
// envelope when present; everything else carries the raw body text.
func parseAPIError(statusCode int, body []byte, headers http.Header) error {
	base := APIError{StatusCode: statusCode, Message: string(body)}

	if statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError {
		var envelope errorEnvelope
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
			base.Code = envelope.Error.Code
			base.Message = envelope.Error.Message
		}
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &AuthenticationError{APIError: base}
	case statusCode == http.StatusNotFound:
		return &NotFoundError{APIError: base}
	case statusCode == http.StatusTooManyRequests:
		return &QuotaExceededError{
			APIError:   base,
			RetryAfter: parseRetryAfter(headers.Get("Retry-After")),
		}
	case statusCode >= http.StatusBadRequest && statusCode < http.StatusInternalServerError:
		return &ClientError{APIError: base}
	default:
		return &ServerError{APIError: base}
	}
}

// parseRetryAfter parses the Retry-After header value.
// It handles both seconds (integer) and HTTP-date formats.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	// Try parsing as seconds first
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP-date (RFC 1123)
	if t, err := time.Parse(time.RFC1123, value); err == nil {
		duration := time.Until(t)
		if duration > 0 {
			return duration
		}
	}

	return 0
}
