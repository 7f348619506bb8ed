// Package llmerr defines the unified error taxonomy every provider client
// normalizes its failures into, plus the HTTP-status mapping and
// retryability rule the retry scheduler in pkg/internal/retry consults.
package llmerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure independent of which provider produced it.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindAuthentication Kind = "authentication"
	KindRateLimit      Kind = "rate_limit"
	KindServerError    Kind = "server_error"
	KindInvalidRequest Kind = "invalid_request"
	KindParsing        Kind = "parsing"
	KindCancelled      Kind = "cancelled"
	KindTimeout        Kind = "timeout"
)

// Error is the single error type every provider client returns for
// request-lifecycle failures. It carries enough context (provider, HTTP
// status, provider error code) for a caller to branch on Kind without
// needing to know the wire format that produced it.
type Error struct {
	Kind       Kind
	Provider   string
	StatusCode int
	Code       string
	Message    string
	// RetryAfterSeconds is set when the provider told us how long to wait,
	// typically from a rate-limit response's Retry-After header.
	RetryAfterSeconds *int
	Cause             error
}

func (e *Error) Error() string {
	base := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.StatusCode != 0 {
		base = fmt.Sprintf("%s (status %d)", base, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Cause: cause}
}

// FromHTTPStatus classifies an HTTP response status into a Kind and wraps
// it as an Error. body is the (already read) response body text, used
// verbatim as the message when the caller has nothing more specific to
// report; code is the provider's own error-code string, if it parsed one
// out of the body.
func FromHTTPStatus(provider string, status int, code, body string) *Error {
	e := &Error{
		Provider:   provider,
		StatusCode: status,
		Code:       code,
		Message:    body,
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuthentication
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimit
	case status == http.StatusRequestTimeout:
		e.Kind = KindTimeout
	case status >= 400 && status < 500:
		e.Kind = KindInvalidRequest
	case status >= 500:
		e.Kind = KindServerError
	default:
		e.Kind = KindServerError
	}
	return e
}

// WithRetryAfter returns a copy of e with RetryAfterSeconds set.
func (e *Error) WithRetryAfter(seconds int) *Error {
	ne := *e
	ne.RetryAfterSeconds = &seconds
	return &ne
}

// FromContext classifies a context error (ctx.Err()) into KindCancelled or
// KindTimeout.
func FromContext(provider string, err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return New(KindCancelled, provider, "request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return New(KindTimeout, provider, "request deadline exceeded", err)
	default:
		return New(KindNetwork, provider, "context error", err)
	}
}

// IsRetryable reports whether a failure of this kind is worth a retry at
// all (before considering attempt counts/backoff caps): network hiccups,
// rate limits, server errors, and timeouts are transient; authentication,
// invalid-request, parsing, and cancellation are not — retrying them wastes
// an attempt on a failure that will recur identically.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		// Unclassified errors (a plain network dial failure that never made
		// it through FromHTTPStatus) are treated as transient by default.
		return !errors.Is(err, context.Canceled)
	}
	switch e.Kind {
	case KindNetwork, KindRateLimit, KindServerError, KindTimeout:
		return true
	default:
		return false
	}
}

// As is a thin wrapper around errors.As for *Error, convenient for callers
// that just want the typed error back.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
