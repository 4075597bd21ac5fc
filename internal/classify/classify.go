// Package classify maps raw send failures to a closed set of error kinds,
// each carrying a fixed recovery policy.
package classify

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
)

// Kind identifies one of the known failure categories.
type Kind string

const (
	KindTokenExpired         Kind = "auth.token_expired"
	KindInvalidCredentials   Kind = "auth.invalid_credentials"
	KindPermissionDenied     Kind = "auth.permission_denied"
	KindVerificationRequired Kind = "auth.verification_required"
	KindRateLimit            Kind = "api.rate_limit"
	KindServerError          Kind = "api.server_error"
	KindNetworkError         Kind = "api.network_error"
	KindInvalidEmail         Kind = "validation.invalid_email"
	KindFileTooLarge         Kind = "validation.file_too_large"
	KindMissingField         Kind = "validation.missing_field"
	KindQuotaExceeded        Kind = "storage.quota_exceeded"
	KindUnknown              Kind = "unknown"
)

// Error is a raw failure mapped to a Kind. It is derived and stateless:
// Classify recomputes it from the cause every time, nothing is cached.
type Error struct {
	Kind              Kind
	Status            int
	RetryAfter        time.Duration
	UserMessage       string
	ActionableMessage string

	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the kind's policy allows automatic retry.
func (e *Error) Retryable() bool { return PolicyFor(e.Kind).Retryable }

// rule is one (predicate, kind) pair. Rules are evaluated top to bottom and
// the first match wins; the order is load-bearing and must not be reordered.
type rule struct {
	kind  Kind
	match func(msg string, status int) bool
}

var rules = []rule{
	{KindTokenExpired, func(m string, _ int) bool {
		return strings.Contains(m, "token") && strings.Contains(m, "expired")
	}},
	{KindInvalidCredentials, func(m string, _ int) bool {
		return strings.Contains(m, "invalid_grant") || strings.Contains(m, "unauthorized")
	}},
	{KindPermissionDenied, func(m string, s int) bool {
		return strings.Contains(m, "permission") || s == http.StatusForbidden
	}},
	{KindVerificationRequired, func(m string, _ int) bool {
		return strings.Contains(m, "verification") || strings.Contains(m, "not completed")
	}},
	{KindRateLimit, func(m string, s int) bool {
		return s == http.StatusTooManyRequests || strings.Contains(m, "rate limit")
	}},
	{KindServerError, func(m string, s int) bool {
		return s >= http.StatusInternalServerError || strings.Contains(m, "server error")
	}},
	{KindNetworkError, func(m string, _ int) bool {
		return strings.Contains(m, "network") || strings.Contains(m, "fetch")
	}},
	{KindInvalidEmail, func(m string, _ int) bool {
		return strings.Contains(m, "invalid") && strings.Contains(m, "email")
	}},
	{KindFileTooLarge, func(m string, _ int) bool {
		return strings.Contains(m, "file") && strings.Contains(m, "large")
	}},
	{KindMissingField, func(m string, _ int) bool {
		return strings.Contains(m, "missing") && strings.Contains(m, "field")
	}},
	{KindQuotaExceeded, func(m string, _ int) bool {
		return strings.Contains(m, "quota")
	}},
}

// Classify maps a raw error to a classified one. Pure: it inspects only the
// error's message text and HTTP status (when the error carries one).
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var clsErr *Error
	if errors.As(err, &clsErr) {
		return clsErr
	}

	msg := strings.ToLower(err.Error())
	status := statusOf(err)

	kind := KindUnknown
	for _, r := range rules {
		if r.match(msg, status) {
			kind = r.kind
			break
		}
	}

	return &Error{
		Kind:              kind,
		Status:            status,
		RetryAfter:        retryAfterOf(err),
		UserMessage:       userMessages[kind],
		ActionableMessage: actionableMessages[kind],
		cause:             err,
	}
}

// NewError builds a classified error directly for failures detected locally
// (validation, missing configuration) where no raw error exists to classify.
func NewError(kind Kind, cause error) *Error {
	return &Error{
		Kind:              kind,
		UserMessage:       userMessages[kind],
		ActionableMessage: actionableMessages[kind],
		cause:             cause,
	}
}

func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}

	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Status
	}

	return 0
}

func retryAfterOf(err error) time.Duration {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Header == nil {
		return 0
	}

	secs, parseErr := time.ParseDuration(gerr.Header.Get("Retry-After") + "s")
	if parseErr != nil || secs < 0 {
		return 0
	}

	return secs
}

// StatusError attaches an HTTP status code to a message for transports that
// do not surface *googleapi.Error.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }
