// Package errors defines the closed error taxonomy shared by the session
// manager, the rate limiter and the browser tool handlers.
//
// Every failure that leaves the core is an *Error carrying a Code, a human
// message, optional structured details and a retryable flag derived from the
// code. Failures coming from the automation engine are mapped onto the same
// taxonomy by a Classifier.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Lookup errors
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	CodePageNotFound    ErrorCode = "PAGE_NOT_FOUND"
	CodeSessionBusy     ErrorCode = "SESSION_BUSY"

	// Admission errors
	CodeCapacityExceeded  ErrorCode = "CAPACITY_EXCEEDED"
	CodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Caller errors
	CodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	CodeSecurityViolation ErrorCode = "SECURITY_VIOLATION"

	// Engine errors
	CodeTimeoutExceeded     ErrorCode = "TIMEOUT_EXCEEDED"
	CodeElementNotFound     ErrorCode = "ELEMENT_NOT_FOUND"
	CodeNavigationFailed    ErrorCode = "NAVIGATION_FAILED"
	CodeTargetClosed        ErrorCode = "TARGET_CLOSED"
	CodeBrowserLaunchFailed ErrorCode = "BROWSER_LAUNCH_FAILED"
	CodeEvaluationFailed    ErrorCode = "EVALUATION_FAILED"

	// Generic errors
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// defaultRetryable is the static retryability of every code. Codes missing
// from the table are not retryable.
var defaultRetryable = map[ErrorCode]bool{
	CodeSessionNotFound:     false,
	CodePageNotFound:        false,
	CodeSessionBusy:         true,
	CodeCapacityExceeded:    false,
	CodeRateLimitExceeded:   false,
	CodeValidationFailed:    false,
	CodeSecurityViolation:   false,
	CodeTimeoutExceeded:     true,
	CodeElementNotFound:     true,
	CodeNavigationFailed:    true,
	CodeTargetClosed:        false,
	CodeBrowserLaunchFailed: true,
	CodeEvaluationFailed:    false,
	CodeInternal:            false,
}

// DefaultRetryable reports the static retryability of a code.
func DefaultRetryable(code ErrorCode) bool {
	return defaultRetryable[code]
}

// Error is an immutable typed error. The With* helpers return modified copies.
type Error struct {
	Code       ErrorCode
	Message    string
	Details    map[string]any
	Underlying error
	Retryable  bool
}

// New creates a typed error with the code's default retryability.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: DefaultRetryable(code),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a code and message. Wrapping nil returns nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Underlying = err
	return e
}

// WithDetail returns a copy of e with an additional detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := e.clone()
	if cp.Details == nil {
		cp.Details = make(map[string]any)
	}
	cp.Details[key] = value
	return cp
}

// WithRetryable returns a copy of e with the retryable flag overridden.
func (e *Error) WithRetryable(retryable bool) *Error {
	cp := e.clone()
	cp.Retryable = retryable
	return cp
}

func (e *Error) clone() *Error {
	cp := *e
	if e.Details != nil {
		cp.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

// Error implements the error interface
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s: %v", k, e.Details[k]))
		}
		sb.WriteString("}")
	}

	if e.Underlying != nil && e.Underlying.Error() != e.Message {
		sb.WriteString(fmt.Sprintf(": %v", e.Underlying))
	}
	return sb.String()
}

// Unwrap returns the underlying error for errors.Is/As
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by code, so errors.Is(err, New(CodeX, "")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	typed, ok := As(err)
	return ok && typed.Code == code
}

// GetCode extracts the error code from an error. Untyped errors report
// CodeInternal.
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	typed, ok := As(err)
	return ok && typed.Retryable
}

// SessionNotFound reports a lookup of an unknown or already destroyed session.
func SessionNotFound(sessionID string) *Error {
	return Newf(CodeSessionNotFound, "session %q not found", sessionID).
		WithDetail("session_id", sessionID)
}

// PageNotFound reports a lookup of an unknown page within a session.
func PageNotFound(pageID string) *Error {
	return Newf(CodePageNotFound, "page %q not found", pageID).
		WithDetail("page_id", pageID)
}

// SessionBusy reports a session that is already being torn down.
func SessionBusy(sessionID string) *Error {
	return Newf(CodeSessionBusy, "session %q is being closed", sessionID).
		WithDetail("session_id", sessionID)
}

// ValidationFailed reports invalid caller input.
func ValidationFailed(message string) *Error {
	return New(CodeValidationFailed, message)
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(operation string, timeoutMs int64) *Error {
	return Newf(CodeTimeoutExceeded, "%s timed out after %dms", operation, timeoutMs).
		WithDetail("operation", operation).
		WithDetail("timeout_ms", timeoutMs)
}

// SecurityViolation reports an operation rejected by policy.
func SecurityViolation(message string) *Error {
	return New(CodeSecurityViolation, message)
}

// CapacityExceeded reports that the maximum number of concurrent sessions is in use.
func CapacityExceeded(current, max int) *Error {
	return Newf(CodeCapacityExceeded, "maximum number of concurrent sessions (%d) reached", max).
		WithDetail("current", current).
		WithDetail("max", max)
}

// RateLimitExceeded reports that the admission window is full.
func RateLimitExceeded(limit int, windowMs, resetMs int64) *Error {
	return Newf(CodeRateLimitExceeded, "rate limit exceeded: %d requests per %dms, retry in %dms", limit, windowMs, resetMs).
		WithDetail("limit", limit).
		WithDetail("window_ms", windowMs).
		WithDetail("reset_ms", resetMs)
}
