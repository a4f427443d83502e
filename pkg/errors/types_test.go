package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeTimeoutExceeded, "request timed out")

	require.NotNil(t, err)
	assert.Equal(t, CodeTimeoutExceeded, err.Code)
	assert.Equal(t, "request timed out", err.Message)
	assert.Nil(t, err.Underlying)
	assert.True(t, err.Retryable, "timeouts are retryable by default")
}

func TestWrap(t *testing.T) {
	underlying := stderrors.New("connection reset")
	err := Wrap(underlying, CodeNavigationFailed, "navigation failed")

	require.NotNil(t, err)
	assert.Same(t, underlying, err.Underlying)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, stderrors.Is(err, underlying))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "test"))
}

func TestWithDetail_ReturnsCopy(t *testing.T) {
	base := New(CodeValidationFailed, "bad input")
	withDetail := base.WithDetail("field", "url")

	assert.Nil(t, base.Details, "original must stay unchanged")
	assert.Equal(t, "url", withDetail.Details["field"])

	second := withDetail.WithDetail("other", 1)
	assert.Len(t, withDetail.Details, 1)
	assert.Len(t, second.Details, 2)
}

func TestWithRetryable_ReturnsCopy(t *testing.T) {
	base := New(CodeTimeoutExceeded, "slow")
	notRetryable := base.WithRetryable(false)

	assert.True(t, base.Retryable)
	assert.False(t, notRetryable.Retryable)
}

func TestError_String(t *testing.T) {
	err := New(CodeCapacityExceeded, "full").WithDetail("max", 2).WithDetail("current", 2)
	msg := err.Error()

	assert.True(t, strings.HasPrefix(msg, "[CAPACITY_EXCEEDED] full"))
	assert.Contains(t, msg, "{current: 2, max: 2}")
}

func TestCodeHelpers(t *testing.T) {
	typed := SessionNotFound("abc")
	wrapped := fmt.Errorf("lookup: %w", typed)

	assert.True(t, IsCode(wrapped, CodeSessionNotFound))
	assert.False(t, IsCode(wrapped, CodePageNotFound))
	assert.Equal(t, CodeSessionNotFound, GetCode(wrapped))
	assert.Equal(t, CodeInternal, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
	assert.False(t, IsRetryable(wrapped))
	assert.True(t, IsRetryable(New(CodeElementNotFound, "x")))
	assert.True(t, stderrors.Is(wrapped, New(CodeSessionNotFound, "")))
}

func TestDirectConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		code      ErrorCode
		contains  []string
		retryable bool
	}{
		{"session not found", SessionNotFound("nonexistent-id"), CodeSessionNotFound, []string{"nonexistent-id"}, false},
		{"page not found", PageNotFound("page-7"), CodePageNotFound, []string{"page-7"}, false},
		{"session busy", SessionBusy("s1"), CodeSessionBusy, []string{"s1"}, true},
		{"validation", ValidationFailed("url is required"), CodeValidationFailed, []string{"url is required"}, false},
		{"timeout", Timeout("navigate", 3000), CodeTimeoutExceeded, []string{"navigate", "3000ms"}, true},
		{"security", SecurityViolation("scheme file is blocked"), CodeSecurityViolation, []string{"file"}, false},
		{"capacity", CapacityExceeded(2, 2), CodeCapacityExceeded, []string{"(2)"}, false},
		{"rate limit", RateLimitExceeded(3, 1000, 250), CodeRateLimitExceeded, []string{"3 requests", "1000ms"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			for _, s := range tt.contains {
				assert.Contains(t, tt.err.Message, s)
			}
		})
	}
}
