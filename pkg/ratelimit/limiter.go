// Package ratelimit provides sliding-window admission control.
//
// A Limiter keeps an ascending log of admitted-request timestamps. Expired
// entries are pruned with a binary search, and the log is additionally capped
// at MaxTracked entries so memory stays bounded no matter how the window or
// request rate is configured.
package ratelimit

import (
	"sort"
	"sync"
	"time"

	"github.com/entrhq/browserkit/pkg/errors"
)

// Default values
const (
	DefaultMaxRequests = 10
	DefaultWindow      = time.Minute
	minMaxTracked      = 100
)

// Config configures a Limiter.
type Config struct {
	// MaxRequests is the number of admissions allowed per window
	MaxRequests int

	// Window is the trailing time window
	Window time.Duration

	// MaxTracked caps the timestamp log. Zero means max(2*MaxRequests, 100).
	MaxTracked int
}

// Status is a read-only view of the limiter at one instant.
type Status struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	ResetMs   int64         `json:"reset_ms"`
	Limit     int           `json:"limit"`
	Window    time.Duration `json:"window"`
}

// Limiter is a sliding-window rate limiter. It is safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	timestamps  []time.Time
	maxRequests int
	window      time.Duration
	maxTracked  int
	now         func() time.Time
}

// New creates a limiter. Non-positive values fall back to defaults.
func New(cfg Config) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = max(cfg.MaxRequests*2, minMaxTracked)
	}
	if cfg.MaxTracked < cfg.MaxRequests {
		cfg.MaxTracked = cfg.MaxRequests
	}

	return &Limiter{
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
		maxTracked:  cfg.MaxTracked,
		now:         time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// CheckLimit admits one request or fails with RATE_LIMIT_EXCEEDED. A full
// window (exactly MaxRequests live timestamps) denies the request.
func (l *Limiter) CheckLimit() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.prune(now)

	if len(l.timestamps) >= l.maxRequests {
		return errors.RateLimitExceeded(l.maxRequests, l.window.Milliseconds(), l.resetMs(now))
	}

	l.timestamps = append(l.timestamps, now)
	l.enforceCap()
	return nil
}

// Status reports whether a request would be admitted now, without consuming a slot.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	l.prune(now)

	remaining := l.maxRequests - len(l.timestamps)
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:   remaining > 0,
		Remaining: remaining,
		ResetMs:   l.resetMs(now),
		Limit:     l.maxRequests,
		Window:    l.window,
	}
}

// Reset clears all tracked timestamps.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timestamps = nil
}

// Tracked returns the number of timestamps currently held.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timestamps)
}

// clock reads the time source and clamps readings that go backwards to the
// newest tracked timestamp, keeping the log sorted for the binary search.
func (l *Limiter) clock() time.Time {
	now := l.now()
	if n := len(l.timestamps); n > 0 && now.Before(l.timestamps[n-1]) {
		return l.timestamps[n-1]
	}
	return now
}

// prune drops every timestamp at or before now-window in one slice operation.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := sort.Search(len(l.timestamps), func(i int) bool {
		return l.timestamps[i].After(cutoff)
	})
	if idx > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[idx:]...)
	}
	l.enforceCap()
}

func (l *Limiter) enforceCap() {
	if excess := len(l.timestamps) - l.maxTracked; excess > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[excess:]...)
	}
}

// resetMs is the time until the oldest tracked timestamp leaves the window.
func (l *Limiter) resetMs(now time.Time) int64 {
	if len(l.timestamps) == 0 {
		return 0
	}
	reset := l.timestamps[0].Add(l.window).Sub(now).Milliseconds()
	if reset < 0 {
		return 0
	}
	return reset
}
