package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/entrhq/browserkit/pkg/logging"
)

// MaxConsecutiveFailures is the number of failed sweeps in a row after which
// the scheduler disables itself.
const MaxConsecutiveFailures = 5

// SchedulerState is the lifecycle state of a CleanupScheduler.
type SchedulerState int

const (
	// StateIdle means the scheduler has not been started or was stopped
	StateIdle SchedulerState = iota
	// StateScheduled means a timer is armed for the next sweep
	StateScheduled
	// StateRunning means a sweep is in flight
	StateRunning
	// StateDisabled means sweeps stopped after repeated failures
	StateDisabled
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// CleanupScheduler periodically reclaims idle sessions. Sweeps never
// overlap: the timer is re-armed only after a sweep returns, so an overrun
// delays the next sweep instead of queueing one.
type CleanupScheduler struct {
	manager   *SessionManager
	interval  time.Duration
	maxAge    time.Duration
	onCleanup CleanupFunc
	logger    *logging.Logger

	mu        sync.Mutex
	state     SchedulerState
	failures  int
	timer     *time.Timer
	gen       int
	ctx       context.Context
	cancel    context.CancelFunc
	sweepDone chan struct{}
}

// NewCleanupScheduler creates a scheduler sweeping manager every interval for
// sessions idle longer than maxAge. Zero values fall back to the manager's
// configuration.
func NewCleanupScheduler(manager *SessionManager, interval, maxAge time.Duration, onCleanup CleanupFunc, logger *logging.Logger) *CleanupScheduler {
	if interval <= 0 {
		interval = manager.Config().CleanupInterval
	}
	if maxAge <= 0 {
		maxAge = manager.Config().IdleTimeout
	}
	return &CleanupScheduler{
		manager:   manager,
		interval:  interval,
		maxAge:    maxAge,
		onCleanup: onCleanup,
		logger:    logger,
	}
}

// Start arms the timer. It does nothing unless the scheduler is Idle.
func (s *CleanupScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.state = StateScheduled
	s.armLocked()
	s.logger.Infof("cleanup scheduled every %s (idle timeout %s)", s.interval, s.maxAge)
}

// armLocked schedules the next tick. Caller holds s.mu.
func (s *CleanupScheduler) armLocked() {
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() { s.tick(gen) })
}

// Stop cancels the timer and waits for an in-flight sweep to return.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.stopTimerLocked()
	if s.state == StateScheduled {
		s.state = StateIdle
	}
	done := s.sweepDone
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *CleanupScheduler) stopTimerLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// State returns the current state.
func (s *CleanupScheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failures returns the number of consecutive failed sweeps.
func (s *CleanupScheduler) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// ResetFailures clears the failure counter. A disabled scheduler returns to
// Idle and can be started again.
func (s *CleanupScheduler) ResetFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
	if s.state == StateDisabled {
		s.state = StateIdle
		s.logger.Infof("cleanup failure counter reset, scheduler re-enabled")
	}
}

// RunOnce runs one sweep immediately and records its outcome. It returns
// without sweeping while another sweep is running or the scheduler is
// disabled.
func (s *CleanupScheduler) RunOnce(ctx context.Context) (CleanupResult, error) {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StateDisabled {
		s.mu.Unlock()
		return CleanupResult{}, nil
	}
	s.beginLocked()
	s.mu.Unlock()

	result, err := s.manager.CleanupExpiredSessions(ctx, s.maxAge, s.onCleanup)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(ctx, err)
	return result, err
}

func (s *CleanupScheduler) tick(gen int) {
	s.mu.Lock()
	if gen != s.gen || s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	switch s.state {
	case StateRunning:
		// A manual sweep is in flight; try again next period.
		s.armLocked()
		s.mu.Unlock()
		return
	case StateScheduled:
	default:
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.beginLocked()
	s.mu.Unlock()

	_, err := s.manager.CleanupExpiredSessions(ctx, s.maxAge, s.onCleanup)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(ctx, err)
	if s.state == StateScheduled {
		s.armLocked()
	}
}

// beginLocked marks a sweep as running. Caller holds s.mu.
func (s *CleanupScheduler) beginLocked() {
	s.state = StateRunning
	s.sweepDone = make(chan struct{})
}

// endLocked records a sweep outcome and leaves the scheduler Scheduled if it
// is still started, Idle if it was never started or was stopped meanwhile,
// or Disabled. A sweep interrupted because ctx was canceled is not a failure.
// Caller holds s.mu.
func (s *CleanupScheduler) endLocked(ctx context.Context, err error) {
	close(s.sweepDone)
	s.sweepDone = nil

	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled):
		s.logger.Debugf("cleanup sweep interrupted: %v", err)
	case err == nil:
		s.failures = 0
		s.manager.recorder().recordSweep(sweepOK)
	default:
		s.failures++
		s.logger.Warnf("cleanup sweep failed (%d/%d consecutive): %v", s.failures, MaxConsecutiveFailures, err)
		if s.failures >= MaxConsecutiveFailures {
			s.manager.recorder().recordSweep(sweepDisabled)
			s.state = StateDisabled
			s.stopTimerLocked()
			s.logger.Errorf("cleanup disabled after %d consecutive failures; reset required", s.failures)
			return
		}
		s.manager.recorder().recordSweep(sweepFailed)
	}

	if s.cancel == nil {
		s.state = StateIdle
		return
	}
	s.state = StateScheduled
}
