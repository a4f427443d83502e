package browser

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_SessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	manager, _, clock := newTestManager(ManagerConfig{MaxConcurrentSessions: 2})
	manager.SetMetrics(metrics)

	addFakeSession(manager)
	_, browser, _ := addFakeSession(manager)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.sessionsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.sessionsCreated))

	require.Error(t, manager.CheckCapacity())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.admissionRejections.WithLabelValues(reasonCapacity)))

	browser.closeErr = errEngine
	clock.Advance(time.Hour)
	_, err := manager.CleanupExpiredSessions(context.Background(), time.Minute, nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessionsCleaned))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cleanupFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.sessionsActive))
}

func TestMetrics_SweepResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	s, manager := newFailingScheduler(t)
	manager.SetMetrics(metrics)

	for i := 0; i < MaxConsecutiveFailures; i++ {
		_, _ = s.RunOnce(context.Background())
	}

	assert.Equal(t, float64(MaxConsecutiveFailures-1), testutil.ToFloat64(metrics.cleanupSweeps.WithLabelValues(sweepFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cleanupSweeps.WithLabelValues(sweepDisabled)))

	count, err := testutil.GatherAndCount(reg, "browserkit_cleanup_sweeps_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_AttachWhileInUse(t *testing.T) {
	manager, _, clock := newTestManager(ManagerConfig{MaxSessionsPerMinute: 1})
	addFakeSession(manager)
	clock.Advance(time.Hour)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			manager.SetMetrics(NewMetrics(prometheus.NewRegistry()))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = manager.CheckRateLimit()
			_, _ = manager.CleanupExpiredSessions(context.Background(), time.Hour, nil)
		}
	}()
	wg.Wait()

	metrics := NewMetrics(prometheus.NewRegistry())
	manager.SetMetrics(metrics)
	require.Error(t, manager.CheckRateLimit())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.admissionRejections.WithLabelValues(reasonRateLimit)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.setActive(1)
		metrics.recordCreated()
		metrics.recordCleaned()
		metrics.recordCleanupFailure()
		metrics.recordRejection(reasonRateLimit)
		metrics.recordSweep(sweepOK)
	})
}
