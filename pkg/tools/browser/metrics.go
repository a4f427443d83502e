package browser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Admission rejection reasons.
const (
	reasonRateLimit = "rate_limit"
	reasonCapacity  = "capacity"
)

// Sweep results.
const (
	sweepOK       = "ok"
	sweepFailed   = "failed"
	sweepDisabled = "disabled"
)

// Metrics exports session lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	sessionsActive      prometheus.Gauge
	sessionsCreated     prometheus.Counter
	sessionsCleaned     prometheus.Counter
	cleanupFailures     prometheus.Counter
	admissionRejections *prometheus.CounterVec
	cleanupSweeps       *prometheus.CounterVec
}

// NewMetrics registers the browserkit collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "browserkit",
			Name:      "sessions_active",
			Help:      "Number of live browser sessions.",
		}),
		sessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "browserkit",
			Name:      "sessions_created_total",
			Help:      "Browser sessions created.",
		}),
		sessionsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "browserkit",
			Name:      "sessions_cleaned_total",
			Help:      "Idle browser sessions reclaimed by the cleanup sweep.",
		}),
		cleanupFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "browserkit",
			Name:      "session_cleanup_failures_total",
			Help:      "Sessions whose cleanup failed and were left registered.",
		}),
		admissionRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "browserkit",
			Name:      "admission_rejections_total",
			Help:      "Session launches rejected before launching, by reason.",
		}, []string{"reason"}),
		cleanupSweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "browserkit",
			Name:      "cleanup_sweeps_total",
			Help:      "Cleanup sweeps run by the scheduler, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) setActive(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

func (m *Metrics) recordCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) recordCleaned() {
	if m == nil {
		return
	}
	m.sessionsCleaned.Inc()
}

func (m *Metrics) recordCleanupFailure() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

func (m *Metrics) recordRejection(reason string) {
	if m == nil {
		return
	}
	m.admissionRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordSweep(result string) {
	if m == nil {
		return
	}
	m.cleanupSweeps.WithLabelValues(result).Inc()
}
