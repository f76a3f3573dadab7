package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the booking flow.
type BookingMetrics struct {
	commitsTotal      *prometheus.CounterVec
	redirectsTotal    *prometheus.CounterVec
	emptyAvailability prometheus.Counter
	mirrorFailures    prometheus.Counter
	commitLatency     prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		commitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "booking",
			Name:      "commits_total",
			Help:      "Booking commits by outcome",
		}, []string{"outcome"}),
		redirectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "wizard",
			Name:      "redirects_total",
			Help:      "Wizard steps entered out of order and redirected",
		}, []string{"requested", "resolved"}),
		emptyAvailability: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "availability",
			Name:      "empty_total",
			Help:      "Availability expansions that produced no dates",
		}),
		mirrorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "appointments",
			Subsystem: "calendar",
			Name:      "mirror_failures_total",
			Help:      "External calendar mirror writes that failed",
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "appointments",
			Subsystem: "booking",
			Name:      "commit_latency_seconds",
			Help:      "Latency of the appointment write transaction",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.commitsTotal, m.redirectsTotal, m.emptyAvailability, m.mirrorFailures, m.commitLatency)
	return m
}

func (m *BookingMetrics) ObserveCommit(outcome string) {
	if m == nil {
		return
	}
	m.commitsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveRedirect(requested, resolved string) {
	if m == nil {
		return
	}
	m.redirectsTotal.WithLabelValues(requested, resolved).Inc()
}

func (m *BookingMetrics) ObserveEmptyAvailability() {
	if m == nil {
		return
	}
	m.emptyAvailability.Inc()
}

func (m *BookingMetrics) ObserveMirrorFailure() {
	if m == nil {
		return
	}
	m.mirrorFailures.Inc()
}

func (m *BookingMetrics) ObserveCommitLatency(seconds float64) {
	if m == nil {
		return
	}
	m.commitLatency.Observe(seconds)
}
