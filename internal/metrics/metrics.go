package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes
const (
	OutcomeOK       = "ok"
	OutcomeUpstream = "upstream_error"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Turn metrics
	TurnsTotal      *prometheus.CounterVec
	UpstreamLatency prometheus.Histogram
	MoodScore       prometheus.Histogram

	// Session metrics
	SessionsActive  prometheus.Gauge
	SessionsTotal   prometheus.Counter
	SessionsExpired prometheus.Counter
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "companion_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"outcome"},
		),
		UpstreamLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "companion_upstream_duration_seconds",
				Help:    "Duration of completion calls in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		MoodScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "companion_mood_score",
				Help:    "Classified mood score of user messages",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),

		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "companion_sessions_active",
				Help: "Number of live sessions",
			},
		),
		SessionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "companion_sessions_total",
				Help: "Total number of sessions created",
			},
		),
		SessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "companion_sessions_expired_total",
				Help: "Total number of sessions dropped by idle expiry",
			},
		),
	}

	m.registry.MustRegister(
		m.TurnsTotal,
		m.UpstreamLatency,
		m.MoodScore,
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionsExpired,
		collectors.NewGoCollector(),
	)

	return m
}

// Turn records the outcome of one chat turn
func (m *Metrics) Turn(outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

// Upstream records how long a completion call took
func (m *Metrics) Upstream(d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamLatency.Observe(d.Seconds())
}

// Mood records the classified score of a user message
func (m *Metrics) Mood(score int) {
	if m == nil {
		return
	}
	m.MoodScore.Observe(float64(score))
}

// SessionCreated counts a new session
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsTotal.Inc()
}

// SessionsExpiredAdd counts sessions removed by idle expiry
func (m *Metrics) SessionsExpiredAdd(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpired.Add(float64(n))
}

// SetActive reports the number of live sessions
func (m *Metrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
