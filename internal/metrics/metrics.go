// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "complyx"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	AccessDecisions  *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	SuggestFallbacks *prometheus.CounterVec
	ExpiredDocuments prometheus.Counter
	RateLimited      prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AccessDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "decisions_total",
			Help:      "Access decisions by capability, outcome and reason.",
		}, []string{"capability", "allowed", "reason"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Status transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		SuggestFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suggest",
			Name:      "fallbacks_total",
			Help:      "Suggestions answered by the heuristic provider after the primary failed.",
		}, []string{"kind"}),
		ExpiredDocuments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "expired_documents_total",
			Help:      "Documents moved to expired by the sweeper.",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// ObserveHTTP records one request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveDecision records one access decision.
func (m *Metrics) ObserveDecision(capability string, allowed bool, reason string) {
	if m == nil {
		return
	}
	m.AccessDecisions.WithLabelValues(capability, strconv.FormatBool(allowed), reason).Inc()
}

// ObserveTransition records one transition attempt.
func (m *Metrics) ObserveTransition(action string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.Transitions.WithLabelValues(action, outcome).Inc()
}

// ObserveFallback records a heuristic fallback.
func (m *Metrics) ObserveFallback(kind string) {
	if m == nil {
		return
	}
	m.SuggestFallbacks.WithLabelValues(kind).Inc()
}

// ObserveExpired adds n sweeper expirations.
func (m *Metrics) ObserveExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredDocuments.Add(float64(n))
}

// ObserveRateLimited records a throttled request.
func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}
