package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/api/v1/documents", 200, 15*time.Millisecond)
	m.ObserveDecision("read", false, "no_matching_rule")
	m.ObserveTransition("approve", nil)
	m.ObserveTransition("publish", errors.New("nope"))
	m.ObserveExpired(3)
	m.ObserveFallback("recommend")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/documents", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDecisions.WithLabelValues("read", "false", "no_matching_rule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("publish", "rejected")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ExpiredDocuments))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SuggestFallbacks.WithLabelValues("recommend")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	m.ObserveDecision("read", true, "admin")
	m.ObserveExpired(1)
	m.ObserveRateLimited()
}
