package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyx/complyx/internal/metrics"
)

type countingExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (c *countingExpirer) ExpireDue(context.Context) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestRunNowRecordsMetric(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	e := &countingExpirer{n: 3}
	s := New(e, time.Hour, m, nil)

	n, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ExpiredDocuments))
}

func TestRunNowPropagatesError(t *testing.T) {
	e := &countingExpirer{err: errors.New("store down")}
	s := New(e, time.Hour, nil, nil)

	_, err := s.RunNow(context.Background())
	assert.EqualError(t, err, "store down")
}

func TestStartStop(t *testing.T) {
	e := &countingExpirer{}
	s := New(e, 10*time.Millisecond, nil, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrRunning)

	assert.Eventually(t, func() bool { return e.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := e.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, e.calls.Load())

	// Restart after stop.
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}

func TestStopsOnContextCancel(t *testing.T) {
	e := &countingExpirer{}
	s := New(e, time.Hour, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	assert.Eventually(t, func() bool { return e.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Stop()
}
