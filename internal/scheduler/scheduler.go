// Package scheduler runs the periodic document expiry sweep.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/complyx/complyx/internal/metrics"
)

// DefaultInterval is how often the sweep runs when none is configured.
const DefaultInterval = 5 * time.Minute

// ErrRunning is returned by Start when the scheduler is already running.
var ErrRunning = errors.New("scheduler is already running")

// Expirer moves lapsed documents to expired and reports how many moved.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// Scheduler calls an Expirer on a fixed interval.
type Scheduler struct {
	expirer  Expirer
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a stopped scheduler.
func New(e Expirer, interval time.Duration, m *metrics.Metrics, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		expirer:  e,
		interval: interval,
		metrics:  m,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. The first sweep runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}
	s.running = true
	s.done = make(chan struct{})

	s.logger.Info("expiry scheduler starting", zap.Duration("interval", s.interval))
	s.wg.Add(1)
	go s.loop(ctx, s.done)
	return nil
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.done)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("expiry scheduler stopped")
}

// RunNow performs one sweep synchronously.
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	n, err := s.expirer.ExpireDue(ctx)
	if n > 0 {
		s.metrics.ObserveExpired(n)
	}
	return n, err
}

func (s *Scheduler) loop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	start := time.Now()
	n, err := s.RunNow(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Int("expired", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expiry sweep completed", zap.Int("expired", n), zap.Duration("took", time.Since(start)))
		return
	}
	s.logger.Debug("expiry sweep completed, nothing due")
}
