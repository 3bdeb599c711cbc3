package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// Checker runs one lifecycle check. *Manager satisfies it.
type Checker interface {
	Check(ctx context.Context) (model.RetrainingOutcome, error)
}

// Scheduler runs checks on an interval with at most one in flight. A tick
// that arrives while a check is running is skipped.
type Scheduler struct {
	checker  Checker
	interval time.Duration
	logger   *slog.Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewScheduler creates a Scheduler. A nil logger uses slog.Default().
func NewScheduler(c Checker, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{checker: c, interval: interval, logger: logger}
}

// Run checks once immediately and then on every tick until ctx is cancelled.
// It waits for an in-flight check before returning.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("lifecycle: scheduler interval must be positive, got %v", s.interval)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	s.Trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Trigger(ctx)
		}
	}
}

// Trigger starts a check in the background unless one is already running.
// It reports whether a check was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Warn("lifecycle check still running, skipping tick")
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		if _, err := s.checker.Check(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("scheduled lifecycle check failed", "error", err)
		}
	}()
	return true
}

// Wait blocks until the in-flight check, if any, has finished.
func (s *Scheduler) Wait() { s.wg.Wait() }
