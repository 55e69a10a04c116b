// Package scheduler runs reconciliation on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"storewatch/internal/reconcile"
)

// Reconciler performs one reconciliation run.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

// Scheduler periodically triggers a reconciliation run.
type Scheduler struct {
	reconciler Reconciler
	log        *slog.Logger
	tick       time.Duration
}

// New creates a Scheduler that runs r every interval. A non-positive interval
// falls back to one hour.
func New(r Reconciler, interval time.Duration, log *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		reconciler: r,
		log:        log,
		tick:       interval,
	}
}

// SetTickInterval overrides the run interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run performs a run immediately and then once per tick, blocking until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", "interval", s.tick)
	s.runOnce(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	err := s.reconciler.Reconcile(ctx)
	switch {
	case err == nil:
	case errors.Is(err, reconcile.ErrRunInProgress):
		s.log.Info("skipping scheduled run, another run is in progress")
	case errors.Is(err, context.Canceled):
		s.log.Info("scheduled run cancelled")
	default:
		s.log.Error("scheduled run", "error", err)
	}
}
