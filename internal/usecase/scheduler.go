package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"NewsIngest/internal/ports"
)

// Scheduler wires the interval driver with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger

	// one run at a time; a tick that finds a run in flight is skipped
	busy sync.Mutex
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) { s.tick(ctx, trigger) })
}

func (s *Scheduler) tick(ctx context.Context, trigger time.Time) {
	if !s.busy.TryLock() {
		s.logger.Warn("previous run still in progress, skipping tick", "trigger", trigger)
		return
	}
	defer s.busy.Unlock()

	report, err := s.pipeline.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled run failed", "run_id", report.Summary.RunID, "error", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
