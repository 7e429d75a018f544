// Package worker runs SeatServe's scheduled housekeeping jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on cron specs. Runs of the same job never
// overlap; a run still in progress when the next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
}

// NewScheduler creates a Scheduler evaluating specs in UTC. Each run is
// bounded by timeout when it is positive.
func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger,
		timeout: timeout,
	}
}

// Register schedules job under expr (standard five-field cron or a
// descriptor such as "@hourly").
func (s *Scheduler) Register(expr string, job Job) error {
	if job == nil {
		return errors.New("worker: job is nil")
	}
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.runOnce(job)
	}))
	if _, err := s.cron.AddJob(expr, wrapped); err != nil {
		return fmt.Errorf("worker: schedule %s: %w", job.Name(), err)
	}
	s.logger.Info("job scheduled", "job", job.Name(), "schedule", expr)
	return nil
}

// Jobs reports how many jobs are registered.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for in-flight runs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runOnce(job Job) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", job.Name(), "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	s.logger.Info("job completed", "job", job.Name(), "duration_ms", time.Since(start).Milliseconds())
}
