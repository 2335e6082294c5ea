package health

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler periodically reconciles imported workouts and prunes old vitals.
type Scheduler struct {
	service   *Service
	logger    *slog.Logger
	schedule  cron.Schedule
	retention time.Duration
}

// NewScheduler parses spec, a standard cron expression or descriptor such as "@hourly".
func NewScheduler(service *Service, logger *slog.Logger, spec string, retention time.Duration) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Scheduler{
		service:   service,
		logger:    logger,
		schedule:  schedule,
		retention: retention,
	}, nil
}

// Run executes the job on schedule until ctx is done and waits for a running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "scheduled health job failed", slog.Any("error", err))
		}
	}))
	c.Start()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "started health scheduler")

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "stopped health scheduler")
	return nil
}

// RunOnce reconciles every profile and prunes vitals older than the retention.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	if err := s.service.ReconcileAll(ctx); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if s.retention > 0 {
		if _, err := s.service.PruneVitals(ctx, s.retention); err != nil {
			return err
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "health job done", slog.Duration("duration", time.Since(start)))
	return nil
}
