// Package cron runs periodic maintenance jobs (outbox retention, listing
// expiry) from a single replica at a time.
package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locker   Locker
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

type Service struct {
	logg     *logger.Logger
	jobs     *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("cron: logger required")
	case p.Locker == nil:
		return nil, errors.New("cron: locker required")
	}
	if p.Registry == nil {
		p.Registry = NewRegistry()
	}
	if p.Interval <= 0 {
		p.Interval = defaultInterval
	}
	return &Service{
		logg:     p.Logger,
		jobs:     p.Registry,
		locker:   p.Locker,
		metrics:  p.Metrics,
		interval: p.Interval,
	}, nil
}

// Run starts a cycle right away and then once per interval. It returns the
// context error after cancellation; cycle failures are logged, not returned.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job once when this replica wins the lock. A failing job
// does not stop the ones after it.
func (s *Service) RunOnce(ctx context.Context) error {
	unlock, err := s.locker.TryLock(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if unlock == nil {
		s.logg.Info(ctx, "cron.skipped_locked")
		return nil
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.unlock_failed", err)
		}
	}()

	s.logg.Info(s.logg.WithField(ctx, "jobs", s.jobs.Len()), "cron.cycle_start")
	failed := 0
	s.jobs.each(func(job Job) {
		if !s.runJob(ctx, job) {
			failed++
		}
	})
	s.logg.Info(s.logg.WithField(ctx, "failed_jobs", failed), "cron.cycle_done")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)

	started := time.Now()
	rows, err := job.Run(ctx)
	took := time.Since(started)
	s.metrics.ObserveDuration(name, took)

	ctx = s.logg.WithFields(ctx, map[string]any{"duration_ms": took.Milliseconds(), "rows_affected": rows})
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(ctx, "cron.job_failed", err)
		return false
	}
	s.metrics.AddAffected(name, rows)
	s.metrics.IncSuccess(name)
	s.logg.Info(ctx, "cron.job_done")
	return true
}
