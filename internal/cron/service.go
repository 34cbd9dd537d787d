package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
)

const (
	defaultInterval   = 15 * time.Second
	defaultJobTimeout = 45 * time.Second
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout bounds a single job run. Keep it below the lock TTL.
	JobTimeout time.Duration
}

// Service runs the registered jobs once per tick while holding the worker
// lock. The lock is extended between jobs; if it is lost the rest of the tick
// is abandoned to the new holder.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	s := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
		now:        time.Now,
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	if s.jobTimeout <= 0 {
		s.jobTimeout = defaultJobTimeout
	}
	return s, nil
}

// Run ticks immediately and then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type tickReport struct {
	ran, failed int
	lockLost    bool
}

func (s *Service) tick(ctx context.Context) tickReport {
	var report tickReport
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "acquire cron lock", err)
		return report
	}
	if !held {
		s.logg.Debug(ctx, "cron lock held by another worker")
		return report
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release cron lock", err)
		}
	}()

	for i, job := range s.registry.Jobs() {
		if i > 0 && !s.keepLock(ctx) {
			report.lockLost = true
			break
		}
		if due, ok := job.(dueJob); ok && !due.Due(s.now()) {
			continue
		}
		report.ran++
		if err := s.runJob(ctx, job); err != nil {
			report.failed++
		}
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    report.ran,
		"jobs_failed": report.failed,
	}), "cron tick done")
	return report
}

func (s *Service) keepLock(ctx context.Context) bool {
	ok, err := s.lock.Extend(ctx)
	if err != nil {
		s.logg.Error(ctx, "extend cron lock", err)
		return false
	}
	if !ok {
		s.logg.Warn(ctx, "cron lock lost mid-tick")
	}
	return ok
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	runCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(runCtx)
	took := time.Since(start)
	s.metrics.ObserveDuration(name, took)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "job failed", err)
		return err
	}
	s.metrics.IncSuccess(name)
	s.logg.Debug(jobCtx, "job completed")
	return nil
}
