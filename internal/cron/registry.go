package cron

import (
	"context"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// dueJob is implemented by jobs that run less often than the service tick.
type dueJob interface {
	Due(now time.Time) bool
}

// Registry tracks registered cron jobs.
type Registry struct {
	jobs []Job
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job to the registry.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Every wraps job so it runs at most once per interval. The first tick always runs.
func Every(job Job, interval time.Duration) Job {
	if job == nil || interval <= 0 {
		return job
	}
	return &throttledJob{Job: job, interval: interval}
}

type throttledJob struct {
	Job
	interval time.Duration
	last     time.Time
}

func (t *throttledJob) Due(now time.Time) bool {
	return t.last.IsZero() || now.Sub(t.last) >= t.interval
}

func (t *throttledJob) Run(ctx context.Context) error {
	t.last = time.Now()
	return t.Job.Run(ctx)
}
