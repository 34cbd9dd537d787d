package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
	runs int
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { s.runs++; return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry(nil)
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	registry.Register(nil)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestEveryThrottlesRuns(t *testing.T) {
	inner := &stubJob{name: "retention"}
	job := Every(inner, time.Hour)
	if job.Name() != "retention" {
		t.Fatalf("expected wrapped name, got %q", job.Name())
	}
	due, ok := job.(dueJob)
	if !ok {
		t.Fatal("expected throttled job to report due")
	}

	now := time.Now()
	if !due.Due(now) {
		t.Fatal("first run should be due")
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if due.Due(time.Now().Add(30 * time.Minute)) {
		t.Fatal("should not be due within interval")
	}
	if !due.Due(time.Now().Add(61 * time.Minute)) {
		t.Fatal("should be due after interval")
	}
	if inner.runs != 1 {
		t.Fatalf("expected one run, got %d", inner.runs)
	}
}

func TestEveryWithoutIntervalReturnsJob(t *testing.T) {
	inner := &stubJob{name: "x"}
	if Every(inner, 0) != Job(inner) {
		t.Fatal("expected job returned unchanged")
	}
}
