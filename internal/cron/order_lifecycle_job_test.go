package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/metrics"
)

type fakeAdvancer struct {
	calls   int
	lastNow time.Time
	limit   int
	applied int
	err     error
}

func (f *fakeAdvancer) AdvanceDue(_ context.Context, now time.Time, limit int) (int, error) {
	f.calls++
	f.lastNow = now
	f.limit = limit
	return f.applied, f.err
}

func newLifecycleJob(t *testing.T, adv *fakeAdvancer, m *metrics.CronJobMetrics) *orderLifecycleJob {
	t.Helper()
	job, err := NewOrderLifecycleJob(OrderLifecycleJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Orders:  adv,
		Metrics: m,
	})
	if err != nil {
		t.Fatalf("NewOrderLifecycleJob: %v", err)
	}
	return job.(*orderLifecycleJob)
}

func TestOrderLifecycleJobAdvancesWithClock(t *testing.T) {
	adv := &fakeAdvancer{applied: 3}
	reg := prometheus.NewRegistry()
	m := metrics.NewCronJobMetrics(reg)
	job := newLifecycleJob(t, adv, m)
	now := time.Date(2026, 10, 17, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if adv.calls != 1 || adv.limit != defaultLifecycleBatch {
		t.Fatalf("unexpected call calls=%d limit=%d", adv.calls, adv.limit)
	}
	if !adv.lastNow.Equal(now) || adv.lastNow.Location() != time.UTC {
		t.Fatalf("expected utc now, got %v", adv.lastNow)
	}
	if got := itemsRecorded(t, reg, "order-lifecycle"); got != 3 {
		t.Fatalf("expected 3 items recorded, got %v", got)
	}
}

func TestOrderLifecycleJobWrapsError(t *testing.T) {
	adv := &fakeAdvancer{applied: 1, err: errors.New("ledger down")}
	job := newLifecycleJob(t, adv, nil)
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewOrderLifecycleJobRequiresOrders(t *testing.T) {
	if _, err := NewOrderLifecycleJob(OrderLifecycleJobParams{Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard})}); err == nil {
		t.Fatal("expected error")
	}
}

func itemsRecorded(t *testing.T, reg *prometheus.Registry, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "qd_cron_job_items_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
