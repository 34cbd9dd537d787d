package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "test-job"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddItems(job, 3)
	metrics.AddItems(job, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "qd_cron_job_success_total", "job", job); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "qd_cron_job_failure_total", "job", job); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "qd_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "qd_cron_job_items_total", "job", job); err != nil {
		t.Fatalf("fetch items: %v", err)
	} else if got != 3 {
		t.Fatalf("expected items=3, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	var cron *CronJobMetrics
	cron.IncSuccess("x")
	NewCronJobMetrics(nil).AddItems("x", 2)
	NewPaymentMetrics(nil).IncOutcome("SUCCEEDED")
}

func TestPaymentMetricsCountByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)
	m.IncInitiated("UPI")
	m.IncStatusCheck("PENDING")
	m.IncStatusCheck("PENDING")
	m.IncStatusCheck("")
	m.IncOutcome("SUCCEEDED")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "qd_payments_status_checks_total", "status", "PENDING"); err != nil || got != 2 {
		t.Fatalf("expected 2 pending checks, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "qd_payments_status_checks_total", "status", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected 1 unlabelled check, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "qd_payments_initiated_total", "method", "UPI"); err != nil || got != 1 {
		t.Fatalf("expected 1 initiation, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "qd_payments_outcomes_total", "status", "SUCCEEDED"); err != nil || got != 1 {
		t.Fatalf("expected 1 outcome, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestOutboxMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.Observe("order.placed", "published")
	m.Observe("order.placed", "published")
	m.Observe("order.placed", "retry")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "qd_outbox_deliveries_total" {
			continue
		}
		var published float64
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["event_type"] == "order.placed" && labels["outcome"] == "published" {
				published = metric.GetCounter().GetValue()
			}
		}
		if published != 2 {
			t.Fatalf("expected 2 published, got %f", published)
		}
		return
	}
	t.Fatal("outbox deliveries metric not exported")
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.Observe("order.placed", "published")
	NewOutboxMetrics(nil).Observe("order.placed", "retry")
}
