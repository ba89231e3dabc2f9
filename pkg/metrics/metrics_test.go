package metrics

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncCreated("cod")
	m.IncCreated("cod")
	m.IncCheckoutFailure("EMPTY_CART")
	m.IncCheckoutFailure("")
	m.IncCancelled()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "orders_created_total", "payment_method", "cod"); err != nil {
		t.Fatalf("fetch created: %v", err)
	} else if got != 2 {
		t.Fatalf("expected created=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_failures_total", "reason", "unknown"); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected empty reason normalized to unknown, got %f", got)
	}
	mf := findMetricFamily(mfs, "orders_cancelled_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected cancelled=1")
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodGet, "/api/v1/products/{productId}", http.StatusOK, 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "route", "/api/v1/products/{productId}"); err != nil || got != 1 {
		t.Fatalf("expected one request, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "method", http.MethodGet); err != nil || got <= 0 {
		t.Fatalf("expected positive duration sum, got %f err=%v", got, err)
	}
}

func TestCronJobMetricsCountAffectedRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.IncSuccess("listing-expiry")
	m.AddAffected("listing-expiry", 4)
	m.AddAffected("listing-expiry", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_rows_affected_total", "job", "listing-expiry"); err != nil || got != 4 {
		t.Fatalf("expected 4 affected rows, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", "outcome", "success"); err != nil || got != 1 {
		t.Fatalf("expected one success, got %f err=%v", got, err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var orders *OrderMetrics
	orders.IncCreated("cod")
	orders.IncCancelled()
	NewOrderMetrics(nil).IncCheckoutFailure("x")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	NewOutboxMetrics(nil).IncPublished("order.created")
	var cron *CronJobMetrics
	cron.IncSuccess("outbox-retention")
	NewCronJobMetrics(nil).AddAffected("listing-expiry", 3)
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
