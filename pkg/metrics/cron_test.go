package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)

	metrics.ObserveDuration("cart-expiry", 250*time.Millisecond)
	metrics.IncSuccess("cart-expiry")
	metrics.IncFailure("cart-expiry")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	success := findJobMetric(t, mfs, "marketcart_cron_job_success_total", "cart-expiry")
	require.Equal(t, float64(1), success.GetCounter().GetValue())

	failure := findJobMetric(t, mfs, "marketcart_cron_job_failure_total", "cart-expiry")
	require.Equal(t, float64(1), failure.GetCounter().GetValue())

	duration := findJobMetric(t, mfs, "marketcart_cron_job_duration_seconds", "cart-expiry")
	require.Greater(t, duration.GetHistogram().GetSampleSum(), 0.0)
}

func TestCronJobMetricsNormalizesEmptyJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)

	metrics.IncSuccess("")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	metric := findJobMetric(t, mfs, "marketcart_cron_job_success_total", "unknown")
	require.Equal(t, float64(1), metric.GetCounter().GetValue())
}

func TestCronJobMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewCronJobMetrics(nil)

	// Must not panic when no collectors are registered.
	metrics.ObserveDuration("cart-expiry", time.Second)
	metrics.IncSuccess("cart-expiry")
	metrics.IncFailure("cart-expiry")
}

func findJobMetric(t *testing.T, mfs []*dto.MetricFamily, name, job string) *dto.Metric {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric
				}
			}
		}
	}
	t.Fatalf("metric %q with job=%s not found", name, job)
	return nil
}
