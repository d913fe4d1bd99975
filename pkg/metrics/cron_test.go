package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCronJobMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.IncSuccess("driver-payouts")
	m.IncSuccess("driver-payouts")
	m.IncFailure("driver-payouts")
	m.ObserveDuration("driver-payouts", 150*time.Millisecond)

	if got := testutil.ToFloat64(m.success.WithLabelValues("driver-payouts")); got != 2 {
		t.Fatalf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.failure.WithLabelValues("driver-payouts")); got != 1 {
		t.Fatalf("failure count = %v, want 1", got)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.IncSuccess("noop")
	m.IncFailure("noop")
	m.ObserveDuration("noop", time.Second)

	empty := NewCronJobMetrics(nil)
	empty.IncSuccess("")
	empty.ObserveDuration("", time.Second)
}
