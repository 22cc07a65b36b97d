package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("testns", reg)

	m.ReloadFinished("success", 10*time.Millisecond)
	m.ReloadFinished("failure", 5*time.Millisecond)
	m.ValidationFinished("us-visa", true, 100, time.Millisecond)
	m.ValidationFinished("us-visa", false, 62.5, time.Millisecond)
	m.DetectionFinished(3)

	if got := testutil.ToFloat64(m.Reloads.WithLabelValues("success")); got != 1 {
		t.Fatalf("success reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Reloads.WithLabelValues("failure")); got != 1 {
		t.Fatalf("failure reloads = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Validations.WithLabelValues("us-visa", "pass")); got != 1 {
		t.Fatalf("pass validations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Validations.WithLabelValues("us-visa", "fail")); got != 1 {
		t.Fatalf("fail validations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Detections); got != 1 {
		t.Fatalf("detections = %v, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ReloadFinished("success", time.Millisecond)
	m.ValidationFinished("x", true, 1, time.Millisecond)
	m.DetectionFinished(0)
}
