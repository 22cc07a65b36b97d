// Package observability exposes Prometheus metrics for the engine's reload,
// validation and detection paths.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's instrument set. A nil *Metrics is a valid
// no-op receiver so call sites never need to guard.
type Metrics struct {
	// Reload outcomes by result and their durations.
	Reloads        *prometheus.CounterVec
	ReloadDuration prometheus.Histogram

	// Validation outcomes by format and verdict.
	Validations        *prometheus.CounterVec
	ComplianceScore    prometheus.Histogram
	ValidationDuration prometheus.Histogram

	// Detection calls and how many candidates cleared the threshold.
	Detections       prometheus.Counter
	DetectionMatches prometheus.Histogram
}

// New registers the engine metrics with reg under the given namespace.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "photocore"
	}
	factory := promauto.With(reg)
	return &Metrics{
		Reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reload attempts by outcome",
		}, []string{"outcome"}),
		ReloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "config_reload_duration_seconds",
			Help:      "Duration of configuration reloads",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Compliance validations by format and verdict",
		}, []string{"format_id", "verdict"}),
		ComplianceScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compliance_score",
			Help:      "Distribution of compliance scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		ValidationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "validation_duration_seconds",
			Help:      "Duration of compliance validations",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		Detections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Format auto-detection calls",
		}),
		DetectionMatches: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_matches",
			Help:      "Candidates above threshold per detection call",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
		}),
	}
}

// ReloadFinished records one reload attempt. Satisfies the reload manager's
// observer contract.
func (m *Metrics) ReloadFinished(outcome string, d time.Duration) {
	if m != nil {
		m.Reloads.WithLabelValues(outcome).Inc()
		m.ReloadDuration.Observe(d.Seconds())
	}
}

// ValidationFinished records one validation outcome.
func (m *Metrics) ValidationFinished(formatID string, pass bool, score float64, d time.Duration) {
	if m != nil {
		verdict := "fail"
		if pass {
			verdict = "pass"
		}
		m.Validations.WithLabelValues(formatID, verdict).Inc()
		m.ComplianceScore.Observe(score)
		m.ValidationDuration.Observe(d.Seconds())
	}
}

// DetectionFinished records one detection call and its match count.
func (m *Metrics) DetectionFinished(matches int) {
	if m != nil {
		m.Detections.Inc()
		m.DetectionMatches.Observe(float64(matches))
	}
}
