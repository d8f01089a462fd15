package core

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation outcomes as Prometheus series
// for deployments scraped by an external collector. Durations land in a
// histogram and outcomes in a counter, both labelled by operation and status.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
}

var _ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)

// NewPrometheusMetricsRecorder constructs a recorder and registers its
// collectors. A nil registerer falls back to the process default registry.
// Collectors already present in the registry are reused, so multiple
// recorders may share one registry.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flowdeck",
		Subsystem: "service",
		Name:      "operation_duration_seconds",
		Help:      "Duration of configuration service operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowdeck",
		Subsystem: "service",
		Name:      "operations_total",
		Help:      "Completed configuration service operations by result.",
	}, []string{"operation", "status"})

	if err := reg.Register(durations); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
			durations = existing
		}
	}
	if err := reg.Register(results); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			results = existing
		}
	}
	return &PrometheusMetricsRecorder{durations: durations, results: results}, nil
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation, status).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}
