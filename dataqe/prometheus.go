// Copyright 2025 DataQE Suite Authors
// SPDX-License-Identifier: Apache-2.0

package dataqe

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStageRecorder exports stage timings as Prometheus histograms.
// Plug it into ServiceConfig.StageMetrics and register it on a registry.
type PrometheusStageRecorder struct {
	durations *prometheus.HistogramVec
	rows      *prometheus.HistogramVec
	errors    *prometheus.CounterVec
}

// NewPrometheusStageRecorder builds the recorder and registers its
// collectors on reg.
func NewPrometheusStageRecorder(reg prometheus.Registerer) (*PrometheusStageRecorder, error) {
	r := &PrometheusStageRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dataqe",
			Name:      "stage_duration_seconds",
			Help:      "Duration of execution stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"op", "stage"}),
		rows: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dataqe",
			Name:      "stage_rows",
			Help:      "Row counts observed per execution stage.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"op", "stage"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dataqe",
			Name:      "stage_errors_total",
			Help:      "Errors observed per execution stage.",
		}, []string{"op", "stage"}),
	}
	for _, c := range []prometheus.Collector{r.durations, r.rows, r.errors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveStage implements StageMetricsRecorder.
func (r *PrometheusStageRecorder) ObserveStage(_ context.Context, timing StageTiming) {
	labels := prometheus.Labels{"op": timing.Operation, "stage": timing.Stage}
	r.durations.With(labels).Observe(timing.Duration.Seconds())
	if timing.Count > 0 {
		r.rows.With(labels).Observe(float64(timing.Count))
	}
	if timing.Error {
		r.errors.With(labels).Inc()
	}
}
