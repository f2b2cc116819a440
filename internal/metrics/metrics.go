package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qod_runs_total",
			Help: "Total annotation runs by station model and outcome",
		},
		[]string{"model", "outcome"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qod_run_duration_seconds",
			Help:    "Annotation run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	ReadingsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qod_readings_processed_total",
			Help: "Total raw readings fed into the engine",
		},
		[]string{"model"},
	)

	AnnotationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qod_annotations_emitted_total",
			Help: "Total hourly annotation codes emitted",
		},
		[]string{"model", "code"},
	)
)
