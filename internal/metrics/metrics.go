// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aignite_predictions_total",
		Help: "Total number of predictions by resulting risk label.",
	}, []string{"label"})
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aignite_validation_failures_total",
		Help: "Total number of records rejected by the validator.",
	})
	EmptySelections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aignite_empty_selections_total",
		Help: "Total number of records rejected for having no material selected.",
	})
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aignite_store_operations_total",
		Help: "Total number of prediction store operations by op and result.",
	}, []string{"op", "result"})
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aignite_events_published_total",
		Help: "Total number of assessment events published, by result.",
	}, []string{"result"})
	PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aignite_prediction_duration_seconds",
		Help:    "Duration of a single prediction including material fan-out.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
)

// StoreResult records one store operation outcome.
func StoreResult(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOps.WithLabelValues(op, result).Inc()
}
