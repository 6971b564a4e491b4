package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Result lifecycle metrics
	ResultsSubmitted   prometheus.Counter
	ResultsApproved    prometheus.Counter
	ResultsRejected    prometheus.Counter
	ResultsAccessed    prometheus.Counter
	TamperDetections   *prometheus.CounterVec
	AccessDenied       prometheus.Counter
	LifecycleLatency   *prometheus.HistogramVec
	ArtifactRenderTime prometheus.Histogram

	// Outbox metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ResultsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_submitted_total",
			Help:      "Total number of lab results submitted",
		}),
		ResultsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_approved_total",
			Help:      "Total number of lab results approved",
		}),
		ResultsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_rejected_total",
			Help:      "Total number of lab results rejected or sent back for revision",
		}),
		ResultsAccessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_accessed_total",
			Help:      "Total number of successful patient result retrievals",
		}),
		TamperDetections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tamper_detections_total",
			Help:      "Digest mismatches detected, by stage (approval, access)",
		}, []string{"stage"}),
		AccessDenied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "result_access_denied_total",
			Help:      "Patient result retrievals denied (expired, wrong code, not owner)",
		}),
		LifecycleLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "result_operation_duration_seconds",
			Help:      "Duration of result lifecycle operations",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),
		ArtifactRenderTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "artifact_render_duration_seconds",
			Help:      "Time spent rendering approved result artifacts",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		OutboxEventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbox_processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		OutboxRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
