// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_predict_requests_total",
			Help: "Total number of scoring requests by decision",
		},
		[]string{"decision"},
	)

	DefaultPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_default_predictions_total",
			Help: "Total number of default-classifier predictions by risk level",
		},
		[]string{"risk_level"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "credit_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	DriftLogFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_drift_log_failures_total",
			Help: "Total number of failed drift-log writes",
		},
		[]string{"sink"},
	)

	BatchRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_batch_records_total",
			Help: "Total number of batch records by outcome",
		},
		[]string{"outcome"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of jobs currently being processed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
