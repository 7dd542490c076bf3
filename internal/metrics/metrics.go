// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the backup engine:
// - Backup job outcomes, durations and artifact sizes
// - Verification and restore outcomes
// - Retention sweeps
// - Storage backend and dump tool latency
// - Circuit breaker state
// - Admin API requests

var (
	// Backup Job Metrics
	BackupJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_backup_jobs_total",
			Help: "Total number of backup jobs by type and final status",
		},
		[]string{"type", "status"}, // status: "completed", "failed", "cancelled"
	)

	BackupJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custodian_backup_job_duration_seconds",
			Help:    "Duration of backup jobs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"type"},
	)

	BackupArtifactBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custodian_backup_artifact_bytes",
			Help:    "Size of stored backup artifacts in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 12), // 1KiB .. 4GiB
		},
		[]string{"type"},
	)

	BackupJobsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "custodian_backup_jobs_running",
			Help: "Current number of backup jobs in the running state",
		},
	)

	BackupLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "custodian_backup_last_success_timestamp",
			Help: "Unix timestamp of the last completed backup",
		},
		[]string{"type"},
	)

	// Verification and Restore Metrics
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_verifications_total",
			Help: "Total number of artifact verifications",
		},
		[]string{"result"}, // result: "valid", "invalid", "error"
	)

	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_restores_total",
			Help: "Total number of restore operations",
		},
		[]string{"result"}, // result: "success", "failure"
	)

	RestoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "custodian_restore_duration_seconds",
			Help:    "Duration of restore operations in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		},
	)

	// Retention Metrics
	CleanupDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custodian_cleanup_deleted_total",
			Help: "Total number of expired backups removed by the sweeper",
		},
	)

	CleanupFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custodian_cleanup_failed_total",
			Help: "Total number of backups the sweeper failed to remove",
		},
	)

	CleanupFreedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "custodian_cleanup_freed_bytes_total",
			Help: "Total bytes of artifacts removed by the sweeper",
		},
	)

	// Storage Backend Metrics
	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custodian_storage_operation_duration_seconds",
			Help:    "Duration of storage backend operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StorageOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_storage_operation_errors_total",
			Help: "Total number of failed storage backend operations",
		},
		[]string{"backend", "operation"},
	)

	// Dump Tool Metrics
	DumpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custodian_dump_duration_seconds",
			Help:    "Duration of database dump and restore operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"engine", "operation"},
	)

	DumpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_dump_errors_total",
			Help: "Total number of failed dump and restore tool invocations",
		},
		[]string{"engine", "operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "custodian_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_events_published_total",
			Help: "Total number of job lifecycle events published",
		},
		[]string{"event", "result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_api_requests_total",
			Help: "Total number of admin API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "custodian_api_request_duration_seconds",
			Help:    "Admin API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Ledger Metrics
	LedgerGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custodian_ledger_gc_runs_total",
			Help: "Total number of ledger value-log garbage collection runs",
		},
		[]string{"result"}, // result: "rewritten", "noop", "error"
	)
)

// RecordJobFinished records the final outcome of a backup job.
func RecordJobFinished(jobType, status string, duration time.Duration, sizeBytes int64) {
	BackupJobsTotal.WithLabelValues(jobType, status).Inc()
	BackupJobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
	if status == "completed" {
		BackupArtifactBytes.WithLabelValues(jobType).Observe(float64(sizeBytes))
		BackupLastSuccess.WithLabelValues(jobType).Set(float64(time.Now().Unix()))
	}
}

// TrackRunningJob tracks jobs in the running state
func TrackRunningJob(inc bool) {
	if inc {
		BackupJobsRunning.Inc()
	} else {
		BackupJobsRunning.Dec()
	}
}

// RecordVerification records a verification outcome.
func RecordVerification(valid bool, err error) {
	switch {
	case err != nil:
		VerificationsTotal.WithLabelValues("error").Inc()
	case valid:
		VerificationsTotal.WithLabelValues("valid").Inc()
	default:
		VerificationsTotal.WithLabelValues("invalid").Inc()
	}
}

// RecordRestore records a restore outcome.
func RecordRestore(duration time.Duration, err error) {
	RestoreDuration.Observe(duration.Seconds())
	if err != nil {
		RestoresTotal.WithLabelValues("failure").Inc()
		return
	}
	RestoresTotal.WithLabelValues("success").Inc()
}

// RecordCleanup records the totals of one retention sweep.
func RecordCleanup(deleted, failed int, freedBytes int64) {
	CleanupDeletedTotal.Add(float64(deleted))
	CleanupFailedTotal.Add(float64(failed))
	CleanupFreedBytes.Add(float64(freedBytes))
}

// RecordStorageOperation records a storage backend call
func RecordStorageOperation(backend, operation string, duration time.Duration, err error) {
	StorageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StorageOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordDump records a dump or restore tool invocation
func RecordDump(engine, operation string, duration time.Duration, err error) {
	DumpDuration.WithLabelValues(engine, operation).Observe(duration.Seconds())
	if err != nil {
		DumpErrors.WithLabelValues(engine, operation).Inc()
	}
}

// RecordBreakerTransition records a circuit breaker state change.
// States follow gobreaker: 0=closed, 1=half-open, 2=open.
func RecordBreakerTransition(name, from, to string, toState int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(toState))
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordEventPublished records a lifecycle event publish attempt.
func RecordEventPublished(event string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(event, result).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
