// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package metrics provides Prometheus metrics for the backup engine.

All collectors are registered with the default registry through promauto
and exposed by the admin server at /metrics:

	curl http://127.0.0.1:8686/metrics

# Available Metrics

Backup jobs:
  - custodian_backup_jobs_total{type,status}
  - custodian_backup_job_duration_seconds{type}
  - custodian_backup_artifact_bytes{type}
  - custodian_backup_jobs_running
  - custodian_backup_last_success_timestamp{type}

Verification, restore and retention:
  - custodian_verifications_total{result}
  - custodian_restores_total{result}
  - custodian_restore_duration_seconds
  - custodian_cleanup_deleted_total, custodian_cleanup_failed_total
  - custodian_cleanup_freed_bytes_total

Backends and tools:
  - custodian_storage_operation_duration_seconds{backend,operation}
  - custodian_storage_operation_errors_total{backend,operation}
  - custodian_dump_duration_seconds{engine,operation}
  - custodian_dump_errors_total{engine,operation}
  - custodian_circuit_breaker_state{name}

# Usage

Callers use the Record helpers rather than touching collectors directly:

	start := time.Now()
	err := backend.Put(ctx, path, r, size)
	metrics.RecordStorageOperation("s3", "put", time.Since(start), err)
*/
package metrics
