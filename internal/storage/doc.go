// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package storage abstracts where backup artifacts live.

Every backend implements the Backend contract (Put, Get, Exists, Delete,
TemporaryURL) and is resolved by name through a Registry:

	local    filesystem disk rooted at storage.local.root
	private  filesystem disk rooted at storage.private.root
	s3       S3-compatible object store (AWS, MinIO, Ceph RGW)

Artifact paths are slash-separated keys relative to the backend root such as
"backups/backup_database_2026-01-02_03-04-05/grc.sql.gz.enc". Keys that are
absolute or escape the root with ".." are rejected with ErrInvalidPath.

# Decorators

Backends are composed from small wrappers applied by NewRegistry:

	Instrument(Throttle(Breaker(s3), limit))

  - Breaker trips after consecutive failures and fails fast with
    ErrCircuitOpen until the timeout elapses (sony/gobreaker).
  - Throttle caps transfer rate in bytes per second (x/time/rate).
  - Instrument records Prometheus latency and error metrics.

Local writes go through natefinch/atomic so an artifact is either fully
present or absent.
*/
package storage
