// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package events publishes backup job lifecycle events through Watermill.

Every ledger status change produces one JobEvent named after the new status
(backup.job.pending, backup.job.running, backup.job.completed,
backup.job.failed, backup.job.cancelled) on a single topic, "backup.jobs" by
default. Payloads are JSON.

Transports:
  - gochannel: in-process pub/sub, the default; the GoChannel is also a
    Subscriber so in-process consumers can follow jobs.
  - nats: core NATS subjects via watermill-nats. Requires -tags=nats.

Publishing is best effort. A failed publish is logged and counted but never
fails the backup job that triggered it.
*/
package events
