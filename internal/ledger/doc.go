// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package ledger records every backup job and enforces its lifecycle.

# State Machine

	pending ──▶ running ──▶ completed
	   │           │
	   │           └──────▶ failed
	   └───────────┴──────▶ cancelled

Transitions only move forward and never skip running on the way to a
terminal state. BackupJob.Transition returns ErrInvalidTransition for
anything else, and the BadgerDB store re-checks the rule against the stored
record inside the write transaction, so a job cancelled by one caller cannot
later be marked completed by another.

# Storage

Jobs are JSON documents (goccy/go-json) under "job:<id>" keys in BadgerDB.
The store can run on disk or fully in memory for tests and one-shot CLI use.
ExpiresAt is immutable once stored: Update keeps the stored value.

A GCService runs BadgerDB value-log garbage collection on an interval and is
meant to be supervised by suture.
*/
package ledger
