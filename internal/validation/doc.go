// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package validation wraps go-playground/validator with a shared singleton,
// the custom tags used by backup requests and configuration, and
// human-readable error messages.
//
// Custom tags:
//   - backupname: letters, digits, dot, dash and underscore; no path separators
//   - identifier: a database table name (letters, digits, underscore, dot, dash)
//
// Field names in messages come from the json tag, then the koanf tag, then
// the Go field name.
package validation
