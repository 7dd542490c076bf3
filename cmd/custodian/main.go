// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package main is the custodian command line.

	custodian backup:database [--name] [--encrypt] [--no-compress] [--storage] [--retention] [--include-tables] [--exclude-tables]
	custodian backup:full     ... [--backup-directories] [--exclude-patterns]
	custodian backup:restore  <job_id> [--database-only] [--files-only] [--overwrite-files] [--force]
	custodian backup:verify   [job_id] [--all] [--force]
	custodian backup:cleanup  [--dry-run] [--force] [--older-than=DAYS]
	custodian backup:list     [--status] [--limit]
	custodian backup:cancel   <job_id>
	custodian serve           [--host] [--port]

Configuration is read from --config, CONFIG_PATH, custodian.yaml or
/etc/custodian/config.yaml, then overridden by environment variables such as
DB_CONNECTION, BACKUP_DISK and BACKUP_ENCRYPTION_KEY.

Build with -tags nats to publish job events to NATS.

The exit code is 0 on success and 1 on any failure, including a single
failed item in a batch verify or cleanup.
*/
package main

import "github.com/tomtom215/custodian/internal/cli"

func main() {
	cli.Main()
}
