// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
Package dbdriver dumps and restores the application database.

Each engine family implements Driver and is selected by New from the
configured connection driver:

	mysql, mariadb   mysqldump / mysql
	postgres, pgsql  pg_dump / psql (optional pgx preflight)
	sqlite           VACUUM INTO snapshot via modernc.org/sqlite
	duckdb           CHECKPOINT and file copy via duckdb-go

Server engines run the vendor command-line tools under exec.CommandContext.
Passwords are injected through the environment (MYSQL_PWD, PGPASSWORD) and
never appear in the process argument list. Dump output goes to
"<output>.partial" and is renamed only after the tool exits zero, so the
destination is either complete or absent. A non-zero exit is reported as a
*ToolError whose message contains "return code: <n>".

Embedded engines apply table filters by dropping tables from the snapshot.
Their restore keeps the current file aside, swaps in the dump, runs an
integrity check and rolls back on failure.
*/
package dbdriver
