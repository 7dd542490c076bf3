// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/natefinch/atomic"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/tomtom215/custodian/internal/logging"
)

// rollbackSuffix marks the copy of the live database kept during a restore.
const rollbackSuffix = ".custodian-rollback"

// dialect captures the engine-specific parts of an embedded database.
type dialect interface {
	engine() string
	sqlDriver() string
	extension() string
	// sidecars are auxiliary files (journals, WAL) next to the database file.
	sidecars(path string) []string
	// snapshot writes a consistent copy of the database at src to dst.
	snapshot(ctx context.Context, src, dst string) error
	listTables(ctx context.Context, db *sql.DB) ([]string, error)
	// compact reclaims space after tables were dropped.
	compact(ctx context.Context, db *sql.DB) error
	integrityCheck(ctx context.Context, db *sql.DB) error
}

// EmbeddedDriver backs up single-file databases without external tools.
type EmbeddedDriver struct {
	path string
	d    dialect
}

func newEmbeddedDriver(conn ConnectionConfig, d dialect) *EmbeddedDriver {
	return &EmbeddedDriver{path: conn.Database, d: d}
}

// Engine implements Driver.
func (e *EmbeddedDriver) Engine() string { return e.d.engine() }

// Extension implements Driver.
func (e *EmbeddedDriver) Extension() string { return e.d.extension() }

// Dump implements Driver.
func (e *EmbeddedDriver) Dump(ctx context.Context, outputPath string, opts DumpOptions) error {
	if _, err := os.Stat(e.path); err != nil {
		return fmt.Errorf("database file %s: %w", e.path, err)
	}
	return writePartial(outputPath, func(partial string) error {
		if err := e.d.snapshot(ctx, e.path, partial); err != nil {
			return fmt.Errorf("snapshot %s database: %w", e.d.engine(), err)
		}
		if len(opts.IncludeTables) == 0 && len(opts.ExcludeTables) == 0 {
			return nil
		}
		return e.filterTables(ctx, partial, opts)
	})
}

// filterTables drops the tables opts excludes from the snapshot at path.
func (e *EmbeddedDriver) filterTables(ctx context.Context, path string, opts DumpOptions) error {
	db, err := sql.Open(e.d.sqlDriver(), path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close() //nolint:errcheck // snapshot is discarded on error

	tables, err := e.d.listTables(ctx, db)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	for _, table := range tablesToDrop(tables, opts) {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	if err := e.d.compact(ctx, db); err != nil {
		return fmt.Errorf("compact snapshot: %w", err)
	}
	return db.Close()
}

// tablesToDrop applies include then exclude filters to the table list.
func tablesToDrop(tables []string, opts DumpOptions) []string {
	include := make(map[string]bool, len(opts.IncludeTables))
	for _, t := range opts.IncludeTables {
		include[t] = true
	}
	exclude := make(map[string]bool, len(opts.ExcludeTables))
	for _, t := range opts.ExcludeTables {
		exclude[t] = true
	}

	var drop []string
	for _, t := range tables {
		if (len(include) > 0 && !include[t]) || exclude[t] {
			drop = append(drop, t)
		}
	}
	return drop
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Restore implements Driver. The live file and its sidecars are moved aside
// first and put back if the restored database fails its integrity check.
func (e *EmbeddedDriver) Restore(ctx context.Context, inputPath string) (err error) {
	moved, err := e.moveAside()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := e.rollback(moved); rbErr != nil {
				logging.Ctx(ctx).Error().Err(rbErr).Str("path", e.path).Msg("Rollback of embedded database failed")
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
			return
		}
		for _, p := range moved {
			_ = os.Remove(p + rollbackSuffix)
		}
	}()

	in, err := os.Open(inputPath) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer in.Close() //nolint:errcheck // read-only

	if err := atomic.WriteFile(e.path, in); err != nil {
		return fmt.Errorf("replace database file: %w", err)
	}
	if err := e.check(ctx); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	return nil
}

func (e *EmbeddedDriver) check(ctx context.Context) error {
	db, err := sql.Open(e.d.sqlDriver(), e.path)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // read-only check
	return e.d.integrityCheck(ctx, db)
}

// moveAside renames the database file and existing sidecars to their
// rollback names and returns the original paths that were moved.
func (e *EmbeddedDriver) moveAside() ([]string, error) {
	var moved []string
	for _, p := range append([]string{e.path}, e.d.sidecars(e.path)...) {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.Rename(p, p+rollbackSuffix); err != nil {
			_ = e.rollback(moved)
			return nil, fmt.Errorf("move %s aside: %w", p, err)
		}
		moved = append(moved, p)
	}
	return moved, nil
}

func (e *EmbeddedDriver) rollback(moved []string) error {
	// The restored file and any sidecars it created are discarded first.
	for _, p := range append([]string{e.path}, e.d.sidecars(e.path)...) {
		_ = os.Remove(p)
	}
	var errs []error
	for _, p := range moved {
		if err := os.Rename(p+rollbackSuffix, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// copyFile copies src to dst, creating dst exclusively.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // G304: configured database path
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read-only

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: workspace path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

type sqliteDialect struct{}

func (sqliteDialect) engine() string    { return EngineSQLite }
func (sqliteDialect) sqlDriver() string { return "sqlite" }
func (sqliteDialect) extension() string { return ".sqlite" }

func (sqliteDialect) sidecars(path string) []string {
	return []string{path + "-wal", path + "-shm", path + "-journal"}
}

// snapshot uses VACUUM INTO, which produces a transactionally consistent
// copy even while the application is writing.
func (sqliteDialect) snapshot(ctx context.Context, src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // read-only source

	_, err = db.ExecContext(ctx, "VACUUM INTO ?", dst)
	return err
}

func (sqliteDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryStrings(ctx, db, "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
}

func (sqliteDialect) compact(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "VACUUM")
	return err
}

func (sqliteDialect) integrityCheck(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return err
	}
	if result != "ok" {
		return fmt.Errorf("sqlite integrity_check: %s", result)
	}
	return nil
}

type duckdbDialect struct{}

func (duckdbDialect) engine() string    { return EngineDuckDB }
func (duckdbDialect) sqlDriver() string { return "duckdb" }
func (duckdbDialect) extension() string { return ".duckdb" }

func (duckdbDialect) sidecars(path string) []string {
	return []string{path + ".wal"}
}

// snapshot forces a checkpoint so the main file holds every committed
// change, then copies it.
func (duckdbDialect) snapshot(ctx context.Context, src, dst string) error {
	db, err := sql.Open("duckdb", src)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "CHECKPOINT"); err != nil {
		_ = db.Close()
		return err
	}
	if err := db.Close(); err != nil {
		return err
	}
	return copyFile(src, dst)
}

func (duckdbDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryStrings(ctx, db, "SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' AND table_type = 'BASE TABLE' ORDER BY table_name")
}

func (duckdbDialect) compact(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "CHECKPOINT")
	return err
}

func (duckdbDialect) integrityCheck(ctx context.Context, db *sql.DB) error {
	var n int
	return db.QueryRowContext(ctx, "SELECT count(*) FROM information_schema.tables").Scan(&n)
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err checked below

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
