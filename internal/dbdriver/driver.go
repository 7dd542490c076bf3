// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/custodian/internal/metrics"
)

// Engine names recorded on backup jobs.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineDuckDB   = "duckdb"
)

// ErrUnsupportedDriver is returned by New for unknown connection drivers.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// ConnectionConfig describes how to reach the application database. For
// embedded engines Database is the file path.
type ConnectionConfig struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	// Preflight checks connectivity before invoking a dump tool.
	Preflight bool
	// Timeout bounds each dump or restore; zero means no extra deadline.
	Timeout time.Duration
}

// Tools overrides the vendor tool binaries. Empty fields use the names on PATH.
type Tools struct {
	MySQLDump string
	MySQL     string
	PGDump    string
	PSQL      string
}

// DumpOptions filters the tables included in a dump. When IncludeTables is
// set only those tables are dumped; ExcludeTables is applied afterwards.
type DumpOptions struct {
	IncludeTables []string
	ExcludeTables []string
}

// Driver dumps and restores one database engine.
type Driver interface {
	// Engine returns the canonical engine name.
	Engine() string
	// Extension returns the dump file extension including the dot.
	Extension() string
	// Dump writes a full dump to outputPath.
	Dump(ctx context.Context, outputPath string, opts DumpOptions) error
	// Restore loads the dump at inputPath into the database.
	Restore(ctx context.Context, inputPath string) error
}

// NormalizeEngine maps connection driver aliases to engine names.
func NormalizeEngine(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "mysql", "mariadb":
		return EngineMySQL, nil
	case "postgres", "postgresql", "pgsql":
		return EnginePostgres, nil
	case "sqlite", "sqlite3":
		return EngineSQLite, nil
	case "duckdb":
		return EngineDuckDB, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// New returns the driver for conn.Driver.
func New(conn ConnectionConfig, tools Tools) (Driver, error) {
	engine, err := NormalizeEngine(conn.Driver)
	if err != nil {
		return nil, err
	}

	var d Driver
	switch engine {
	case EngineMySQL:
		d = &MySQLDriver{conn: conn, dumpBin: orDefault(tools.MySQLDump, "mysqldump"), clientBin: orDefault(tools.MySQL, "mysql")}
	case EnginePostgres:
		d = &PostgresDriver{conn: conn, dumpBin: orDefault(tools.PGDump, "pg_dump"), clientBin: orDefault(tools.PSQL, "psql")}
	case EngineSQLite:
		d = newEmbeddedDriver(conn, sqliteDialect{})
	case EngineDuckDB:
		d = newEmbeddedDriver(conn, duckdbDialect{})
	}
	return &measuredDriver{Driver: d, timeout: conn.Timeout}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// measuredDriver applies the per-operation timeout and records metrics.
type measuredDriver struct {
	Driver
	timeout time.Duration
}

func (m *measuredDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout > 0 {
		return context.WithTimeout(ctx, m.timeout)
	}
	return context.WithCancel(ctx)
}

func (m *measuredDriver) Dump(ctx context.Context, outputPath string, opts DumpOptions) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := m.Driver.Dump(ctx, outputPath, opts)
	metrics.RecordDump(m.Engine(), "dump", time.Since(start), err)
	return err
}

func (m *measuredDriver) Restore(ctx context.Context, inputPath string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := m.Driver.Restore(ctx, inputPath)
	metrics.RecordDump(m.Engine(), "restore", time.Since(start), err)
	return err
}
