// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// PostgresDriver dumps PostgreSQL with pg_dump in plain SQL format.
type PostgresDriver struct {
	conn      ConnectionConfig
	dumpBin   string
	clientBin string
}

// Engine implements Driver.
func (d *PostgresDriver) Engine() string { return EnginePostgres }

// Extension implements Driver.
func (d *PostgresDriver) Extension() string { return ".sql" }

func (d *PostgresDriver) connArgs() []string {
	args := []string{"-h", d.conn.Host}
	if d.conn.Port > 0 {
		args = append(args, "-p", strconv.Itoa(d.conn.Port))
	}
	if d.conn.Username != "" {
		args = append(args, "-U", d.conn.Username)
	}
	return append(args, "-d", d.conn.Database)
}

func (d *PostgresDriver) env() []string {
	if d.conn.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + d.conn.Password}
}

// DumpArgs returns the pg_dump argument list for opts, writing to outputPath.
func (d *PostgresDriver) DumpArgs(outputPath string, opts DumpOptions) []string {
	args := []string{"--no-owner", "--no-acl", "--clean", "--if-exists"}
	args = append(args, d.connArgs()...)
	for _, t := range opts.IncludeTables {
		args = append(args, "-t", t)
	}
	for _, t := range opts.ExcludeTables {
		args = append(args, "-T", t)
	}
	return append(args, "-f", outputPath)
}

// Preflight verifies the server accepts a connection with the configured credentials.
func (d *PostgresDriver) Preflight(ctx context.Context) error {
	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return fmt.Errorf("parse postgres config: %w", err)
	}
	cfg.Host = d.conn.Host
	if d.conn.Port > 0 {
		cfg.Port = uint16(d.conn.Port) //nolint:gosec // G115: port validated to 1..65535 by config
	}
	cfg.User = d.conn.Username
	cfg.Password = d.conn.Password
	cfg.Database = d.conn.Database

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer conn.Close(ctx) //nolint:errcheck // connection was only used for ping

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Dump implements Driver.
func (d *PostgresDriver) Dump(ctx context.Context, outputPath string, opts DumpOptions) error {
	if d.conn.Preflight {
		if err := d.Preflight(ctx); err != nil {
			return err
		}
	}
	return writePartial(outputPath, func(partial string) error {
		return runTool(ctx, toolRun{
			bin:  d.dumpBin,
			args: d.DumpArgs(partial, opts),
			env:  d.env(),
		})
	})
}

// Restore implements Driver. ON_ERROR_STOP makes psql exit non-zero on the
// first failing statement.
func (d *PostgresDriver) Restore(ctx context.Context, inputPath string) error {
	args := append([]string{"-v", "ON_ERROR_STOP=1"}, d.connArgs()...)
	args = append(args, "-f", inputPath)
	return runTool(ctx, toolRun{
		bin:  d.clientBin,
		args: args,
		env:  d.env(),
	})
}
