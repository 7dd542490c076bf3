// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// MySQLDriver dumps MySQL and MariaDB with mysqldump.
type MySQLDriver struct {
	conn      ConnectionConfig
	dumpBin   string
	clientBin string
}

// Engine implements Driver.
func (d *MySQLDriver) Engine() string { return EngineMySQL }

// Extension implements Driver.
func (d *MySQLDriver) Extension() string { return ".sql" }

func (d *MySQLDriver) connArgs() []string {
	args := []string{"--host=" + d.conn.Host}
	if d.conn.Port > 0 {
		args = append(args, "--port="+strconv.Itoa(d.conn.Port))
	}
	if d.conn.Username != "" {
		args = append(args, "--user="+d.conn.Username)
	}
	return args
}

func (d *MySQLDriver) env() []string {
	if d.conn.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + d.conn.Password}
}

// DumpArgs returns the mysqldump argument list for opts.
func (d *MySQLDriver) DumpArgs(opts DumpOptions) []string {
	args := []string{"--single-transaction", "--routines", "--triggers"}
	args = append(args, d.connArgs()...)
	for _, t := range opts.ExcludeTables {
		args = append(args, fmt.Sprintf("--ignore-table=%s.%s", d.conn.Database, t))
	}
	args = append(args, d.conn.Database)
	args = append(args, opts.IncludeTables...)
	return args
}

// Dump implements Driver.
func (d *MySQLDriver) Dump(ctx context.Context, outputPath string, opts DumpOptions) error {
	return dumpToFile(ctx, outputPath, toolRun{
		bin:  d.dumpBin,
		args: d.DumpArgs(opts),
		env:  d.env(),
	})
}

// Restore implements Driver by piping the dump into the mysql client.
func (d *MySQLDriver) Restore(ctx context.Context, inputPath string) error {
	in, err := os.Open(inputPath) //nolint:gosec // G304: workspace path
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer in.Close() //nolint:errcheck // read-only

	args := append(d.connArgs(), d.conn.Database)
	return runTool(ctx, toolRun{
		bin:   d.clientBin,
		args:  args,
		env:   d.env(),
		stdin: in,
	})
}
