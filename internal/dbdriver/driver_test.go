// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeFakeTool writes an executable shell script standing in for a vendor tool.
func writeFakeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o700); err != nil { //nolint:gosec // test fixture must be executable
		t.Fatalf("write fake tool: %v", err)
	}
	return path
}

func TestNormalizeEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "mysql", want: EngineMySQL},
		{in: "MariaDB", want: EngineMySQL},
		{in: "pgsql", want: EnginePostgres},
		{in: "postgres", want: EnginePostgres},
		{in: "sqlite", want: EngineSQLite},
		{in: "duckdb", want: EngineDuckDB},
		{in: "oracle", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizeEngine(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedDriver) {
				t.Errorf("NormalizeEngine(%q): expected ErrUnsupportedDriver, got %v", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeEngine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_UnsupportedDriver(t *testing.T) {
	if _, err := New(ConnectionConfig{Driver: "mssql"}, Tools{}); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestMySQLDriver_DumpArgsKeepPasswordOutOfArgv(t *testing.T) {
	d := &MySQLDriver{conn: ConnectionConfig{
		Host: "db.internal", Port: 3306, Username: "grc", Password: "s3cret-pw", Database: "grc",
	}}
	args := d.DumpArgs(DumpOptions{
		IncludeTables: []string{"risks"},
		ExcludeTables: []string{"sessions", "failed_jobs"},
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--single-transaction", "--routines", "--triggers",
		"--host=db.internal", "--port=3306", "--user=grc",
		"--ignore-table=grc.sessions", "--ignore-table=grc.failed_jobs",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
	if strings.Contains(joined, "s3cret-pw") {
		t.Errorf("password leaked into argv: %s", joined)
	}
	if args[len(args)-2] != "grc" || args[len(args)-1] != "risks" {
		t.Errorf("expected database then include tables at the end, got %v", args[len(args)-2:])
	}
	if env := d.env(); len(env) != 1 || env[0] != "MYSQL_PWD=s3cret-pw" {
		t.Errorf("env = %v", env)
	}
}

func TestPostgresDriver_DumpArgs(t *testing.T) {
	d := &PostgresDriver{conn: ConnectionConfig{
		Host: "pg", Port: 5432, Username: "grc", Password: "pw", Database: "grc",
	}}
	args := strings.Join(d.DumpArgs("/tmp/out.sql", DumpOptions{
		IncludeTables: []string{"controls"},
		ExcludeTables: []string{"sessions"},
	}), " ")

	want := "--no-owner --no-acl --clean --if-exists -h pg -p 5432 -U grc -d grc -t controls -T sessions -f /tmp/out.sql"
	if args != want {
		t.Errorf("args =\n%s\nwant\n%s", args, want)
	}
	if env := d.env(); len(env) != 1 || env[0] != "PGPASSWORD=pw" {
		t.Errorf("env = %v", env)
	}
}

func TestMySQLDriver_DumpWithFakeTool(t *testing.T) {
	dir := t.TempDir()
	tool := writeFakeTool(t, dir, "mysqldump", `
echo "-- fake dump"
echo "args: $*"
if [ -n "$MYSQL_PWD" ]; then echo "password: via-env"; fi`)

	d, err := New(ConnectionConfig{
		Driver: "mysql", Host: "127.0.0.1", Port: 3306, Username: "grc", Password: "pw", Database: "grc",
	}, Tools{MySQLDump: tool})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "grc.sql")
	if err := d.Dump(context.Background(), out, DumpOptions{ExcludeTables: []string{"sessions"}}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.Contains(string(data), "--ignore-table=grc.sessions") {
		t.Errorf("exclusion not passed to tool: %s", data)
	}
	if !strings.Contains(string(data), "password: via-env") {
		t.Errorf("password not provided through environment: %s", data)
	}
	if _, err := os.Stat(out + ".partial"); !os.IsNotExist(err) {
		t.Error("partial file left behind")
	}
}

func TestMySQLDriver_FailingToolReportsReturnCode(t *testing.T) {
	dir := t.TempDir()
	tool := writeFakeTool(t, dir, "mysqldump", `
echo "partial output"
echo "mysqldump: Got error: 1045: Access denied" >&2
exit 1`)

	d, _ := New(ConnectionConfig{Driver: "mysql", Host: "127.0.0.1", Database: "grc"}, Tools{MySQLDump: tool})
	out := filepath.Join(dir, "grc.sql")
	err := d.Dump(context.Background(), out, DumpOptions{})
	if err == nil {
		t.Fatal("expected dump failure")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected *ToolError, got %T", err)
	}
	if toolErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", toolErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "return code: 1") {
		t.Errorf("error message missing return code: %v", err)
	}
	if !strings.Contains(toolErr.Stderr, "Access denied") {
		t.Errorf("stderr not captured: %q", toolErr.Stderr)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("failed dump must not leave the destination file")
	}
	if _, statErr := os.Stat(out + ".partial"); !os.IsNotExist(statErr) {
		t.Error("failed dump must not leave the partial file")
	}
}

func TestMySQLDriver_RestorePipesDump(t *testing.T) {
	dir := t.TempDir()
	captured := filepath.Join(dir, "captured.sql")
	tool := writeFakeTool(t, dir, "mysql", "cat > "+captured)

	d, _ := New(ConnectionConfig{Driver: "mysql", Host: "127.0.0.1", Database: "grc"}, Tools{MySQL: tool})
	in := filepath.Join(dir, "grc.sql")
	if err := os.WriteFile(in, []byte("CREATE TABLE risks (id INT);\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := d.Restore(context.Background(), in); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got, _ := os.ReadFile(captured)
	if string(got) != "CREATE TABLE risks (id INT);\n" {
		t.Errorf("client received %q", got)
	}
}

func TestPostgresDriver_RestoreFailure(t *testing.T) {
	dir := t.TempDir()
	tool := writeFakeTool(t, dir, "psql", `echo "ERROR: relation does not exist" >&2; exit 3`)

	d, _ := New(ConnectionConfig{Driver: "pgsql", Host: "127.0.0.1", Database: "grc"}, Tools{PSQL: tool})
	err := d.Restore(context.Background(), filepath.Join(dir, "grc.sql"))
	if err == nil || !strings.Contains(err.Error(), "return code: 3") {
		t.Errorf("expected return code 3, got %v", err)
	}
}

func TestToolTimeoutKillsProcess(t *testing.T) {
	dir := t.TempDir()
	tool := writeFakeTool(t, dir, "mysqldump", "exec sleep 10")

	d, _ := New(ConnectionConfig{Driver: "mysql", Host: "127.0.0.1", Database: "grc", Timeout: 100 * time.Millisecond}, Tools{MySQLDump: tool})
	err := d.Dump(context.Background(), filepath.Join(dir, "grc.sql"), DumpOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestTablesToDrop(t *testing.T) {
	tables := []string{"controls", "failed_jobs", "risks", "sessions"}
	tests := []struct {
		name string
		opts DumpOptions
		want string
	}{
		{name: "exclude only", opts: DumpOptions{ExcludeTables: []string{"sessions", "failed_jobs"}}, want: "failed_jobs,sessions"},
		{name: "include only", opts: DumpOptions{IncludeTables: []string{"risks"}}, want: "controls,failed_jobs,sessions"},
		{name: "include and exclude", opts: DumpOptions{IncludeTables: []string{"risks", "sessions"}, ExcludeTables: []string{"sessions"}}, want: "controls,failed_jobs,sessions"},
		{name: "no filters", opts: DumpOptions{}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(tablesToDrop(tables, tt.opts), ","); got != tt.want {
				t.Errorf("tablesToDrop = %q, want %q", got, tt.want)
			}
		})
	}
}
