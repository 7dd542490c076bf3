// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

//go:build integration

package dbdriver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/custodian/internal/testinfra"
)

const serverFixture = `
CREATE TABLE risks (id INTEGER PRIMARY KEY, title VARCHAR(100));
CREATE TABLE sessions (id VARCHAR(40) PRIMARY KEY, payload TEXT);
INSERT INTO risks VALUES (1, 'vendor breach'), (2, 'key person');
INSERT INTO sessions VALUES ('abc', 'opaque');
`

// roundTrip dumps the container database without sessions, drops both
// tables and restores the dump.
func roundTrip(t *testing.T, ctx context.Context, db *testinfra.DatabaseContainer, engine string) {
	t.Helper()

	if err := db.ExecSQL(ctx, serverFixture); err != nil {
		t.Fatalf("seed: %v\n%s", err, testinfra.ContainerLogs(ctx, db.Container))
	}

	d, err := New(ConnectionConfig{
		Driver:    engine,
		Host:      db.Host,
		Port:      db.Port,
		Username:  db.Username,
		Password:  db.Password,
		Database:  db.Database,
		Preflight: engine == EnginePostgres,
		Timeout:   time.Minute,
	}, Tools{})
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "dump"+d.Extension())
	if err := d.Dump(ctx, out, DumpOptions{ExcludeTables: []string{"sessions"}}); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	dump, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(dump), "vendor breach") {
		t.Error("dump is missing risks data")
	}
	if strings.Contains(string(dump), "opaque") {
		t.Error("excluded table data leaked into the dump")
	}
	if strings.Contains(string(dump), db.Password) {
		t.Error("password must not appear in the dump")
	}

	if err := db.ExecSQL(ctx, "DROP TABLE risks; DROP TABLE sessions;"); err != nil {
		t.Fatal(err)
	}
	if err := d.Restore(ctx, out); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, err := db.QueryScalar(ctx, "SELECT COUNT(*) FROM risks")
	if err != nil {
		t.Fatal(err)
	}
	if got != "2" {
		t.Errorf("restored risks count = %q, want 2", got)
	}
}

func TestMySQLDriver_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	testinfra.SkipIfNoTool(t, "mysqldump", "mysql")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := testinfra.NewMySQLContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create MySQL container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, db.Container)

	roundTrip(t, ctx, db, EngineMySQL)
}

func TestPostgresDriver_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)
	testinfra.SkipIfNoTool(t, "pg_dump", "psql")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, db.Container)

	roundTrip(t, ctx, db, EnginePostgres)
}

func TestPostgresDriver_PreflightRejectsBadPassword(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	db, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL container: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, db.Container)

	d := &PostgresDriver{conn: ConnectionConfig{
		Host:     db.Host,
		Port:     db.Port,
		Username: db.Username,
		Password: "wrong",
		Database: db.Database,
	}}
	if err := d.Preflight(ctx); err == nil {
		t.Error("expected preflight to fail with a wrong password")
	}
}
