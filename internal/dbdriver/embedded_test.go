// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package dbdriver

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

// newSQLiteFixture creates a database with a few application tables.
func newSQLiteFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grc.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	stmts := []string{
		"CREATE TABLE risks (id INTEGER PRIMARY KEY, title TEXT)",
		"CREATE TABLE sessions (id TEXT PRIMARY KEY, payload TEXT)",
		"CREATE TABLE failed_jobs (id INTEGER PRIMARY KEY)",
		"INSERT INTO risks (title) VALUES ('vendor breach'), ('key person')",
		"INSERT INTO sessions VALUES ('abc', 'opaque')",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("fixture %q: %v", s, err)
		}
	}
	return path
}

func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT count(*) FROM " + quoteIdent(table)).Scan(&n); err != nil {
		return -1
	}
	return n
}

func TestSQLiteDriver_DumpHonorsExcludedTables(t *testing.T) {
	src := newSQLiteFixture(t)
	d, err := New(ConnectionConfig{Driver: "sqlite", Database: src}, Tools{})
	if err != nil {
		t.Fatal(err)
	}
	if d.Engine() != EngineSQLite || d.Extension() != ".sqlite" {
		t.Errorf("unexpected engine/extension %s %s", d.Engine(), d.Extension())
	}

	out := filepath.Join(t.TempDir(), "grc.sqlite")
	if err := d.Dump(context.Background(), out, DumpOptions{ExcludeTables: []string{"sessions", "failed_jobs"}}); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	if n := countRows(t, out, "risks"); n != 2 {
		t.Errorf("risks rows in dump = %d, want 2", n)
	}
	if n := countRows(t, out, "sessions"); n != -1 {
		t.Error("sessions table must be absent from the dump")
	}
	if n := countRows(t, src, "sessions"); n != 1 {
		t.Error("source database must be untouched by the filter")
	}
}

func TestSQLiteDriver_RestoreRoundTrip(t *testing.T) {
	src := newSQLiteFixture(t)
	d, _ := New(ConnectionConfig{Driver: "sqlite", Database: src}, Tools{})

	dump := filepath.Join(t.TempDir(), "grc.sqlite")
	if err := d.Dump(context.Background(), dump, DumpOptions{}); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	db, _ := sql.Open("sqlite", src)
	if _, err := db.Exec("DELETE FROM risks"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if err := d.Restore(context.Background(), dump); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if n := countRows(t, src, "risks"); n != 2 {
		t.Errorf("risks rows after restore = %d, want 2", n)
	}
	if _, err := os.Stat(src + rollbackSuffix); !os.IsNotExist(err) {
		t.Error("rollback copy must be removed after a successful restore")
	}
}

func TestSQLiteDriver_RestoreRollsBackCorruptDump(t *testing.T) {
	src := newSQLiteFixture(t)
	d, _ := New(ConnectionConfig{Driver: "sqlite", Database: src}, Tools{})

	bad := filepath.Join(t.TempDir(), "corrupt.sqlite")
	if err := os.WriteFile(bad, []byte("this is definitely not a database file, just text padding it out"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := d.Restore(context.Background(), bad); err == nil {
		t.Fatal("expected restore of a corrupt dump to fail")
	}
	if n := countRows(t, src, "risks"); n != 2 {
		t.Errorf("original database not restored after rollback: risks=%d", n)
	}
}

func TestSQLiteDriver_DumpMissingDatabase(t *testing.T) {
	d, _ := New(ConnectionConfig{Driver: "sqlite", Database: filepath.Join(t.TempDir(), "missing.sqlite")}, Tools{})
	out := filepath.Join(t.TempDir(), "out.sqlite")
	if err := d.Dump(context.Background(), out, DumpOptions{}); err == nil {
		t.Fatal("expected error for missing database file")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("no output expected for failed dump")
	}
}
