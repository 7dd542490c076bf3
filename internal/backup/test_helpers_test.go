// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/custodian/internal/codec"
	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/events"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/storage"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testEnv holds the common test environment setup
type testEnv struct {
	root      string
	dbPath    string
	localRoot string
	tempDir   string
	cfg       *config.Config
	store     *ledger.BadgerStore
	storage   *storage.Registry
	clock     *fakeClock
	svc       *Service
}

type envOption func(*Options)

func withPublisher(p events.Publisher) envOption {
	return func(o *Options) { o.Publisher = p }
}

func withoutEncryption() envOption {
	return func(o *Options) { o.Encryptor = nil }
}

// newTestEnv creates an application root with files, a SQLite database, a
// local storage disk and an in-memory ledger.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	e := &testEnv{
		root:      t.TempDir(),
		localRoot: t.TempDir(),
		tempDir:   filepath.Join(t.TempDir(), "work"),
		clock:     &fakeClock{t: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)},
	}
	e.dbPath = filepath.Join(t.TempDir(), "grc.sqlite")

	writeAppFiles(t, e.root, map[string]string{
		"storage/app/private/policy.txt":        "acceptable use v1",
		"storage/app/private/evidence/soc2.txt": "control evidence",
		"storage/app/private/debug.log":         "noise",
		"storage/app/public/logo.txt":           "logo",
		".env":                                  "APP_KEY=base64:abc",
	})
	newSQLiteFixture(t, e.dbPath)

	cfg := config.Default()
	cfg.App.Root = e.root
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Database: e.dbPath, DumpTimeout: 30 * time.Second}
	cfg.Backup.TempDir = e.tempDir
	cfg.Storage.Local.Root = e.localRoot
	cfg.Storage.Private.Root = t.TempDir()
	e.cfg = cfg

	reg, err := storage.NewRegistry(cfg.Storage, e.root)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	e.storage = reg

	store, err := ledger.Open(ledger.Options{InMemory: true})
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	e.store = store

	enc, err := codec.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}

	o := Options{
		Config:    cfg,
		Ledger:    store,
		Storage:   reg,
		Encryptor: enc,
		Now:       e.clock.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	svc, err := NewService(o)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	e.svc = svc
	return e
}

func writeAppFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func readAppFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ""
		}
		t.Fatal(err)
	}
	return string(data)
}

func newSQLiteFixture(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	stmts := []string{
		"CREATE TABLE risks (id INTEGER PRIMARY KEY, title TEXT)",
		"CREATE TABLE sessions (id TEXT PRIMARY KEY, payload TEXT)",
		"CREATE TABLE failed_jobs (id INTEGER PRIMARY KEY)",
		"CREATE TABLE backup_logs (id INTEGER PRIMARY KEY)",
		"INSERT INTO risks (title) VALUES ('vendor breach'), ('key person')",
		"INSERT INTO sessions VALUES ('abc', 'opaque')",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("fixture %q: %v", s, err)
		}
	}
}

func execSQL(t *testing.T, path, stmt string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(stmt); err != nil {
		t.Fatalf("exec %q: %v", stmt, err)
	}
}

// countRows returns -1 when the table does not exist.
func countRows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow("SELECT count(*) FROM " + table).Scan(&n); err != nil {
		return -1
	}
	return n
}

// storedFiles lists every file under the local storage root.
func (e *testEnv) storedFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(e.localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(e.localRoot, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return files
}

// assertWorkspaceClean fails when a job left anything in the temp dir.
func (e *testEnv) assertWorkspaceClean(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(e.tempDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("workspace not removed: %d entries left in %s", len(entries), e.tempDir)
	}
}

// useFakeMySQL points the service at a fake mysqldump script.
func (e *testEnv) useFakeMySQL(t *testing.T, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools require a POSIX shell")
	}
	tool := filepath.Join(t.TempDir(), "mysqldump")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"+body+"\n"), 0o700); err != nil { //nolint:gosec // test fixture must be executable
		t.Fatal(err)
	}
	e.cfg.Database = config.DatabaseConfig{
		Driver:   "mysql",
		Host:     "127.0.0.1",
		Port:     3306,
		Username: "grc",
		Password: "secret",
		Database: "grc",
		Tools:    config.ToolsConfig{MySQLDump: tool},
	}
}

func (e *testEnv) mustCreate(t *testing.T, jobType ledger.JobType, mutate func(*BackupConfig)) *ledger.BackupJob {
	t.Helper()
	cfg := e.svc.DefaultBackupConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	job, err := e.svc.Create(context.Background(), jobType, cfg)
	if err != nil {
		t.Fatalf("Create %s: %v", jobType, err)
	}
	return job
}

func removeAppFile(root, name string) error {
	return os.Remove(filepath.Join(root, filepath.FromSlash(name)))
}
