// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/custodian/internal/ledger"
)

func TestDetermineRestoreTargets(t *testing.T) {
	tests := []struct {
		name      string
		jobType   ledger.JobType
		opts      RestoreOptions
		wantDB    bool
		wantFiles bool
	}{
		{"database default", ledger.TypeDatabase, RestoreOptions{}, true, false},
		{"files default", ledger.TypeFiles, RestoreOptions{}, false, true},
		{"full default", ledger.TypeFull, RestoreOptions{}, true, true},
		{"full database only", ledger.TypeFull, RestoreOptions{RestoreDatabase: true}, true, false},
		{"full files only", ledger.TypeFull, RestoreOptions{RestoreFiles: true}, false, true},
		{"database asked for files", ledger.TypeDatabase, RestoreOptions{RestoreFiles: true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, files := determineRestoreTargets(tt.jobType, tt.opts)
			if db != tt.wantDB || files != tt.wantFiles {
				t.Errorf("expected db=%v files=%v, got db=%v files=%v", tt.wantDB, tt.wantFiles, db, files)
			}
		})
	}
}

func TestRestore_FilesOnlyKeepsExistingFiles(t *testing.T) {
	e := newTestEnv(t)
	job := e.mustCreate(t, ledger.TypeFull, func(c *BackupConfig) { c.Name = "keep" })

	execSQL(t, e.dbPath, "INSERT INTO risks (title) VALUES ('live')")
	writeAppFiles(t, e.root, map[string]string{"storage/app/private/policy.txt": "edited locally"})
	if err := removeAppFile(e.root, "storage/app/public/logo.txt"); err != nil {
		t.Fatal(err)
	}

	result, err := e.svc.Restore(context.Background(), job.ID, RestoreOptions{RestoreFiles: true})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if result.DatabaseRestored {
		t.Error("database must not be restored when only files were requested")
	}
	if n := countRows(t, e.dbPath, "risks"); n != 3 {
		t.Errorf("live database changed, risks=%d", n)
	}
	if got := readAppFile(t, e.root, "storage/app/private/policy.txt"); got != "edited locally" {
		t.Errorf("existing file overwritten without overwrite flag: %q", got)
	}
	if got := readAppFile(t, e.root, "storage/app/public/logo.txt"); got != "logo" {
		t.Errorf("missing file not restored: %q", got)
	}
	if result.Files.Restored != 1 {
		t.Errorf("expected 1 restored file, got %d", result.Files.Restored)
	}
	e.assertWorkspaceClean(t)
}

func TestRestore_Rejections(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	done := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) { c.Name = "done" })

	e.cfg.Database.Driver = "oracle"
	failed, _ := e.svc.CreateDatabaseBackup(ctx, e.svc.DefaultBackupConfig())
	e.cfg.Database.Driver = "sqlite"

	if _, err := e.svc.Restore(ctx, failed.ID, RestoreOptions{}); !errors.Is(err, ErrJobNotCompleted) {
		t.Errorf("expected ErrJobNotCompleted, got %v", err)
	}
	if _, err := e.svc.Restore(ctx, "missing", RestoreOptions{}); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.svc.Restore(ctx, done.ID, RestoreOptions{RestoreFiles: true}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for files from a database backup, got %v", err)
	}

	e.cfg.Database.Driver = "duckdb"
	if _, err := e.svc.Restore(ctx, done.ID, RestoreOptions{}); !errors.Is(err, ErrEngineMismatch) {
		t.Errorf("expected ErrEngineMismatch, got %v", err)
	}
}

func TestRestore_EncryptedWithoutKey(t *testing.T) {
	e := newTestEnv(t)
	job := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "sealed"
		c.Encrypt = true
	})

	keyless, err := NewService(Options{Config: e.cfg, Ledger: e.store, Storage: e.storage})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := keyless.Restore(context.Background(), job.ID, RestoreOptions{}); !errors.Is(err, ErrEncryptionUnavailable) {
		t.Errorf("expected ErrEncryptionUnavailable, got %v", err)
	}

	res, err := keyless.Verify(context.Background(), job.ID)
	if err != nil || res.Valid {
		t.Errorf("verify without key must be invalid, got %+v %v", res, err)
	}
}

func TestRestore_OutsideRootDirectoryReturnsToOrigin(t *testing.T) {
	e := newTestEnv(t)
	evidence := t.TempDir()
	writeAppFiles(t, evidence, map[string]string{
		"a.txt":     "top level",
		"sub/a.txt": "nested original",
	})

	job := e.mustCreate(t, ledger.TypeFiles, func(c *BackupConfig) {
		c.Name = "external"
		c.BackupDirectories = append(c.BackupDirectories, evidence)
	})
	if job.Status != ledger.StatusCompleted {
		t.Fatalf("expected completed, got %s: %s", job.Status, job.ErrorMessage)
	}

	writeAppFiles(t, evidence, map[string]string{"sub/a.txt": "changed"})

	if _, err := e.svc.Restore(context.Background(), job.ID, RestoreOptions{Overwrite: true}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := readAppFile(t, evidence, "sub/a.txt"); got != "nested original" {
		t.Errorf("nested outside file = %q, want the backed-up content", got)
	}
	if got := readAppFile(t, evidence, "a.txt"); got != "top level" {
		t.Errorf("top-level outside file = %q", got)
	}
	if got := readAppFile(t, e.root, "a.txt"); got != "" {
		t.Errorf("outside file was flattened into the application root: %q", got)
	}
	e.assertWorkspaceClean(t)
}
