// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/custodian/internal/ledger"
)

func TestCleanup_ExpiredBackups(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	expiring := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "short"
		c.RetentionDays = 1
	})
	forever := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "forever"
		c.RetentionDays = 0
	})
	e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "long"
		c.RetentionDays = 30
	})

	e.clock.Advance(48 * time.Hour)

	dry, err := e.svc.Cleanup(ctx, CleanupOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !dry.DryRun || dry.Deleted != 1 || dry.FreedBytes != expiring.FileSizeBytes {
		t.Errorf("unexpected dry run result %+v", dry)
	}
	if len(e.storedFiles(t)) != 3 {
		t.Error("dry run must not delete artifacts")
	}
	if _, err := e.svc.Get(ctx, expiring.ID); err != nil {
		t.Error("dry run must not delete ledger entries")
	}

	res, err := e.svc.Cleanup(ctx, CleanupOptions{})
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if res.Deleted != 1 || res.Failed != 0 || res.FreedBytes != expiring.FileSizeBytes {
		t.Errorf("unexpected result %+v", res)
	}
	if len(res.Entries) != 1 || res.Entries[0].JobID != expiring.ID {
		t.Errorf("unexpected entries %+v", res.Entries)
	}
	if _, err := e.svc.Get(ctx, expiring.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ledger entry removed, got %v", err)
	}
	if len(e.storedFiles(t)) != 2 {
		t.Errorf("expected 2 artifacts left, got %v", e.storedFiles(t))
	}

	again, err := e.svc.Cleanup(ctx, CleanupOptions{})
	if err != nil {
		t.Fatalf("second Cleanup: %v", err)
	}
	if again.Deleted != 0 || again.Failed != 0 {
		t.Errorf("cleanup must be idempotent, got %+v", again)
	}

	e.clock.Advance(100 * 365 * 24 * time.Hour)
	res, _ = e.svc.Cleanup(ctx, CleanupOptions{})
	if res.Deleted != 1 {
		t.Errorf("expected only the 30 day backup to expire, got %+v", res)
	}
	if _, err := e.svc.Get(ctx, forever.ID); err != nil {
		t.Error("a backup without retention must never be swept")
	}
}

func TestCleanup_OlderThanOverride(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	old := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "old"
		c.RetentionDays = 0
	})
	e.clock.Advance(10 * 24 * time.Hour)
	e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "recent"
		c.RetentionDays = 0
	})

	res, err := e.svc.Cleanup(ctx, CleanupOptions{OlderThanDays: 5})
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if res.Deleted != 1 || res.Entries[0].JobID != old.ID {
		t.Errorf("expected only the old backup swept, got %+v", res)
	}

	if _, err := e.svc.Cleanup(ctx, CleanupOptions{OlderThanDays: -1}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestCleanup_ContinuesAfterEntryFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	good := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
		c.Name = "good"
		c.RetentionDays = 1
	})

	orphan := ledger.NewJob("orphan", ledger.TypeDatabase, e.clock.Now())
	orphan.StorageDriver = "decommissioned"
	orphan.SetRetention(e.clock.Now(), 1)
	_ = orphan.MarkRunning(e.clock.Now())
	_ = orphan.MarkCompleted(e.clock.Now(), ledger.Artifact{Path: "backups/orphan/orphan.sql", Name: "orphan.sql", Size: 10, Checksum: "x"})
	if err := e.store.Create(ctx, orphan); err != nil {
		t.Fatal(err)
	}

	running := ledger.NewJob("running", ledger.TypeDatabase, e.clock.Now())
	running.SetRetention(e.clock.Now(), 1)
	_ = running.MarkRunning(e.clock.Now())
	if err := e.store.Create(ctx, running); err != nil {
		t.Fatal(err)
	}

	e.clock.Advance(72 * time.Hour)

	res, err := e.svc.Cleanup(ctx, CleanupOptions{})
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if res.Deleted != 1 || res.Failed != 1 {
		t.Errorf("expected 1 deleted and 1 failed, got %+v", res)
	}
	if res.FreedBytes != good.FileSizeBytes {
		t.Errorf("failed entries must not count as freed, got %d", res.FreedBytes)
	}
	if _, err := e.svc.Get(ctx, orphan.ID); err != nil {
		t.Error("entry whose artifact could not be deleted must be kept")
	}
	if _, err := e.svc.Get(ctx, running.ID); err != nil {
		t.Error("running jobs must never be swept")
	}
}
