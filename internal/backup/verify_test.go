// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/custodian/internal/ledger"
)

// flipByte corrupts one byte in the middle of a stored artifact.
func flipByte(t *testing.T, e *testEnv, job *ledger.BackupJob) {
	t.Helper()
	p := filepath.Join(e.localRoot, filepath.FromSlash(job.FilePath))
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)/2] ^= 0xFF
	if err := os.WriteFile(p, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestVerify_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		encrypt    bool
		tamper     func(t *testing.T, e *testEnv, job *ledger.BackupJob)
		wantValid  bool
		wantReason string
	}{
		{name: "intact", wantValid: true},
		{name: "intact encrypted", encrypt: true, wantValid: true},
		{name: "tampered", tamper: flipByte, wantReason: "checksum mismatch"},
		{name: "tampered encrypted", encrypt: true, tamper: flipByte, wantReason: "decrypt artifact"},
		{
			name: "missing artifact",
			tamper: func(t *testing.T, e *testEnv, job *ledger.BackupJob) {
				if err := os.Remove(filepath.Join(e.localRoot, filepath.FromSlash(job.FilePath))); err != nil {
					t.Fatal(err)
				}
			},
			wantReason: "artifact missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			job := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
				c.Name = "verify"
				c.Encrypt = tt.encrypt
			})
			if tt.tamper != nil {
				tt.tamper(t, e, job)
			}

			res, err := e.svc.Verify(context.Background(), job.ID)
			if err != nil {
				t.Fatalf("Verify must not error on integrity failures, got %v", err)
			}
			if res.Valid != tt.wantValid {
				t.Errorf("expected valid=%v, got %v (%s)", tt.wantValid, res.Valid, res.Reason)
			}
			if tt.wantReason != "" && !strings.HasPrefix(res.Reason, tt.wantReason) {
				t.Errorf("expected reason %q, got %q", tt.wantReason, res.Reason)
			}

			stored, _ := e.svc.Get(context.Background(), job.ID)
			if stored.Verified != tt.wantValid {
				t.Errorf("expected Verified=%v, got %v", tt.wantValid, stored.Verified)
			}
			if stored.Status != ledger.StatusCompleted {
				t.Errorf("verify must not change status, got %s", stored.Status)
			}
		})
	}
}

func TestVerify_UnknownJob(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.svc.Verify(context.Background(), "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVerify_FailedJobIsInvalid(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Database.Driver = "oracle"
	job, _ := e.svc.CreateDatabaseBackup(context.Background(), e.svc.DefaultBackupConfig())

	res, err := e.svc.Verify(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Valid || res.Reason != "job is failed" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestVerifyAll(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	first := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) { c.Name = "first" })
	e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) { c.Name = "second" })

	if _, err := e.svc.Verify(ctx, first.ID); err != nil {
		t.Fatal(err)
	}

	results, err := e.svc.VerifyAll(ctx, false)
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if len(results) != 1 || results[0].Name != "second" || !results[0].Valid {
		t.Errorf("expected only the unverified job, got %+v", results)
	}

	results, err = e.svc.VerifyAll(ctx, true)
	if err != nil {
		t.Fatalf("VerifyAll force: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("force must re-verify every completed job, got %d", len(results))
	}
}

func TestVerify_TamperAfterVerifyClearsMark(t *testing.T) {
	tests := []struct {
		name    string
		encrypt bool
	}{
		{name: "plain"},
		{name: "encrypted", encrypt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()
			job := e.mustCreate(t, ledger.TypeDatabase, func(c *BackupConfig) {
				c.Name = "reverify"
				c.Encrypt = tt.encrypt
			})

			res, err := e.svc.Verify(ctx, job.ID)
			if err != nil || !res.Valid {
				t.Fatalf("initial verify: %+v, %v", res, err)
			}
			flipByte(t, e, job)

			results, err := e.svc.VerifyAll(ctx, true)
			if err != nil {
				t.Fatalf("VerifyAll: %v", err)
			}
			if len(results) != 1 || results[0].Valid {
				t.Fatalf("expected one invalid result, got %+v", results)
			}

			stored, err := e.store.Get(ctx, job.ID)
			if err != nil {
				t.Fatal(err)
			}
			if stored.Verified || stored.VerifiedAt != nil {
				t.Errorf("expected verified mark cleared, got Verified=%v VerifiedAt=%v", stored.Verified, stored.VerifiedAt)
			}

			// The job is now picked up again by a non-forced pass.
			results, err = e.svc.VerifyAll(ctx, false)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 1 {
				t.Errorf("expected unverified job to be re-checked, got %d results", len(results))
			}
		})
	}
}
