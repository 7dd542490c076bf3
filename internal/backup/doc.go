// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

// Package backup orchestrates backup, verification, restore and retention
// for the GRC application's database and files.
//
// Backup Types:
//
//	Database:    Native dump of the application database
//	Files:       Tar archive of application directories
//	Full:        Container holding database/<dump> and files/<archive>
//	Incremental: Reserved, rejected with ErrUnsupportedType
//
// Pipeline:
//
//	┌──────────┐   ┌──────────┐   ┌──────────┐   ┌──────────┐   ┌──────────┐
//	│ dump /   │──▶│ compress │──▶│ checksum │──▶│ encrypt  │──▶│ storage  │
//	│ archive  │   │ (opt)    │   │ sha256   │   │ (opt)    │   │ Put      │
//	└──────────┘   └──────────┘   └──────────┘   └──────────┘   └──────────┘
//
// The checksum covers the compressed, unencrypted payload so it still means
// something after re-keying; jobs record the scheme in ChecksumScheme.
//
// Every call creates exactly one ledger entry that moves pending, running
// and then completed, failed or cancelled. Each job works in its own
// temporary directory, removed on every exit path. Nothing is stored until
// every preceding step succeeded, and the entry only turns completed after
// the storage backend accepted the artifact.
//
// Usage:
//
//	svc, err := backup.NewService(backup.Options{
//	    Config:  cfg,
//	    Ledger:  store,
//	    Storage: registry,
//	})
//
//	job, err := svc.CreateFullBackup(ctx, svc.DefaultBackupConfig())
//	var jobErr *backup.JobError
//	if errors.As(err, &jobErr) {
//	    // job is still returned and records the failure
//	}
//
//	result, err := svc.Verify(ctx, job.ID)
//	if result.Valid {
//	    _, err = svc.Restore(ctx, job.ID, backup.RestoreOptions{})
//	}
package backup
