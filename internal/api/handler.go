// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package api

import (
	"context"
	"time"

	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/ledger"
)

// defaultDownloadTTL applies when server.download_url_ttl is unset.
const defaultDownloadTTL = 15 * time.Minute

// BackupService is the subset of backup.Service the API uses.
type BackupService interface {
	DefaultBackupConfig() backup.BackupConfig
	Start(ctx context.Context, jobType ledger.JobType, cfg backup.BackupConfig) (*ledger.BackupJob, error)
	List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.BackupJob, error)
	Get(ctx context.Context, id string) (*ledger.BackupJob, error)
	Delete(ctx context.Context, id string) (*ledger.BackupJob, error)
	Verify(ctx context.Context, id string) (*backup.VerifyResult, error)
	Restore(ctx context.Context, id string, opts backup.RestoreOptions) (*backup.RestoreResult, error)
	Cancel(ctx context.Context, id string) (*ledger.BackupJob, error)
	DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error)
	Cleanup(ctx context.Context, opts backup.CleanupOptions) (*backup.CleanupResult, error)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds the API's dependencies.
type Handler struct {
	svc         BackupService
	health      HealthChecker
	downloadTTL time.Duration
	startedAt   time.Time
}

// NewHandler creates a Handler. health may be nil.
func NewHandler(svc BackupService, health HealthChecker, cfg config.ServerConfig) *Handler {
	ttl := cfg.DownloadURLTTL
	if ttl <= 0 {
		ttl = defaultDownloadTTL
	}
	return &Handler{
		svc:         svc,
		health:      health,
		downloadTTL: ttl,
		startedAt:   time.Now(),
	}
}
