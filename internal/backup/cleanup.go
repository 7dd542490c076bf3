// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
)

// CleanupOptions configures a retention sweep.
type CleanupOptions struct {
	// DryRun reports what would be deleted without deleting anything.
	DryRun bool `json:"dry_run"`
	// OlderThanDays, when positive, selects by age instead of ExpiresAt.
	OlderThanDays int `json:"older_than_days" validate:"gte=0"`
}

// CleanupEntry is one swept job.
type CleanupEntry struct {
	JobID     string `json:"job_id"`
	Name      string `json:"name"`
	FilePath  string `json:"file_path,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Error     string `json:"error,omitempty"`
}

// CleanupResult summarizes a sweep. In a dry run Deleted and FreedBytes
// count what would have been removed.
type CleanupResult struct {
	DryRun     bool           `json:"dry_run"`
	Deleted    int            `json:"deleted"`
	Failed     int            `json:"failed"`
	FreedBytes int64          `json:"freed_bytes"`
	Entries    []CleanupEntry `json:"entries"`
}

// Cleanup deletes expired backups, artifact first and then ledger entry.
// A failure on one entry is recorded and the sweep moves on. Pending and
// running jobs are never swept.
func (s *Service) Cleanup(ctx context.Context, opts CleanupOptions) (*CleanupResult, error) {
	if opts.OlderThanDays < 0 {
		return nil, fmt.Errorf("%w: older-than must not be negative", ErrInvalidConfig)
	}

	now := s.now()
	filter := ledger.ListFilter{SortAsc: true}
	if opts.OlderThanDays > 0 {
		filter.CreatedBefore = now.AddDate(0, 0, -opts.OlderThanDays)
	}

	jobs, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{DryRun: opts.DryRun, Entries: make([]CleanupEntry, 0)}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !job.IsTerminal() {
			continue
		}
		if opts.OlderThanDays == 0 && !job.IsExpired(now) {
			continue
		}

		entry := CleanupEntry{JobID: job.ID, Name: job.Name, FilePath: job.FilePath, SizeBytes: job.FileSizeBytes}
		if !opts.DryRun {
			if err := s.sweep(ctx, job); err != nil {
				entry.Error = err.Error()
				result.Failed++
				result.Entries = append(result.Entries, entry)
				logging.Ctx(ctx).Warn().Err(err).Str("job_id", job.ID).Msg("Failed to delete expired backup")
				continue
			}
		}
		result.Deleted++
		result.FreedBytes += job.FileSizeBytes
		result.Entries = append(result.Entries, entry)
	}

	if !opts.DryRun {
		metrics.RecordCleanup(result.Deleted, result.Failed, result.FreedBytes)
	}
	logging.Ctx(ctx).Info().
		Bool("dry_run", opts.DryRun).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Int64("freed_bytes", result.FreedBytes).
		Msg("Backup cleanup finished")
	return result, nil
}

func (s *Service) sweep(ctx context.Context, job *ledger.BackupJob) error {
	if err := s.deleteArtifact(ctx, job); err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, job.ID); err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	return nil
}
