// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
restore.go - Restore Orchestrator

Restore downloads a completed job's artifact into a workspace, undoes
encryption and compression, then hands the payload to the database driver
and/or the archive extractor:

	database: payload is the dump file
	files:    payload is the files tar
	full:     payload is a container with database/ and files/ parts

Restore trusts its caller: the CLI and API run Verify first and refuse to
restore an artifact that does not verify.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custodian/internal/archive"
	"github.com/tomtom215/custodian/internal/codec"
	"github.com/tomtom215/custodian/internal/dbdriver"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
)

// RestoreOptions selects what to restore. With neither flag set, everything
// the job contains is restored.
type RestoreOptions struct {
	RestoreDatabase bool `json:"restore_database"`
	RestoreFiles    bool `json:"restore_files"`
	// Overwrite replaces existing files; otherwise they are skipped.
	Overwrite bool `json:"overwrite"`
}

// RestoreResult describes a finished restore.
type RestoreResult struct {
	JobID            string                 `json:"job_id"`
	DatabaseRestored bool                   `json:"database_restored"`
	Files            *archive.ExtractResult `json:"files,omitempty"`
	DurationSeconds  float64                `json:"duration_seconds"`
}

// determineRestoreTargets resolves opts against what the job type contains.
func determineRestoreTargets(jobType ledger.JobType, opts RestoreOptions) (restoreDB, restoreFiles bool) {
	restoreDB = jobType == ledger.TypeDatabase || jobType == ledger.TypeFull
	restoreFiles = jobType == ledger.TypeFiles || jobType == ledger.TypeFull

	if opts.RestoreDatabase || opts.RestoreFiles {
		restoreDB = restoreDB && opts.RestoreDatabase
		restoreFiles = restoreFiles && opts.RestoreFiles
	}
	return restoreDB, restoreFiles
}

// Restore restores a completed job.
func (s *Service) Restore(ctx context.Context, id string, opts RestoreOptions) (result *RestoreResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordRestore(time.Since(start), err) }()

	job, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithJobID(ctx, job.ID)

	if job.Status != ledger.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrJobNotCompleted, job.Status)
	}

	restoreDB, restoreFiles := determineRestoreTargets(job.Type, opts)
	if !restoreDB && !restoreFiles {
		return nil, fmt.Errorf("%w: %s backup has nothing matching the requested restore", ErrInvalidConfig, job.Type)
	}

	var driver dbdriver.Driver
	if restoreDB {
		if driver, err = s.newDriver(); err != nil {
			return nil, err
		}
		if job.DatabaseDriver != "" && job.DatabaseDriver != driver.Engine() {
			return nil, fmt.Errorf("%w: backup is %s, configured engine is %s", ErrEngineMismatch, job.DatabaseDriver, driver.Engine())
		}
	}
	if job.IsEncrypted && s.encryptor == nil {
		return nil, ErrEncryptionUnavailable
	}

	ws, err := newWorkspace(s.cfg.Backup.TempDir, "restore")
	if err != nil {
		return nil, err
	}
	defer ws.Remove()

	payload, err := s.fetchPayload(ctx, job, ws)
	if err != nil {
		return nil, err
	}

	result = &RestoreResult{JobID: job.ID}
	dbPath, filesPath := payload, payload
	if job.Type == ledger.TypeFull {
		contents, err := archive.UnpackContainer(ctx, payload, ws.Path("container"))
		if err != nil {
			return nil, err
		}
		dbPath, filesPath = contents.DatabasePath, contents.FilesPath
	}

	logging.Ctx(ctx).Info().
		Str("name", job.Name).
		Bool("database", restoreDB).
		Bool("files", restoreFiles).
		Bool("overwrite", opts.Overwrite).
		Msg("Restore started")

	if restoreDB {
		if dbPath == "" {
			return nil, fmt.Errorf("backup %s contains no database dump", job.ID)
		}
		if err := driver.Restore(ctx, dbPath); err != nil {
			return nil, fmt.Errorf("restore database: %w", err)
		}
		result.DatabaseRestored = true
	}

	if restoreFiles {
		if filesPath == "" {
			return result, fmt.Errorf("backup %s contains no files archive", job.ID)
		}
		files, err := archive.Extract(ctx, filesPath, s.cfg.App.Root, archive.ExtractOptions{
			Overwrite:     opts.Overwrite,
			StagingDir:    ws.Path(),
			ExternalRoots: externalRoots(job, s.cfg.App.Root),
		})
		result.Files = files
		if err != nil {
			return result, fmt.Errorf("restore files: %w", err)
		}
	}

	result.DurationSeconds = time.Since(start).Seconds()
	logging.Ctx(ctx).Info().Float64("duration_seconds", result.DurationSeconds).Msg("Restore completed")
	return result, nil
}

// externalRoots returns the backup directories recorded in the job's config
// snapshot, resolved against root. Archive entries from outside the
// application root are only restored inside these.
func externalRoots(job *ledger.BackupJob, root string) []string {
	if len(job.BackupConfig) == 0 {
		return nil
	}
	var cfg BackupConfig
	if err := json.Unmarshal(job.BackupConfig, &cfg); err != nil {
		logging.Warn().Err(err).Str("job_id", job.ID).Msg("Unreadable backup config snapshot, restoring files under the application root")
		return nil
	}
	var roots []string
	for _, dir := range cfg.BackupDirectories {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		roots = append(roots, abs)
	}
	return roots
}

// fetchPayload downloads the artifact and reverses encryption and
// compression, returning the path of the plain payload.
func (s *Service) fetchPayload(ctx context.Context, job *ledger.BackupJob, ws *workspace) (string, error) {
	backend, err := s.storage.Get(job.StorageDriver)
	if err != nil {
		return "", err
	}

	rc, err := backend.Get(ctx, job.FilePath)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}
	defer rc.Close() //nolint:errcheck // read-only

	current := ws.Path(job.FileName)
	if err := writeFile(current, rc); err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}

	if job.IsEncrypted {
		out := strings.TrimSuffix(current, codec.EncryptedExtension)
		if out == current {
			out += ".dec"
		}
		if err := s.encryptor.DecryptFile(current, out); err != nil {
			return "", fmt.Errorf("decrypt artifact: %w", err)
		}
		current = out
	}

	if job.IsCompressed {
		algo := codec.Algorithm(job.CompressionAlgorithm)
		out := strings.TrimSuffix(current, codec.ExtensionFor(algo))
		if out == current {
			out += ".raw"
		}
		if err := codec.DecompressFile(algo, current, out); err != nil {
			return "", fmt.Errorf("decompress artifact: %w", err)
		}
		current = out
	}
	return current, nil
}

func writeFile(dst string, r io.Reader) error {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600) //nolint:gosec // G304: workspace path
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
