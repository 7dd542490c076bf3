// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
pipeline.go - Backup Job Pipeline

This file drives one backup job from ledger creation to its terminal state.
The type-specific part (dump, archive, container) is a producer that writes
the payload into the job workspace; everything after it is shared:

	payload -> compress -> checksum -> encrypt -> Put -> completed

Ledger bookkeeping uses a context detached from the caller's cancellation,
so a job interrupted by its caller still records why it stopped.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/custodian/internal/codec"
	"github.com/tomtom215/custodian/internal/dbdriver"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
	"github.com/tomtom215/custodian/internal/storage"
)

// plan is everything a producer needs for one job.
type plan struct {
	job        *ledger.BackupJob
	cfg        BackupConfig
	driver     dbdriver.Driver
	backend    storage.Backend
	compressor *codec.Compressor
	ws         *workspace
}

// producer writes the uncompressed payload of a job and returns its path.
type producer func(ctx context.Context, p *plan) (string, error)

func needsDatabase(t ledger.JobType) bool {
	return t == ledger.TypeDatabase || t == ledger.TypeFull
}

// queued is a job that has a ledger entry and is waiting to run.
type queued struct {
	job     *ledger.BackupJob
	cfg     BackupConfig
	cfgErr  error
	produce producer

	ctx    context.Context
	jobCtx context.Context
	cancel context.CancelFunc
}

// run executes one job. produce is nil for unsupported job types.
func (s *Service) run(ctx context.Context, jobType ledger.JobType, req BackupConfig, produce producer) (*ledger.BackupJob, error) {
	q, err := s.enqueue(ctx, jobType, req, produce)
	if err != nil {
		return nil, err
	}
	return s.execute(q)
}

// enqueue records the pending job and registers it for Cancel. A request
// that does not validate still gets an entry; execute fails it.
func (s *Service) enqueue(ctx context.Context, jobType ledger.JobType, req BackupConfig, produce producer) (*queued, error) {
	now := s.now()
	cfg, cfgErr := s.normalize(req, jobType, now)
	if produce == nil && cfgErr == nil {
		cfgErr = fmt.Errorf("%w: %s", ErrUnsupportedType, jobType)
	}

	job := s.newJob(cfg, jobType, now)
	ctx = logging.ContextWithJobID(ctx, job.ID)

	if err := s.ledger.Create(context.WithoutCancel(ctx), job); err != nil {
		return nil, &JobError{JobID: job.ID, Op: "create", Err: err}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.track(job.ID, cancel)
	s.publish(ctx, job)

	return &queued{
		job:     job,
		cfg:     cfg,
		cfgErr:  cfgErr,
		produce: produce,
		ctx:     ctx,
		jobCtx:  jobCtx,
		cancel:  cancel,
	}, nil
}

// execute drives a queued job to a terminal state.
func (s *Service) execute(q *queued) (*ledger.BackupJob, error) {
	defer q.cancel()
	defer s.untrack(q.job.ID)

	ctx, jobCtx, job, cfg := q.ctx, q.jobCtx, q.job, q.cfg
	bookkeeping := context.WithoutCancel(ctx)
	log := logging.Ctx(ctx)

	if err := job.MarkRunning(s.now()); err != nil {
		return job, &JobError{JobID: job.ID, Op: "start", Err: err}
	}
	if err := s.ledger.Update(bookkeeping, job); err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			return s.cancelled(bookkeeping, job, "start")
		}
		return job, &JobError{JobID: job.ID, Op: "start", Err: err}
	}
	metrics.TrackRunningJob(true)
	defer metrics.TrackRunningJob(false)
	s.publish(ctx, job)

	log.Info().
		Str("name", job.Name).
		Str("type", string(job.Type)).
		Str("storage", job.StorageDriver).
		Bool("compress", job.IsCompressed).
		Bool("encrypt", job.IsEncrypted).
		Msg("Backup job started")

	if q.cfgErr != nil {
		return s.fail(ctx, job, "validate", q.cfgErr)
	}

	p, err := s.preparePlan(job, cfg)
	if err != nil {
		return s.fail(ctx, job, "validate", err)
	}

	p.ws, err = newWorkspace(s.cfg.Backup.TempDir, string(job.Type))
	if err != nil {
		return s.fail(ctx, job, "workspace", err)
	}
	defer p.ws.Remove()

	payload, err := q.produce(jobCtx, p)
	if err != nil {
		return s.fail(ctx, job, "produce", err)
	}

	artifact, err := s.storeArtifact(jobCtx, p, payload)
	if err != nil {
		return s.fail(ctx, job, "store", err)
	}

	if err := job.MarkCompleted(s.now(), artifact); err != nil {
		return s.fail(ctx, job, "complete", err)
	}
	if err := s.ledger.Update(bookkeeping, job); err != nil {
		// The artifact is unreachable without a completed entry.
		if delErr := p.backend.Delete(bookkeeping, artifact.Path); delErr != nil {
			log.Warn().Err(delErr).Str("path", artifact.Path).Msg("Failed to remove orphaned artifact")
		}
		if errors.Is(err, ledger.ErrInvalidTransition) {
			return s.cancelled(bookkeeping, job, "complete")
		}
		return job, &JobError{JobID: job.ID, Op: "complete", Err: err}
	}

	s.finish(ctx, job)
	log.Info().
		Str("path", job.FilePath).
		Int64("size_bytes", job.FileSizeBytes).
		Float64("duration_seconds", job.DurationSeconds).
		Msg("Backup job completed")
	return job, nil
}

// newJob builds the pending ledger entry for cfg.
func (s *Service) newJob(cfg BackupConfig, jobType ledger.JobType, now time.Time) *ledger.BackupJob {
	job := ledger.NewJob(cfg.Name, jobType, now)
	job.StorageDriver = cfg.StorageDriver
	job.IsEncrypted = cfg.Encrypt
	job.IsCompressed = cfg.Compress
	if cfg.Compress {
		algo := s.cfg.Backup.CompressionAlgorithm
		if algo == "" {
			algo = string(codec.Gzip)
		}
		job.CompressionAlgorithm = algo
	}
	if needsDatabase(jobType) {
		if engine, err := dbdriver.NormalizeEngine(s.cfg.Database.Driver); err == nil {
			job.DatabaseDriver = engine
		}
		job.IncludedTables = append([]string(nil), cfg.IncludeTables...)
		job.ExcludedTables = append([]string(nil), cfg.ExcludeTables...)
	}
	job.CreatedBy = cfg.CreatedBy
	job.SetRetention(now, cfg.RetentionDays)

	if snapshot, err := json.Marshal(cfg); err == nil {
		job.BackupConfig = snapshot
	}
	return job
}

// preparePlan resolves the collaborators of a job without touching disk.
func (s *Service) preparePlan(job *ledger.BackupJob, cfg BackupConfig) (*plan, error) {
	p := &plan{job: job, cfg: cfg}

	var err error
	if p.backend, err = s.storage.Get(cfg.StorageDriver); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if cfg.Encrypt && s.encryptor == nil {
		return nil, ErrEncryptionUnavailable
	}
	if cfg.Compress {
		p.compressor, err = codec.NewCompressor(job.CompressionAlgorithm, s.cfg.Backup.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if needsDatabase(job.Type) {
		if p.driver, err = s.newDriver(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// storeArtifact compresses, hashes, encrypts and uploads payload.
func (s *Service) storeArtifact(ctx context.Context, p *plan, payload string) (ledger.Artifact, error) {
	current := payload

	if p.compressor != nil {
		out := current + p.compressor.Extension()
		if err := p.compressor.CompressFile(current, out); err != nil {
			return ledger.Artifact{}, step("compress", err)
		}
		_ = os.Remove(current) //nolint:errcheck // workspace is removed anyway
		current = out
	}
	if err := ctx.Err(); err != nil {
		return ledger.Artifact{}, step("compress", err)
	}

	sum, _, err := codec.ChecksumFile(current)
	if err != nil {
		return ledger.Artifact{}, step("checksum", err)
	}

	if p.cfg.Encrypt {
		out := current + codec.EncryptedExtension
		if err := s.encryptor.EncryptFile(current, out); err != nil {
			return ledger.Artifact{}, step("encrypt", err)
		}
		_ = os.Remove(current) //nolint:errcheck // workspace is removed anyway
		current = out
	}

	fileName := filepath.Base(current)
	key, err := storage.CleanPath(path.Join(s.cfg.Backup.PathPrefix, p.job.Name, fileName))
	if err != nil {
		return ledger.Artifact{}, step("store", err)
	}

	f, err := os.Open(current) //nolint:gosec // G304: workspace path
	if err != nil {
		return ledger.Artifact{}, step("store", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	info, err := f.Stat()
	if err != nil {
		return ledger.Artifact{}, step("store", err)
	}
	if err := p.backend.Put(ctx, key, f, info.Size()); err != nil {
		return ledger.Artifact{}, step("store", err)
	}

	return ledger.Artifact{
		Path:     key,
		Name:     fileName,
		Size:     info.Size(),
		Checksum: sum,
		Scheme:   codec.ChecksumScheme,
	}, nil
}

// fail records cause on job. When the stored entry was cancelled meanwhile
// the cancelled entry is returned instead.
func (s *Service) fail(ctx context.Context, job *ledger.BackupJob, defaultOp string, cause error) (*ledger.BackupJob, error) {
	op, cause := splitStep(defaultOp, cause)
	bookkeeping := context.WithoutCancel(ctx)

	if err := job.MarkFailed(s.now(), cause); err != nil {
		return job, &JobError{JobID: job.ID, Op: op, Err: cause}
	}
	if err := s.ledger.Update(bookkeeping, job); err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			return s.cancelled(bookkeeping, job, op)
		}
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to record backup job failure")
	}

	logging.Ctx(ctx).Error().Err(cause).Str("step", op).Msg("Backup job failed")
	s.finish(ctx, job)
	return job, &JobError{JobID: job.ID, Op: op, Err: cause}
}

// cancelled returns the stored, cancelled entry of job.
func (s *Service) cancelled(ctx context.Context, job *ledger.BackupJob, op string) (*ledger.BackupJob, error) {
	stored, err := s.ledger.Get(ctx, job.ID)
	if err != nil {
		stored = job
	}
	logging.Ctx(ctx).Warn().Str("step", op).Str("status", string(stored.Status)).Msg("Backup job stopped after cancellation")
	metrics.RecordJobFinished(string(stored.Type), string(stored.Status), time.Duration(stored.DurationSeconds*float64(time.Second)), 0)
	return stored, &JobError{JobID: job.ID, Op: op, Err: ErrJobCancelled}
}

// finish records metrics and the terminal event.
func (s *Service) finish(ctx context.Context, job *ledger.BackupJob) {
	duration := time.Duration(job.DurationSeconds * float64(time.Second))
	metrics.RecordJobFinished(string(job.Type), string(job.Status), duration, job.FileSizeBytes)
	s.publish(ctx, job)
}
