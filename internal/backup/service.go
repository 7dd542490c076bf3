// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

/*
service.go - Backup Service

This file contains the Service struct, its construction, and the ledger
operations that do not run a pipeline: List, Get, Delete, Cancel and
DownloadURL.

Cancellation:
Every running job registers the cancel func of its context. Cancel marks the
ledger entry cancelled first and then cancels the context, which kills any
dump subprocess. The worker notices the stored status when it tries to record
its own outcome and returns the cancelled job.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/custodian/internal/codec"
	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/dbdriver"
	"github.com/tomtom215/custodian/internal/events"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/storage"
)

// DriverFactory builds the database driver for a connection.
type DriverFactory func(conn dbdriver.ConnectionConfig, tools dbdriver.Tools) (dbdriver.Driver, error)

// Options are the collaborators of a Service.
type Options struct {
	Config  *config.Config
	Ledger  ledger.Store
	Storage *storage.Registry

	// Drivers defaults to dbdriver.New.
	Drivers DriverFactory
	// Encryptor is nil when no encryption key is configured.
	Encryptor *codec.Encryptor
	// Publisher defaults to events.Noop.
	Publisher events.Publisher
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs backup, verify, restore and cleanup operations.
type Service struct {
	cfg       *config.Config
	ledger    ledger.Store
	storage   *storage.Registry
	drivers   DriverFactory
	encryptor *codec.Encryptor
	publisher events.Publisher
	now       func() time.Time

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a Service.
func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("backup configuration is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if opts.Storage == nil {
		return nil, fmt.Errorf("storage registry is required")
	}
	if opts.Config.Backup.Compress || opts.Config.Backup.CompressionAlgorithm != "" {
		if _, err := codec.NewCompressor(opts.Config.Backup.CompressionAlgorithm, opts.Config.Backup.CompressionLevel); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	s := &Service{
		cfg:       opts.Config,
		ledger:    opts.Ledger,
		storage:   opts.Storage,
		drivers:   opts.Drivers,
		encryptor: opts.Encryptor,
		publisher: opts.Publisher,
		now:       opts.Now,
		running:   make(map[string]context.CancelFunc),
	}
	if s.drivers == nil {
		s.drivers = dbdriver.New
	}
	if s.publisher == nil {
		s.publisher = events.Noop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// newDriver builds the driver for the configured application database.
func (s *Service) newDriver() (dbdriver.Driver, error) {
	db := s.cfg.Database
	return s.drivers(dbdriver.ConnectionConfig{
		Driver:    db.Driver,
		Host:      db.Host,
		Port:      db.Port,
		Username:  db.Username,
		Password:  db.Password,
		Database:  db.Database,
		Preflight: db.Preflight,
		Timeout:   db.DumpTimeout,
	}, dbdriver.Tools{
		MySQLDump: db.Tools.MySQLDump,
		MySQL:     db.Tools.MySQL,
		PGDump:    db.Tools.PGDump,
		PSQL:      db.Tools.PSQL,
	})
}

// publish emits the lifecycle event for job's current status. Failures are
// logged only.
func (s *Service) publish(ctx context.Context, job *ledger.BackupJob) {
	if err := s.publisher.PublishJob(ctx, job); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("status", string(job.Status)).Msg("Failed to publish job event")
	}
}

func (s *Service) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[id] = cancel
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, id)
}

// List returns ledger entries matching filter.
func (s *Service) List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.BackupJob, error) {
	return s.ledger.List(ctx, filter)
}

// Get returns one ledger entry.
func (s *Service) Get(ctx context.Context, id string) (*ledger.BackupJob, error) {
	return s.ledger.Get(ctx, id)
}

// Delete removes a finished job's artifact and then its ledger entry.
func (s *Service) Delete(ctx context.Context, id string) (*ledger.BackupJob, error) {
	job, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.IsTerminal() {
		return job, fmt.Errorf("%w: %s", ErrJobActive, job.Status)
	}

	if err := s.deleteArtifact(ctx, job); err != nil {
		return job, err
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return job, fmt.Errorf("delete ledger entry: %w", err)
	}

	logging.Ctx(ctx).Info().Str("job_id", id).Str("path", job.FilePath).Msg("Backup deleted")
	return job, nil
}

func (s *Service) deleteArtifact(ctx context.Context, job *ledger.BackupJob) error {
	if job.FilePath == "" {
		return nil
	}
	backend, err := s.storage.Get(job.StorageDriver)
	if err != nil {
		return err
	}
	if err := backend.Delete(ctx, job.FilePath); err != nil {
		return fmt.Errorf("delete artifact %s: %w", job.FilePath, err)
	}
	return nil
}

// Cancel marks a pending or running job cancelled and stops its work.
func (s *Service) Cancel(ctx context.Context, id string) (*ledger.BackupJob, error) {
	job, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return job, fmt.Errorf("%w: %s", ErrJobNotActive, job.Status)
	}

	reason := "cancelled"
	if actor := logging.ActorFromContext(ctx); actor != "" {
		reason = "cancelled by " + actor
	}
	if err := job.MarkCancelled(s.now(), reason); err != nil {
		return job, err
	}
	if err := s.ledger.Update(ctx, job); err != nil {
		if errors.Is(err, ledger.ErrInvalidTransition) {
			return job, fmt.Errorf("%w: finished while cancelling", ErrJobNotActive)
		}
		return job, fmt.Errorf("record cancellation: %w", err)
	}

	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}

	s.publish(ctx, job)
	logging.Ctx(ctx).Info().Str("job_id", id).Bool("in_flight", ok).Msg("Backup job cancelled")
	return job, nil
}

// Shutdown cancels every in-flight job and waits until jobs started with
// Start have recorded their outcome, or until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	cancelCtx := logging.ContextWithActor(context.WithoutCancel(ctx), "shutdown")
	for _, id := range ids {
		if _, err := s.Cancel(cancelCtx, id); err != nil && !errors.Is(err, ErrJobNotActive) {
			logging.Warn().Err(err).Str("job_id", id).Msg("Failed to cancel backup job on shutdown")
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DownloadURL returns a time-limited URL for a completed job's artifact.
func (s *Service) DownloadURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	job, err := s.ledger.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != ledger.StatusCompleted {
		return "", fmt.Errorf("%w: %s", ErrJobNotCompleted, job.Status)
	}
	backend, err := s.storage.Get(job.StorageDriver)
	if err != nil {
		return "", err
	}
	return backend.TemporaryURL(ctx, job.FilePath, ttl)
}
