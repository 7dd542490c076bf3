// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"

	"github.com/tomtom215/custodian/internal/dbdriver"
	"github.com/tomtom215/custodian/internal/ledger"
)

// CreateDatabaseBackup dumps the application database and stores the dump.
//
// The job is returned whenever a ledger entry was created. A non-nil error
// is a *JobError describing why the job did not complete.
func (s *Service) CreateDatabaseBackup(ctx context.Context, cfg BackupConfig) (*ledger.BackupJob, error) {
	return s.run(ctx, ledger.TypeDatabase, cfg, s.dumpDatabase)
}

// Create runs a job of the given type and waits for it to finish.
func (s *Service) Create(ctx context.Context, jobType ledger.JobType, cfg BackupConfig) (*ledger.BackupJob, error) {
	return s.run(ctx, jobType, cfg, s.producerFor(jobType))
}

// Start records a job of the given type and runs it in the background.
// The returned job is the pending entry. The job is detached from ctx and
// only stops early through Cancel or Shutdown.
func (s *Service) Start(ctx context.Context, jobType ledger.JobType, cfg BackupConfig) (*ledger.BackupJob, error) {
	q, err := s.enqueue(context.WithoutCancel(ctx), jobType, cfg, s.producerFor(jobType))
	if err != nil {
		return nil, err
	}
	pending := q.job.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(q) //nolint:errcheck // the outcome is recorded in the ledger and logged
	}()
	return pending, nil
}

// producerFor returns nil for job types that cannot be produced.
func (s *Service) producerFor(jobType ledger.JobType) producer {
	switch jobType {
	case ledger.TypeDatabase:
		return s.dumpDatabase
	case ledger.TypeFull:
		return s.buildFull
	case ledger.TypeFiles:
		return s.buildFiles
	default:
		return nil
	}
}

func (s *Service) dumpDatabase(ctx context.Context, p *plan) (string, error) {
	out := p.ws.Path(p.job.Name + p.driver.Extension())
	if err := p.driver.Dump(ctx, out, dumpOptions(p.cfg)); err != nil {
		return "", step("dump", err)
	}
	return out, nil
}

func dumpOptions(cfg BackupConfig) dbdriver.DumpOptions {
	return dbdriver.DumpOptions{
		IncludeTables: cfg.IncludeTables,
		ExcludeTables: cfg.ExcludeTables,
	}
}
