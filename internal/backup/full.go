// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/custodian/internal/archive"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
)

// CreateFullBackup dumps the database and archives the application
// directories concurrently, then stores both in one container.
// Either leg failing fails the job.
func (s *Service) CreateFullBackup(ctx context.Context, cfg BackupConfig) (*ledger.BackupJob, error) {
	return s.run(ctx, ledger.TypeFull, cfg, s.buildFull)
}

// CreateFilesBackup archives the application directories only.
func (s *Service) CreateFilesBackup(ctx context.Context, cfg BackupConfig) (*ledger.BackupJob, error) {
	return s.run(ctx, ledger.TypeFiles, cfg, s.buildFiles)
}

func (s *Service) buildFull(ctx context.Context, p *plan) (string, error) {
	dbDir, err := p.ws.Mkdir(archive.DatabaseDir)
	if err != nil {
		return "", step("workspace", err)
	}
	filesDir, err := p.ws.Mkdir(archive.FilesDir)
	if err != nil {
		return "", step("workspace", err)
	}

	dumpPath := filepath.Join(dbDir, p.job.Name+p.driver.Extension())
	filesPath := filepath.Join(filesDir, p.job.Name+"_files.tar")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return step("dump", p.driver.Dump(gctx, dumpPath, dumpOptions(p.cfg)))
	})
	g.Go(func() error {
		return s.archiveFiles(gctx, filesPath, p.cfg)
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	out := p.ws.Path(p.job.Name + ".tar")
	if err := archive.PackContainer(out, dumpPath, filesPath); err != nil {
		return "", step("package", err)
	}
	_ = os.RemoveAll(dbDir)    //nolint:errcheck // workspace is removed anyway
	_ = os.RemoveAll(filesDir) //nolint:errcheck // workspace is removed anyway
	return out, nil
}

func (s *Service) buildFiles(ctx context.Context, p *plan) (string, error) {
	out := p.ws.Path(p.job.Name + "_files.tar")
	if err := s.archiveFiles(ctx, out, p.cfg); err != nil {
		return "", err
	}
	return out, nil
}

func (s *Service) archiveFiles(ctx context.Context, out string, cfg BackupConfig) error {
	builder, err := archive.NewBuilder(s.cfg.App.Root, cfg.ExcludePatterns)
	if err != nil {
		return step("validate", err)
	}
	res, err := builder.Build(ctx, out, cfg.BackupDirectories)
	if err != nil {
		return step("archive", err)
	}
	logging.Ctx(ctx).Info().
		Int("files", res.Files).
		Int64("bytes", res.Bytes).
		Strs("skipped", res.Skipped).
		Msg("Application files archived")
	return nil
}
