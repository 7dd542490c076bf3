// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"context"
	"os/user"

	"github.com/alecthomas/kingpin/v2"

	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/config"
	"github.com/tomtom215/custodian/internal/ledger"
)

// backupFlags are shared by backup:database and backup:full.
type backupFlags struct {
	name          string
	encrypt       bool
	noCompress    bool
	storage       string
	retention     int
	retentionSet  bool
	includeTables string
	excludeTables string
}

func (f *backupFlags) setup(cmd *kingpin.CmdClause) {
	cmd.Flag("name", "Backup name; generated from type and time when empty.").StringVar(&f.name)
	cmd.Flag("encrypt", "Encrypt the artifact with the application key.").BoolVar(&f.encrypt)
	cmd.Flag("no-compress", "Store the artifact uncompressed.").BoolVar(&f.noCompress)
	cmd.Flag("storage", "Storage backend name (local, private, s3).").StringVar(&f.storage)
	cmd.Flag("retention", "Retention in days; 0 keeps the backup forever.").PlaceHolder("DAYS").IsSetByUser(&f.retentionSet).IntVar(&f.retention)
	cmd.Flag("include-tables", "Comma-separated tables to dump; all tables when empty.").PlaceHolder("T1,T2").StringVar(&f.includeTables)
	cmd.Flag("exclude-tables", "Comma-separated tables to skip; replaces the configured list.").PlaceHolder("T1,T2").StringVar(&f.excludeTables)
}

// apply overrides the service defaults with the flags that were given.
func (f *backupFlags) apply(cfg *backup.BackupConfig) {
	cfg.Name = f.name
	cfg.Encrypt = f.encrypt
	if f.noCompress {
		cfg.Compress = false
	}
	if f.storage != "" {
		cfg.StorageDriver = f.storage
	}
	if f.retentionSet {
		cfg.RetentionDays = f.retention
	}
	if f.includeTables != "" {
		cfg.IncludeTables = config.SplitList(f.includeTables)
	}
	if f.excludeTables != "" {
		cfg.ExcludeTables = config.SplitList(f.excludeTables)
	}
	cfg.CreatedBy = currentUser()
}

type commandBackupDatabase struct {
	flags backupFlags
}

func (c *commandBackupDatabase) setup(a *App) {
	cmd := a.app.Command("backup:database", "Dump the application database into a backup.")
	c.flags.setup(cmd)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		cfg := env.svc.DefaultBackupConfig()
		c.flags.apply(&cfg)
		return runBackup(ctx, a, env, ledger.TypeDatabase, cfg)
	}))
}

type commandBackupFull struct {
	flags           backupFlags
	directories     string
	excludePatterns string
}

func (c *commandBackupFull) setup(a *App) {
	cmd := a.app.Command("backup:full", "Back up the database and the application files.")
	c.flags.setup(cmd)
	cmd.Flag("backup-directories", "Comma-separated directories or files to archive, relative to the application root.").PlaceHolder("D1,D2").StringVar(&c.directories)
	cmd.Flag("exclude-patterns", "Comma-separated glob patterns to leave out of the archive.").PlaceHolder("P1,P2").StringVar(&c.excludePatterns)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		cfg := env.svc.DefaultBackupConfig()
		c.flags.apply(&cfg)
		if c.directories != "" {
			cfg.BackupDirectories = config.SplitList(c.directories)
		}
		if c.excludePatterns != "" {
			cfg.ExcludePatterns = config.SplitList(c.excludePatterns)
		}
		return runBackup(ctx, a, env, ledger.TypeFull, cfg)
	}))
}

func runBackup(ctx context.Context, a *App, env *environment, jobType ledger.JobType, cfg backup.BackupConfig) error {
	job, err := env.svc.Create(ctx, jobType, cfg)
	if job != nil {
		printJob(a.stdout, job)
	}
	return err
}

// currentUser names the operator for CreatedBy.
func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "cli"
	}
	return "cli:" + u.Username
}
