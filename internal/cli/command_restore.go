// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/logging"
)

var (
	errVerificationFailed = errors.New("backup verification failed")
	errAborted            = errors.New("aborted by operator")
)

type commandRestore struct {
	jobID        string
	databaseOnly bool
	filesOnly    bool
	overwrite    bool
	force        bool
}

func (c *commandRestore) setup(a *App) {
	cmd := a.app.Command("backup:restore", "Verify a backup and restore it over the running application.")
	cmd.Arg("job_id", "ID of the backup job to restore.").Required().StringVar(&c.jobID)
	cmd.Flag("database-only", "Restore only the database.").BoolVar(&c.databaseOnly)
	cmd.Flag("files-only", "Restore only the application files.").BoolVar(&c.filesOnly)
	cmd.Flag("overwrite-files", "Replace files that already exist.").BoolVar(&c.overwrite)
	cmd.Flag("force", "Do not ask for confirmation.").BoolVar(&c.force)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		return c.run(ctx, a, env)
	}))
}

func (c *commandRestore) run(ctx context.Context, a *App, env *environment) error {
	if c.databaseOnly && c.filesOnly {
		return fmt.Errorf("%w: --database-only and --files-only are mutually exclusive", backup.ErrInvalidConfig)
	}

	vr, err := env.svc.Verify(ctx, c.jobID)
	if err != nil {
		return err
	}
	if !vr.Valid {
		printVerifyResults(a.stdout, []*backup.VerifyResult{vr})
		return fmt.Errorf("%w: %s", errVerificationFailed, vr.Reason)
	}
	fmt.Fprintf(a.stdout, "Backup %s (%s) verified.\n", vr.Name, vr.JobID)

	if !c.force && !confirm(a.stdin, a.stdout, fmt.Sprintf("Restore %q over the current application?", vr.Name)) {
		return errAborted
	}

	res, err := env.svc.Restore(logging.ContextWithActor(ctx, currentUser()), c.jobID, backup.RestoreOptions{
		RestoreDatabase: c.databaseOnly,
		RestoreFiles:    c.filesOnly,
		Overwrite:       c.overwrite,
	})
	if err != nil {
		return err
	}

	if res.DatabaseRestored {
		fmt.Fprintln(a.stdout, "Database restored.")
	}
	if res.Files != nil {
		fmt.Fprintf(a.stdout, "Files restored: %d, skipped: %d.\n", res.Files.Restored, res.Files.Skipped)
	}
	fmt.Fprintf(a.stdout, "Restore finished in %.2fs.\n", res.DurationSeconds)
	return nil
}
