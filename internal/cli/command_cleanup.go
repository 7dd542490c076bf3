// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"context"
	"fmt"

	"github.com/tomtom215/custodian/internal/backup"
)

type commandCleanup struct {
	dryRun    bool
	force     bool
	olderThan int
}

func (c *commandCleanup) setup(a *App) {
	cmd := a.app.Command("backup:cleanup", "Delete expired backups and their ledger entries.")
	cmd.Flag("dry-run", "Only report what would be deleted.").BoolVar(&c.dryRun)
	cmd.Flag("force", "Do not ask for confirmation.").BoolVar(&c.force)
	cmd.Flag("older-than", "Delete finished backups older than this many days, ignoring their expiry.").PlaceHolder("DAYS").IntVar(&c.olderThan)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		return c.run(ctx, a, env)
	}))
}

func (c *commandCleanup) run(ctx context.Context, a *App, env *environment) error {
	opts := backup.CleanupOptions{DryRun: c.dryRun, OlderThanDays: c.olderThan}

	if !c.dryRun && !c.force {
		preview, err := env.svc.Cleanup(ctx, backup.CleanupOptions{DryRun: true, OlderThanDays: c.olderThan})
		if err != nil {
			return err
		}
		printCleanup(a.stdout, preview)
		if len(preview.Entries) == 0 {
			return nil
		}
		if !confirm(a.stdin, a.stdout, fmt.Sprintf("Delete %d backup(s)?", len(preview.Entries))) {
			return errAborted
		}
	}

	res, err := env.svc.Cleanup(ctx, opts)
	if err != nil {
		return err
	}
	printCleanup(a.stdout, res)
	if res.Failed > 0 {
		return fmt.Errorf("%w: %d backup(s) could not be deleted", errBatchFailed, res.Failed)
	}
	return nil
}
