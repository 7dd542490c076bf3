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

type commandVerify struct {
	jobID string
	all   bool
	force bool
}

func (c *commandVerify) setup(a *App) {
	cmd := a.app.Command("backup:verify", "Check stored backups against their recorded checksums.")
	cmd.Arg("job_id", "ID of a single job to verify; all unverified completed jobs when omitted.").StringVar(&c.jobID)
	cmd.Flag("all", "Verify every unverified completed job.").BoolVar(&c.all)
	cmd.Flag("force", "Re-verify jobs that were already verified.").BoolVar(&c.force)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		return c.run(ctx, a, env)
	}))
}

func (c *commandVerify) run(ctx context.Context, a *App, env *environment) error {
	var results []*backup.VerifyResult

	switch {
	case c.jobID != "" && c.all:
		return fmt.Errorf("%w: a job id and --all are mutually exclusive", backup.ErrInvalidConfig)
	case c.jobID != "":
		res, err := env.svc.Verify(ctx, c.jobID)
		if err != nil {
			return err
		}
		results = append(results, res)
	default:
		var err error
		if results, err = env.svc.VerifyAll(ctx, c.force); err != nil {
			return err
		}
	}

	if len(results) == 0 {
		fmt.Fprintln(a.stdout, "No backups to verify.")
		return nil
	}
	printVerifyResults(a.stdout, results)

	failed := 0
	for _, r := range results {
		if !r.Valid {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d backups did not verify", errBatchFailed, failed, len(results))
	}
	return nil
}
