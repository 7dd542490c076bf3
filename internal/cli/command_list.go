// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"context"
	"fmt"

	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
)

type commandList struct {
	status string
	limit  int
}

func (c *commandList) setup(a *App) {
	cmd := a.app.Command("backup:list", "List backup jobs, newest first.")
	cmd.Flag("status", "Only show jobs in this status.").EnumVar(&c.status,
		string(ledger.StatusPending), string(ledger.StatusRunning), string(ledger.StatusCompleted),
		string(ledger.StatusFailed), string(ledger.StatusCancelled))
	cmd.Flag("limit", "Maximum number of jobs to show; 0 for all.").Default("20").IntVar(&c.limit)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		jobs, err := env.svc.List(ctx, ledger.ListFilter{Status: ledger.Status(c.status), Limit: c.limit})
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(a.stdout, "No backups found.")
			return nil
		}
		printJobTable(a.stdout, jobs)
		return nil
	}))
}

type commandCancel struct {
	jobID string
}

func (c *commandCancel) setup(a *App) {
	cmd := a.app.Command("backup:cancel", "Cancel a pending or running backup job.")
	cmd.Arg("job_id", "ID of the job to cancel.").Required().StringVar(&c.jobID)
	cmd.Action(a.action(func(ctx context.Context, env *environment) error {
		job, err := env.svc.Cancel(logging.ContextWithActor(ctx, currentUser()), c.jobID)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Job %s %s.\n", job.ID, job.Status)
		return nil
	}))
}
