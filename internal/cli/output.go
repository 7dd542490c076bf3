// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/tomtom215/custodian/internal/backup"
	"github.com/tomtom215/custodian/internal/ledger"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func formatSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

// printJob prints a job summary after a backup command.
func printJob(w io.Writer, job *ledger.BackupJob) {
	t := newTable(w)
	fmt.Fprintf(t, "Job ID:\t%s\n", job.ID)
	fmt.Fprintf(t, "Name:\t%s\n", job.Name)
	fmt.Fprintf(t, "Type:\t%s\n", job.Type)
	fmt.Fprintf(t, "Status:\t%s\n", statusText(job.Status))
	fmt.Fprintf(t, "Storage:\t%s\n", job.StorageDriver)
	if job.FilePath != "" {
		fmt.Fprintf(t, "File:\t%s\n", job.FilePath)
		fmt.Fprintf(t, "Size:\t%s\n", formatSize(job.FileSizeBytes))
		fmt.Fprintf(t, "Checksum:\t%s\n", job.Checksum)
	}
	fmt.Fprintf(t, "Encrypted:\t%t\n", job.IsEncrypted)
	fmt.Fprintf(t, "Compressed:\t%t\n", job.IsCompressed)
	if job.DurationSeconds > 0 {
		fmt.Fprintf(t, "Duration:\t%.2fs\n", job.DurationSeconds)
	}
	fmt.Fprintf(t, "Expires:\t%s\n", formatTime(job.ExpiresAt))
	if job.ErrorMessage != "" {
		fmt.Fprintf(t, "Error:\t%s\n", job.ErrorMessage)
	}
	t.Flush() //nolint:errcheck // best-effort terminal output
}

func printJobTable(w io.Writer, jobs []*ledger.BackupJob) {
	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tTYPE\tSTATUS\tSTORAGE\tSIZE\tVERIFIED\tCREATED\tEXPIRES")
	for _, j := range jobs {
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			j.ID, j.Name, j.Type, j.Status, j.StorageDriver, formatSize(j.FileSizeBytes),
			j.Verified, formatTime(&j.CreatedAt), formatTime(j.ExpiresAt))
	}
	t.Flush() //nolint:errcheck // best-effort terminal output
}

func printVerifyResults(w io.Writer, results []*backup.VerifyResult) {
	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tRESULT\tDETAIL")
	for _, r := range results {
		result := okColor.Sprint("OK")
		detail := r.Checksum
		if !r.Valid {
			result = failColor.Sprint("FAILED")
			detail = r.Reason
		} else if r.Reason != "" {
			detail = r.Reason
		}
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\n", r.JobID, r.Name, result, detail)
	}
	t.Flush() //nolint:errcheck // best-effort terminal output
}

func printCleanup(w io.Writer, res *backup.CleanupResult) {
	verb := "Deleted"
	if res.DryRun {
		verb = "Would delete"
	}
	if len(res.Entries) == 0 {
		fmt.Fprintln(w, "No expired backups.")
		return
	}

	t := newTable(w)
	fmt.Fprintln(t, "ID\tNAME\tSIZE\tRESULT")
	for _, e := range res.Entries {
		result := verb
		if e.Error != "" {
			result = failColor.Sprint("FAILED: " + e.Error)
		}
		fmt.Fprintf(t, "%s\t%s\t%s\t%s\n", e.JobID, e.Name, formatSize(e.SizeBytes), result)
	}
	t.Flush() //nolint:errcheck // best-effort terminal output

	fmt.Fprintf(w, "%s %d backup(s), %s freed", verb, res.Deleted, humanize.IBytes(uint64(res.FreedBytes)))
	if res.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", res.Failed)
	}
	fmt.Fprintln(w)
}

func statusText(s ledger.Status) string {
	switch s {
	case ledger.StatusCompleted:
		return okColor.Sprint(string(s))
	case ledger.StatusFailed:
		return failColor.Sprint(string(s))
	case ledger.StatusCancelled:
		return warnColor.Sprint(string(s))
	default:
		return string(s)
	}
}

// confirm asks a yes/no question on in; anything but y/yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
