// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package ledger

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrNotFound is returned when a job ID has no ledger entry.
var ErrNotFound = errors.New("backup job not found")

// ErrStoreClosed is returned after Close.
var ErrStoreClosed = errors.New("ledger store closed")

// ListFilter narrows and paginates List results. Zero values match everything.
type ListFilter struct {
	Status        Status
	Type          JobType
	StorageDriver string
	// CreatedBefore keeps jobs created strictly before this instant.
	CreatedBefore time.Time
	Limit         int
	Offset        int
	// SortAsc orders by CreatedAt ascending instead of newest first.
	SortAsc bool
}

// Store persists backup jobs.
type Store interface {
	Create(ctx context.Context, job *BackupJob) error
	Get(ctx context.Context, id string) (*BackupJob, error)
	Update(ctx context.Context, job *BackupJob) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter ListFilter) ([]*BackupJob, error)
	Close() error
}

func (f ListFilter) matches(j *BackupJob) bool {
	if f.Status != "" && j.Status != f.Status {
		return false
	}
	if f.Type != "" && j.Type != f.Type {
		return false
	}
	if f.StorageDriver != "" && j.StorageDriver != f.StorageDriver {
		return false
	}
	if !f.CreatedBefore.IsZero() && !j.CreatedAt.Before(f.CreatedBefore) {
		return false
	}
	return true
}

func sortJobs(jobs []*BackupJob, asc bool) {
	sort.SliceStable(jobs, func(a, b int) bool {
		if asc {
			return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
		}
		return jobs[a].CreatedAt.After(jobs[b].CreatedAt)
	})
}

func paginate(jobs []*BackupJob, offset, limit int) []*BackupJob {
	if offset > 0 {
		if offset >= len(jobs) {
			return []*BackupJob{}
		}
		jobs = jobs[offset:]
	}
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}
