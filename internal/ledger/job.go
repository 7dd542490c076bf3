// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// JobType defines what a backup job captures
type JobType string

const (
	// TypeDatabase is a database dump only
	TypeDatabase JobType = "database"

	// TypeFiles is an archive of application files only
	TypeFiles JobType = "files"

	// TypeFull is a database dump plus an archive of application files
	TypeFull JobType = "full"

	// TypeIncremental is reserved and not implemented
	TypeIncremental JobType = "incremental"
)

// Status represents the lifecycle state of a backup job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is returned for a status change the state machine forbids.
var ErrInvalidTransition = errors.New("invalid backup job status transition")

var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

// StatusChange is one entry in a job's status history.
type StatusChange struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// BackupJob is the ledger record of one backup run.
type BackupJob struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          JobType `json:"type"`
	Status        Status  `json:"status"`
	StorageDriver string  `json:"storage_driver"`

	// Artifact location and integrity, set only on completion
	FilePath       string `json:"file_path,omitempty"`
	FileName       string `json:"file_name,omitempty"`
	FileSizeBytes  int64  `json:"file_size_bytes,omitempty"`
	Checksum       string `json:"checksum,omitempty"`
	ChecksumScheme string `json:"checksum_scheme,omitempty"`

	IsEncrypted          bool   `json:"is_encrypted"`
	IsCompressed         bool   `json:"is_compressed"`
	CompressionAlgorithm string `json:"compression_algorithm,omitempty"`
	DatabaseDriver       string `json:"database_driver,omitempty"`

	IncludedTables []string `json:"included_tables,omitempty"`
	ExcludedTables []string `json:"excluded_tables,omitempty"`

	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	DurationSeconds float64    `json:"duration_seconds,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`

	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	// ExpiresAt is nil when the backup never expires
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	CreatedBy    string          `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	BackupConfig json.RawMessage `json:"backup_config,omitempty"`

	History []StatusChange `json:"history"`
}

// Artifact describes a stored backup file.
type Artifact struct {
	Path     string
	Name     string
	Size     int64
	Checksum string
	Scheme   string
}

// NewJob creates a pending job.
func NewJob(name string, jobType JobType, now time.Time) *BackupJob {
	now = now.UTC()
	return &BackupJob{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: now,
		History:   []StatusChange{{Status: StatusPending, At: now}},
	}
}

// CanTransition reports whether moving from the current status to to is allowed.
func (j *BackupJob) CanTransition(to Status) bool {
	return canTransition(j.Status, to)
}

func canTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the job to status to and records it in History.
func (j *BackupJob) Transition(to Status, at time.Time) error {
	if !j.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}
	at = at.UTC()
	j.Status = to
	j.History = append(j.History, StatusChange{Status: to, At: at})
	return nil
}

// IsTerminal reports whether the job can no longer change status.
func (j *BackupJob) IsTerminal() bool {
	return len(transitions[j.Status]) == 0
}

// MarkRunning transitions to running and stamps StartedAt.
func (j *BackupJob) MarkRunning(now time.Time) error {
	if err := j.Transition(StatusRunning, now); err != nil {
		return err
	}
	started := now.UTC()
	j.StartedAt = &started
	return nil
}

func (j *BackupJob) finish(now time.Time) {
	done := now.UTC()
	j.CompletedAt = &done
	if j.StartedAt != nil {
		j.DurationSeconds = done.Sub(*j.StartedAt).Seconds()
	}
}

// MarkCompleted records the stored artifact and transitions to completed.
func (j *BackupJob) MarkCompleted(now time.Time, a Artifact) error {
	if err := j.Transition(StatusCompleted, now); err != nil {
		return err
	}
	j.FilePath = a.Path
	j.FileName = a.Name
	j.FileSizeBytes = a.Size
	j.Checksum = a.Checksum
	j.ChecksumScheme = a.Scheme
	j.ErrorMessage = ""
	j.finish(now)
	return nil
}

// MarkFailed transitions to failed with the cause as the error message.
func (j *BackupJob) MarkFailed(now time.Time, cause error) error {
	if err := j.Transition(StatusFailed, now); err != nil {
		return err
	}
	j.clearArtifact()
	if cause != nil {
		j.ErrorMessage = cause.Error()
	}
	j.finish(now)
	return nil
}

// MarkCancelled transitions to cancelled, recording reason.
func (j *BackupJob) MarkCancelled(now time.Time, reason string) error {
	if err := j.Transition(StatusCancelled, now); err != nil {
		return err
	}
	j.clearArtifact()
	j.ErrorMessage = reason
	j.finish(now)
	return nil
}

func (j *BackupJob) clearArtifact() {
	j.FilePath = ""
	j.FileName = ""
	j.FileSizeBytes = 0
	j.Checksum = ""
	j.ChecksumScheme = ""
}

// MarkVerified records a successful checksum comparison.
func (j *BackupJob) MarkVerified(now time.Time) {
	at := now.UTC()
	j.Verified = true
	j.VerifiedAt = &at
}

// ClearVerified drops the verified mark after a failed re-verification.
func (j *BackupJob) ClearVerified() {
	j.Verified = false
	j.VerifiedAt = nil
}

// SetRetention sets ExpiresAt to now + days. Zero days means never expires.
func (j *BackupJob) SetRetention(now time.Time, days int) {
	if days <= 0 {
		j.ExpiresAt = nil
		return
	}
	exp := now.UTC().AddDate(0, 0, days)
	j.ExpiresAt = &exp
}

// IsExpired reports whether the job's retention period has elapsed.
func (j *BackupJob) IsExpired(now time.Time) bool {
	return j.ExpiresAt != nil && !j.ExpiresAt.After(now)
}

// Clone returns a deep copy of the job.
func (j *BackupJob) Clone() *BackupJob {
	c := *j
	c.IncludedTables = append([]string(nil), j.IncludedTables...)
	c.ExcludedTables = append([]string(nil), j.ExcludedTables...)
	c.History = append([]StatusChange(nil), j.History...)
	c.BackupConfig = append(json.RawMessage(nil), j.BackupConfig...)
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.VerifiedAt = cloneTime(j.VerifiedAt)
	c.ExpiresAt = cloneTime(j.ExpiresAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
