// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for a BackupConfig that cannot be run.
	ErrInvalidConfig = errors.New("invalid backup configuration")

	// ErrUnsupportedType is returned for job types the engine does not implement.
	ErrUnsupportedType = errors.New("unsupported backup type")

	// ErrEncryptionUnavailable is returned when encryption is requested without a key.
	ErrEncryptionUnavailable = errors.New("encryption requested but no encryption key is configured")

	// ErrJobNotCompleted is returned when restoring or downloading an unfinished job.
	ErrJobNotCompleted = errors.New("backup job is not completed")

	// ErrJobActive is returned when deleting a pending or running job.
	ErrJobActive = errors.New("backup job is still active")

	// ErrJobNotActive is returned when cancelling a job that already finished.
	ErrJobNotActive = errors.New("backup job is not active")

	// ErrJobCancelled is the cause recorded when a job stops because it was cancelled.
	ErrJobCancelled = errors.New("backup job was cancelled")

	// ErrEngineMismatch is returned when restoring a dump into a different engine.
	ErrEngineMismatch = errors.New("backup was taken from a different database engine")
)

// JobError describes why a backup job did not complete. The job itself is
// returned alongside it and records the same failure.
type JobError struct {
	JobID string
	// Op is the pipeline step that failed, such as "dump" or "store".
	Op  string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("backup job %s failed at %s: %v", e.JobID, e.Op, e.Err)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// stepError tags an error with the pipeline step that produced it.
type stepError struct {
	op  string
	err error
}

func (e *stepError) Error() string { return e.op + ": " + e.err.Error() }

func (e *stepError) Unwrap() error { return e.err }

func step(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *stepError
	if errors.As(err, &se) {
		return err
	}
	return &stepError{op: op, err: err}
}

// splitStep returns the step name and underlying cause of err.
func splitStep(defaultOp string, err error) (string, error) {
	var se *stepError
	if errors.As(err, &se) {
		return se.op, se.err
	}
	return defaultOp, err
}
