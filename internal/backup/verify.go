// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package backup

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/custodian/internal/codec"
	"github.com/tomtom215/custodian/internal/ledger"
	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
	"github.com/tomtom215/custodian/internal/storage"
)

// VerifyResult is the outcome of verifying one job. An integrity failure is
// Valid=false with a Reason, never an error.
type VerifyResult struct {
	JobID    string `json:"job_id"`
	Name     string `json:"name"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

// Verify checks that a completed job's artifact exists and, when a checksum
// is recorded, that it still hashes to it. A match marks the job verified.
// Only ledger failures are returned as errors.
func (s *Service) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	job, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.verifyJob(ctx, job)
}

// VerifyAll verifies every completed job that is not yet verified, or every
// completed job when force is set.
func (s *Service) VerifyAll(ctx context.Context, force bool) ([]*VerifyResult, error) {
	jobs, err := s.ledger.List(ctx, ledger.ListFilter{Status: ledger.StatusCompleted, SortAsc: true})
	if err != nil {
		return nil, err
	}

	results := make([]*VerifyResult, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if job.Verified && !force {
			continue
		}
		res, err := s.verifyJob(ctx, job)
		if err != nil {
			res = &VerifyResult{JobID: job.ID, Name: job.Name, Reason: err.Error()}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) verifyJob(ctx context.Context, job *ledger.BackupJob) (*VerifyResult, error) {
	ctx = logging.ContextWithJobID(ctx, job.ID)
	res := &VerifyResult{JobID: job.ID, Name: job.Name}

	invalid := func(reason string, err error) (*VerifyResult, error) {
		res.Reason = reason
		if err != nil {
			res.Reason = fmt.Sprintf("%s: %v", reason, err)
		}
		metrics.RecordVerification(false, nil)
		logging.Ctx(ctx).Warn().Str("reason", res.Reason).Msg("Backup verification failed")

		// A job that no longer verifies loses its verified mark.
		if job.Verified {
			job.ClearVerified()
			if err := s.ledger.Update(ctx, job); err != nil {
				return nil, fmt.Errorf("clear verification: %w", err)
			}
		}
		return res, nil
	}

	if job.Status != ledger.StatusCompleted {
		return invalid(fmt.Sprintf("job is %s", job.Status), nil)
	}
	backend, err := s.storage.Get(job.StorageDriver)
	if err != nil {
		return invalid("storage backend unavailable", err)
	}

	exists, err := backend.Exists(ctx, job.FilePath)
	if err != nil {
		return invalid("check artifact", err)
	}
	if !exists {
		return invalid("artifact missing", nil)
	}

	if job.Checksum == "" {
		res.Valid = true
		metrics.RecordVerification(true, nil)
		return res, nil
	}
	if job.IsEncrypted && s.encryptor == nil {
		return invalid("artifact is encrypted and no encryption key is configured", nil)
	}

	sum, err := s.payloadChecksum(ctx, backend, job)
	if err != nil {
		if errors.Is(err, codec.ErrAuthenticationFailed) || errors.Is(err, codec.ErrTruncated) || errors.Is(err, codec.ErrInvalidHeader) {
			return invalid("decrypt artifact", err)
		}
		return invalid("read artifact", err)
	}
	res.Checksum = sum
	if !codec.ChecksumsEqual(sum, job.Checksum) {
		return invalid("checksum mismatch", nil)
	}

	job.MarkVerified(s.now())
	if err := s.ledger.Update(ctx, job); err != nil {
		metrics.RecordVerification(false, err)
		return nil, fmt.Errorf("record verification: %w", err)
	}

	res.Valid = true
	metrics.RecordVerification(true, nil)
	logging.Ctx(ctx).Info().Str("name", job.Name).Msg("Backup verified")
	return res, nil
}

// payloadChecksum streams the artifact, decrypting when needed, and hashes
// the pre-encryption payload.
func (s *Service) payloadChecksum(ctx context.Context, backend storage.Backend, job *ledger.BackupJob) (string, error) {
	rc, err := backend.Get(ctx, job.FilePath)
	if err != nil {
		return "", err
	}
	defer rc.Close() //nolint:errcheck // read-only

	if !job.IsEncrypted {
		sum, _, err := codec.ChecksumReader(rc)
		return sum, err
	}

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pw.CloseWithError(s.encryptor.Decrypt(pw, rc)) //nolint:errcheck // always nil
	}()

	sum, _, err := codec.ChecksumReader(pr)
	_ = pr.CloseWithError(err) //nolint:errcheck // always nil
	<-done
	return sum, err
}
