// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
)

const (
	jobKeyPrefix = "job:"

	// maxConflictRetries bounds optimistic transaction retries on ErrConflict.
	maxConflictRetries = 5

	defaultGCRatio = 0.5
)

// Options configures a BadgerStore.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// GCRatio is the value-log discard ratio passed to RunValueLogGC.
	GCRatio float64
}

// BadgerStore is a Store backed by BadgerDB.
type BadgerStore struct {
	db      *badger.DB
	gcRatio float64

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the ledger database.
func Open(opts Options) (*BadgerStore, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("ledger path is required unless in-memory")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = newBadgerLogger()

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	ratio := opts.GCRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = defaultGCRatio
	}

	logging.Info().Str("path", opts.Path).Bool("in_memory", opts.InMemory).Msg("Ledger opened")
	return &BadgerStore{db: db, gcRatio: ratio}, nil
}

func jobKey(id string) []byte {
	return []byte(jobKeyPrefix + id)
}

func (s *BadgerStore) check() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Create inserts a new job. The ID must not already exist.
func (s *BadgerStore) Create(ctx context.Context, job *BackupJob) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.ID == "" {
		return errors.New("backup job has no ID")
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(jobKey(job.ID))
		if err == nil {
			return fmt.Errorf("backup job %s already exists", job.ID)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(jobKey(job.ID), data)
	})
}

func getJob(txn *badger.Txn, id string) (*BackupJob, error) {
	item, err := txn.Get(jobKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var job BackupJob
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &job)
	}); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// Get returns the job with the given ID or ErrNotFound.
func (s *BadgerStore) Get(ctx context.Context, id string) (*BackupJob, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var job *BackupJob
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		job, err = getJob(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Update replaces a stored job.
//
// The stored ExpiresAt always wins once set. A status change is accepted
// only when it is a legal transition from the stored status, so a job that
// was cancelled concurrently cannot be moved to completed or failed.
func (s *BadgerStore) Update(ctx context.Context, job *BackupJob) error {
	if err := s.check(); err != nil {
		return err
	}

	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			stored, err := getJob(txn, job.ID)
			if err != nil {
				return err
			}
			if stored.Status != job.Status && !canTransition(stored.Status, job.Status) {
				return fmt.Errorf("%w: stored %s, got %s", ErrInvalidTransition, stored.Status, job.Status)
			}
			if stored.ExpiresAt != nil {
				job.ExpiresAt = cloneTime(stored.ExpiresAt)
			}

			data, err := json.Marshal(job)
			if err != nil {
				return fmt.Errorf("marshal job: %w", err)
			}
			return txn.Set(jobKey(job.ID), data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("update job %s: %w", job.ID, err)
}

// Delete removes a job. Deleting a missing job returns ErrNotFound.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(jobKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(jobKey(id))
	})
}

// List returns jobs matching filter, newest first unless filter.SortAsc.
func (s *BadgerStore) List(ctx context.Context, filter ListFilter) ([]*BackupJob, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	jobs := make([]*BackupJob, 0)
	prefix := []byte(jobKeyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var job BackupJob
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(it.Item().Key())).Msg("Skipping undecodable ledger entry")
				continue
			}
			if filter.matches(&job) {
				jobs = append(jobs, &job)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	sortJobs(jobs, filter.SortAsc)
	return paginate(jobs, filter.Offset, filter.Limit), nil
}

// RunGC runs value-log garbage collection until nothing is left to rewrite.
// It reports whether any value-log file was rewritten.
func (s *BadgerStore) RunGC() (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}

	rewritten := false
	for {
		err := s.db.RunValueLogGC(s.gcRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			metrics.LedgerGCRuns.WithLabelValues("error").Inc()
			return rewritten, fmt.Errorf("run ledger GC: %w", err)
		}
		rewritten = true
	}

	if rewritten {
		metrics.LedgerGCRuns.WithLabelValues("rewritten").Inc()
	} else {
		metrics.LedgerGCRuns.WithLabelValues("noop").Inc()
	}
	return rewritten, nil
}

// Ping reports whether the store is open and readable.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// Close closes the database. It is safe to call more than once.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// badgerLogger routes BadgerDB's own warnings and errors through zerolog.
type badgerLogger struct{}

func newBadgerLogger() badger.Logger { return badgerLogger{} }

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "ledger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "ledger").Msgf(format, args...)
}

func (badgerLogger) Infof(string, ...interface{}) {}

func (badgerLogger) Debugf(string, ...interface{}) {}
