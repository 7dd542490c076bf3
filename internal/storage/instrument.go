// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/tomtom215/custodian/internal/metrics"
)

// InstrumentedBackend records latency and error metrics for every call.
type InstrumentedBackend struct {
	next Backend
}

// NewInstrumented wraps next with Prometheus instrumentation.
func NewInstrumented(next Backend) *InstrumentedBackend {
	return &InstrumentedBackend{next: next}
}

// Name implements Backend.
func (i *InstrumentedBackend) Name() string { return i.next.Name() }

// Unwrap returns the wrapped backend.
func (i *InstrumentedBackend) Unwrap() Backend { return i.next }

func (i *InstrumentedBackend) record(op string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) {
		err = nil
	}
	metrics.RecordStorageOperation(i.next.Name(), op, time.Since(start), err)
}

// Put implements Backend.
func (i *InstrumentedBackend) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	start := time.Now()
	err := i.next.Put(ctx, path, r, size)
	i.record("put", start, err)
	return err
}

// Get implements Backend.
func (i *InstrumentedBackend) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	start := time.Now()
	rc, err := i.next.Get(ctx, path)
	i.record("get", start, err)
	return rc, err
}

// Exists implements Backend.
func (i *InstrumentedBackend) Exists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, path)
	i.record("exists", start, err)
	return ok, err
}

// Delete implements Backend.
func (i *InstrumentedBackend) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := i.next.Delete(ctx, path)
	i.record("delete", start, err)
	return err
}

// TemporaryURL implements Backend.
func (i *InstrumentedBackend) TemporaryURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	start := time.Now()
	u, err := i.next.TemporaryURL(ctx, path, ttl)
	if errors.Is(err, ErrTemporaryURLNotSupported) {
		return u, err
	}
	i.record("temporary_url", start, err)
	return u, err
}
