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

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/custodian/internal/logging"
	"github.com/tomtom215/custodian/internal/metrics"
)

// BreakerConfig configures a storage circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
}

// BreakerBackend fails fast while the wrapped backend is unhealthy.
type BreakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker[interface{}]
}

// NewBreaker wraps next with a circuit breaker. Missing artifacts and caller
// cancellation do not count as failures.
func NewBreaker(next Backend, cfg BreakerConfig) *BreakerBackend {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	name := "storage-" + next.Name()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrInvalidPath) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Storage circuit breaker state changed")
			metrics.RecordBreakerTransition(name, from.String(), to.String(), int(to))
		},
	}

	return &BreakerBackend{next: next, cb: gobreaker.NewCircuitBreaker[interface{}](settings)}
}

// Name implements Backend.
func (b *BreakerBackend) Name() string { return b.next.Name() }

// State returns the breaker state for health reporting.
func (b *BreakerBackend) State() string { return b.cb.State().String() }

func (b *BreakerBackend) execute(fn func() (interface{}, error)) (interface{}, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return v, err
}

// Put implements Backend.
func (b *BreakerBackend) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.next.Put(ctx, path, r, size)
	})
	return err
}

// Get implements Backend.
func (b *BreakerBackend) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	v, err := b.execute(func() (interface{}, error) {
		return b.next.Get(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	return v.(io.ReadCloser), nil
}

// Exists implements Backend.
func (b *BreakerBackend) Exists(ctx context.Context, path string) (bool, error) {
	v, err := b.execute(func() (interface{}, error) {
		return b.next.Exists(ctx, path)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Delete implements Backend.
func (b *BreakerBackend) Delete(ctx context.Context, path string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, path)
	})
	return err
}

// TemporaryURL implements Backend. Presigning is local and bypasses the breaker.
func (b *BreakerBackend) TemporaryURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return b.next.TemporaryURL(ctx, path, ttl)
}
