// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package storage

import (
	"context"
	"io"
	"time"

	"golang.org/x/time/rate"
)

// ThrottledBackend limits artifact transfer rate in both directions.
type ThrottledBackend struct {
	next    Backend
	limiter *rate.Limiter
}

// NewThrottle wraps next with a shared bytes-per-second limit.
func NewThrottle(next Backend, bytesPerSecond int64) *ThrottledBackend {
	burst := int(bytesPerSecond)
	if burst > 1<<20 {
		burst = 1 << 20
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledBackend{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
	}
}

// Name implements Backend.
func (t *ThrottledBackend) Name() string { return t.next.Name() }

// Put implements Backend.
func (t *ThrottledBackend) Put(ctx context.Context, path string, r io.Reader, size int64) error {
	return t.next.Put(ctx, path, t.wrap(ctx, r), size)
}

// Get implements Backend.
func (t *ThrottledBackend) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := t.next.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return &throttledReadCloser{
		throttledReader: throttledReader{ctx: ctx, r: rc, limiter: t.limiter},
		closer:          rc,
	}, nil
}

// Exists implements Backend.
func (t *ThrottledBackend) Exists(ctx context.Context, path string) (bool, error) {
	return t.next.Exists(ctx, path)
}

// Delete implements Backend.
func (t *ThrottledBackend) Delete(ctx context.Context, path string) error {
	return t.next.Delete(ctx, path)
}

// TemporaryURL implements Backend. Direct downloads are not throttled.
func (t *ThrottledBackend) TemporaryURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	return t.next.TemporaryURL(ctx, path, ttl)
}

// wrap keeps io.Seeker available so S3 uploads can still sign the payload.
func (t *ThrottledBackend) wrap(ctx context.Context, r io.Reader) io.Reader {
	tr := throttledReader{ctx: ctx, r: r, limiter: t.limiter}
	if s, ok := r.(io.ReadSeeker); ok {
		return &throttledReadSeeker{throttledReader: tr, seeker: s}
	}
	return &tr
}

type throttledReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

func (t *throttledReader) Read(p []byte) (int, error) {
	if burst := t.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.limiter.WaitN(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

type throttledReadSeeker struct {
	throttledReader
	seeker io.Seeker
}

func (t *throttledReadSeeker) Seek(offset int64, whence int) (int64, error) {
	return t.seeker.Seek(offset, whence)
}

type throttledReadCloser struct {
	throttledReader
	closer io.Closer
}

func (t *throttledReadCloser) Close() error { return t.closer.Close() }
