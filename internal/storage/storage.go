// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when an artifact does not exist.
	ErrNotFound = errors.New("artifact not found")
	// ErrTemporaryURLNotSupported is returned by backends that cannot sign URLs.
	ErrTemporaryURLNotSupported = errors.New("temporary URLs are not supported by this backend")
	// ErrCircuitOpen is returned while a backend's circuit breaker is open.
	ErrCircuitOpen = errors.New("storage backend circuit breaker is open")
	// ErrInvalidPath is returned for absolute keys or keys escaping the root.
	ErrInvalidPath = errors.New("invalid artifact path")
	// ErrUnknownBackend is returned by Registry.Get for unregistered names.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Backend stores and retrieves backup artifacts.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string
	// Put stores r at path. size is the number of bytes r will yield, or -1
	// when unknown.
	Put(ctx context.Context, path string, r io.Reader, size int64) error
	// Get opens the artifact at path. The caller closes the reader.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Exists reports whether an artifact is stored at path.
	Exists(ctx context.Context, path string) (bool, error)
	// Delete removes the artifact at path. Deleting a missing artifact is not an error.
	Delete(ctx context.Context, path string) error
	// TemporaryURL returns a time-limited download URL.
	TemporaryURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// CleanPath normalizes an artifact key and rejects keys that escape the root.
func CleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// Registry resolves backends by name.
type Registry struct {
	backends map[string]Backend
}

// NewEmptyRegistry creates a registry with no backends.
func NewEmptyRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds or replaces a backend under its name.
func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return b, nil
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
